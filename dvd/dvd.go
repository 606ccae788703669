// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-discsector.
//
// go-discsector is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-discsector is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-discsector.  If not, see <https://www.gnu.org/licenses/>.

// Package dvd implements the DVD sector scrambler with keystream seed
// recovery.
//
// A raw DVD sector is 2064 bytes: a 12-byte header (ID, IED and CPR_MAI), 2048
// bytes of main data scrambled with a 15-bit LFSR keystream, and a big-endian
// EDC over the unscrambled first 2060 bytes. The seed that produced the
// keystream is not stored on the disc, so it is recovered by testing
// candidates against the EDC.
package dvd

import "errors"

// Sector geometry.
const (
	SectorSize = 2064
	DataSize   = 2048
	DataOffset = 12
	EDCOffset  = DataOffset + DataSize

	// SeedSpace is the number of distinct 15-bit LFSR seeds.
	SeedSpace = 0x8000
	seedMask  = SeedSpace - 1
)

var (
	// ErrBlockLength indicates a buffer that is not a whole number of sectors.
	ErrBlockLength = errors.New("buffer length is not sector count times 2064")

	// ErrSeedFileVersion indicates a seed file written by an incompatible version.
	ErrSeedFileVersion = errors.New("unsupported seed file version")
)

// Status is the outcome of scrambling or descrambling one sector.
type Status uint8

// Sector outcomes.
const (
	// StatusTransformed means a seed verified and the main data was XORed.
	StatusTransformed Status = iota
	// StatusPlain means only the all-zero keystream verifies: the sector is
	// not scrambled and was left as is.
	StatusPlain
	// StatusNoSeed means no candidate verified against the EDC.
	StatusNoSeed
	// StatusBadLength means the buffer is not exactly one sector long.
	StatusBadLength
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusTransformed:
		return "transformed"
	case StatusPlain:
		return "plain"
	case StatusNoSeed:
		return "no seed"
	case StatusBadLength:
		return "bad length"
	default:
		return "unknown"
	}
}

// Result describes what happened to one sector.
type Result struct {
	Status Status `json:"status"`
	Seed   uint16 `json:"seed"`
	Trials int    `json:"trials"`
}
