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

package chd

import "errors"

// Limits on sizes read from the image before anything is allocated.
const (
	MaxCompMapLen      = 100 << 20
	MaxNumHunks        = 10_000_000
	MaxNumTracks       = 99   // highest track number on a CD
	MaxMetadataEntries = 1000 // bounds a looping metadata chain
)

var (
	ErrInvalidMagic       = errors.New("not a CHD image")
	ErrInvalidHeader      = errors.New("invalid CHD header")
	ErrUnsupportedVersion = errors.New("unsupported CHD version")
	ErrUnsupportedCodec   = errors.New("unsupported CHD codec")
	ErrInvalidHunk        = errors.New("invalid hunk map entry")
	ErrDecompressFailed   = errors.New("hunk decompression failed")
	ErrInvalidMetadata    = errors.New("invalid CD track metadata")

	// ErrCorruptData marks a hunk whose contents fail their stored CRC or
	// do not decode to a full hunk. Callers may treat it as a bad sector
	// rather than a fatal error.
	ErrCorruptData = errors.New("corrupt CHD hunk")

	// ErrFrameNotStored is returned for LBAs outside every stored track,
	// such as pregaps the image does not carry.
	ErrFrameNotStored = errors.New("frame not stored in CHD")
)
