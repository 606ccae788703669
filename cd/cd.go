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

// Package cd implements the CD-ROM sector codec: header reconstruction,
// EDC/ECC regeneration and the ECMA-130 scrambler.
//
// All operations work in place on a caller-provided buffer and never fail.
// Inputs that do not apply to a given operation (short buffers, audio tracks,
// sectors without a sync mark) are left untouched and reported as Unchanged.
package cd

// Sector geometry.
const (
	SectorSize     = 2352
	SubchannelSize = 96
	FrameSize      = SectorSize + SubchannelSize
	SyncSize       = 12
	HeaderSize     = 4
	UserDataSize   = 2048
	Form2DataSize  = 2324

	// MSFOffset is the number of frames in the two-second pregap before LBA 0.
	MSFOffset = 150

	// FramesPerSecond is the number of sectors per second of playback.
	FramesPerSecond = 75
)

// Byte offsets inside a raw sector.
const (
	headerOffset    = 0x0C
	modeOffset      = 0x0F
	subheaderOffset = 0x10
	edcMode1Offset  = 0x810
	edcForm1Offset  = 0x818
	edcForm2Offset  = 0x92C
	zeroMode1Offset = 0x814
	pParityOffset   = 0x81C
	qParityOffset   = 0x8C8
)

// Sync is the 12-byte synchronisation pattern that starts every data sector.
var Sync = [SyncSize]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// TrackType describes the physical layout of the sectors of a track.
type TrackType uint8

// Track types.
const (
	TrackOther TrackType = iota
	TrackAudio
	TrackMode1
	TrackMode2Form1
	TrackMode2Form2
	TrackMode2Formless
)

// String returns the track type name.
func (t TrackType) String() string {
	switch t {
	case TrackAudio:
		return "AUDIO"
	case TrackMode1:
		return "MODE1"
	case TrackMode2Form1:
		return "MODE2/FORM1"
	case TrackMode2Form2:
		return "MODE2/FORM2"
	case TrackMode2Formless:
		return "MODE2"
	default:
		return "OTHER"
	}
}

// IsData reports whether sectors of this type carry a sync mark and header.
func (t TrackType) IsData() bool {
	switch t {
	case TrackMode1, TrackMode2Form1, TrackMode2Form2, TrackMode2Formless:
		return true
	default:
		return false
	}
}

// Mode returns the header mode byte for data track types, or 0.
func (t TrackType) Mode() byte {
	switch t {
	case TrackMode1:
		return 1
	case TrackMode2Form1, TrackMode2Form2, TrackMode2Formless:
		return 2
	default:
		return 0
	}
}

// Result reports whether an in-place operation modified the buffer.
type Result uint8

// Operation results.
const (
	Unchanged Result = iota
	Transformed
)

// String returns the result name.
func (r Result) String() string {
	if r == Transformed {
		return "transformed"
	}
	return "unchanged"
}
