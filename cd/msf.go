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

package cd

import (
	"fmt"

	"github.com/ZaparooProject/go-discsector/internal/binary"
)

const (
	framesPerMinute = 60 * FramesPerSecond
	// msfWrapFrames is the size of the MSF address space (100 minutes).
	msfWrapFrames = 100 * framesPerMinute
	// leadInMinute is the first minute value that addresses the lead-in.
	leadInMinute = 90
)

// MSF is a minute/second/frame disc address.
type MSF struct {
	Minute uint8
	Second uint8
	Frame  uint8
}

// LBAToMSF converts a logical block address to an absolute MSF address.
// Lead-in addresses (lba < -150) wrap through the 100 minute address space.
func LBAToMSF(lba int32) MSF {
	a := lba + MSFOffset
	if a < 0 {
		a += msfWrapFrames
	}
	return MSF{
		Minute: uint8(a / framesPerMinute),        //nolint:gosec // bounded by msfWrapFrames for valid LBAs
		Second: uint8((a / FramesPerSecond) % 60), //nolint:gosec // 0..59
		Frame:  uint8(a % FramesPerSecond),        //nolint:gosec // 0..74
	}
}

// LBA converts m back to a logical block address. Minutes from 90 upwards
// address the lead-in and yield negative values.
func (m MSF) LBA() int32 {
	a := int32(m.Minute)*framesPerMinute + int32(m.Second)*FramesPerSecond + int32(m.Frame)
	if m.Minute >= leadInMinute {
		a -= msfWrapFrames
	}
	return a - MSFOffset
}

// BCD returns m as three packed-BCD bytes.
func (m MSF) BCD() [3]byte {
	return [3]byte{binary.MustBCD(m.Minute), binary.MustBCD(m.Second), binary.MustBCD(m.Frame)}
}

// String formats m as MM:SS:FF.
func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.Minute, m.Second, m.Frame)
}

// MSFFromBCD decodes three packed-BCD bytes. It reports false when any byte is
// not valid BCD or the second/frame fields are out of range.
func MSFFromBCD(b [3]byte) (MSF, bool) {
	minute, okM := binary.FromBCD(b[0])
	second, okS := binary.FromBCD(b[1])
	frame, okF := binary.FromBCD(b[2])
	if !okM || !okS || !okF || second >= 60 || frame >= FramesPerSecond {
		return MSF{}, false
	}
	return MSF{Minute: minute, Second: second, Frame: frame}, true
}
