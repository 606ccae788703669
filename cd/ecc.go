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
	"encoding/binary"
)

// ComputeEDC folds data into the running EDC value seed and returns the result.
// A full sector EDC starts from seed 0.
func ComputeEDC(seed uint32, data []byte) uint32 {
	edc := seed
	for _, b := range data {
		edc = (edc >> 8) ^ edcTable[(edc^uint32(b))&0xFF]
	}
	return edc
}

// ReconstructPrefix rewrites the sync mark, the BCD MSF address of lba and the
// mode byte. For every Mode 2 variant the subheader copy at 0x14 is
// duplicated into the field at 0x10.
func ReconstructPrefix(sector []byte, tt TrackType, lba int32) Result {
	if len(sector) < SectorSize || !tt.IsData() {
		return Unchanged
	}

	copy(sector[:SyncSize], Sync[:])
	msf := LBAToMSF(lba).BCD()
	copy(sector[headerOffset:headerOffset+3], msf[:])
	sector[modeOffset] = tt.Mode()

	if tt.Mode() == 2 {
		copy(sector[subheaderOffset:subheaderOffset+4], sector[subheaderOffset+4:subheaderOffset+8])
	}
	return Transformed
}

// ReconstructECC regenerates the EDC and, where the layout carries them, the
// P and Q parity bytes of sector.
//
// Mode 1 sectors protect the header; Mode 2 Form 1 parity is computed with the
// header treated as zero. Form 2 sectors carry an EDC only. Audio, formless
// Mode 2 and unknown sectors are left untouched.
func ReconstructECC(sector []byte, tt TrackType) Result {
	if len(sector) < SectorSize {
		return Unchanged
	}

	switch tt {
	case TrackMode1:
		edc := ComputeEDC(0, sector[:edcMode1Offset])
		binary.LittleEndian.PutUint32(sector[edcMode1Offset:], edc)
		clear(sector[zeroMode1Offset:pParityOffset])
		generateParity(sector, false)
	case TrackMode2Form1:
		edc := ComputeEDC(0, sector[subheaderOffset:edcForm1Offset])
		binary.LittleEndian.PutUint32(sector[edcForm1Offset:], edc)
		generateParity(sector, true)
	case TrackMode2Form2:
		edc := ComputeEDC(0, sector[subheaderOffset:edcForm2Offset])
		binary.LittleEndian.PutUint32(sector[edcForm2Offset:], edc)
	default:
		return Unchanged
	}
	return Transformed
}

// ReconstructParity regenerates only the P and Q parity of a Mode 1 or
// Mode 2 Form 1 sector, leaving the EDC as stored.
func ReconstructParity(sector []byte, tt TrackType) Result {
	if len(sector) < SectorSize {
		return Unchanged
	}

	switch tt {
	case TrackMode1:
		generateParity(sector, false)
	case TrackMode2Form1:
		generateParity(sector, true)
	default:
		return Unchanged
	}
	return Transformed
}

func generateParity(sector []byte, zeroAddress bool) {
	var saved [HeaderSize]byte
	if zeroAddress {
		copy(saved[:], sector[headerOffset:headerOffset+HeaderSize])
		clear(sector[headerOffset : headerOffset+HeaderSize])
	}

	src := sector[headerOffset:]
	computeBlock(src, 86, 24, 2, 86, sector[pParityOffset:])
	computeBlock(src, 52, 43, 86, 88, sector[qParityOffset:])

	if zeroAddress {
		copy(sector[headerOffset:headerOffset+HeaderSize], saved[:])
	}
}

// computeBlock writes majorCount pairs of Reed-Solomon parity bytes for the
// codewords of src selected by the major/minor stepping into dest.
// Index arithmetic wraps modulo majorCount*minorCount.
func computeBlock(src []byte, majorCount, minorCount, majorMult, minorInc int, dest []byte) {
	size := majorCount * minorCount
	for major := range majorCount {
		idx := (major>>1)*majorMult + (major & 1)
		var a, b byte
		for range minorCount {
			t := src[idx]
			idx += minorInc
			if idx >= size {
				idx -= size
			}
			a ^= t
			b ^= t
			a = gfForward[a]
		}
		a = gfBackward[gfForward[a]^b]
		dest[major] = a
		dest[major+majorCount] = a ^ b
	}
}
