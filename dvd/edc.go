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

package dvd

import "encoding/binary"

// edcPolynomial is x^32 + x^31 + x^4 + 1 (ECMA-267 EDC), processed MSB first.
const edcPolynomial = 0x80000011

var edcTable = func() [256]uint32 {
	var t [256]uint32
	for i := range 256 {
		c := uint32(i) << 24
		for range 8 {
			if c&0x80000000 != 0 {
				c = (c << 1) ^ edcPolynomial
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}()

// ComputeEDC returns the DVD EDC of data: zero initial value, no final XOR.
func ComputeEDC(data []byte) uint32 {
	var edc uint32
	for _, b := range data {
		edc = (edc << 8) ^ edcTable[byte(edc>>24)^b]
	}
	return edc
}

// StoredEDC returns the big-endian EDC recorded at the end of sector.
func StoredEDC(sector []byte) uint32 {
	return binary.BigEndian.Uint32(sector[EDCOffset:SectorSize])
}

// ValidEDC reports whether an unscrambled sector matches its stored EDC.
func ValidEDC(sector []byte) bool {
	return len(sector) == SectorSize && ComputeEDC(sector[:EDCOffset]) == StoredEDC(sector)
}
