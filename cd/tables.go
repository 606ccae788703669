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

const edcPolynomial = 0xD8018001

// Lookup tables, built once at package initialisation and read-only afterwards.
var (
	// gfForward[i] is i multiplied by alpha in GF(2^8) modulo x^8+x^4+x^3+x^2+1.
	gfForward [256]byte
	// gfBackward inverts the map i -> i ^ gfForward[i].
	gfBackward [256]byte
	// edcTable is the reflected CRC table for the EDC polynomial.
	edcTable [256]uint32
	// scrambleTable is the ECMA-130 keystream; the sync bytes are not scrambled.
	scrambleTable [SectorSize]byte
)

func init() {
	for i := range 256 {
		j := i << 1
		if i&0x80 != 0 {
			j ^= 0x11D
		}
		gfForward[i] = byte(j)
		gfBackward[i^(j&0xFF)] = byte(i)

		edc := uint32(i)
		for range 8 {
			if edc&1 != 0 {
				edc = (edc >> 1) ^ edcPolynomial
			} else {
				edc >>= 1
			}
		}
		edcTable[i] = edc
	}

	// 15-bit LFSR x^15+x+1 seeded with 1, emitted LSB first.
	shift := uint16(1)
	for i := SyncSize; i < SectorSize; i++ {
		var v byte
		for bit := range 8 {
			v |= byte(shift&1) << bit
			carry := (shift & 1) ^ ((shift >> 1) & 1)
			shift = ((carry << 14) | (shift >> 1)) & 0x7FFF
		}
		scrambleTable[i] = v
	}
}
