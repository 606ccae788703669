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

package subcode

import (
	"encoding/binary"

	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
)

// QSize is the length of a Q block including its CRC.
const QSize = 12

// Q is one Q channel block: control and ADR nibbles, nine mode-dependent
// bytes and a CRC-16 stored inverted.
type Q [QSize]byte

// Control returns the control nibble.
func (q Q) Control() byte { return q[0] >> 4 }

// ADR returns the address mode nibble.
func (q Q) ADR() byte { return q[0] & 0x0F }

// Control flags.
const (
	ControlPreEmphasis = 0x1
	ControlCopyPermit  = 0x2
	ControlData        = 0x4
	ControlFourChannel = 0x8
)

var crcTable = func() [256]uint16 {
	var t [256]uint16
	for i := range 256 {
		c := uint16(i) << 8
		for range 8 {
			if c&0x8000 != 0 {
				c = (c << 1) ^ 0x1021
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}()

// CRC16 computes CRC-16/CCITT (polynomial 0x1021, zero initial value) over data.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}

// CRC returns the CRC the block should carry, already inverted.
func (q Q) CRC() uint16 {
	return ^CRC16(q[:10])
}

// StoredCRC returns the big-endian CRC recorded in bytes 10 and 11.
func (q Q) StoredCRC() uint16 {
	return binary.BigEndian.Uint16(q[10:])
}

// Valid reports whether the stored CRC matches the block.
func (q Q) Valid() bool {
	return q.CRC() == q.StoredCRC()
}

// WithCRC returns q with its CRC bytes recomputed.
func (q Q) WithCRC() Q {
	binary.BigEndian.PutUint16(q[10:], q.CRC())
	return q
}

// BinaryToBCD converts bytes 1 to 9 of q from binary to packed BCD. Values
// above 99 have no BCD form and are left as they are; ok is false when any
// byte was left that way. Control/ADR and CRC bytes are not touched.
func BinaryToBCD(q Q) (out Q, ok bool) {
	ok = true
	for i := 1; i <= 9; i++ {
		var converted bool
		q[i], converted = ibinary.ToBCD(q[i])
		ok = ok && converted
	}
	return q, ok
}

// BCDToBinary converts bytes 1 to 9 of q from packed BCD to binary. Bytes
// with a nibble above 9 (such as POINT codes A0-C1) are left as they are and
// ok is false.
func BCDToBinary(q Q) (out Q, ok bool) {
	ok = true
	for i := 1; i <= 9; i++ {
		var converted bool
		q[i], converted = ibinary.FromBCD(q[i])
		ok = ok && converted
	}
	return q, ok
}
