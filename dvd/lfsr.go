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

import "sync"

// ecmaInitialValues are the 16 initial LFSR values published in ECMA-267.
var ecmaInitialValues = [16]uint16{
	0x0001, 0x5500, 0x0002, 0x2A00, 0x0004, 0x5400, 0x0008, 0x2801,
	0x0010, 0x5002, 0x0020, 0x2005, 0x0040, 0x400B, 0x0080, 0x0017,
}

// ECMASeeds are ecmaInitialValues in this package's generator convention:
// each register is advanced 7 ticks, so the first output byte is the
// published value's low byte.
var ECMASeeds = func() [16]uint16 {
	var seeds [16]uint16
	for i, v := range ecmaInitialValues {
		for range 7 {
			v, _ = tick(v)
		}
		seeds[i] = v
	}
	return seeds
}()

// tick advances the register one step and returns the output bit (bit 14).
// The feedback is bit 14 XOR bit 10, shifted in at bit 0.
func tick(reg uint16) (next uint16, out byte) {
	out = byte(reg>>14) & 1
	feedback := ((reg >> 14) ^ (reg >> 10)) & 1
	return ((reg << 1) | feedback) & seedMask, out
}

// step holds the keystream byte emitted from a register state and the state
// eight ticks later.
type step struct {
	next uint16
	out  byte
}

var steps = sync.OnceValue(func() *[SeedSpace]step {
	var t [SeedSpace]step
	for reg := range uint16(SeedSpace) {
		r := reg
		var v byte
		for range 8 {
			var bit byte
			r, bit = tick(r)
			v = v<<1 | bit
		}
		t[reg] = step{next: r, out: v}
	}
	return &t
})

// Keystream returns the 2048-byte keystream generated from seed. Only the low
// 15 bits of seed are used.
func Keystream(seed uint16) [DataSize]byte {
	var ks [DataSize]byte
	fillKeystream(&ks, seed)
	return ks
}

func fillKeystream(ks *[DataSize]byte, seed uint16) {
	t := steps()
	reg := seed & seedMask
	for i := range ks {
		s := t[reg]
		ks[i] = s.out
		reg = s.next
	}
}

// keystreamEDCs holds the EDC of every seed's keystream. Since the EDC is
// linear and starts from zero, a candidate verifies when
// EDC(scrambled) ^ keystreamEDCs[seed] equals the stored EDC.
var keystreamEDCs = sync.OnceValue(func() *[SeedSpace]uint32 {
	var t [SeedSpace]uint32
	var ks [DataSize]byte
	for seed := range uint16(SeedSpace) {
		fillKeystream(&ks, seed)
		t[seed] = ComputeEDC(ks[:])
	}
	return &t
})
