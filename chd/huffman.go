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

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// bitReader reads MSB-first bit fields from the compressed V5 map. Reads past
// the end of the data return zero bits, as MAME's reader does.
type bitReader struct {
	r    *bitio.Reader
	left int
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{r: bitio.NewReader(bytes.NewReader(data)), left: 8 * len(data)}
}

// read returns the next count bits, count at most 32.
func (br *bitReader) read(count int) uint32 {
	n := min(count, br.left)
	var v uint64
	if n > 0 {
		var err error
		if v, err = br.r.ReadBits(uint8(n)); err != nil { //nolint:gosec // n <= 32
			v = 0
		}
		br.left -= n
	}
	return uint32(v << (count - n)) //nolint:gosec // at most 32 bits
}

// huffmanDecoder decodes the canonical Huffman code MAME uses for map entry
// types. Code lengths are sent run-length encoded at the start of the map.
type huffmanDecoder struct {
	maxBits int
	lengths []uint8
	// lookup is indexed by a code left-aligned to maxBits and holds
	// symbol<<5 | length, or zero for unused slots.
	lookup []uint16
}

func newHuffmanDecoder(numCodes, maxBits int) *huffmanDecoder {
	return &huffmanDecoder{
		maxBits: maxBits,
		lengths: make([]uint8, numCodes),
		lookup:  make([]uint16, 1<<maxBits),
	}
}

// importTreeRLE reads the code lengths. A length of 1 escapes either a
// literal 1 or a run of the following length.
func (hd *huffmanDecoder) importTreeRLE(br *bitReader) error {
	width := 3
	switch {
	case hd.maxBits >= 16:
		width = 5
	case hd.maxBits >= 8:
		width = 4
	}

	for sym := 0; sym < len(hd.lengths); {
		length := br.read(width)
		if length != 1 {
			hd.lengths[sym] = uint8(length) //nolint:gosec // width <= 5 bits
			sym++
			continue
		}
		length = br.read(width)
		if length == 1 {
			hd.lengths[sym] = 1
			sym++
			continue
		}
		run := int(br.read(width)) + 3
		for ; run > 0 && sym < len(hd.lengths); run-- {
			hd.lengths[sym] = uint8(length) //nolint:gosec // width <= 5 bits
			sym++
		}
	}
	return hd.assignCodes()
}

// assignCodes hands out canonical codes from the longest length down and
// fills the lookup table.
func (hd *huffmanDecoder) assignCodes() error {
	var start [33]uint32
	for _, l := range hd.lengths {
		if int(l) > hd.maxBits {
			return fmt.Errorf("%w: map code length %d exceeds %d", ErrInvalidHeader, l, hd.maxBits)
		}
		start[l]++
	}
	var next uint32
	for l := 32; l > 0; l-- {
		count := start[l]
		start[l] = next
		next = (next + count) >> 1
	}

	for sym, l := range hd.lengths {
		if l == 0 {
			continue
		}
		code := start[l]
		start[l]++
		shift := hd.maxBits - int(l)
		lo, hi := int(code)<<shift, int(code+1)<<shift
		if hi > len(hd.lookup) {
			return fmt.Errorf("%w: map Huffman tree is oversubscribed", ErrInvalidHeader)
		}
		for i := lo; i < hi; i++ {
			hd.lookup[i] = uint16(sym<<5) | uint16(l) //nolint:gosec // sym < 16, l <= 16
		}
	}
	return nil
}

// decode reads one symbol a bit at a time. Unused codes decode as symbol 0.
func (hd *huffmanDecoder) decode(br *bitReader) uint8 {
	var code int
	for l := 1; l <= hd.maxBits; l++ {
		code = code<<1 | int(br.read(1))
		entry := hd.lookup[code<<(hd.maxBits-l)]
		if int(entry&0x1F) == l {
			return uint8(entry >> 5) //nolint:gosec // symbol < 16
		}
	}
	return 0
}
