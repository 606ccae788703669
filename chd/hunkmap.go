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
	"encoding/binary"
	"fmt"
	"io"

	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
)

// V3/V4 map entry flags.
const (
	v4EntryCompressed   = 1
	v4EntryUncompressed = 2
	v4EntryMini         = 3
	v4EntrySelf         = 4
	v4EntryParent       = 5
	v4EntryTypeMask     = 0x0F
	v4EntryNoCRC        = 0x10

	v4EntrySize = 16
)

var v4EntryKinds = map[uint8]uint8{
	v4EntryCompressed:   hunkCodec0,
	v4EntryUncompressed: hunkNone,
	v4EntryMini:         hunkMini,
	v4EntrySelf:         hunkSelf,
	v4EntryParent:       hunkParent,
}

// parseMapV4 reads the flat V3/V4 map: offset, CRC-32, a 24-bit length and
// a flags byte per hunk.
func parseMapV4(r io.ReaderAt, h *Header) ([]hunkEntry, error) {
	n := int(h.NumHunks())
	raw, err := ibinary.ReadBytesAt(r, int64(h.MapOffset), n*v4EntrySize) //nolint:gosec // offsets past the file fail the read
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}

	entries := make([]hunkEntry, n)
	for i := range entries {
		b := raw[i*v4EntrySize : (i+1)*v4EntrySize]
		flags := b[15]
		kind, ok := v4EntryKinds[flags&v4EntryTypeMask]
		if !ok {
			return nil, fmt.Errorf("%w: hunk %d has map type %d", ErrInvalidHunk, i, flags&v4EntryTypeMask)
		}
		e := hunkEntry{
			offset: binary.BigEndian.Uint64(b[0:]),
			crc:    binary.BigEndian.Uint32(b[8:]),
			length: uint32(binary.BigEndian.Uint16(b[12:])) | uint32(b[14])<<16,
			kind:   kind,
		}
		if flags&v4EntryNoCRC == 0 && (kind == hunkCodec0 || kind == hunkNone) {
			e.check = crc32V4
		}
		entries[i] = e
	}
	return entries, nil
}

// V5 compressed map header fields.
const (
	v5MapHeaderSize = 16
	v5RawEntrySize  = 12
	v5MapCodes      = 16
	v5MapMaxBits    = 8
)

// parseMapV5 reads a V5 map. Uncompressed images store one 32-bit hunk
// number per hunk; compressed images store a Huffman coded map that is
// expanded to MAME's 12-byte raw form and checked against its CRC.
func parseMapV5(r io.ReaderAt, h *Header) ([]hunkEntry, error) {
	n := int(h.NumHunks())
	if h.Compressors[0] == CodecNone {
		return parseRawMapV5(r, h, n)
	}

	hdr, err := ibinary.ReadBytesAt(r, int64(h.MapOffset), v5MapHeaderSize) //nolint:gosec // see parseMapV4
	if err != nil {
		return nil, fmt.Errorf("read map header: %w", err)
	}
	compLen := binary.BigEndian.Uint32(hdr[0:])
	firstOffset := uint64(binary.BigEndian.Uint16(hdr[4:]))<<32 | uint64(binary.BigEndian.Uint32(hdr[6:]))
	mapCRC := binary.BigEndian.Uint16(hdr[10:])
	lengthBits, selfBits, parentBits := int(hdr[12]), int(hdr[13]), int(hdr[14])
	if compLen > MaxCompMapLen {
		return nil, fmt.Errorf("%w: compressed map of %d bytes", ErrInvalidHeader, compLen)
	}
	if lengthBits > 32 || selfBits > 32 || parentBits > 32 {
		return nil, fmt.Errorf("%w: map field widths %d/%d/%d", ErrInvalidHeader, lengthBits, selfBits, parentBits)
	}

	comp, err := ibinary.ReadBytesAt(r, int64(h.MapOffset)+v5MapHeaderSize, int(compLen)) //nolint:gosec // bounded above
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	br := newBitReader(comp)

	dec := newHuffmanDecoder(v5MapCodes, v5MapMaxBits)
	if err := dec.importTreeRLE(br); err != nil {
		return nil, err
	}

	raw := make([]byte, n*v5RawEntrySize)
	var last uint8
	repeat := 0
	for i := range n {
		if repeat > 0 {
			raw[i*v5RawEntrySize] = last
			repeat--
			continue
		}
		switch v := dec.decode(br); v {
		case hunkRLESmall:
			raw[i*v5RawEntrySize] = last
			repeat = 2 + int(dec.decode(br))
		case hunkRLELarge:
			raw[i*v5RawEntrySize] = last
			repeat = 2 + 16 + int(dec.decode(br))<<4
			repeat += int(dec.decode(br))
		default:
			raw[i*v5RawEntrySize] = v
			last = v
		}
	}

	unitsPerHunk := uint64(h.HunkBytes / h.UnitBytes)
	offset := firstOffset
	var lastSelf, lastParent uint64
	entries := make([]hunkEntry, n)
	for i := range entries {
		b := raw[i*v5RawEntrySize : (i+1)*v5RawEntrySize]
		e := hunkEntry{kind: b[0]}
		switch e.kind {
		case hunkCodec0, hunkCodec1, hunkCodec2, hunkCodec3:
			e.offset = offset
			e.length = br.read(lengthBits)
			e.crc = br.read(16)
			e.check = crc16V5
			offset += uint64(e.length)
		case hunkNone:
			e.offset = offset
			e.length = h.HunkBytes
			e.crc = br.read(16)
			e.check = crc16V5
			offset += uint64(e.length)
		case hunkSelf:
			lastSelf = uint64(br.read(selfBits))
			e.offset = lastSelf
		case hunkParent:
			lastParent = uint64(br.read(parentBits))
			e.offset = lastParent
		case hunkSelf1:
			lastSelf++
			fallthrough
		case hunkSelf0:
			e.kind = hunkSelf
			e.offset = lastSelf
		case hunkParentSelf:
			lastParent = uint64(i) * unitsPerHunk //nolint:gosec // i >= 0
			e.kind = hunkParent
			e.offset = lastParent
		case hunkParent1:
			lastParent += unitsPerHunk
			fallthrough
		case hunkParent0:
			e.kind = hunkParent
			e.offset = lastParent
		default:
			return nil, fmt.Errorf("%w: hunk %d has map type %d", ErrInvalidHunk, i, e.kind)
		}

		b[0] = e.kind
		b[1], b[2], b[3] = byte(e.length>>16), byte(e.length>>8), byte(e.length)
		binary.BigEndian.PutUint16(b[4:], uint16(e.offset>>32)) //nolint:gosec // 48-bit field
		binary.BigEndian.PutUint32(b[6:], uint32(e.offset))     //nolint:gosec // 48-bit field
		binary.BigEndian.PutUint16(b[10:], uint16(e.crc))       //nolint:gosec // 16-bit field
		entries[i] = e
	}

	if got := hunkCRC16(raw); got != mapCRC {
		return nil, fmt.Errorf("%w: map CRC %04x, header says %04x", ErrCorruptData, got, mapCRC)
	}
	return entries, nil
}

// parseRawMapV5 reads the map of an uncompressed V5 image. A zero entry is
// a hunk that was never written and reads as zeros.
func parseRawMapV5(r io.ReaderAt, h *Header, n int) ([]hunkEntry, error) {
	raw, err := ibinary.ReadBytesAt(r, int64(h.MapOffset), n*4) //nolint:gosec // see parseMapV4
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	entries := make([]hunkEntry, n)
	for i := range entries {
		block := uint64(binary.BigEndian.Uint32(raw[i*4:]))
		if block == 0 {
			entries[i] = hunkEntry{kind: hunkMini}
			continue
		}
		entries[i] = hunkEntry{kind: hunkNone, offset: block * uint64(h.HunkBytes), length: h.HunkBytes}
	}
	return entries, nil
}
