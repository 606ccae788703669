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
	"encoding/binary"
	"errors"
	"testing"

	"github.com/icza/bitio"
)

const testV5HunkBytes = 64

// v5MapImage lays out a compressed V5 map followed by its hunks. Every map
// type uses a 4-bit code equal to its value.
type v5MapImage struct {
	types   []uint8
	stored  [][]byte // hunk payloads in file order
	crcs    []uint16 // map CRC per hunk, in map order
	corrupt bool     // flip the map CRC
}

func (img v5MapImage) build(t *testing.T) ([]byte, *Header) {
	t.Helper()

	var comp bytes.Buffer
	bw := bitio.NewWriter(&comp)
	// Sixteen code lengths of 4, packed as nibbles.
	for range 8 {
		if err := bw.WriteByte(0x44); err != nil {
			t.Fatalf("write tree: %v", err)
		}
	}
	for _, typ := range img.types {
		if err := bw.WriteBits(uint64(typ), 4); err != nil {
			t.Fatalf("write type: %v", err)
		}
	}

	type rawEntry struct {
		kind   uint8
		length uint32
		offset uint64 // relative to the first hunk for stored hunks
		stored bool
	}
	entries := make([]rawEntry, len(img.types))
	var next, lastSelf uint64
	stored := 0
	for i, typ := range img.types {
		e := rawEntry{kind: typ}
		switch typ {
		case hunkCodec0, hunkNone:
			e.length = uint32(len(img.stored[stored])) //nolint:gosec // small test hunk
			e.offset, e.stored = next, true
			next += uint64(e.length)
			stored++
			if typ == hunkCodec0 {
				if err := bw.WriteBits(uint64(e.length), 16); err != nil {
					t.Fatalf("write length: %v", err)
				}
			}
			if err := bw.WriteBits(uint64(img.crcs[i]), 16); err != nil {
				t.Fatalf("write crc: %v", err)
			}
		case hunkSelf1:
			lastSelf++
			fallthrough
		case hunkSelf0:
			e.kind, e.offset = hunkSelf, lastSelf
		default:
			t.Fatalf("unsupported test type %d", typ)
		}
		entries[i] = e
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close bit writer: %v", err)
	}

	firstOffset := uint64(v5MapHeaderSize + comp.Len())
	raw := make([]byte, len(entries)*v5RawEntrySize)
	for i, e := range entries {
		b := raw[i*v5RawEntrySize:]
		offset := e.offset
		if e.stored {
			offset += firstOffset
		}
		b[0] = e.kind
		b[1], b[2], b[3] = byte(e.length>>16), byte(e.length>>8), byte(e.length)
		binary.BigEndian.PutUint16(b[4:], uint16(offset>>32)) //nolint:gosec // 48-bit field
		binary.BigEndian.PutUint32(b[6:], uint32(offset))     //nolint:gosec // 48-bit field
		binary.BigEndian.PutUint16(b[10:], img.crcs[i])
	}

	mapCRC := hunkCRC16(raw)
	if img.corrupt {
		mapCRC ^= 0xFFFF
	}

	hdr := make([]byte, v5MapHeaderSize)
	binary.BigEndian.PutUint32(hdr[0:], uint32(comp.Len())) //nolint:gosec // small test map
	binary.BigEndian.PutUint16(hdr[4:], uint16(firstOffset>>32))
	binary.BigEndian.PutUint32(hdr[6:], uint32(firstOffset))
	binary.BigEndian.PutUint16(hdr[10:], mapCRC)
	hdr[12], hdr[13], hdr[14] = 16, 8, 8

	var file bytes.Buffer
	file.Write(hdr)
	file.Write(comp.Bytes())
	for _, s := range img.stored {
		file.Write(s)
	}

	header := &Header{
		Version:      5,
		HunkBytes:    testV5HunkBytes,
		UnitBytes:    testV5HunkBytes,
		LogicalBytes: uint64(len(img.types) * testV5HunkBytes),
		Compressors:  [4]uint32{CodecZlib},
	}
	return file.Bytes(), header
}

func testV5Hunks() [][]byte {
	hunks := make([][]byte, 2)
	for h := range hunks {
		hunks[h] = make([]byte, testV5HunkBytes)
		for i := range hunks[h] {
			hunks[h][i] = byte(h*101 + i*i)
		}
	}
	return hunks
}

func TestParseMapV5(t *testing.T) {
	t.Parallel()

	hunks := testV5Hunks()
	img := v5MapImage{
		types:  []uint8{hunkNone, hunkSelf0, hunkCodec0, hunkSelf0},
		stored: [][]byte{hunks[0], deflateBytes(t, hunks[1])},
		crcs:   []uint16{hunkCRC16(hunks[0]), 0, hunkCRC16(hunks[1]), 0},
	}
	data, header := img.build(t)

	hm, err := NewHunkMap(bytes.NewReader(data), header)
	if err != nil {
		t.Fatalf("NewHunkMap: %v", err)
	}
	if n := hm.NumHunks(); n != 4 {
		t.Fatalf("NumHunks() = %d, want 4", n)
	}

	want := [][]byte{hunks[0], hunks[0], hunks[1], hunks[0]}
	for i, w := range want {
		got, err := hm.ReadHunk(uint32(i)) //nolint:gosec // small index
		if err != nil {
			t.Fatalf("ReadHunk(%d): %v", i, err)
		}
		if !bytes.Equal(got, w) {
			t.Errorf("ReadHunk(%d) mismatch", i)
		}
	}

	if _, err := hm.ReadHunk(4); !errors.Is(err, ErrInvalidHunk) {
		t.Errorf("ReadHunk(4) error = %v, want ErrInvalidHunk", err)
	}
}

func TestParseMapV5Errors(t *testing.T) {
	t.Parallel()

	hunks := testV5Hunks()

	t.Run("map CRC", func(t *testing.T) {
		t.Parallel()
		img := v5MapImage{
			types:   []uint8{hunkNone},
			stored:  [][]byte{hunks[0]},
			crcs:    []uint16{hunkCRC16(hunks[0])},
			corrupt: true,
		}
		data, header := img.build(t)
		if _, err := NewHunkMap(bytes.NewReader(data), header); !errors.Is(err, ErrCorruptData) {
			t.Errorf("error = %v, want ErrCorruptData", err)
		}
	})

	t.Run("hunk CRC", func(t *testing.T) {
		t.Parallel()
		img := v5MapImage{
			types:  []uint8{hunkNone},
			stored: [][]byte{hunks[0]},
			crcs:   []uint16{hunkCRC16(hunks[0]) ^ 1},
		}
		data, header := img.build(t)
		hm, err := NewHunkMap(bytes.NewReader(data), header)
		if err != nil {
			t.Fatalf("NewHunkMap: %v", err)
		}
		if _, err := hm.ReadHunk(0); !errors.Is(err, ErrCorruptData) {
			t.Errorf("ReadHunk error = %v, want ErrCorruptData", err)
		}
	})

	t.Run("self reference to itself", func(t *testing.T) {
		t.Parallel()
		img := v5MapImage{
			types:  []uint8{hunkNone, hunkSelf1},
			stored: [][]byte{hunks[0]},
			crcs:   []uint16{hunkCRC16(hunks[0]), 0},
		}
		data, header := img.build(t)
		hm, err := NewHunkMap(bytes.NewReader(data), header)
		if err != nil {
			t.Fatalf("NewHunkMap: %v", err)
		}
		if _, err := hm.ReadHunk(1); !errors.Is(err, ErrInvalidHunk) {
			t.Errorf("ReadHunk error = %v, want ErrInvalidHunk", err)
		}
	})

	t.Run("oversized map", func(t *testing.T) {
		t.Parallel()
		hdr := make([]byte, v5MapHeaderSize)
		binary.BigEndian.PutUint32(hdr, MaxCompMapLen+1)
		header := &Header{Version: 5, HunkBytes: 64, UnitBytes: 64, LogicalBytes: 64, Compressors: [4]uint32{CodecZlib}}
		if _, err := NewHunkMap(bytes.NewReader(hdr), header); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("error = %v, want ErrInvalidHeader", err)
		}
	})
}

func TestParseRawMapV5(t *testing.T) {
	t.Parallel()

	hunk := testV5Hunks()[0]
	data := make([]byte, 2*testV5HunkBytes)
	binary.BigEndian.PutUint32(data[4:], 1)
	copy(data[testV5HunkBytes:], hunk)

	header := &Header{Version: 5, HunkBytes: testV5HunkBytes, UnitBytes: testV5HunkBytes, LogicalBytes: 2 * testV5HunkBytes}
	hm, err := NewHunkMap(bytes.NewReader(data), header)
	if err != nil {
		t.Fatalf("NewHunkMap: %v", err)
	}

	got, err := hm.ReadHunk(0)
	if err != nil {
		t.Fatalf("ReadHunk(0): %v", err)
	}
	if !bytes.Equal(got, make([]byte, testV5HunkBytes)) {
		t.Error("unwritten hunk should read as zeros")
	}
	if got, err = hm.ReadHunk(1); err != nil || !bytes.Equal(got, hunk) {
		t.Errorf("ReadHunk(1) = %v, mismatch", err)
	}
}
