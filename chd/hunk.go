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
	"hash/crc32"
	"io"
	"sync"

	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
	lru "github.com/hashicorp/golang-lru/v2"
)

// How a hunk is stored. The values up to hunkParent are the resolved V5 map
// types; the pseudo-types after them only occur while decoding a V5 map.
const (
	hunkCodec0 uint8 = iota
	hunkCodec1
	hunkCodec2
	hunkCodec3
	hunkNone
	hunkSelf
	hunkParent
	hunkRLESmall
	hunkRLELarge
	hunkSelf0
	hunkSelf1
	hunkParentSelf
	hunkParent0
	hunkParent1

	// hunkMini is a V3/V4 hunk filled with the 8-byte value in offset.
	hunkMini uint8 = 0xFF
)

// Checksums a map entry can carry for its decoded hunk.
const (
	crcNone uint8 = iota
	crc16V5
	crc32V4
)

// hunkEntry locates one hunk. For self references offset is a hunk index;
// for parent references it is a unit index in the parent.
type hunkEntry struct {
	offset uint64
	length uint32
	crc    uint32
	kind   uint8
	check  uint8
}

// hunkCacheSize is the number of decoded hunks kept.
const hunkCacheSize = 32

// V3/V4 header compression values that mean deflate.
const (
	v4CompressionZlib  = 1
	v4CompressionZlibP = 2
)

// HunkMap decodes hunks of a CHD file through an LRU cache. It is safe for
// concurrent use.
type HunkMap struct {
	mu      sync.Mutex
	reader  io.ReaderAt
	header  *Header
	cache   *lru.Cache[uint32, []byte]
	entries []hunkEntry
	codecs  []Codec
	tags    []uint32
}

// NewHunkMap reads the hunk map described by header.
func NewHunkMap(reader io.ReaderAt, header *Header) (*HunkMap, error) {
	cache, err := lru.New[uint32, []byte](hunkCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create hunk cache: %w", err)
	}
	hm := &HunkMap{reader: reader, header: header, cache: cache}

	numHunks := header.NumHunks()
	if numHunks > MaxNumHunks {
		return nil, fmt.Errorf("%w: %d hunks", ErrInvalidHeader, numHunks)
	}

	switch header.Version {
	case 3, 4:
		// Compressed V3/V4 hunks are deflate, CD images included.
		if header.Compression == v4CompressionZlib || header.Compression == v4CompressionZlibP {
			hm.codecs = []Codec{&deflateCodec{}}
			hm.tags = []uint32{CodecZlib}
		}
		hm.entries, err = parseMapV4(reader, header)
	case 5:
		for _, tag := range header.Compressors {
			// An unknown codec only fails the hunks that use it.
			codec, _ := newCodec(tag)
			hm.codecs = append(hm.codecs, codec)
			hm.tags = append(hm.tags, tag)
		}
		hm.entries, err = parseMapV5(reader, header)
	default:
		err = fmt.Errorf("%w: version %d", ErrUnsupportedVersion, header.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("parse hunk map: %w", err)
	}
	return hm, nil
}

// NumHunks returns the number of hunks in the map.
func (hm *HunkMap) NumHunks() uint32 {
	return uint32(len(hm.entries)) //nolint:gosec // bounded by MaxNumHunks
}

// ReadHunk returns the decoded hunk. The slice is shared with the cache and
// must not be modified.
func (hm *HunkMap) ReadHunk(index uint32) ([]byte, error) {
	if index >= hm.NumHunks() {
		return nil, fmt.Errorf("%w: hunk %d of %d", ErrInvalidHunk, index, len(hm.entries))
	}
	if data, ok := hm.cache.Get(index); ok {
		return data, nil
	}

	// Codecs keep decoder state, so hunks are decoded one at a time.
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.loadHunk(index)
}

// loadHunk decodes hunk index with hm.mu held.
func (hm *HunkMap) loadHunk(index uint32) ([]byte, error) {
	if data, ok := hm.cache.Get(index); ok {
		return data, nil
	}

	e := hm.entries[index]
	data, err := hm.decode(index, e)
	if err != nil {
		return nil, fmt.Errorf("hunk %d: %w", index, err)
	}

	switch e.check {
	case crc16V5:
		if got := uint32(hunkCRC16(data)); got != e.crc {
			return nil, fmt.Errorf("%w: hunk %d CRC %04x, map says %04x", ErrCorruptData, index, got, e.crc)
		}
	case crc32V4:
		if got := crc32.ChecksumIEEE(data); got != e.crc {
			return nil, fmt.Errorf("%w: hunk %d CRC %08x, map says %08x", ErrCorruptData, index, got, e.crc)
		}
	}

	hm.cache.Add(index, data)
	return data, nil
}

// hunkCRC16 is CRC-16/CCITT-FALSE, the checksum MAME keeps per hunk and
// over the decoded V5 map.
func hunkCRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func (hm *HunkMap) decode(index uint32, e hunkEntry) ([]byte, error) {
	size := int(hm.header.HunkBytes)

	switch e.kind {
	case hunkNone:
		return ibinary.ReadBytesAt(hm.reader, int64(e.offset), size) //nolint:gosec // offsets past the file fail the read
	case hunkCodec0, hunkCodec1, hunkCodec2, hunkCodec3:
		return hm.decodeCodec(e, size)
	case hunkSelf:
		if e.offset >= uint64(index) {
			return nil, fmt.Errorf("%w: hunk %d refers forward to %d", ErrInvalidHunk, index, e.offset)
		}
		return hm.loadHunk(uint32(e.offset)) //nolint:gosec // below index
	case hunkMini:
		dst := make([]byte, size)
		for i := 0; i+8 <= size; i += 8 {
			binary.BigEndian.PutUint64(dst[i:], e.offset)
		}
		return dst, nil
	case hunkParent:
		if !hm.header.HasParent() {
			return nil, fmt.Errorf("%w: parent reference in an image without a parent", ErrInvalidHunk)
		}
		return nil, fmt.Errorf("%w: hunk stored in parent CHD", ErrUnsupportedCodec)
	default:
		return nil, fmt.Errorf("%w: storage type %d", ErrInvalidHunk, e.kind)
	}
}

func (hm *HunkMap) decodeCodec(e hunkEntry, size int) ([]byte, error) {
	slot := int(e.kind)
	if slot >= len(hm.codecs) || hm.codecs[slot] == nil {
		name := "none"
		if slot < len(hm.tags) {
			name = CodecName(hm.tags[slot])
		}
		return nil, fmt.Errorf("%w: codec slot %d (%s)", ErrUnsupportedCodec, slot, name)
	}

	src, err := ibinary.ReadBytesAt(hm.reader, int64(e.offset), int(e.length)) //nolint:gosec // see decode
	if err != nil {
		return nil, fmt.Errorf("read compressed hunk: %w", err)
	}

	dst := make([]byte, size)
	var n int
	if cdc, ok := hm.codecs[slot].(CDCodec); ok {
		n, err = cdc.DecompressCD(dst, src, size, hm.header.FramesPerHunk())
	} else {
		n, err = hm.codecs[slot].Decompress(dst, src)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CodecName(hm.tags[slot]), err)
	}
	return dst[:n], nil
}
