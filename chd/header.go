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

var chdMagic = [8]byte{'M', 'C', 'o', 'm', 'p', 'r', 'H', 'D'}

// Header lengths by version, including magic, length and version words.
const (
	headerSizeV3 = 120
	headerSizeV4 = 108
	headerSizeV5 = 124

	headerPrefix = 16
)

// Header holds the fields of a CHD header that the frame reader needs.
// Versions 3 and 4 have no unit size and always store CD frames.
type Header struct {
	Version      uint32
	HeaderSize   uint32
	Compressors  [4]uint32
	LogicalBytes uint64
	MapOffset    uint64
	MetaOffset   uint64
	HunkBytes    uint32
	UnitBytes    uint32
	RawSHA1      [20]byte
	SHA1         [20]byte
	ParentSHA1   [20]byte

	Flags       uint32
	Compression uint32
	TotalHunks  uint32
}

// headerLayout gives the byte offsets of each header field for one version.
// A negative offset marks a field the version does not carry.
type headerLayout struct {
	size        int
	compressors int
	flags       int
	compression int
	totalHunks  int
	logical     int
	mapOffset   int
	metaOffset  int
	hunkBytes   int
	unitBytes   int
	rawSHA1     int
	sha1        int
	parentSHA1  int
}

var headerLayouts = map[uint32]headerLayout{
	3: {
		size: headerSizeV3, compressors: -1, flags: 0x10, compression: 0x14, totalHunks: 0x18,
		logical: 0x1C, mapOffset: -1, metaOffset: 0x24, hunkBytes: 0x4C, unitBytes: -1,
		rawSHA1: -1, sha1: 0x50, parentSHA1: 0x64,
	},
	4: {
		size: headerSizeV4, compressors: -1, flags: 0x10, compression: 0x14, totalHunks: 0x18,
		logical: 0x1C, mapOffset: -1, metaOffset: 0x24, hunkBytes: 0x2C, unitBytes: -1,
		rawSHA1: 0x58, sha1: 0x30, parentSHA1: 0x44,
	},
	5: {
		size: headerSizeV5, compressors: 0x10, flags: -1, compression: -1, totalHunks: -1,
		logical: 0x20, mapOffset: 0x28, metaOffset: 0x30, hunkBytes: 0x38, unitBytes: 0x3C,
		rawSHA1: 0x40, sha1: 0x54, parentSHA1: 0x68,
	},
}

// parseHeader reads the CHD header at the start of r.
func parseHeader(r io.ReaderAt) (*Header, error) {
	prefix, err := ibinary.ReadBytesAt(r, 0, headerPrefix)
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if [8]byte(prefix[:8]) != chdMagic {
		return nil, ErrInvalidMagic
	}

	header := &Header{
		HeaderSize: binary.BigEndian.Uint32(prefix[8:12]),
		Version:    binary.BigEndian.Uint32(prefix[12:16]),
	}
	layout, ok := headerLayouts[header.Version]
	if !ok {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, header.Version)
	}
	if int(header.HeaderSize) < layout.size {
		return nil, fmt.Errorf("%w: %d-byte header for version %d", ErrInvalidHeader, header.HeaderSize, header.Version)
	}

	buf, err := ibinary.ReadBytesAt(r, 0, layout.size)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	layout.decode(buf, header)

	if err := header.validate(); err != nil {
		return nil, err
	}
	return header, nil
}

func (l headerLayout) decode(buf []byte, h *Header) {
	u32 := func(off int) uint32 {
		if off < 0 {
			return 0
		}
		return binary.BigEndian.Uint32(buf[off:])
	}
	u64 := func(off int) uint64 {
		if off < 0 {
			return 0
		}
		return binary.BigEndian.Uint64(buf[off:])
	}
	sha := func(dst *[20]byte, off int) {
		if off >= 0 {
			copy(dst[:], buf[off:off+20])
		}
	}

	if l.compressors >= 0 {
		for i := range h.Compressors {
			h.Compressors[i] = u32(l.compressors + 4*i)
		}
	}
	h.Flags = u32(l.flags)
	h.Compression = u32(l.compression)
	h.TotalHunks = u32(l.totalHunks)
	h.LogicalBytes = u64(l.logical)
	h.MetaOffset = u64(l.metaOffset)
	h.HunkBytes = u32(l.hunkBytes)
	sha(&h.RawSHA1, l.rawSHA1)
	sha(&h.SHA1, l.sha1)
	sha(&h.ParentSHA1, l.parentSHA1)

	h.MapOffset = u64(l.mapOffset)
	if l.mapOffset < 0 {
		// The V3/V4 map follows the header.
		h.MapOffset = uint64(h.HeaderSize)
	}
	h.UnitBytes = u32(l.unitBytes)
	if l.unitBytes < 0 {
		h.UnitBytes = cdFrameSize
	}
}

// validate rejects geometry the frame reader cannot address.
func (h *Header) validate() error {
	switch {
	case h.HunkBytes == 0:
		return fmt.Errorf("%w: zero hunk size", ErrInvalidHeader)
	case h.UnitBytes == 0:
		return fmt.Errorf("%w: zero unit size", ErrInvalidHeader)
	case h.HunkBytes%h.UnitBytes != 0:
		return fmt.Errorf("%w: hunk size %d is not a multiple of unit size %d",
			ErrInvalidHeader, h.HunkBytes, h.UnitBytes)
	}
	return nil
}

// HasParent reports whether the image is a delta against a parent CHD.
func (h *Header) HasParent() bool {
	return h.ParentSHA1 != [20]byte{}
}

// NumHunks returns the number of hunks covering the logical data.
func (h *Header) NumHunks() uint32 {
	if h.TotalHunks > 0 {
		return h.TotalHunks
	}
	//nolint:gosec // bounded by MaxNumHunks once the map is read
	return uint32((h.LogicalBytes + uint64(h.HunkBytes) - 1) / uint64(h.HunkBytes))
}

// FramesPerHunk returns the number of units stored in each hunk.
func (h *Header) FramesPerHunk() int {
	return int(h.HunkBytes / h.UnitBytes)
}
