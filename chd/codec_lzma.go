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
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzmaProps is lc=3 lp=0 pb=2, the properties MAME always compresses with.
const lzmaProps = 3 + 0*9 + 2*45

// lzmaDictSize reproduces LzmaEncProps_Normalize for level 8: the smallest
// 2<<i or 3<<i that holds the uncompressed stream.
func lzmaDictSize(size uint32) uint32 {
	for i := uint32(11); i <= 30; i++ {
		if size <= 2<<i {
			return 2 << i
		}
		if size <= 3<<i {
			return 3 << i
		}
	}
	return 1 << 26
}

// lzmaCodec decodes CHD LZMA hunks. The stream is stored without the usual
// 13-byte header, so one is synthesized from the stream size.
type lzmaCodec struct {
	// size is the uncompressed length the encoder was configured for. Zero
	// means the whole destination.
	size uint32
}

func (c lzmaCodec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: lzma: empty stream", ErrDecompressFailed)
	}
	size := c.size
	if size == 0 {
		size = uint32(len(dst)) //nolint:gosec // hunk sizes fit uint32
	}

	var header [13]byte
	header[0] = lzmaProps
	binary.LittleEndian.PutUint32(header[1:5], lzmaDictSize(size))
	binary.LittleEndian.PutUint64(header[5:], uint64(len(dst)))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header[:]), bytes.NewReader(src)))
	if err != nil {
		return 0, fmt.Errorf("%w: lzma header: %w", ErrDecompressFailed, err)
	}
	n, err := io.ReadFull(r, dst)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: lzma: %w", ErrDecompressFailed, err)
	}
	return n, nil
}

// cdLZMACodec is "cdlz": LZMA sectors with a deflate subcode stream. The
// LZMA dictionary is sized for the sector stream, not the whole hunk.
type cdLZMACodec struct {
	sub deflateCodec
}

func (c *cdLZMACodec) Decompress(dst, src []byte) (int, error) {
	return c.DecompressCD(dst, src, len(dst), len(dst)/cdFrameSize)
}

func (c *cdLZMACodec) DecompressCD(dst, src []byte, hunkBytes, frames int) (int, error) {
	base := lzmaCodec{size: uint32(frames * cdSectorSize)} //nolint:gosec // bounded by hunk size
	return decompressCDHunk("cdlz", dst, src, hunkBytes, frames, base.Decompress, c.sub.Decompress)
}
