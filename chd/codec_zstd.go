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
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec decodes whole Zstandard frames. The decoder is created on first
// use and runs on the calling goroutine.
type zstdCodec struct {
	dec *zstd.Decoder
}

func (c *zstdCodec) Decompress(dst, src []byte) (int, error) {
	if c.dec == nil {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(MaxCompMapLen),
		)
		if err != nil {
			return 0, fmt.Errorf("%w: zstd init: %w", ErrDecompressFailed, err)
		}
		c.dec = dec
	}

	out, err := c.dec.DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", ErrDecompressFailed, err)
	}
	if len(out) > len(dst) {
		return 0, fmt.Errorf("%w: zstd: %d bytes decoded into a %d-byte hunk", ErrDecompressFailed, len(out), len(dst))
	}
	// DecodeAll only reallocates when dst is too small, which is caught above.
	return len(out), nil
}

// cdZstdCodec is "cdzs": Zstandard for both the sector and subcode streams.
type cdZstdCodec struct {
	base, sub zstdCodec
}

func (c *cdZstdCodec) Decompress(dst, src []byte) (int, error) {
	return c.DecompressCD(dst, src, len(dst), len(dst)/cdFrameSize)
}

func (c *cdZstdCodec) DecompressCD(dst, src []byte, hunkBytes, frames int) (int, error) {
	return decompressCDHunk("cdzs", dst, src, hunkBytes, frames, c.base.Decompress, c.sub.Decompress)
}
