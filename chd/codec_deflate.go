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
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// deflateCodec inflates the raw deflate streams that CHD tags "zlib". The
// inflater is reset for each hunk rather than reallocated.
type deflateCodec struct {
	src bytes.Reader
	r   io.ReadCloser
}

func (c *deflateCodec) Decompress(dst, src []byte) (int, error) {
	c.src.Reset(src)
	if c.r == nil {
		c.r = flate.NewReader(&c.src)
	} else if err := c.r.(flate.Resetter).Reset(&c.src, nil); err != nil {
		return 0, fmt.Errorf("%w: deflate reset: %w", ErrDecompressFailed, err)
	}

	// A stream shorter than dst leaves the tail zeroed.
	n, err := io.ReadFull(c.r, dst)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: deflate: %w", ErrDecompressFailed, err)
	}
	return n, nil
}

// cdDeflateCodec is "cdzl": deflate for both the sector and subcode streams.
type cdDeflateCodec struct {
	base, sub deflateCodec
}

func (c *cdDeflateCodec) Decompress(dst, src []byte) (int, error) {
	return c.DecompressCD(dst, src, len(dst), len(dst)/cdFrameSize)
}

func (c *cdDeflateCodec) DecompressCD(dst, src []byte, hunkBytes, frames int) (int, error) {
	return decompressCDHunk("cdzl", dst, src, hunkBytes, frames, c.base.Decompress, c.sub.Decompress)
}
