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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// CHD FLAC streams carry no stream header. Decoding prepends a STREAMINFO
// block for 44.1 kHz 16-bit stereo with the block size the encoder used.
const (
	flacSampleRate = 44100
	flacChannels   = 2
	flacBufSize    = 4096
)

// flacStreamInfo returns "fLaC" and a last-block STREAMINFO for blockSize.
func flacStreamInfo(blockSize int) []byte {
	info := make([]byte, 8+34)
	copy(info, "fLaC")
	info[4] = 0x80 // last metadata block, type STREAMINFO
	info[7] = 34
	for _, off := range []int{8, 10} {
		info[off] = byte(blockSize >> 8)
		info[off+1] = byte(blockSize)
	}
	// 20-bit rate, 3-bit channels-1, 5-bit bits-per-sample-1.
	v := uint32(flacSampleRate)<<12 | (flacChannels-1)<<9 | (16-1)<<4
	info[18] = byte(v >> 24)
	info[19] = byte(v >> 16)
	info[20] = byte(v >> 8)
	info[21] = byte(v)
	return info
}

// flacBlockSize halves a quarter of the stream size until it is at most
// limit, as MAME's encoders pick their block size.
func flacBlockSize(streamBytes, limit int) int {
	n := streamBytes / 4
	for n > limit {
		n /= 2
	}
	return n
}

// countingReader counts the bytes taken from the compressed hunk.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// decodeFLAC fills dst with 16-bit stereo samples decoded from src and
// returns how many bytes of src the frames used.
func decodeFLAC(dst, src []byte, blockSize int, bigEndian bool) (int, error) {
	counter := &countingReader{r: bytes.NewReader(src)}
	// flac.New keeps a bufio.Reader of at least this size as is, so the
	// bytes still buffered after the last frame are known.
	br := bufio.NewReaderSize(io.MultiReader(bytes.NewReader(flacStreamInfo(blockSize)), counter), flacBufSize)
	stream, err := flac.New(br)
	if err != nil {
		return 0, fmt.Errorf("%w: flac header: %w", ErrDecompressFailed, err)
	}

	for off := 0; off < len(dst); {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: flac frame: %w", ErrDecompressFailed, err)
		}
		if len(f.Subframes) < flacChannels {
			return 0, fmt.Errorf("%w: flac frame has %d channels", ErrDecompressFailed, len(f.Subframes))
		}
		left, right := f.Subframes[0].Samples, f.Subframes[1].Samples
		for i := 0; i < len(left) && off+4 <= len(dst); i++ {
			putSample(dst[off:], left[i], bigEndian)
			putSample(dst[off+2:], right[i], bigEndian)
			off += 4
		}
	}
	return counter.n - br.Buffered(), nil
}

func putSample(b []byte, s int32, bigEndian bool) {
	if bigEndian {
		b[0], b[1] = byte(s>>8), byte(s)
		return
	}
	b[0], b[1] = byte(s), byte(s>>8)
}

// flacCodec is the generic "flac" codec: one byte naming the sample byte
// order ('L' or 'B') followed by the stream.
type flacCodec struct{}

func (flacCodec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 || (src[0] != 'L' && src[0] != 'B') {
		return 0, fmt.Errorf("%w: flac: missing byte order marker", ErrDecompressFailed)
	}
	if _, err := decodeFLAC(dst, src[1:], flacBlockSize(len(dst), 2048), src[0] == 'B'); err != nil {
		return 0, err
	}
	return len(dst), nil
}

// cdFLACCodec is "cdfl": big-endian FLAC audio followed directly by the
// deflate subcode stream. Audio carries no parity to regenerate.
type cdFLACCodec struct {
	sub deflateCodec
}

func (c *cdFLACCodec) Decompress(dst, src []byte) (int, error) {
	return c.DecompressCD(dst, src, len(dst), len(dst)/cdFrameSize)
}

func (c *cdFLACCodec) DecompressCD(dst, src []byte, _, frames int) (int, error) {
	if len(dst) < frames*cdFrameSize {
		return 0, fmt.Errorf("%w: cdfl: destination too small for %d frames", ErrDecompressFailed, frames)
	}
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: cdfl: empty hunk", ErrDecompressFailed)
	}

	sectors := make([]byte, frames*cdSectorSize)
	used, err := decodeFLAC(sectors, src, flacBlockSize(len(sectors), cdSectorSize), true)
	if err != nil {
		return 0, fmt.Errorf("cdfl: %w", err)
	}
	sub := decompressCDSubchannel(src[min(used, len(src)):], frames*cdSubSize, c.sub.Decompress)
	return reassembleCD(dst, sectors, sub, nil, frames), nil
}
