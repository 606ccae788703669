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

import "fmt"

// Codec tags are four ASCII bytes read as a big-endian word.
const (
	CodecNone   uint32 = 0
	CodecZlib   uint32 = 'z'<<24 | 'l'<<16 | 'i'<<8 | 'b'
	CodecLZMA   uint32 = 'l'<<24 | 'z'<<16 | 'm'<<8 | 'a'
	CodecHuff   uint32 = 'h'<<24 | 'u'<<16 | 'f'<<8 | 'f'
	CodecFLAC   uint32 = 'f'<<24 | 'l'<<16 | 'a'<<8 | 'c'
	CodecZstd   uint32 = 'z'<<24 | 's'<<16 | 't'<<8 | 'd'
	CodecCDZlib uint32 = 'c'<<24 | 'd'<<16 | 'z'<<8 | 'l'
	CodecCDLZMA uint32 = 'c'<<24 | 'd'<<16 | 'l'<<8 | 'z'
	CodecCDFLAC uint32 = 'c'<<24 | 'd'<<16 | 'f'<<8 | 'l'
	CodecCDZstd uint32 = 'c'<<24 | 'd'<<16 | 'z'<<8 | 's'
)

// Codec decompresses one CHD hunk into dst and returns the bytes written.
type Codec interface {
	Decompress(dst, src []byte) (int, error)
}

// CDCodec decompresses hunks of CD frames, where sector data and subchannel
// are compressed as separate streams.
type CDCodec interface {
	Codec
	DecompressCD(dst, src []byte, hunkBytes, frames int) (int, error)
}

// codecFactories lists the codecs this package can decode. Huffman-only
// hunks never occur on CD images and are not supported.
var codecFactories = map[uint32]func() Codec{
	CodecZlib:   func() Codec { return &deflateCodec{} },
	CodecLZMA:   func() Codec { return &lzmaCodec{} },
	CodecFLAC:   func() Codec { return &flacCodec{} },
	CodecZstd:   func() Codec { return &zstdCodec{} },
	CodecCDZlib: func() Codec { return &cdDeflateCodec{} },
	CodecCDLZMA: func() Codec { return &cdLZMACodec{} },
	CodecCDFLAC: func() Codec { return &cdFLACCodec{} },
	CodecCDZstd: func() Codec { return &cdZstdCodec{} },
}

// newCodec returns a fresh decoder for tag. Decoders keep state and are
// not shared between hunk maps.
func newCodec(tag uint32) (Codec, error) {
	factory, ok := codecFactories[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, CodecName(tag))
	}
	return factory(), nil
}

// CodecName returns the four-letter name of a codec tag, or "none".
func CodecName(tag uint32) string {
	if tag == CodecNone {
		return "none"
	}
	return string([]byte{byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag)})
}

// IsCDCodec reports whether tag splits hunks into sector and subchannel
// streams.
func IsCDCodec(tag uint32) bool {
	switch tag {
	case CodecCDZlib, CodecCDLZMA, CodecCDFLAC, CodecCDZstd:
		return true
	default:
		return false
	}
}
