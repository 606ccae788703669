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

	"github.com/ZaparooProject/go-discsector/cd"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// cdHunkFrames returns two original frames: a Mode 1 sector whose sync and
// parity a CD codec would strip, and an audio frame stored as is.
func cdHunkFrames() (frames, stripped []byte) {
	frames = make([]byte, 2*cdFrameSize)
	sector := frames[:cdSectorSize]
	for j := range cd.UserDataSize {
		sector[cd.SyncSize+cd.HeaderSize+j] = byte(j * 13)
	}
	cd.ReconstructPrefix(sector, cd.TrackMode1, 100)
	cd.ReconstructECC(sector, cd.TrackMode1)
	for j := range cdSubSize {
		frames[cdSectorSize+j] = byte(0x80 | j)
	}
	for j := range cdSectorSize {
		frames[cdFrameSize+j] = byte(j * 5)
	}

	stripped = make([]byte, 0, 2*cdSectorSize)
	first := bytes.Clone(sector)
	clear(first[:cd.SyncSize])
	clear(first[0x81C:cdSectorSize])
	stripped = append(stripped, first...)
	stripped = append(stripped, frames[cdFrameSize:cdFrameSize+cdSectorSize]...)
	return frames, stripped
}

func cdHunkSubchannel(frames []byte) []byte {
	sub := make([]byte, 0, 2*cdSubSize)
	sub = append(sub, frames[cdSectorSize:cdFrameSize]...)
	return append(sub, frames[cdFrameSize+cdSectorSize:]...)
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("deflate close: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil)
}

// lzmaRawBytes compresses data as MAME does and drops the 13-byte header.
func lzmaRawBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		Properties:   &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:      int(lzmaDictSize(uint32(len(data)))), //nolint:gosec // small test stream
		SizeInHeader: true,
		Size:         int64(len(data)),
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		t.Fatalf("lzma writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("lzma: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lzma close: %v", err)
	}
	return buf.Bytes()[13:]
}

// cdHunk lays out a compressed CD hunk: ECC bitmap, 2-byte base length, base
// stream, subcode stream.
func cdHunk(base, sub []byte) []byte {
	out := []byte{0x01, 0, 0}
	binary.BigEndian.PutUint16(out[1:], uint16(len(base))) //nolint:gosec // small test stream
	out = append(out, base...)
	return append(out, sub...)
}

func TestCDCodecsRegenerateStrippedFrames(t *testing.T) {
	t.Parallel()

	frames, stripped := cdHunkFrames()
	sub := cdHunkSubchannel(frames)

	tests := []struct {
		codec CDCodec
		name  string
		src   []byte
	}{
		{name: "cdzl", codec: &cdDeflateCodec{}, src: cdHunk(deflateBytes(t, stripped), deflateBytes(t, sub))},
		{name: "cdzs", codec: &cdZstdCodec{}, src: cdHunk(zstdBytes(t, stripped), zstdBytes(t, sub))},
		{name: "cdlz", codec: &cdLZMACodec{}, src: cdHunk(lzmaRawBytes(t, stripped), deflateBytes(t, sub))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dst := make([]byte, len(frames))
			n, err := tt.codec.DecompressCD(dst, tt.src, len(dst), 2)
			if err != nil {
				t.Fatalf("DecompressCD failed: %v", err)
			}
			if n != len(frames) {
				t.Fatalf("DecompressCD returned %d bytes, want %d", n, len(frames))
			}
			if !bytes.Equal(dst[:cdSectorSize], frames[:cdSectorSize]) {
				t.Error("stripped Mode 1 sector not regenerated")
			}
			if !bytes.Equal(dst[cdSectorSize:], frames[cdSectorSize:]) {
				t.Error("subchannel or audio frame mismatch")
			}
		})
	}
}

func TestCDCodecDamagedSubchannel(t *testing.T) {
	t.Parallel()

	frames, stripped := cdHunkFrames()
	src := cdHunk(deflateBytes(t, stripped), []byte{0xFF, 0xFF, 0xFF})

	dst := make([]byte, len(frames))
	if _, err := (&cdDeflateCodec{}).DecompressCD(dst, src, len(dst), 2); err != nil {
		t.Fatalf("DecompressCD failed: %v", err)
	}
	if !bytes.Equal(dst[:cdSectorSize], frames[:cdSectorSize]) {
		t.Error("sector lost with damaged subchannel")
	}
	if !bytes.Equal(dst[cdSectorSize:cdFrameSize], make([]byte, cdSubSize)) {
		t.Error("damaged subchannel not zeroed")
	}
}

func TestParseCDLayout(t *testing.T) {
	t.Parallel()

	layout, err := parseCDLayout("cdzl", []byte{0xAA, 0x00, 0x02, 1, 2, 3}, 2*cdFrameSize, 2)
	if err != nil {
		t.Fatalf("parseCDLayout failed: %v", err)
	}
	if !bytes.Equal(layout.eccBitmap, []byte{0xAA}) || !bytes.Equal(layout.base, []byte{1, 2}) ||
		!bytes.Equal(layout.sub, []byte{3}) {
		t.Errorf("layout = %+v", layout)
	}

	// Hunks of 64 KiB or more use a 3-byte base length.
	layout, err = parseCDLayout("cdzl", []byte{0, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x00, 0x01, 9}, 27*cdFrameSize, 64)
	if err != nil {
		t.Fatalf("parseCDLayout (3-byte length) failed: %v", err)
	}
	if !bytes.Equal(layout.base, []byte{9}) || len(layout.sub) != 0 {
		t.Errorf("3-byte layout = %+v", layout)
	}

	for name, src := range map[string][]byte{
		"short header": {0x01},
		"base overrun": {0x01, 0x00, 0x10, 1},
	} {
		if _, err := parseCDLayout("cdzl", src, 2*cdFrameSize, 2); !errors.Is(err, ErrDecompressFailed) {
			t.Errorf("%s: error = %v, want ErrDecompressFailed", name, err)
		}
	}
}

func TestCDCodecDestinationTooSmall(t *testing.T) {
	t.Parallel()

	dst := make([]byte, cdFrameSize)
	if _, err := (&cdDeflateCodec{}).DecompressCD(dst, []byte{0, 0, 0}, 2*cdFrameSize, 2); !errors.Is(err, ErrDecompressFailed) {
		t.Errorf("error = %v, want ErrDecompressFailed", err)
	}
}

func TestFLACStreamInfo(t *testing.T) {
	t.Parallel()

	info := flacStreamInfo(2352)
	if string(info[:4]) != "fLaC" || info[4] != 0x80 || info[7] != 34 || len(info) != 42 {
		t.Fatalf("block header = % x", info[:8])
	}
	if !bytes.Equal(info[8:12], []byte{0x09, 0x30, 0x09, 0x30}) {
		t.Errorf("block sizes = % x", info[8:12])
	}
	// 44100 Hz, two channels, 16 bits per sample.
	if !bytes.Equal(info[18:22], []byte{0x0A, 0xC4, 0x42, 0xF0}) {
		t.Errorf("sample format = % x", info[18:22])
	}
}

func TestFLACBlockSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bytes, limit, want int
	}{
		{bytes: 8 * cdSectorSize, limit: cdSectorSize, want: 2352},
		{bytes: 4 * cdSectorSize, limit: cdSectorSize, want: 2352},
		{bytes: 2 * cdSectorSize, limit: cdSectorSize, want: 1176},
		{bytes: 19584, limit: 2048, want: 1224},
		{bytes: 65536, limit: 2048, want: 2048},
	}
	for _, tt := range tests {
		if got := flacBlockSize(tt.bytes, tt.limit); got != tt.want {
			t.Errorf("flacBlockSize(%d, %d) = %d, want %d", tt.bytes, tt.limit, got, tt.want)
		}
	}
}

func TestLZMADictSize(t *testing.T) {
	t.Parallel()

	tests := []struct{ size, want uint32 }{
		{size: 100, want: 4096},
		{size: 8 * cdSectorSize, want: 3 << 13},
		{size: 19584, want: 3 << 13},
		{size: 1 << 20, want: 2 << 19},
	}
	for _, tt := range tests {
		if got := lzmaDictSize(tt.size); got != tt.want {
			t.Errorf("lzmaDictSize(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}
