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

	"github.com/ZaparooProject/go-discsector/cd"
)

// CD frame geometry inside a CHD hunk.
const (
	cdSectorSize = cd.SectorSize
	cdSubSize    = cd.SubchannelSize
	cdFrameSize  = cd.FrameSize
)

// cdLayout is the split of a cdzl/cdlz/cdzs hunk (MAME chd_cd_decompressor):
//   - ECC bitmap: (frames + 7) / 8 bytes; bit i set means frame i had its sync
//     and P/Q parity stripped by the compressor
//   - base length: 2 bytes big-endian (3 when the hunk is 64 KiB or larger)
//   - base stream: the 2352-byte sectors
//   - subcode stream: the 96-byte subchannel blocks, deflate-compressed
//     except in cdzs, which uses Zstandard
type cdLayout struct {
	eccBitmap []byte
	base      []byte
	sub       []byte
}

func parseCDLayout(name string, src []byte, destLen, frames int) (cdLayout, error) {
	compLenBytes := 2
	if destLen >= 65536 {
		compLenBytes = 3
	}
	eccBytes := (frames + 7) / 8
	headerBytes := eccBytes + compLenBytes

	if len(src) < headerBytes {
		return cdLayout{}, fmt.Errorf("%w: %s: source too small for header", ErrDecompressFailed, name)
	}

	var baseLen int
	if compLenBytes > 2 {
		//nolint:gosec // G602: bounds checked via headerBytes above
		baseLen = int(src[eccBytes])<<16 | int(src[eccBytes+1])<<8 | int(src[eccBytes+2])
	} else {
		baseLen = int(binary.BigEndian.Uint16(src[eccBytes : eccBytes+2]))
	}

	if headerBytes+baseLen > len(src) {
		return cdLayout{}, fmt.Errorf("%w: %s: invalid base length %d", ErrDecompressFailed, name, baseLen)
	}

	return cdLayout{
		eccBitmap: src[:eccBytes],
		base:      src[headerBytes : headerBytes+baseLen],
		sub:       src[headerBytes+baseLen:],
	}, nil
}

// decompressCDSubchannel decodes the subcode stream. Failures are not fatal:
// a hunk with a damaged subcode stream still yields its sectors, with a zeroed
// subchannel.
func decompressCDSubchannel(subData []byte, totalBytes int, decode func(dst, src []byte) (int, error)) []byte {
	subDst := make([]byte, totalBytes)
	if len(subData) == 0 || totalBytes == 0 {
		return subDst
	}
	if _, err := decode(subDst, subData); err != nil {
		clear(subDst)
	}
	return subDst
}

// reassembleCD interleaves sectors and subchannel blocks into dst, one
// 2448-byte frame each. Frames flagged in eccBitmap get their sync mark and
// P/Q parity regenerated; the compressor only strips them from sectors whose
// parity verified with the header included, so Mode 1 parity applies.
func reassembleCD(dst, sectors, sub, eccBitmap []byte, frames int) int {
	dstOffset := 0
	for i := range frames {
		frame := dst[dstOffset : dstOffset+cdSectorSize]
		srcSectorOffset := i * cdSectorSize
		if srcSectorOffset+cdSectorSize <= len(sectors) {
			copy(frame, sectors[srcSectorOffset:srcSectorOffset+cdSectorSize])
		}

		if eccBitmap != nil && eccBitmap[i/8]&(1<<(i%8)) != 0 {
			copy(frame, cd.Sync[:])
			cd.ReconstructParity(frame, cd.TrackMode1)
		}
		dstOffset += cdSectorSize

		srcSubOffset := i * cdSubSize
		if srcSubOffset+cdSubSize <= len(sub) {
			copy(dst[dstOffset:], sub[srcSubOffset:srcSubOffset+cdSubSize])
		}
		dstOffset += cdSubSize
	}
	return dstOffset
}

// decompressCDHunk runs the shared cdzl/cdlz/cdzs pipeline with the given
// base and subcode stream decoders.
func decompressCDHunk(
	name string, dst, src []byte, destLen, frames int,
	decodeBase, decodeSub func(dst, src []byte) (int, error),
) (int, error) {
	if len(dst) < frames*cdFrameSize {
		return 0, fmt.Errorf("%w: %s: destination too small for %d frames", ErrDecompressFailed, name, frames)
	}

	layout, err := parseCDLayout(name, src, destLen, frames)
	if err != nil {
		return 0, err
	}

	sectors := make([]byte, frames*cdSectorSize)
	n, err := decodeBase(sectors, layout.base)
	if err != nil {
		return 0, fmt.Errorf("%w: %s sector: %w", ErrDecompressFailed, name, err)
	}

	sub := decompressCDSubchannel(layout.sub, frames*cdSubSize, decodeSub)
	return reassembleCD(dst, sectors[:n], sub, layout.eccBitmap, frames), nil
}
