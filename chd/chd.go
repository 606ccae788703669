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

// CHD is MAME's compressed disc image format. This package reads CD images
// from it as raw 2352-byte sectors with their subchannel.
package chd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ZaparooProject/go-discsector/cd"
	"github.com/ZaparooProject/go-discsector/subcode"
)

// CHD represents a CHD (Compressed Hunks of Data) disc image.
type CHD struct {
	reader  io.ReaderAt
	closer  io.Closer
	header  *Header
	hunkMap *HunkMap
	tracks  []Track
}

// Open opens a CHD file and parses its header and metadata.
func Open(path string) (*CHD, error) {
	file, err := os.Open(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("open CHD file: %w", err)
	}

	chd, err := OpenReader(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	chd.closer = file

	return chd, nil
}

// OpenReader parses a CHD image from r. The caller keeps ownership of r.
func OpenReader(r io.ReaderAt) (*CHD, error) {
	chd := &CHD{reader: r}
	if err := chd.init(); err != nil {
		return nil, err
	}
	return chd, nil
}

// init initializes the CHD by parsing header, hunk map, and metadata.
func (c *CHD) init() error {
	header, err := parseHeader(c.reader)
	if err != nil {
		return fmt.Errorf("parse header: %w", err)
	}
	c.header = header

	hunkMap, err := NewHunkMap(c.reader, header)
	if err != nil {
		return fmt.Errorf("create hunk map: %w", err)
	}
	c.hunkMap = hunkMap

	if header.MetaOffset > 0 {
		entries, err := parseMetadata(c.reader, header.MetaOffset)
		if err != nil {
			return fmt.Errorf("parse metadata: %w", err)
		}
		tracks, err := parseTracks(entries)
		if err != nil {
			return fmt.Errorf("parse tracks: %w", err)
		}
		c.tracks = tracks
	}

	if len(c.tracks) == 0 {
		// Without track metadata every unit is treated as a raw sector.
		c.tracks = []Track{{
			Number:   1,
			Type:     "MODE2_RAW",
			SubType:  "NONE",
			DataSize: cd.SectorSize,
			Frames:   c.units(),
		}}
		layoutTracks(c.tracks)
	}

	return nil
}

// Close closes the CHD file. It is a no-op for images opened with OpenReader.
func (c *CHD) Close() error {
	if c.closer != nil {
		if err := c.closer.Close(); err != nil {
			return fmt.Errorf("close CHD file: %w", err)
		}
	}
	return nil
}

// Header returns the parsed CHD header.
func (c *CHD) Header() *Header {
	return c.header
}

// Tracks returns the parsed track information.
func (c *CHD) Tracks() []Track {
	return c.tracks
}

// Size returns the total logical size (uncompressed) of the CHD data.
func (c *CHD) Size() int64 {
	return int64(c.header.LogicalBytes) //nolint:gosec // LogicalBytes is bounded by file size
}

// Frames returns the number of stored frames across all tracks.
func (c *CHD) Frames() int {
	n := 0
	for i := range c.tracks {
		n += c.tracks[i].Frames
	}
	return n
}

// unitBytes returns the size of one stored frame.
func (c *CHD) unitBytes() int {
	return int(c.header.UnitBytes)
}

// units returns the number of whole units in the logical data.
func (c *CHD) units() int {
	return int(c.header.LogicalBytes / uint64(c.unitBytes())) //nolint:gosec // bounded by MaxNumHunks
}

// TrackAt returns the track whose stored frames contain lba.
func (c *CHD) TrackAt(lba int32) (*Track, bool) {
	i := sort.Search(len(c.tracks), func(i int) bool {
		t := &c.tracks[i]
		return t.StartLBA+int32(t.Frames) > lba //nolint:gosec // Frames bounded by CHD size
	})
	if i == len(c.tracks) || !c.tracks[i].Contains(lba) {
		return nil, false
	}
	return &c.tracks[i], true
}

// readUnit returns the stored bytes of CHD frame n.
func (c *CHD) readUnit(n int) ([]byte, error) {
	unit := c.unitBytes()
	perHunk := c.header.FramesPerHunk()

	hunk, err := c.hunkMap.ReadHunk(uint32(n / perHunk)) //nolint:gosec // frame index bounded by NumHunks
	if err != nil {
		return nil, err
	}
	start := (n % perHunk) * unit
	if start+unit > len(hunk) {
		return nil, fmt.Errorf("%w: frame %d past end of hunk", ErrCorruptData, n)
	}
	return hunk[start : start+unit], nil
}

// ReadFrame fills sector with the raw 2352-byte sector at lba and, when sub is
// not nil, sub with its interleaved subchannel. Cooked data tracks are
// expanded with a regenerated sync, header and EDC/ECC. Frames without stored
// subchannel leave sub zeroed. The returned type is the layout of the
// expanded sector.
func (c *CHD) ReadFrame(lba int32, sector []byte, sub *subcode.Frame) (cd.TrackType, error) {
	if len(sector) < cd.SectorSize {
		return cd.TrackOther, fmt.Errorf("%w: sector buffer of %d bytes", io.ErrShortBuffer, len(sector))
	}
	t, ok := c.TrackAt(lba)
	if !ok {
		return cd.TrackOther, fmt.Errorf("%w: LBA %d", ErrFrameNotStored, lba)
	}

	unit, err := c.readUnit(t.StartFrame + int(lba-t.StartLBA))
	if err != nil {
		return cd.TrackOther, fmt.Errorf("read LBA %d: %w", lba, err)
	}

	tt := expandSector(sector[:cd.SectorSize], unit, t, lba)

	if sub != nil {
		*sub = subcode.Frame{}
		if t.SubSize >= cd.SubchannelSize && len(unit) >= cd.FrameSize {
			copy(sub[:], unit[cd.SectorSize:cd.FrameSize])
			if !t.SubchannelInterleaved() {
				*sub = subcode.Interleave(*sub)
			}
		}
	}

	return tt, nil
}

// Form 1 and Form 2 subheaders assumed for cooked Mode 2 tracks that do not
// store one.
var (
	form1Subheader = [4]byte{0x00, 0x00, 0x08, 0x00}
	form2Subheader = [4]byte{0x00, 0x00, 0x20, 0x00}
)

// expandSector writes the raw form of the stored unit into sector.
func expandSector(sector, unit []byte, t *Track, lba int32) cd.TrackType {
	tt := t.TrackType()
	dataSize := min(t.DataSize, cd.SectorSize, len(unit))

	if !t.Cooked() {
		copy(sector, unit[:dataSize])
		clear(sector[dataSize:])
		if tt == cd.TrackAudio {
			// CHD stores audio samples big-endian.
			for i := 0; i+1 < len(sector); i += 2 {
				sector[i], sector[i+1] = sector[i+1], sector[i]
			}
			return tt
		}
		if detected := cd.DetectTrackType(sector); detected.IsData() {
			return detected
		}
		return tt
	}

	clear(sector)
	const userOffset = cd.SyncSize + cd.HeaderSize
	switch tt {
	case cd.TrackMode1:
		copy(sector[userOffset:], unit[:dataSize])
	case cd.TrackMode2Form1:
		copy(sector[userOffset+4:], form1Subheader[:])
		copy(sector[userOffset+8:], unit[:dataSize])
	case cd.TrackMode2Form2:
		copy(sector[userOffset+4:], form2Subheader[:])
		copy(sector[userOffset+8:], unit[:dataSize])
	default:
		// 2336-byte Mode 2 carries its own subheader and EDC/ECC.
		copy(sector[userOffset:], unit[:dataSize])
	}

	cd.ReconstructPrefix(sector, tt, lba)
	if tt == cd.TrackMode2Formless {
		return cd.DetectTrackType(sector)
	}
	cd.ReconstructECC(sector, tt)
	return tt
}

// RawSectorReader returns an io.ReaderAt over the stored frames as
// consecutive 2352-byte sectors, in track order. This is the layout of the
// BIN file of an equivalent CUE/BIN image.
func (c *CHD) RawSectorReader() io.ReaderAt {
	return &sectorReader{chd: c}
}

// sectorReader implements io.ReaderAt over expanded raw sectors.
type sectorReader struct {
	chd *CHD
}

// ReadAt reads expanded sector data at the given byte offset.
func (sr *sectorReader) ReadAt(dest []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidHunk, off)
	}

	var sector [cd.SectorSize]byte
	total := 0
	for total < len(dest) {
		index := off / cd.SectorSize
		lba, ok := sr.lbaOf(index)
		if !ok {
			break
		}
		if _, err := sr.chd.ReadFrame(lba, sector[:], nil); err != nil {
			return total, err
		}
		n := copy(dest[total:], sector[off%cd.SectorSize:])
		total += n
		off += int64(n)
	}

	if total < len(dest) {
		return total, io.EOF
	}
	return total, nil
}

// lbaOf maps the index of a stored sector to its LBA.
func (sr *sectorReader) lbaOf(index int64) (int32, bool) {
	for i := range sr.chd.tracks {
		t := &sr.chd.tracks[i]
		if index < int64(t.Frames) {
			return t.StartLBA + int32(index), true //nolint:gosec // index < Frames
		}
		index -= int64(t.Frames)
	}
	return 0, false
}
