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
	"slices"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-discsector/cd"
	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
)

// Metadata tags describing CD tracks.
const (
	MetaTagCHCD = 'C'<<24 | 'H'<<16 | 'C'<<8 | 'D' // binary table of all tracks
	MetaTagCHTR = 'C'<<24 | 'H'<<16 | 'T'<<8 | 'R' // text, one track per entry
	MetaTagCHT2 = 'C'<<24 | 'H'<<16 | 'T'<<8 | '2' // text with gap fields
	MetaTagGDTR = 'C'<<24 | 'H'<<16 | 'G'<<8 | 'D' // GD-ROM text with padding
)

// trackPadding is the frame multiple each track is padded to inside the CHD.
const trackPadding = 4

// trackFormat is how a CHD track type is stored and what it expands to.
type trackFormat struct {
	dataSize int
	kind     cd.TrackType
}

var trackFormats = map[string]trackFormat{
	"AUDIO":          {cd.SectorSize, cd.TrackAudio},
	"MODE1":          {cd.UserDataSize, cd.TrackMode1},
	"MODE1/2048":     {cd.UserDataSize, cd.TrackMode1},
	"MODE1_RAW":      {cd.SectorSize, cd.TrackMode1},
	"MODE1/2352":     {cd.SectorSize, cd.TrackMode1},
	"MODE2":          {2336, cd.TrackMode2Formless},
	"MODE2/2336":     {2336, cd.TrackMode2Formless},
	"MODE2_FORM_MIX": {2336, cd.TrackMode2Formless},
	"MODE2_FORM1":    {cd.UserDataSize, cd.TrackMode2Form1},
	"MODE2/2048":     {cd.UserDataSize, cd.TrackMode2Form1},
	"MODE2_FORM2":    {cd.Form2DataSize, cd.TrackMode2Form2},
	"MODE2_RAW":      {cd.SectorSize, cd.TrackMode2Formless},
	"MODE2/2352":     {cd.SectorSize, cd.TrackMode2Formless},
}

// chcdTypes and chcdSubTypes name the codes of the binary CHCD table.
var (
	chcdTypes = []string{
		"MODE1", "MODE1_RAW", "MODE2", "MODE2_FORM1",
		"MODE2_FORM2", "MODE2_FORM_MIX", "MODE2_RAW", "AUDIO",
	}
	chcdSubTypes = []string{"RW", "RW_RAW", "NONE"}
)

func lookupFormat(trackType string) (trackFormat, bool) {
	f, ok := trackFormats[strings.ToUpper(trackType)]
	return f, ok
}

// Track is one CD track as the CHD stores it.
type Track struct {
	Type        string
	SubType     string
	PregapType  string
	PregapSub   string
	Number      int
	Frames      int // stored frames, including a stored pregap
	Pregap      int
	Postgap     int
	DataSize    int
	SubSize     int
	PadFrames   int
	StartFrame  int   // first frame of the track inside the CHD
	StartLBA    int32 // LBA of the first stored frame
	pregapKnown bool
}

type metadataEntry struct {
	Data  []byte
	Next  uint64
	Tag   uint32
	Flags uint8
}

// parseMetadata follows the metadata chain starting at offset. Each entry
// is a 16-byte header (tag, flags, 24-bit length, next offset) followed by
// its data.
func parseMetadata(r io.ReaderAt, offset uint64) ([]metadataEntry, error) {
	var entries []metadataEntry
	seen := make(map[uint64]struct{})
	for offset != 0 {
		if _, loop := seen[offset]; loop {
			return nil, fmt.Errorf("%w: metadata chain loops at %d", ErrInvalidMetadata, offset)
		}
		if len(seen) >= MaxMetadataEntries {
			return nil, fmt.Errorf("%w: more than %d metadata entries", ErrInvalidMetadata, MaxMetadataEntries)
		}
		seen[offset] = struct{}{}

		head, err := ibinary.ReadBytesAt(r, int64(offset), 16) //nolint:gosec // offsets past the file fail the read
		if err != nil {
			return nil, fmt.Errorf("read metadata at %d: %w", offset, err)
		}
		e := metadataEntry{
			Tag:   binary.BigEndian.Uint32(head[0:4]),
			Flags: head[4],
			Next:  binary.BigEndian.Uint64(head[8:16]),
		}
		if length := int(head[5])<<16 | int(head[6])<<8 | int(head[7]); length > 0 {
			if e.Data, err = ibinary.ReadBytesAt(r, int64(offset)+16, length); err != nil { //nolint:gosec // see above
				return nil, fmt.Errorf("read metadata at %d: %w", offset, err)
			}
		}
		entries = append(entries, e)
		offset = e.Next
	}
	return entries, nil
}

// parseTracks collects the track entries, orders them by number and lays
// them out.
func parseTracks(entries []metadataEntry) ([]Track, error) {
	var tracks []Track
	for _, e := range entries {
		switch e.Tag {
		case MetaTagCHT2, MetaTagCHTR, MetaTagGDTR:
			t, err := parseTrackText(e.Data)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, t)
		case MetaTagCHCD:
			table, err := parseCHCD(e.Data)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, table...)
		}
	}
	if len(tracks) > MaxNumTracks {
		return nil, fmt.Errorf("%w: %d tracks", ErrInvalidMetadata, len(tracks))
	}

	slices.SortStableFunc(tracks, func(a, b Track) int { return a.Number - b.Number })
	for i := 1; i < len(tracks); i++ {
		if tracks[i].Number == tracks[i-1].Number {
			return nil, fmt.Errorf("%w: track %d listed twice", ErrInvalidMetadata, tracks[i].Number)
		}
	}
	layoutTracks(tracks)
	return tracks, nil
}

// layoutTracks assigns CHD frame offsets and LBAs. Tracks are stored back to
// back, each padded to a multiple of four frames. A pregap that is not stored
// in the image still occupies LBAs, as does every postgap.
func layoutTracks(tracks []Track) {
	startFrame := 0
	var lba int32
	for i := range tracks {
		t := &tracks[i]
		if !t.pregapKnown {
			t.PadFrames = (trackPadding - t.Frames%trackPadding) % trackPadding
		}
		t.StartFrame = startFrame
		startFrame += t.Frames + t.PadFrames

		switch {
		case i == 0 && t.PregapStored():
			lba = -int32(t.Pregap) //nolint:gosec // Pregap bounded by frame count
		case !t.PregapStored():
			lba += int32(t.Pregap) //nolint:gosec // Pregap bounded by frame count
		}
		t.StartLBA = lba
		lba += int32(t.Frames + t.Postgap) //nolint:gosec // Frames bounded by CHD size
	}
}

// parseTrackText parses the KEY:VALUE form shared by CHTR, CHT2 and CHGD,
// for example "TRACK:1 TYPE:MODE2_RAW SUBTYPE:NONE FRAMES:1234 PREGAP:150".
// Unknown keys are ignored.
func parseTrackText(data []byte) (Track, error) {
	var t Track
	ints := map[string]*int{
		"TRACK":   &t.Number,
		"FRAMES":  &t.Frames,
		"PREGAP":  &t.Pregap,
		"POSTGAP": &t.Postgap,
		"PAD":     &t.PadFrames,
	}
	strs := map[string]*string{
		"TYPE":    &t.Type,
		"SUBTYPE": &t.SubType,
		"PGTYPE":  &t.PregapType,
		"PGSUB":   &t.PregapSub,
	}

	text := strings.TrimRight(string(data), "\x00")
	for _, field := range strings.Fields(text) {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		key = strings.ToUpper(key)
		if p, ok := strs[key]; ok {
			*p = value
			continue
		}
		p, ok := ints[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return Track{}, fmt.Errorf("%w: %s %q in %q", ErrInvalidMetadata, key, value, text)
		}
		*p = n
		if key == "PAD" {
			t.pregapKnown = true
		}
	}

	if t.Number < 1 || t.Number > MaxNumTracks {
		return Track{}, fmt.Errorf("%w: track number %d in %q", ErrInvalidMetadata, t.Number, text)
	}
	t.DataSize = cd.SectorSize
	if f, ok := lookupFormat(t.Type); ok {
		t.DataSize = f.dataSize
	}
	if s := strings.ToUpper(t.SubType); s == "RW" || s == "RW_RAW" {
		t.SubSize = cd.SubchannelSize
	}
	return t, nil
}

// parseCHCD parses the binary track table: a track count, then six
// big-endian words per track (type, subtype, data size, subchannel size,
// frames, padding frames).
func parseCHCD(data []byte) ([]Track, error) {
	const entrySize = 24
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: CHCD table of %d bytes", ErrInvalidMetadata, len(data))
	}
	n := int(binary.BigEndian.Uint32(data))
	if n > MaxNumTracks || len(data) < 4+n*entrySize {
		return nil, fmt.Errorf("%w: CHCD table of %d bytes for %d tracks", ErrInvalidMetadata, len(data), n)
	}

	tracks := make([]Track, n)
	for i := range tracks {
		var w [6]int
		for j := range w {
			w[j] = int(binary.BigEndian.Uint32(data[4+i*entrySize+4*j:]))
		}
		t := Track{
			Number:      i + 1,
			Type:        "UNKNOWN",
			SubType:     "NONE",
			DataSize:    w[2],
			SubSize:     w[3],
			Frames:      w[4],
			PadFrames:   w[5],
			pregapKnown: true,
		}
		if w[0] < len(chcdTypes) {
			t.Type = chcdTypes[w[0]]
		}
		if w[1] < len(chcdSubTypes) {
			t.SubType = chcdSubTypes[w[1]]
		}
		tracks[i] = t
	}
	return tracks, nil
}

// PregapStored reports whether the pregap frames are part of Frames. MAME
// marks a stored pregap by prefixing its type with "V".
func (t *Track) PregapStored() bool {
	return strings.HasPrefix(strings.ToUpper(t.PregapType), "V")
}

// Index1LBA returns the LBA of the track's INDEX 01.
func (t *Track) Index1LBA() int32 {
	if t.PregapStored() {
		return t.StartLBA + int32(t.Pregap) //nolint:gosec // Pregap bounded by frame count
	}
	return t.StartLBA
}

// TrackType maps the CHD track type onto the sector layout it expands to.
// Raw Mode 2 tracks report TrackMode2Formless; the form of each sector is
// read from its subheader.
func (t *Track) TrackType() cd.TrackType {
	if f, ok := lookupFormat(t.Type); ok {
		return f.kind
	}
	return cd.TrackOther
}

// Cooked reports whether the stored sectors lack the sync and header.
func (t *Track) Cooked() bool {
	return t.TrackType() != cd.TrackAudio && t.DataSize < cd.SectorSize
}

// SubchannelInterleaved reports whether stored subchannel is already in raw
// interleaved form.
func (t *Track) SubchannelInterleaved() bool {
	return strings.EqualFold(t.SubType, "RW_RAW")
}

// Contains reports whether lba falls inside the stored frames of the track.
func (t *Track) Contains(lba int32) bool {
	return lba >= t.StartLBA && lba < t.StartLBA+int32(t.Frames) //nolint:gosec // Frames bounded by CHD size
}
