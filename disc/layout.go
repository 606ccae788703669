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

package disc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZaparooProject/go-discsector/cd"
	"github.com/ZaparooProject/go-discsector/chd"
)

// Track is a run of sectors of one type inside a sector source.
type Track struct {
	Number     int
	Type       cd.TrackType // TrackOther means the type is read from each sector
	SectorSize int          // stored bytes per sector
	Offset     int64        // byte offset of the first stored sector
	StartLBA   int32        // LBA of the first stored sector
	Index1LBA  int32
	Frames     int
}

// Contains reports whether lba is a stored sector of the track.
func (t *Track) Contains(lba int32) bool {
	return lba >= t.StartLBA && lba < t.StartLBA+int32(t.Frames) //nolint:gosec // Frames bounded by image size
}

// Raw reports whether the track stores full 2352-byte sectors.
func (t *Track) Raw() bool {
	return t.SectorSize == cd.SectorSize
}

// Layout is the ordered track list of one sector source.
type Layout struct {
	Tracks  []Track
	NextLBA int32 // first LBA after the source, including a trailing postgap
}

// SingleTrack describes a source of frames raw sectors starting at startLBA
// whose type is tt, or read per sector when tt is cd.TrackOther.
func SingleTrack(tt cd.TrackType, frames int, startLBA int32) *Layout {
	return &Layout{
		Tracks: []Track{{
			Number:     1,
			Type:       tt,
			SectorSize: cd.SectorSize,
			StartLBA:   startLBA,
			Index1LBA:  startLBA,
			Frames:     frames,
		}},
		NextLBA: startLBA + int32(frames), //nolint:gosec // frames bounded by image size
	}
}

// Frames returns the number of stored sectors.
func (l *Layout) Frames() int {
	n := 0
	for i := range l.Tracks {
		n += l.Tracks[i].Frames
	}
	return n
}

// TrackAt returns the track storing lba.
func (l *Layout) TrackAt(lba int32) (*Track, bool) {
	i := sort.Search(len(l.Tracks), func(i int) bool {
		t := &l.Tracks[i]
		return t.StartLBA+int32(t.Frames) > lba //nolint:gosec // Frames bounded by image size
	})
	if i == len(l.Tracks) || !l.Tracks[i].Contains(lba) {
		return nil, false
	}
	return &l.Tracks[i], true
}

// Sector returns the track, LBA and byte offset of the index-th stored
// sector of the source.
func (l *Layout) Sector(index int) (*Track, int32, int64, bool) {
	if index < 0 {
		return nil, 0, 0, false
	}
	for i := range l.Tracks {
		t := &l.Tracks[i]
		if index < t.Frames {
			return t, t.StartLBA + int32(index), t.Offset + int64(index)*int64(t.SectorSize), true //nolint:gosec // index < Frames
		}
		index -= t.Frames
	}
	return nil, 0, 0, false
}

// cueTrackType maps a cue TRACK type onto a sector type and stored size.
func cueTrackType(s string) (cd.TrackType, int, bool) {
	switch strings.ToUpper(s) {
	case "AUDIO":
		return cd.TrackAudio, cd.SectorSize, true
	case "CDG":
		return cd.TrackAudio, cd.FrameSize, true
	case "MODE1/2048":
		return cd.TrackMode1, cd.UserDataSize, true
	case "MODE1/2352":
		return cd.TrackMode1, cd.SectorSize, true
	case "MODE2/2336", "CDI/2336":
		return cd.TrackMode2Formless, cd.SectorSize - cd.SyncSize - cd.HeaderSize, true
	case "MODE2/2352", "CDI/2352":
		return cd.TrackMode2Formless, cd.SectorSize, true
	default:
		return cd.TrackOther, 0, false
	}
}

// LayoutFromCue lays out the tracks stored in FILE number fileIndex of cue,
// which is fileSize bytes long and whose first sector is at startLBA. PREGAP
// and POSTGAP frames are not stored but advance the LBA.
func LayoutFromCue(cue *CueSheet, fileIndex int, fileSize int64, startLBA int32) (*Layout, error) {
	if fileIndex < 0 || fileIndex >= len(cue.Files) {
		return nil, fmt.Errorf("cue sheet has no file %d", fileIndex)
	}
	file := cue.Files[fileIndex]
	if len(file.Tracks) == 0 {
		return nil, fmt.Errorf("%s: no tracks", file.Path)
	}

	layout := &Layout{Tracks: make([]Track, 0, len(file.Tracks))}
	gap := int32(0)
	for i := range file.Tracks {
		ct := &file.Tracks[i]
		tt, size, ok := cueTrackType(ct.Type)
		if !ok {
			return nil, UnsupportedImageError{Path: file.Path, Reason: fmt.Sprintf("track %d type %s", ct.Number, ct.Type)}
		}
		index1, ok := ct.Index(1)
		if !ok {
			return nil, fmt.Errorf("%s: track %d has no INDEX 01", file.Path, ct.Number)
		}

		start := ct.start()
		end := int(fileSize / int64(size))
		if i+1 < len(file.Tracks) {
			end = file.Tracks[i+1].start()
		}
		if end < start {
			return nil, fmt.Errorf("%s: track %d starts at frame %d, past frame %d", file.Path, ct.Number, start, end)
		}

		gap += int32(ct.Pregap) //nolint:gosec // cue times fit in int32
		layout.Tracks = append(layout.Tracks, Track{
			Number:     ct.Number,
			Type:       tt,
			SectorSize: size,
			Offset:     int64(start) * int64(size),
			StartLBA:   startLBA + gap + int32(start),  //nolint:gosec // cue times fit in int32
			Index1LBA:  startLBA + gap + int32(index1), //nolint:gosec // cue times fit in int32
			Frames:     end - start,
		})
		gap += int32(ct.Postgap) //nolint:gosec // cue times fit in int32
	}

	last := layout.Tracks[len(layout.Tracks)-1]
	layout.NextLBA = last.StartLBA + int32(last.Frames) + int32(file.Tracks[len(file.Tracks)-1].Postgap) //nolint:gosec // bounded
	return layout, nil
}

// LayoutFromCHD lays out the stored frames of a CHD as read through
// chd.CHD.RawSectorReader: consecutive raw sectors, track after track.
func LayoutFromCHD(c *chd.CHD) *Layout {
	tracks := c.Tracks()
	layout := &Layout{Tracks: make([]Track, 0, len(tracks))}
	var offset int64
	for i := range tracks {
		t := &tracks[i]
		layout.Tracks = append(layout.Tracks, Track{
			Number:     t.Number,
			Type:       t.TrackType(),
			SectorSize: cd.SectorSize,
			Offset:     offset,
			StartLBA:   t.StartLBA,
			Index1LBA:  t.Index1LBA(),
			Frames:     t.Frames,
		})
		offset += int64(t.Frames) * cd.SectorSize
		layout.NextLBA = t.StartLBA + int32(t.Frames+t.Postgap) //nolint:gosec // bounded by CHD size
	}
	return layout
}
