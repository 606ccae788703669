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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-discsector/cd"
)

// CueSheet is a parsed cue sheet.
type CueSheet struct {
	Path  string
	Files []CueFile
}

// CueFile is a FILE entry and the tracks stored in it.
type CueFile struct {
	Path   string // absolute, resolved against the cue sheet's directory
	Type   string // BINARY, MOTOROLA, WAVE, ...
	Tracks []CueTrack
}

// CueTrack is a TRACK entry.
type CueTrack struct {
	Type    string // AUDIO, MODE1/2352, MODE2/2352, ...
	Indexes []CueIndex
	Number  int
	Pregap  int // frames of PREGAP, not stored in the file
	Postgap int // frames of POSTGAP, not stored in the file
}

// CueIndex is an INDEX entry; Frame is relative to the start of the file.
type CueIndex struct {
	Number int
	Frame  int
}

// ParseCue parses a cue sheet from a file. FILE paths are resolved against
// the cue sheet's directory.
func ParseCue(cuePath string) (*CueSheet, error) {
	f, err := os.Open(cuePath) //nolint:gosec // Path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("open cue sheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	cue, err := ParseCueReader(f, filepath.Dir(cuePath))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", cuePath, err)
	}
	cue.Path = cuePath
	return cue, nil
}

// ParseCueReader parses a cue sheet, resolving relative FILE paths against
// dir. Commands other than FILE, TRACK, INDEX, PREGAP and POSTGAP are
// ignored.
//
//nolint:gocognit,cyclop,funlen // one case per cue command
func ParseCueReader(r io.Reader, dir string) (*CueSheet, error) {
	cue := &CueSheet{}
	var file *CueFile
	var track *CueTrack

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := cueFields(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: FILE without a name", lineNo)
			}
			name := fields[1]
			if !filepath.IsAbs(name) {
				name = filepath.Join(dir, name)
			}
			cf := CueFile{Path: name}
			if len(fields) > 2 {
				cf.Type = strings.ToUpper(fields[2])
			}
			cue.Files = append(cue.Files, cf)
			file = &cue.Files[len(cue.Files)-1]
			track = nil

		case "TRACK":
			if file == nil {
				return nil, fmt.Errorf("line %d: TRACK before FILE", lineNo)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: TRACK needs a number and a type", lineNo)
			}
			num, err := strconv.Atoi(fields[1])
			if err != nil || num < 1 || num > 99 {
				return nil, fmt.Errorf("line %d: invalid track number %q", lineNo, fields[1])
			}
			file.Tracks = append(file.Tracks, CueTrack{Number: num, Type: strings.ToUpper(fields[2])})
			track = &file.Tracks[len(file.Tracks)-1]

		case "INDEX":
			if track == nil {
				return nil, fmt.Errorf("line %d: INDEX outside a track", lineNo)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: INDEX needs a number and a time", lineNo)
			}
			num, err := strconv.Atoi(fields[1])
			if err != nil || num < 0 || num > 99 {
				return nil, fmt.Errorf("line %d: invalid index number %q", lineNo, fields[1])
			}
			frame, err := parseCueTime(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			track.Indexes = append(track.Indexes, CueIndex{Number: num, Frame: frame})

		case "PREGAP", "POSTGAP":
			if track == nil || len(fields) < 2 {
				return nil, fmt.Errorf("line %d: %s outside a track", lineNo, fields[0])
			}
			frames, err := parseCueTime(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if strings.EqualFold(fields[0], "PREGAP") {
				track.Pregap = frames
			} else {
				track.Postgap = frames
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cue sheet: %w", err)
	}

	return cue, nil
}

// cueFields splits a cue line into words, keeping quoted strings whole.
func cueFields(line string) []string {
	var fields []string
	for line = strings.TrimSpace(line); line != ""; line = strings.TrimSpace(line) {
		if line[0] == '"' {
			end := strings.IndexByte(line[1:], '"')
			if end < 0 {
				fields = append(fields, line[1:])
				break
			}
			fields = append(fields, line[1:end+1])
			line = line[end+2:]
			continue
		}
		end := strings.IndexAny(line, " \t")
		if end < 0 {
			fields = append(fields, line)
			break
		}
		fields = append(fields, line[:end])
		line = line[end:]
	}
	return fields
}

// parseCueTime parses an mm:ss:ff time into frames.
func parseCueTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		v[i] = n
	}
	if v[1] >= 60 || v[2] >= cd.FramesPerSecond {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return (v[0]*60+v[1])*cd.FramesPerSecond + v[2], nil
}

// Index returns the frame of index n, or false when the track has none.
func (t *CueTrack) Index(n int) (int, bool) {
	for _, idx := range t.Indexes {
		if idx.Number == n {
			return idx.Frame, true
		}
	}
	return 0, false
}

// start returns the first frame of the track stored in its file.
func (t *CueTrack) start() int {
	if len(t.Indexes) == 0 {
		return 0
	}
	first := t.Indexes[0].Frame
	for _, idx := range t.Indexes[1:] {
		first = min(first, idx.Frame)
	}
	return first
}

// IsCueFile checks if the given path is a CUE file.
func IsCueFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cue")
}

// cueTrackTypeName returns the cue TRACK type of t.
func cueTrackTypeName(t *Track) (string, bool) {
	switch t.Type {
	case cd.TrackAudio:
		if t.SectorSize == cd.FrameSize {
			return "CDG", true
		}
		return "AUDIO", true
	case cd.TrackMode1:
		if t.SectorSize == cd.UserDataSize {
			return "MODE1/2048", true
		}
		return "MODE1/2352", true
	case cd.TrackMode2Form1, cd.TrackMode2Form2, cd.TrackMode2Formless:
		if t.SectorSize == cd.SectorSize-cd.SyncSize-cd.HeaderSize {
			return "MODE2/2336", true
		}
		return "MODE2/2352", true
	default:
		return "", false
	}
}

// cueTime formats a frame count as mm:ss:ff.
func cueTime(frames int32) string {
	return fmt.Sprintf("%02d:%02d:%02d",
		frames/(60*cd.FramesPerSecond), (frames/cd.FramesPerSecond)%60, frames%cd.FramesPerSecond)
}

// WriteCue writes a cue sheet that stores every track of layout in the
// single file binName. Frames between tracks that the layout does not store
// become PREGAP entries; a gap after the last track becomes its POSTGAP.
func WriteCue(w io.Writer, binName string, layout *Layout) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FILE \"%s\" BINARY\n", binName)

	var next int32
	for i := range layout.Tracks {
		t := &layout.Tracks[i]
		typ, ok := cueTrackTypeName(t)
		if !ok {
			return UnsupportedImageError{Path: binName, Reason: fmt.Sprintf("track %d has no cue type", t.Number)}
		}
		fmt.Fprintf(&sb, "  TRACK %02d %s\n", t.Number, typ)
		if gap := t.StartLBA - next; gap > 0 {
			fmt.Fprintf(&sb, "    PREGAP %s\n", cueTime(gap))
		}

		start := int32(t.Offset / int64(t.SectorSize)) //nolint:gosec // bounded by image size
		if t.Index1LBA > t.StartLBA {
			fmt.Fprintf(&sb, "    INDEX 00 %s\n", cueTime(start))
		}
		fmt.Fprintf(&sb, "    INDEX 01 %s\n", cueTime(start+t.Index1LBA-t.StartLBA))
		next = t.StartLBA + int32(t.Frames) //nolint:gosec // bounded by image size
	}
	if postgap := layout.NextLBA - next; postgap > 0 && len(layout.Tracks) > 0 {
		fmt.Fprintf(&sb, "    POSTGAP %s\n", cueTime(postgap))
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write cue sheet: %w", err)
	}
	return nil
}
