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

// Package disc locates the sectors of a disc image on disk: it parses cue
// sheets, maps LBAs onto tracks and opens BIN, scrambled, CHD and archived
// images as sector sources.
package disc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/go-discsector/archive"
)

// Format is the kind of image a path holds.
type Format int

// Image formats.
const (
	FormatUnknown Format = iota
	FormatCue
	FormatCHD
	FormatRawCD
	FormatScrambledCD
	FormatDVDRaw
	FormatSubchannel
	FormatQRecords
)

var formatNames = [...]string{
	FormatUnknown:     "unknown",
	FormatCue:         "cue",
	FormatCHD:         "chd",
	FormatRawCD:       "raw CD",
	FormatScrambledCD: "scrambled CD",
	FormatDVDRaw:      "raw DVD",
	FormatSubchannel:  "subchannel",
	FormatQRecords:    "Q records",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return formatNames[FormatUnknown]
	}
	return formatNames[f]
}

// IsCD reports whether the format holds 2352-byte CD sectors.
func (f Format) IsCD() bool {
	return f == FormatCue || f == FormatCHD || f == FormatRawCD || f == FormatScrambledCD
}

var extensionFormats = map[string]Format{
	".cue":     FormatCue,
	".chd":     FormatCHD,
	".bin":     FormatRawCD,
	".img":     FormatRawCD,
	".scram":   FormatScrambledCD,
	".scm":     FormatScrambledCD,
	".raw":     FormatDVDRaw,
	".sdram":   FormatDVDRaw,
	".sub":     FormatSubchannel,
	".subcode": FormatSubchannel,
	".subq":    FormatQRecords,
}

// DetectFormat classifies path by extension. For archive member paths such
// as "dump.zip/disc.scram" the member's extension decides; a bare archive
// path reports FormatUnknown until its member is picked.
func DetectFormat(path string) Format {
	if archive.IsArchivePath(path) {
		if ext := strings.ToLower(filepath.Ext(path)); archive.IsArchiveExtension(ext) {
			return FormatUnknown
		}
	}
	return extensionFormats[strings.ToLower(filepath.Ext(path))]
}

// ErrNoSectors is returned for images that contain no whole sector.
var ErrNoSectors = errors.New("image holds no sectors")

// UnsupportedImageError reports a path that cannot be opened as a sector
// source.
type UnsupportedImageError struct {
	Path   string
	Reason string
}

func (e UnsupportedImageError) Error() string {
	return fmt.Sprintf("unsupported image %q: %s", e.Path, e.Reason)
}
