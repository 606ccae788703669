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

package archive

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// imageExtensions ranks the member types an archive can hold, best first.
// Cue sheets are absent: their tracks live in separate members.
var imageExtensions = map[string]int{
	".chd":     0,
	".scram":   1,
	".scm":     1,
	".sdram":   1,
	".raw":     2,
	".bin":     2,
	".img":     2,
	".sub":     3,
	".subcode": 3,
	".subq":    3,
}

// IsImageFile checks if a filename has a recognized disc image or subchannel
// extension.
func IsImageFile(filename string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// IsCueFile checks if the given path is a CUE sheet.
func IsCueFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cue")
}

// DetectImageFile picks the image member of an archive. A CHD wins over a
// scrambled dump, which wins over a plain raw image; ties go to the member
// listed first. Archives holding a cue sheet are rejected, since the track
// layout would have to come from several members.
func DetectImageFile(arc Archive) (string, error) {
	files, err := arc.List()
	if err != nil {
		return "", fmt.Errorf("list archive files: %w", err)
	}

	if slices.ContainsFunc(files, func(f FileInfo) bool { return IsCueFile(f.Name) }) {
		return "", CueNotSupportedError{Archive: "archive"}
	}

	best, bestRank := "", len(imageExtensions)
	for _, file := range files {
		rank, ok := imageExtensions[strings.ToLower(filepath.Ext(file.Name))]
		if ok && rank < bestRank {
			best, bestRank = file.Name, rank
		}
	}
	if best == "" {
		return "", NoImageFilesError{Archive: "archive"}
	}
	return best, nil
}
