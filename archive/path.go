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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Path is a dump path split at the archive that contains it.
type Path struct {
	ArchivePath  string
	InternalPath string // empty selects the dump automatically
}

// archiveSegments splits p at slashes and returns the indexes of the
// segments that carry an archive extension.
func archiveSegments(p string) (segments []string, hits []int) {
	segments = strings.Split(filepath.ToSlash(p), "/")
	for i, seg := range segments {
		if IsArchiveExtension(filepath.Ext(seg)) {
			hits = append(hits, i)
		}
	}
	return segments, hits
}

// ParsePath splits a path such as "/dumps/disc.7z/disc.scram" into the
// archive and the member inside it. A bare archive path yields an empty
// member. The split is made at the leftmost segment that names an existing
// regular file, so directories that happen to end in ".zip" are walked
// through. It returns nil, nil when path does not go through an archive.
//
//nolint:nilnil // nil, nil means "not an archive path"
func ParsePath(path string) (*Path, error) {
	segments, hits := archiveSegments(path)
	for _, i := range hits {
		candidate := filepath.FromSlash(strings.Join(segments[:i+1], "/"))
		info, err := os.Stat(candidate)
		switch {
		case err == nil && info.Mode().IsRegular():
			return &Path{
				ArchivePath:  candidate,
				InternalPath: strings.Join(segments[i+1:], "/"),
			}, nil
		case err == nil, errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
			continue
		default:
			return nil, fmt.Errorf("stat archive %s: %w", candidate, err)
		}
	}
	return nil, nil
}

// IsArchivePath reports whether any segment of path has an archive
// extension. It does not touch the filesystem.
func IsArchivePath(path string) bool {
	_, hits := archiveSegments(path)
	return len(hits) > 0
}
