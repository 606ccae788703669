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

	"github.com/bodgit/sevenzip"
)

// openSevenZip lists a 7z archive. Solid blocks are decoded from their
// start each time a member is opened.
func openSevenZip(path string) (Archive, error) {
	zr, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open 7z archive: %w", err)
	}

	arc := &indexedArchive{format: "7z", path: path, closer: zr}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		arc.entries = append(arc.entries, entry{
			FileInfo: FileInfo{Name: f.Name, Size: int64(f.UncompressedSize)}, //nolint:gosec // member sizes fit int64
			open:     f.Open,
		})
	}
	return arc, nil
}
