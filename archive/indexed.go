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
	"io"
)

// entry is one regular file of an archive with a central directory.
type entry struct {
	FileInfo
	open func() (io.ReadCloser, error)
}

// indexedArchive serves formats that list their members up front, so any
// member can be opened without scanning the ones before it.
type indexedArchive struct {
	format  string
	path    string
	entries []entry
	closer  io.Closer
}

func (a *indexedArchive) List() ([]FileInfo, error) {
	files := make([]FileInfo, len(a.entries))
	for i := range a.entries {
		files[i] = a.entries[i].FileInfo
	}
	return files, nil
}

func (a *indexedArchive) Open(internalPath string) (io.ReadCloser, int64, error) {
	for i := range a.entries {
		e := &a.entries[i]
		if !sameMember(e.Name, internalPath) {
			continue
		}
		rc, err := e.open()
		if err != nil {
			return nil, 0, fmt.Errorf("open %s in %s archive: %w", e.Name, a.format, err)
		}
		return rc, e.Size, nil
	}
	return nil, 0, FileNotFoundError{Archive: a.path, InternalPath: internalPath}
}

func (a *indexedArchive) OpenReaderAt(internalPath string) (*Member, error) {
	return bufferFile(a, a.path, internalPath)
}

func (a *indexedArchive) Close() error {
	if err := a.closer.Close(); err != nil {
		return fmt.Errorf("close %s archive: %w", a.format, err)
	}
	return nil
}
