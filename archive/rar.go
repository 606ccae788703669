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
	"io"

	"github.com/nwaples/rardecode/v2"
)

// rarArchive reads RAR archives, including multi-volume sets opened by their
// first volume. RAR has no central directory, so every call streams the
// archive from the start.
type rarArchive struct {
	path string
}

func openRAR(path string) (Archive, error) {
	rc, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open RAR archive: %w", err)
	}
	if err := rc.Close(); err != nil {
		return nil, fmt.Errorf("close RAR archive: %w", err)
	}
	return &rarArchive{path: path}, nil
}

// walk calls fn for each regular file until fn returns true. The stream is
// left open when fn stops the walk.
func (a *rarArchive) walk(fn func(*rardecode.FileHeader, *rardecode.ReadCloser) bool) (bool, error) {
	rc, err := rardecode.OpenReader(a.path)
	if err != nil {
		return false, fmt.Errorf("open RAR archive: %w", err)
	}
	for {
		header, err := rc.Next()
		if errors.Is(err, io.EOF) {
			return false, rc.Close()
		}
		if err != nil {
			_ = rc.Close()
			return false, fmt.Errorf("read RAR header: %w", err)
		}
		if header.IsDir {
			continue
		}
		if fn(header, rc) {
			return true, nil
		}
	}
}

func (a *rarArchive) List() ([]FileInfo, error) {
	var files []FileInfo
	_, err := a.walk(func(h *rardecode.FileHeader, _ *rardecode.ReadCloser) bool {
		files = append(files, FileInfo{Name: h.Name, Size: h.UnPackedSize})
		return false
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (a *rarArchive) Open(internalPath string) (io.ReadCloser, int64, error) {
	var (
		member io.ReadCloser
		size   int64
	)
	found, err := a.walk(func(h *rardecode.FileHeader, rc *rardecode.ReadCloser) bool {
		if !sameMember(h.Name, internalPath) {
			return false
		}
		member, size = rc, h.UnPackedSize
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	if !found {
		return nil, 0, FileNotFoundError{Archive: a.path, InternalPath: internalPath}
	}
	return member, size, nil
}

func (a *rarArchive) OpenReaderAt(internalPath string) (*Member, error) {
	return bufferFile(a, a.path, internalPath)
}

func (*rarArchive) Close() error {
	return nil
}
