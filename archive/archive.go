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

// Package archive reads single-file disc images and subchannel dumps from
// ZIP, 7z and RAR archives.
package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxMemberSize bounds the size of a member buffered for random access. A
// scrambled CD dump with subchannel fits comfortably; a dual-layer DVD does
// not and has to be extracted first.
const MaxMemberSize = 2 << 30

// FileInfo contains information about a file in an archive.
type FileInfo struct {
	Name string // Full path within archive
	Size int64  // Uncompressed size
}

// Archive provides read access to files within an archive.
type Archive interface {
	// List returns all files in the archive.
	List() ([]FileInfo, error)

	// Open opens a file within the archive for reading.
	// Returns the reader, uncompressed size, and any error.
	Open(internalPath string) (io.ReadCloser, int64, error)

	// OpenReaderAt opens a file and returns an io.ReaderAt interface.
	// The file contents are buffered in memory to support random access.
	OpenReaderAt(internalPath string) (*Member, error)

	// Close closes the archive.
	Close() error
}

// Member is an archive member buffered in memory.
type Member struct {
	Name string
	data []byte
}

// Size returns the member size in bytes.
func (m *Member) Size() int64 {
	return int64(len(m.data))
}

// ReadAt implements io.ReaderAt.
func (m *Member) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset: %d", off)
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}

	n := copy(buf, m.data[off:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// Open opens an archive file based on its extension.
// Supported formats: .zip, .7z, .rar
func Open(path string) (Archive, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".zip":
		return openZIP(path)
	case ".7z":
		return openSevenZip(path)
	case ".rar":
		return openRAR(path)
	default:
		return nil, FormatError{Format: ext}
	}
}

// OpenImage resolves an archive path such as "dump.7z/disc.scram", or a bare
// archive whose image member is detected, and buffers that member.
func OpenImage(path string) (*Member, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, FormatError{Format: filepath.Ext(path), Reason: "not an archive path"}
	}

	arc, err := Open(parsed.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = arc.Close() }()

	internal := parsed.InternalPath
	if internal == "" {
		internal, err = DetectImageFile(arc)
		if err != nil {
			return nil, err
		}
	} else if IsCueFile(internal) {
		return nil, CueNotSupportedError{Archive: parsed.ArchivePath}
	}

	return arc.OpenReaderAt(internal)
}

// IsArchiveExtension checks if an extension is a supported archive format.
func IsArchiveExtension(ext string) bool {
	ext = strings.ToLower(ext)
	switch ext {
	case ".zip", ".7z", ".rar":
		return true
	default:
		return false
	}
}

// sameMember reports whether an archive entry name refers to internalPath.
// Names compare case-insensitively with forward slashes and no leading "./".
func sameMember(name, internalPath string) bool {
	clean := func(s string) string {
		return strings.TrimPrefix(filepath.ToSlash(s), "./")
	}
	return strings.EqualFold(clean(name), clean(internalPath))
}

// bufferFile reads a whole archive member into memory.
func bufferFile(arc Archive, archivePath, internalPath string) (*Member, error) {
	reader, size, err := arc.Open(internalPath)
	if err != nil {
		return nil, fmt.Errorf("open file in archive: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if size > MaxMemberSize {
		return nil, MemberTooLargeError{Archive: archivePath, InternalPath: internalPath, Size: size}
	}

	data := make([]byte, size)
	n, err := io.ReadFull(reader, data)
	if err != nil {
		return nil, fmt.Errorf("read file from archive: %w", err)
	}

	return &Member{Name: internalPath, data: data[:n]}, nil
}
