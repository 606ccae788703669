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

import "fmt"

// FormatError indicates an unsupported or invalid archive format.
type FormatError struct {
	Format string
	Reason string
}

func (e FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported archive format %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("unsupported archive format: %s", e.Format)
}

// FileNotFoundError indicates a file was not found in the archive.
type FileNotFoundError struct {
	Archive      string
	InternalPath string
}

func (e FileNotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in archive %q", e.InternalPath, e.Archive)
}

// NoImageFilesError indicates no disc image members were found in the archive.
type NoImageFilesError struct {
	Archive string
}

func (e NoImageFilesError) Error() string {
	return fmt.Sprintf("no disc images found in archive %q", e.Archive)
}

// CueNotSupportedError indicates a cue sheet was found in an archive. Cue/bin
// sets must be extracted before processing.
type CueNotSupportedError struct {
	Archive string
}

func (e CueNotSupportedError) Error() string {
	return fmt.Sprintf("cue sheets in archives are not supported (%q); extract the image first", e.Archive)
}

// MemberTooLargeError indicates a member exceeds MaxMemberSize.
type MemberTooLargeError struct {
	Archive      string
	InternalPath string
	Size         int64
}

func (e MemberTooLargeError) Error() string {
	return fmt.Sprintf("file %q in archive %q is %d bytes, over the %d byte limit",
		e.InternalPath, e.Archive, e.Size, int64(MaxMemberSize))
}
