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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/go-discsector/archive"
	"github.com/ZaparooProject/go-discsector/cd"
	"github.com/ZaparooProject/go-discsector/chd"
	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
)

// Source is one readable stream of sectors, such as a BIN file, a CHD or an
// archive member.
type Source struct {
	io.ReaderAt
	Name   string
	Format Format
	Size   int64
	Layout *Layout // nil for DVD and subchannel sources
	CHD    *chd.CHD
	closer io.Closer
}

// Close releases the source.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.Name, err)
	}
	return nil
}

// Image is an opened disc image: one source per file, in LBA order.
type Image struct {
	Path    string
	Format  Format
	Sources []*Source
}

// Close releases every source.
func (img *Image) Close() error {
	var errs []error
	for _, s := range img.Sources {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Options tune how an image is opened.
type Options struct {
	// StartLBA is the LBA of the first sector of a BIN or scrambled image
	// opened without a cue sheet.
	StartLBA int32
}

var chdMagic = []byte("MComprHD")

// Open opens the image at path. Cue sheets yield one source per FILE; CHDs
// yield their frames as raw sectors; archive paths are buffered in memory.
func Open(path string, opts Options) (*Image, error) {
	if archive.IsArchivePath(path) {
		return openArchived(path, opts)
	}

	format := DetectFormat(path)
	if format == FormatCue {
		return openCue(path)
	}

	file, err := os.Open(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}

	src, err := newSource(path, file, info.Size(), format, opts)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if src.closer == nil {
		src.closer = file
	} else {
		src.closer = multiCloser{src.closer, file}
	}
	return &Image{Path: path, Format: src.Format, Sources: []*Source{src}}, nil
}

func openArchived(path string, opts Options) (*Image, error) {
	member, err := archive.OpenImage(path)
	if err != nil {
		return nil, fmt.Errorf("open archived image: %w", err)
	}
	name := path
	if archive.IsArchiveExtension(filepath.Ext(path)) {
		// The member was detected rather than named.
		name = path + "/" + member.Name
	}
	src, err := newSource(name, member, member.Size(), DetectFormat(member.Name), opts)
	if err != nil {
		return nil, err
	}
	return &Image{Path: path, Format: src.Format, Sources: []*Source{src}}, nil
}

func openCue(path string) (*Image, error) {
	cue, err := ParseCue(path)
	if err != nil {
		return nil, err
	}
	if len(cue.Files) == 0 {
		return nil, UnsupportedImageError{Path: path, Reason: "cue sheet names no FILE"}
	}

	img := &Image{Path: path, Format: FormatCue}
	var lba int32
	for i, cf := range cue.Files {
		file, err := os.Open(cf.Path)
		if err != nil {
			_ = img.Close()
			return nil, fmt.Errorf("open cue FILE: %w", err)
		}
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			_ = img.Close()
			return nil, fmt.Errorf("stat cue FILE: %w", err)
		}
		layout, err := LayoutFromCue(cue, i, info.Size(), lba)
		if err != nil {
			_ = file.Close()
			_ = img.Close()
			return nil, err
		}
		lba = layout.NextLBA
		img.Sources = append(img.Sources, &Source{
			ReaderAt: file,
			Name:     cf.Path,
			Format:   FormatRawCD,
			Size:     info.Size(),
			Layout:   layout,
			closer:   file,
		})
	}
	return img, nil
}

// newSource wraps r as a source of the given format. An unknown format is
// sniffed: a CHD header or a CD sync mark at offset 0.
func newSource(name string, r io.ReaderAt, size int64, format Format, opts Options) (*Source, error) {
	if format == FormatUnknown {
		format = sniffFormat(r)
	}

	switch format {
	case FormatCHD:
		image, err := chd.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open CHD: %w", err)
		}
		return &Source{
			ReaderAt: image.RawSectorReader(),
			Name:     name,
			Format:   FormatCHD,
			Size:     int64(image.Frames()) * cd.SectorSize,
			Layout:   LayoutFromCHD(image),
			CHD:      image,
			closer:   image,
		}, nil
	case FormatRawCD, FormatScrambledCD:
		frames := int(size / cd.SectorSize)
		if frames == 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrNoSectors)
		}
		return &Source{
			ReaderAt: r,
			Name:     name,
			Format:   format,
			Size:     size,
			Layout:   SingleTrack(cd.TrackOther, frames, opts.StartLBA),
		}, nil
	case FormatDVDRaw, FormatSubchannel, FormatQRecords:
		return &Source{ReaderAt: r, Name: name, Format: format, Size: size}, nil
	default:
		return nil, UnsupportedImageError{Path: name, Reason: "unrecognized format"}
	}
}

func sniffFormat(r io.ReaderAt) Format {
	head, err := ibinary.ReadBytesAt(r, 0, cd.SyncSize)
	if err != nil {
		return FormatUnknown
	}
	switch {
	case bytes.HasPrefix(head, chdMagic):
		return FormatCHD
	case bytes.Equal(head, cd.Sync[:]):
		return FormatRawCD
	default:
		return FormatUnknown
	}
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
