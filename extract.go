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

package discsector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-discsector/cd"
	"github.com/ZaparooProject/go-discsector/chd"
	"github.com/ZaparooProject/go-discsector/subcode"
)

// FrameReader reads the stored frames of a disc image track by track.
// *chd.CHD implements it.
type FrameReader interface {
	Tracks() []chd.Track
	ReadFrame(lba int32, sector []byte, sub *subcode.Frame) (cd.TrackType, error)
}

// ExtractCHD writes every stored frame of c to bin as a raw 2352-byte
// sector, in track order. When sub is not nil the interleaved subchannel of
// each frame is written to it. Frames whose hunk fails its checksum are
// written zeroed and reported.
func ExtractCHD(ctx context.Context, c FrameReader, bin, sub io.Writer, opts Options) (*Report, error) {
	report := &Report{Operation: "chd extract"}
	limit := opts.maxIssues()

	sector := make([]byte, cd.SectorSize)
	var frame subcode.Frame
	var subPtr *subcode.Frame
	if sub != nil {
		subPtr = &frame
	}

	var index int64
	tracks := c.Tracks()
	for i := range tracks {
		t := &tracks[i]
		for k := range t.Frames {
			if index%chunkSectors == 0 {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("track %d: %w", t.Number, err)
				}
			}

			lba := t.StartLBA + int32(k) //nolint:gosec // bounded by track length
			tt, err := c.ReadFrame(lba, sector, subPtr)
			switch {
			case errors.Is(err, chd.ErrCorruptData):
				clear(sector)
				frame = subcode.Frame{}
				issue := Issue{Index: index, LBA: lba, Track: t.Number, Problem: err.Error()}
				report.Invalid++
				report.addIssue(issue, limit)
				opts.logf("sector %d (LBA %d, track %d): %s", index, lba, t.Number, issue.Problem)
			case err != nil:
				return nil, fmt.Errorf("extract track %d: %w", t.Number, err)
			case tt.IsData():
				report.Data++
			default:
				report.Audio++
			}
			report.Sectors++

			if _, err := bin.Write(sector); err != nil {
				return nil, fmt.Errorf("write sector %d: %w", index, err)
			}
			if sub != nil {
				if _, err := sub.Write(frame[:]); err != nil {
					return nil, fmt.Errorf("write subchannel %d: %w", index, err)
				}
			}
			index++
		}
	}
	return report, nil
}
