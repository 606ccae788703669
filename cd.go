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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZaparooProject/go-discsector/cd"
	"github.com/ZaparooProject/go-discsector/disc"
	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
)

type cdOperation uint8

const (
	opVerify cdOperation = iota
	opRepair
	opScramble
)

var cdOperationNames = [...]string{
	opVerify:   "verify",
	opRepair:   "repair",
	opScramble: "scramble",
}

// VerifyCD checks the sync mark, header address, EDC and ECC of every data
// sector of the size-byte CD image r.
func VerifyCD(ctx context.Context, r io.ReaderAt, size int64, opts Options) (*Report, error) {
	return processCD(ctx, opVerify, r, size, nil, opts)
}

// RepairCD writes r to w with the EDC and ECC of every failing data sector
// regenerated. With Options.RegenerateHeader the sync mark and header are
// rebuilt from the sector's LBA too. Valid sectors are copied as they are.
func RepairCD(ctx context.Context, r io.ReaderAt, size int64, w io.WriterAt, opts Options) (*Report, error) {
	return processCD(ctx, opRepair, r, size, w, opts)
}

// ScrambleCD writes r to w with every sector that starts with a sync mark
// XORed with the ECMA-130 scrambling table. The transform is its own inverse,
// so the same call descrambles a scrambled image. Sectors of audio tracks
// are copied as they are.
func ScrambleCD(ctx context.Context, r io.ReaderAt, size int64, w io.WriterAt, opts Options) (*Report, error) {
	return processCD(ctx, opScramble, r, size, w, opts)
}

// cdJob is a run of consecutive raw sectors of one track.
type cdJob struct {
	track *disc.Track
	base  int64 // source index of the track's first sector
	first int
	count int
}

func processCD(ctx context.Context, op cdOperation, r io.ReaderAt, size int64, w io.WriterAt, opts Options) (*Report, error) {
	layout := opts.Layout
	if layout == nil {
		frames := int(size / cd.SectorSize)
		if frames == 0 {
			return nil, fmt.Errorf("%d bytes: %w", size, disc.ErrNoSectors)
		}
		layout = disc.SingleTrack(cd.TrackOther, frames, opts.StartLBA)
	}

	report := &Report{Operation: cdOperationNames[op]}
	limit := opts.maxIssues()

	var jobs []cdJob
	var end, base int64
	for i := range layout.Tracks {
		t := &layout.Tracks[i]
		end = max(end, t.Offset+int64(t.Frames)*int64(t.SectorSize))
		trackBase := base
		base += int64(t.Frames)
		if !t.Raw() {
			// Cooked and CD+G tracks carry no full sector to check.
			report.Skipped += t.Frames
			opts.logf("track %d: skipping %d sectors of %d bytes", t.Number, t.Frames, t.SectorSize)
			if w != nil {
				if err := copyRange(r, w, t.Offset, int64(t.Frames)*int64(t.SectorSize)); err != nil {
					return nil, err
				}
			}
			continue
		}
		for first := 0; first < t.Frames; first += chunkSectors {
			jobs = append(jobs, cdJob{track: t, base: trackBase, first: first, count: min(chunkSectors, t.Frames-first)})
		}
	}

	parts := make([]*Report, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, job := range jobs {
		g.Go(func() error {
			part, err := runCDJob(gctx, op, r, w, job, opts, limit)
			parts[i] = part
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, part := range parts {
		report.merge(part, limit)
	}

	if w != nil && size > end {
		report.TrailingBytes = size - end
		if err := copyRange(r, w, end, size-end); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func runCDJob(ctx context.Context, op cdOperation, r io.ReaderAt, w io.WriterAt, job cdJob, opts Options, limit int) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("track %d: %w", job.track.Number, err)
	}

	t := job.track
	off := t.Offset + int64(job.first)*cd.SectorSize
	buf := make([]byte, job.count*cd.SectorSize)
	if err := readFull(r, buf, off); err != nil {
		return nil, fmt.Errorf("read track %d at offset %d: %w", t.Number, off, err)
	}

	part := &Report{}
	for k := range job.count {
		sector := buf[k*cd.SectorSize : (k+1)*cd.SectorSize]
		index := job.base + int64(job.first+k)
		lba := t.StartLBA + int32(job.first+k) //nolint:gosec // bounded by track length
		part.Sectors++

		var issue *Issue
		switch op {
		case opVerify:
			issue = verifySector(part, sector, t, lba)
		case opRepair:
			issue = repairSector(part, sector, t, lba, opts.RegenerateHeader)
		case opScramble:
			scrambleSector(part, sector, t)
		}
		if issue != nil {
			issue.Index = index
			issue.LBA = lba
			issue.Track = t.Number
			part.addIssue(*issue, limit)
			opts.logf("sector %d (LBA %d, track %d): %s", index, lba, t.Number, issue.Problem)
		}
	}

	if w != nil {
		if _, err := w.WriteAt(buf, off); err != nil {
			return nil, fmt.Errorf("write track %d at offset %d: %w", t.Number, off, err)
		}
	}
	return part, nil
}

// sectorType returns the layout of sector within track t. Tracks of unknown
// or formless type are resolved per sector.
func sectorType(t *disc.Track, sector []byte) cd.TrackType {
	switch t.Type {
	case cd.TrackOther:
		return cd.DetectTrackType(sector)
	case cd.TrackMode2Formless:
		if tt := cd.DetectTrackType(sector); tt.IsData() {
			return tt
		}
		return cd.TrackMode2Formless
	default:
		return t.Type
	}
}

// sectorProblems lists what is wrong with a data sector at lba.
func sectorProblems(sector []byte, tt cd.TrackType, lba int32) []string {
	var problems []string
	check := cd.Check(sector, tt)
	if !check.HasSync {
		problems = append(problems, "sync")
	}
	msf := cd.LBAToMSF(lba).BCD()
	if !bytes.Equal(sector[cd.SyncSize:cd.SyncSize+3], msf[:]) || sector[cd.SyncSize+3] != tt.Mode() {
		problems = append(problems, "header")
	}
	if !check.EDCValid {
		problems = append(problems, "EDC")
	}
	if !check.ECCValid {
		problems = append(problems, "ECC")
	}
	return problems
}

func verifySector(part *Report, sector []byte, t *disc.Track, lba int32) *Issue {
	tt := sectorType(t, sector)
	if !tt.IsData() {
		part.Audio++
		return nil
	}
	part.Data++

	problems := sectorProblems(sector, tt, lba)
	if len(problems) == 0 {
		part.Valid++
		return nil
	}
	part.Invalid++
	return &Issue{Type: tt.String(), Problem: "bad " + strings.Join(problems, ", ")}
}

func repairSector(part *Report, sector []byte, t *disc.Track, lba int32, regenerateHeader bool) *Issue {
	tt := sectorType(t, sector)
	if !tt.IsData() {
		part.Audio++
		part.Unchanged++
		return nil
	}
	part.Data++

	problems := sectorProblems(sector, tt, lba)
	if len(problems) == 0 {
		part.Valid++
		part.Unchanged++
		return nil
	}

	if regenerateHeader {
		cd.ReconstructPrefix(sector, tt, lba)
	}
	cd.ReconstructECC(sector, tt)

	if remaining := sectorProblems(sector, tt, lba); len(remaining) > 0 {
		part.Invalid++
		return &Issue{Type: tt.String(), Problem: "unrepaired " + strings.Join(remaining, ", ")}
	}
	part.Repaired++
	return &Issue{Type: tt.String(), Problem: "repaired " + strings.Join(problems, ", ")}
}

func scrambleSector(part *Report, sector []byte, t *disc.Track) {
	if t.Type == cd.TrackAudio {
		part.Audio++
		part.Unchanged++
		return
	}
	if cd.Scramble(sector) == cd.Transformed {
		part.Transformed++
		return
	}
	part.Unchanged++
}

// readFull reads len(buf) bytes at off. A ReaderAt may return io.EOF
// together with a full buffer.
func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := ibinary.ReadUpTo(r, off, buf)
	switch {
	case errors.Is(err, io.EOF):
		return io.ErrUnexpectedEOF
	case err != nil:
		return err //nolint:wrapcheck // wrapped by caller
	case n < len(buf):
		return io.ErrUnexpectedEOF
	}
	return nil
}

// copyRange copies n bytes at off from r to the same offset of w.
func copyRange(r io.ReaderAt, w io.WriterAt, off, n int64) error {
	if n <= 0 {
		return nil
	}
	src := io.NewSectionReader(r, off, n)
	dst := io.NewOffsetWriter(w, off)
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %d bytes at offset %d: %w", n, off, err)
	}
	return nil
}
