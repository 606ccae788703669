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

	"github.com/ZaparooProject/go-discsector/dvd"
)

const (
	// dvdBatch is the number of sectors read at once: one ECC block.
	dvdBatch = 16

	// dvdPSNOffset is the physical sector number of LBA 0.
	dvdPSNOffset = 0x30000
)

// DescrambleDVD streams the raw DVD sectors of r through d and writes the
// result to w. Sectors whose seed cannot be recovered are written as read
// and reported. A trailing partial sector is copied unless Options.UserData
// is set, in which case only the 2048 main data bytes of each sector are
// written. A nil d uses a fresh Descrambler.
func DescrambleDVD(ctx context.Context, r io.Reader, w io.Writer, d *dvd.Descrambler, opts Options) (*Report, error) {
	if d == nil {
		d = dvd.NewDescrambler()
	}
	report := &Report{Operation: "dvd descramble"}
	limit := opts.maxIssues()

	buf := make([]byte, dvdBatch*dvd.SectorSize)
	var index int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sector %d: %w", index, err)
		}

		n, readErr := io.ReadFull(r, buf)
		if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read sector %d: %w", index, readErr)
		}

		count := n / dvd.SectorSize
		if count > 0 {
			results, err := d.ScrambleBlocks(buf[:count*dvd.SectorSize], count)
			if err != nil {
				return nil, fmt.Errorf("sector %d: %w", index, err)
			}
			for k, res := range results {
				sector := buf[k*dvd.SectorSize : (k+1)*dvd.SectorSize]
				recordDVDResult(report, res, sector, index+int64(k), limit, opts)
			}
			if err := writeDVDSectors(w, buf[:count*dvd.SectorSize], opts.UserData); err != nil {
				return nil, fmt.Errorf("write sector %d: %w", index, err)
			}
			index += int64(count)
		}

		if tail := n - count*dvd.SectorSize; tail > 0 {
			report.TrailingBytes += int64(tail)
			opts.logf("sector %d: %d trailing bytes", index, tail)
			if !opts.UserData {
				if _, err := w.Write(buf[count*dvd.SectorSize : n]); err != nil {
					return nil, fmt.Errorf("write trailing bytes: %w", err)
				}
			}
		}
		if readErr != nil {
			break
		}
	}

	report.Seeds = len(d.Seeds())
	return report, nil
}

func recordDVDResult(report *Report, res dvd.Result, sector []byte, index int64, limit int, opts Options) {
	report.Sectors++
	report.Trials += int64(res.Trials)
	switch res.Status {
	case dvd.StatusTransformed:
		report.Transformed++
	case dvd.StatusPlain:
		report.Plain++
	default:
		report.NoSeed++
		psn := int32(sector[1])<<16 | int32(sector[2])<<8 | int32(sector[3])
		issue := Issue{Index: index, LBA: psn - dvdPSNOffset, Problem: "no seed verifies the EDC"}
		report.addIssue(issue, limit)
		opts.logf("sector %d (PSN %06X): %s", index, psn, issue.Problem)
	}
}

func writeDVDSectors(w io.Writer, sectors []byte, userData bool) error {
	if !userData {
		_, err := w.Write(sectors)
		return err //nolint:wrapcheck // wrapped by caller
	}
	for off := 0; off < len(sectors); off += dvd.SectorSize {
		if _, err := w.Write(sectors[off+dvd.DataOffset : off+dvd.EDCOffset]); err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
	}
	return nil
}
