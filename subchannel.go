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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZaparooProject/go-discsector/subcode"
)

// SubchannelMode selects the conversion ConvertSubchannel applies.
type SubchannelMode uint8

// Subchannel conversions.
const (
	// SubchannelInterleave turns deinterleaved (P..W block) frames into raw
	// interleaved frames.
	SubchannelInterleave SubchannelMode = iota
	// SubchannelDeinterleave turns raw interleaved frames into P..W blocks.
	SubchannelDeinterleave
	// SubchannelQToRaw expands 16-byte Q records into raw interleaved frames.
	SubchannelQToRaw
)

var subchannelModeNames = [...]string{
	SubchannelInterleave:   "interleave",
	SubchannelDeinterleave: "deinterleave",
	SubchannelQToRaw:       "q2raw",
}

func (m SubchannelMode) String() string {
	if int(m) >= len(subchannelModeNames) {
		return "unknown"
	}
	return subchannelModeNames[m]
}

// ParseSubchannelMode parses a mode name as printed by String.
func ParseSubchannelMode(s string) (SubchannelMode, error) {
	for i, name := range subchannelModeNames {
		if strings.EqualFold(s, name) {
			return SubchannelMode(i), nil //nolint:gosec // index of a short table
		}
	}
	return 0, fmt.Errorf("unknown subchannel mode %q", s)
}

// inputSize is the length of one input unit.
func (m SubchannelMode) inputSize() int {
	if m == SubchannelQToRaw {
		return subcode.RecordSize
	}
	return subcode.FrameSize
}

// subchannelBatch is the number of units read at once.
const subchannelBatch = 4096

// ConvertSubchannel streams r through the conversion mode and writes the
// frames to w. A trailing partial unit is dropped and counted in
// Report.TrailingBytes.
func ConvertSubchannel(ctx context.Context, r io.Reader, w io.Writer, mode SubchannelMode) (*Report, error) {
	if int(mode) >= len(subchannelModeNames) {
		return nil, fmt.Errorf("unknown subchannel mode %d", mode)
	}
	report := &Report{Operation: "subchannel " + mode.String()}

	unit := mode.inputSize()
	err := readUnits(ctx, r, unit, func(batch []byte) error {
		n := len(batch) / unit
		report.Sectors += n
		report.Transformed += n

		var out []byte
		switch mode {
		case SubchannelQToRaw:
			out = subcode.ConvertQToRaw(batch)
		default:
			out = make([]byte, len(batch))
			for i := 0; i < len(batch); i += subcode.FrameSize {
				var f subcode.Frame
				copy(f[:], batch[i:])
				if mode == SubchannelInterleave {
					f = subcode.Interleave(f)
				} else {
					f = subcode.Deinterleave(f)
				}
				copy(out[i:], f[:])
			}
		}
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("write frames: %w", err)
		}
		return nil
	}, &report.TrailingBytes)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListQ writes one prettified line per Q block of r to w. With records set
// the input is 16-byte Q records, otherwise raw interleaved 96-byte frames.
// The first unit is at Options.StartLBA. Q blocks failing their CRC are
// reported as issues.
func ListQ(ctx context.Context, r io.Reader, w io.Writer, records bool, opts Options) (*Report, error) {
	report := &Report{Operation: "q list"}
	limit := opts.maxIssues()
	out := bufio.NewWriter(w)

	unit := subcode.FrameSize
	if records {
		unit = subcode.RecordSize
	}
	lba := opts.StartLBA
	err := readUnits(ctx, r, unit, func(batch []byte) error {
		for i := 0; i < len(batch); i += unit {
			q, popts := qFromUnit(batch[i:i+unit], records)
			popts.LBA = lba

			if _, err := fmt.Fprintln(out, subcode.Prettify(q, popts)); err != nil {
				return fmt.Errorf("write Q listing: %w", err)
			}

			index := int64(report.Sectors)
			report.Sectors++
			if q.Valid() {
				report.Valid++
			} else {
				report.Invalid++
				issue := Issue{Index: index, LBA: lba, Problem: "Q CRC mismatch"}
				report.addIssue(issue, limit)
				opts.logf("frame %d (LBA %d): %s", index, lba, issue.Problem)
			}
			lba++
		}
		return nil
	}, &report.TrailingBytes)
	if err != nil {
		return nil, err
	}
	if err := out.Flush(); err != nil {
		return nil, fmt.Errorf("write Q listing: %w", err)
	}
	return report, nil
}

// qFromUnit extracts the Q block and P flags of one input unit.
func qFromUnit(unit []byte, record bool) (subcode.Q, subcode.PrettifyOptions) {
	popts := subcode.PrettifyOptions{BCD: true}
	var q subcode.Q
	if record {
		copy(q[:], unit[:subcode.QSize])
		popts.Pause = unit[subcode.RecordSize-1]&0x80 != 0
		popts.RWEmpty = true
		return q, popts
	}

	var f subcode.Frame
	copy(f[:], unit)
	f = subcode.Deinterleave(f)
	q = f.Q()
	popts.Pause, popts.CorruptedPause = f.Pause()
	popts.RWEmpty = f.RWEmpty()
	return q, popts
}

// readUnits reads r in batches of whole units and passes each batch to fn.
// The length of a trailing partial unit is stored in trailing.
func readUnits(ctx context.Context, r io.Reader, unit int, fn func(batch []byte) error, trailing *int64) error {
	buf := make([]byte, subchannelBatch*unit)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("read units: %w", err)
		}

		n, readErr := io.ReadFull(r, buf)
		if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read units: %w", readErr)
		}

		whole := n - n%unit
		if whole > 0 {
			if err := fn(buf[:whole]); err != nil {
				return err
			}
		}
		*trailing += int64(n - whole)
		if readErr != nil {
			return nil
		}
	}
}
