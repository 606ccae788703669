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


// Package discsector runs the sector codecs over whole dumps: it verifies and
// repairs CD EDC/ECC, scrambles and descrambles CD and DVD images, converts
// subchannel streams and lists their Q blocks. Every operation returns a
// Report that serializes to JSON.
package discsector

import (
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/ZaparooProject/go-discsector/disc"
)

// DefaultMaxIssues is the number of sector issues kept in a Report when
// Options.MaxIssues is zero.
const DefaultMaxIssues = 100

// chunkSectors is the number of CD sectors one worker reads per job.
const chunkSectors = 1024

// Options configure the pipeline operations. The zero value is usable.
type Options struct {
	// Layout places the sectors of a CD source. When nil the source is a
	// single track of raw sectors starting at StartLBA whose type is read
	// from each sector.
	Layout *disc.Layout

	// Logger receives one line per sector issue. Nil disables logging.
	Logger *log.Logger

	// Workers is the number of concurrent CD chunk workers. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int

	// MaxIssues caps Report.Issues. Zero means DefaultMaxIssues; a negative
	// value keeps none.
	MaxIssues int

	// StartLBA is the LBA of the first sector when Layout is nil.
	StartLBA int32

	// RegenerateHeader makes RepairCD rewrite the sync mark, address and
	// mode byte of data sectors as well as EDC/ECC.
	RegenerateHeader bool

	// UserData makes DescrambleDVD write only the 2048 main data bytes of
	// each sector.
	UserData bool
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) maxIssues() int {
	switch {
	case o.MaxIssues < 0:
		return 0
	case o.MaxIssues == 0:
		return DefaultMaxIssues
	default:
		return o.MaxIssues
	}
}

func (o Options) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// Issue is one sector that failed a check or could not be transformed.
type Issue struct {
	Type    string `json:"type,omitempty"`
	Problem string `json:"problem"`
	Index   int64  `json:"index"`
	LBA     int32  `json:"lba"`
	Track   int    `json:"track,omitempty"`
}

// Report summarizes one pipeline run. Counters that do not apply to the
// operation stay zero.
type Report struct {
	Operation string  `json:"operation"`
	Issues    []Issue `json:"issues,omitempty"`

	Sectors     int `json:"sectors"`
	Audio       int `json:"audio"`
	Data        int `json:"data"`
	Valid       int `json:"valid"`
	Invalid     int `json:"invalid"`
	Repaired    int `json:"repaired"`
	Transformed int `json:"transformed"`
	Unchanged   int `json:"unchanged"`
	Plain       int `json:"plain"`
	NoSeed      int `json:"no_seed"`
	Skipped     int `json:"skipped"`
	IssueCount  int `json:"issue_count"`

	Trials        int64 `json:"trials,omitempty"`
	Seeds         int   `json:"seeds,omitempty"`
	TrailingBytes int64 `json:"trailing_bytes,omitempty"`
}

// OK reports whether the run found no issues.
func (r *Report) OK() bool {
	return r.IssueCount == 0
}

// addIssue counts an issue and keeps it when there is room.
func (r *Report) addIssue(issue Issue, limit int) {
	r.IssueCount++
	if len(r.Issues) < limit {
		r.Issues = append(r.Issues, issue)
	}
}

// merge adds the counters of o to r. Issues are appended in order until the
// limit is reached.
func (r *Report) merge(o *Report, limit int) {
	r.Sectors += o.Sectors
	r.Audio += o.Audio
	r.Data += o.Data
	r.Valid += o.Valid
	r.Invalid += o.Invalid
	r.Repaired += o.Repaired
	r.Transformed += o.Transformed
	r.Unchanged += o.Unchanged
	r.Plain += o.Plain
	r.NoSeed += o.NoSeed
	r.Skipped += o.Skipped
	r.Trials += o.Trials
	r.TrailingBytes += o.TrailingBytes
	r.IssueCount += o.IssueCount
	if room := limit - len(r.Issues); room > 0 {
		r.Issues = append(r.Issues, o.Issues[:min(room, len(o.Issues))]...)
	}
}

// Summary renders the counters as one line for terminal output.
func (r *Report) Summary() string {
	var sb strings.Builder
	sb.WriteString(r.Operation)
	sb.WriteString(":")
	counters := []struct {
		name string
		n    int
	}{
		{"sectors", r.Sectors},
		{"audio", r.Audio},
		{"data", r.Data},
		{"valid", r.Valid},
		{"invalid", r.Invalid},
		{"repaired", r.Repaired},
		{"transformed", r.Transformed},
		{"unchanged", r.Unchanged},
		{"plain", r.Plain},
		{"no seed", r.NoSeed},
		{"skipped", r.Skipped},
		{"issues", r.IssueCount},
	}
	for i, c := range counters {
		// Sectors and issues are always shown.
		if c.n == 0 && i != 0 && i != len(counters)-1 {
			continue
		}
		fmt.Fprintf(&sb, " %s=%d", c.name, c.n)
	}
	return sb.String()
}
