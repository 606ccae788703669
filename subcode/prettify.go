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

package subcode

import (
	"fmt"
	"strings"

	"github.com/ZaparooProject/go-discsector/cd"
)

// PrettifyOptions carries the frame context Prettify reports alongside the
// decoded Q block.
type PrettifyOptions struct {
	LBA            int32
	BCD            bool
	Pause          bool
	CorruptedPause bool
	RWEmpty        bool
}

// Prettify renders q as a single descriptive line.
func Prettify(q Q, opts PrettifyOptions) string {
	info := Decode(q, opts.LBA, opts.BCD)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[LBA: %6d, MSF: %s, P: %s] ", opts.LBA, cd.LBAToMSF(opts.LBA), pauseString(opts))
	fmt.Fprintf(&sb, "ctl: %s, adr: %d, ", controlString(info.Control), info.ADR)
	sb.WriteString(describe(q, info))
	if info.CRCValid {
		sb.WriteString(", crc: ok")
	} else {
		fmt.Fprintf(&sb, ", crc: FAIL (stored %04X, computed %04X)", q.StoredCRC(), q.CRC())
	}
	if !opts.RWEmpty {
		sb.WriteString(", R-W: data")
	}
	return sb.String()
}

func pauseString(opts PrettifyOptions) string {
	switch {
	case opts.CorruptedPause:
		return "?"
	case opts.Pause:
		return "1"
	default:
		return "0"
	}
}

func controlString(ctl byte) string {
	parts := []string{"audio"}
	if ctl&ControlData != 0 {
		parts[0] = "data"
	}
	if ctl&ControlFourChannel != 0 {
		parts = append(parts, "4ch")
	}
	if ctl&ControlCopyPermit != 0 {
		parts = append(parts, "dcp")
	}
	if ctl&ControlPreEmphasis != 0 {
		parts = append(parts, "pre")
	}
	return strings.Join(parts, "+")
}

func pointString(p byte) string {
	if p <= 99 {
		return fmt.Sprintf("%02d", p)
	}
	return fmt.Sprintf("%02X", p)
}

// DiscTypeName names the disc type stored in a first-track pointer.
func DiscTypeName(discType byte, video bool) string {
	prefix := ""
	if video {
		prefix = "CD-V "
	}
	switch discType {
	case DiscTypeCDDA:
		return prefix + "CD-DA/CD-ROM"
	case DiscTypeCDI:
		return prefix + "CD-i"
	case DiscTypeXA:
		return prefix + "CD-ROM XA"
	default:
		return fmt.Sprintf("%sunknown (%02X)", prefix, discType)
	}
}

func describe(q Q, info Info) string {
	switch info.Kind {
	case KindPosition, KindLeadOut:
		track := pointString(info.Track)
		if info.Kind == KindLeadOut {
			track = "lead-out"
		}
		return fmt.Sprintf("track: %s, index: %02d, rel: %s, abs: %s", track, info.Index, info.Time, info.PTime)
	case KindMCN:
		return fmt.Sprintf("MCN: %s, aframe: %02d", info.Text, info.AFrame)
	case KindISRC:
		return fmt.Sprintf("ISRC: %s, aframe: %02d", info.Text, info.AFrame)
	}

	prefix := fmt.Sprintf("point: %s, ", pointString(info.Point))
	switch info.Kind {
	case KindTrackStart:
		return prefix + fmt.Sprintf("track %02d start: %s", info.Point, info.PTime)
	case KindFirstTrack:
		return prefix + fmt.Sprintf("first track: %02d, disc type: %s", info.Value1, DiscTypeName(info.DiscType, info.Video))
	case KindLastTrack:
		return prefix + fmt.Sprintf("last track: %02d", info.Value1)
	case KindLeadOutStart:
		return prefix + fmt.Sprintf("lead-out start: %s", info.PTime)
	case KindNextProgramArea:
		return prefix + fmt.Sprintf("next program area: %s, pointers: %d, max lead-out: %s", info.Time, info.Zero, info.PTime)
	case KindSkipCounts:
		return prefix + fmt.Sprintf("skip intervals: %d, skip tracks: %d", info.Value1, info.Value2)
	case KindSkipTracks:
		tracks := make([]string, len(info.SkipTracks))
		for i, t := range info.SkipTracks {
			tracks[i] = fmt.Sprintf("%02d", t)
		}
		return prefix + "skip tracks: " + strings.Join(tracks, " ")
	case KindSkipInterval:
		return prefix + fmt.Sprintf("skip interval: %s-%s", info.PTime, info.Time)
	case KindATIP:
		return prefix + fmt.Sprintf("recording power: %02X, application: %02X, first lead-in: %s", info.Value1, info.Value2, info.PTime)
	case KindATIPCopy:
		return prefix + fmt.Sprintf("ATIP copy: %X", q[3:10])
	default:
		return fmt.Sprintf("unknown: %X", q[:10])
	}
}
