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
	"encoding/binary"
	"strings"

	"github.com/ZaparooProject/go-discsector/cd"
	ibinary "github.com/ZaparooProject/go-discsector/internal/binary"
)

// Kind classifies a decoded Q block.
type Kind uint8

// Q block kinds.
const (
	KindUnknown Kind = iota
	// Program area and lead-out, by ADR.
	KindPosition
	KindLeadOut
	KindMCN
	KindISRC
	// Lead-in, ADR 1 or 4, by POINT.
	KindTrackStart
	KindFirstTrack
	KindLastTrack
	KindLeadOutStart
	// Lead-in, ADR 5, by POINT.
	KindNextProgramArea
	KindSkipCounts
	KindSkipTracks
	KindSkipInterval
	KindATIP
	KindATIPCopy
)

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindPosition:        "position",
	KindLeadOut:         "lead-out",
	KindMCN:             "MCN",
	KindISRC:            "ISRC",
	KindTrackStart:      "track start",
	KindFirstTrack:      "first track",
	KindLastTrack:       "last track",
	KindLeadOutStart:    "lead-out start",
	KindNextProgramArea: "next program area",
	KindSkipCounts:      "skip counts",
	KindSkipTracks:      "skip tracks",
	KindSkipInterval:    "skip interval",
	KindATIP:            "ATIP",
	KindATIPCopy:        "ATIP copy",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Lead-in POINT codes.
const (
	PointFirstTrack      = 0xA0
	PointLastTrack       = 0xA1
	PointLeadOut         = 0xA2
	PointNextProgramArea = 0xB0
	PointSkipCounts      = 0xB1
	PointSkipTracksFirst = 0xB2
	PointSkipTracksLast  = 0xB4
	PointATIP            = 0xC0
	PointATIPCopy        = 0xC1

	// TrackLeadOut is the TNO of lead-out blocks.
	TrackLeadOut = 0xAA

	maxSkipInterval = 40
)

// Disc types carried in PSEC of the first-track pointer.
const (
	DiscTypeCDDA = 0x00
	DiscTypeCDI  = 0x10
	DiscTypeXA   = 0x20
)

// Info is the decoded form of a Q block. Which fields are meaningful depends
// on Kind.
type Info struct {
	// MCN or ISRC text.
	Text string `json:"text,omitempty"`
	// Track numbers listed by a skip-tracks block.
	SkipTracks []byte `json:"skip_tracks,omitempty"`
	// Relative time in the program area; running time in the lead-in.
	Time cd.MSF `json:"time"`
	// Absolute time in the program area; pointer time in the lead-in.
	PTime cd.MSF `json:"ptime"`
	Kind  Kind   `json:"kind"`
	// Control and ADR nibbles.
	Control byte `json:"control"`
	ADR     byte `json:"adr"`
	// TNO and index in the program area.
	Track byte `json:"track"`
	Index byte `json:"index"`
	// POINT in the lead-in.
	Point byte `json:"point"`
	// Byte 6; the pointer count for a next-program-area block.
	Zero byte `json:"zero"`
	// First/last track number or skip counts, from PMIN and PSEC.
	Value1 byte `json:"value1"`
	Value2 byte `json:"value2"`
	// Disc type for a first-track block.
	DiscType byte `json:"disc_type"`
	// AFRAME for MCN and ISRC blocks.
	AFrame byte `json:"aframe"`
	// CRCValid reports the stored CRC check.
	CRCValid bool `json:"crc_valid"`
	// Video is set for ADR 4 (CD-V) pointers.
	Video bool `json:"video,omitempty"`
}

// Decode classifies q. Lead-in blocks (lba < 0) are classified by POINT,
// program area and lead-out blocks by ADR. When bcd is set, numeric fields are
// stored as packed BCD and are converted; MCN and ISRC are always read from the
// raw bytes.
func Decode(q Q, lba int32, bcd bool) Info {
	info := Info{
		Control:  q.Control(),
		ADR:      q.ADR(),
		CRCValid: q.Valid(),
	}

	raw := q
	if bcd {
		// Lead-in POINT codes are not BCD and stay as they are.
		q, _ = BCDToBinary(q)
	}
	msfAt := func(i int) cd.MSF {
		return cd.MSF{Minute: q[i], Second: q[i+1], Frame: q[i+2]}
	}
	info.Zero = q[6]

	if lba < 0 {
		decodeLeadIn(&info, q, raw, msfAt)
		return info
	}

	switch info.ADR {
	case 1:
		info.Kind = KindPosition
		if raw[1] == TrackLeadOut {
			info.Kind = KindLeadOut
		}
		info.Track = q[1]
		info.Index = q[2]
		info.Time = msfAt(3)
		info.PTime = msfAt(7)
	case 2:
		info.Kind = KindMCN
		info.Text = decodeMCN(raw)
		info.AFrame = q[9]
	case 3:
		info.Kind = KindISRC
		info.Text = decodeISRC(raw)
		info.AFrame = q[9]
	default:
		info.Kind = KindUnknown
	}
	return info
}

func decodeLeadIn(info *Info, q, raw Q, msfAt func(int) cd.MSF) {
	point := q[2]
	info.Point = point
	info.Track = q[1]
	info.Time = msfAt(3)
	info.PTime = msfAt(7)

	switch info.ADR {
	case 1, 4:
		info.Video = info.ADR == 4
		switch {
		case point >= 1 && point <= 99:
			info.Kind = KindTrackStart
		case point == PointFirstTrack:
			info.Kind = KindFirstTrack
			info.Value1 = q[7]
			info.DiscType = raw[8]
		case point == PointLastTrack:
			info.Kind = KindLastTrack
			info.Value1 = q[7]
		case point == PointLeadOut:
			info.Kind = KindLeadOutStart
		default:
			info.Kind = KindUnknown
		}
	case 5:
		switch {
		case point == PointNextProgramArea:
			info.Kind = KindNextProgramArea
		case point == PointSkipCounts:
			info.Kind = KindSkipCounts
			info.Value1 = q[7]
			info.Value2 = q[8]
		case point >= PointSkipTracksFirst && point <= PointSkipTracksLast:
			info.Kind = KindSkipTracks
			for _, i := range []int{3, 4, 5, 7, 8, 9} {
				if q[i] != 0 {
					info.SkipTracks = append(info.SkipTracks, q[i])
				}
			}
		case point >= 1 && point <= maxSkipInterval:
			info.Kind = KindSkipInterval
		case point == PointATIP:
			info.Kind = KindATIP
			info.Value1 = raw[3]
			info.Value2 = raw[4]
		case point == PointATIPCopy:
			info.Kind = KindATIPCopy
		default:
			info.Kind = KindUnknown
		}
	default:
		info.Kind = KindUnknown
	}
}

// decodeMCN reads the 13 digits packed as nibbles in bytes 1 to 7.
func decodeMCN(q Q) string {
	var sb strings.Builder
	for i := range 13 {
		b := q[1+i/2]
		if i%2 == 0 {
			b >>= 4
		}
		sb.WriteByte(hexDigit(b & 0x0F))
	}
	return sb.String()
}

// isrcTable maps the 6-bit ISRC character codes; digits are 0x00-0x09 and
// letters 0x11-0x2A.
const isrcTable = "0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmno"

// decodeISRC reads five 6-bit characters followed by seven 4-bit digits from
// bytes 1 to 8.
func decodeISRC(q Q) string {
	bits := binary.BigEndian.Uint64(q[1:9])
	var sb strings.Builder
	for i := range 5 {
		sb.WriteByte(isrcTable[(bits>>(58-6*i))&0x3F])
	}
	for i := range 7 {
		sb.WriteByte(hexDigit(byte(bits>>(28-4*i)) & 0x0F))
	}
	return sb.String()
}

func hexDigit(n byte) byte {
	return "0123456789ABCDEF"[n&0x0F]
}

// EncodeMCN packs a 13-digit catalog number into a Q block with ADR 2.
// Non-digit characters are encoded as zero.
func EncodeMCN(control byte, mcn string, aframe byte) Q {
	var q Q
	q[0] = control<<4 | 2
	for i := 0; i < 13 && i < len(mcn); i++ {
		d := mcn[i] - '0'
		if d > 9 {
			d = 0
		}
		if i%2 == 0 {
			q[1+i/2] |= d << 4
		} else {
			q[1+i/2] |= d
		}
	}
	q[9] = ibinary.MustBCD(aframe)
	return q.WithCRC()
}
