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

package cd

import (
	"bytes"
	"encoding/binary"
)

const submodeForm2 = 0x20

// DetectTrackType guesses the layout of a raw, unscrambled sector from its
// sync mark, mode byte and subheader. Sectors without a sync mark are
// reported as audio.
func DetectTrackType(sector []byte) TrackType {
	if len(sector) < SectorSize {
		return TrackOther
	}
	if !bytes.Equal(sector[:SyncSize], Sync[:]) {
		return TrackAudio
	}

	switch sector[modeOffset] {
	case 1:
		return TrackMode1
	case 2:
		sub := sector[subheaderOffset : subheaderOffset+8]
		if !bytes.Equal(sub[:4], sub[4:]) {
			return TrackMode2Formless
		}
		if sub[2]&submodeForm2 != 0 {
			return TrackMode2Form2
		}
		return TrackMode2Form1
	default:
		return TrackOther
	}
}

// SectorCheck is the outcome of validating a sector against its own EDC and
// parity.
type SectorCheck struct {
	HasSync  bool `json:"has_sync"`
	EDCValid bool `json:"edc_valid"`
	ECCValid bool `json:"ecc_valid"`
}

// OK reports whether every check passed.
func (c SectorCheck) OK() bool {
	return c.HasSync && c.EDCValid && c.ECCValid
}

// Check validates sector as track type tt without modifying it. Fields that
// do not apply to tt (such as parity on a Form 2 sector) report true. Audio
// and unknown sectors always pass. A Form 2 EDC of zero means "not recorded"
// and is accepted.
func Check(sector []byte, tt TrackType) SectorCheck {
	if !tt.IsData() {
		return SectorCheck{HasSync: true, EDCValid: true, ECCValid: true}
	}
	if len(sector) < SectorSize {
		return SectorCheck{}
	}

	res := SectorCheck{
		HasSync:  bytes.Equal(sector[:SyncSize], Sync[:]),
		EDCValid: true,
		ECCValid: true,
	}

	var scratch [SectorSize]byte
	copy(scratch[:], sector)
	ReconstructECC(scratch[:], tt)

	switch tt {
	case TrackMode1:
		res.EDCValid = bytes.Equal(scratch[edcMode1Offset:zeroMode1Offset], sector[edcMode1Offset:zeroMode1Offset])
		res.ECCValid = bytes.Equal(scratch[pParityOffset:], sector[pParityOffset:SectorSize])
	case TrackMode2Form1:
		res.EDCValid = bytes.Equal(scratch[edcForm1Offset:pParityOffset], sector[edcForm1Offset:pParityOffset])
		res.ECCValid = bytes.Equal(scratch[pParityOffset:], sector[pParityOffset:SectorSize])
	case TrackMode2Form2:
		stored := binary.LittleEndian.Uint32(sector[edcForm2Offset:])
		res.EDCValid = stored == 0 || bytes.Equal(scratch[edcForm2Offset:], sector[edcForm2Offset:SectorSize])
	}
	return res
}
