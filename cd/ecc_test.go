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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"testing"
)

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestTables(t *testing.T) {
	t.Parallel()

	if gfForward[0x80] != 0x1D {
		t.Errorf("gfForward[0x80] = 0x%02X, want 0x1D", gfForward[0x80])
	}
	if gfForward[0x01] != 0x02 {
		t.Errorf("gfForward[0x01] = 0x%02X, want 0x02", gfForward[0x01])
	}
	for i := range 256 {
		if got := gfBackward[byte(i)^gfForward[i]]; got != byte(i) {
			t.Fatalf("gfBackward inverse broken at %d: got %d", i, got)
		}
	}
	if edcTable[0] != 0 {
		t.Errorf("edcTable[0] = 0x%08X, want 0", edcTable[0])
	}
	if edcTable[0x80] != edcPolynomial {
		t.Errorf("edcTable[0x80] = 0x%08X, want 0x%08X", edcTable[0x80], uint32(edcPolynomial))
	}
}

func TestComputeEDC(t *testing.T) {
	t.Parallel()

	if got := ComputeEDC(0, nil); got != 0 {
		t.Errorf("ComputeEDC(0, nil) = 0x%08X, want 0", got)
	}
	if got := ComputeEDC(0, make([]byte, 64)); got != 0 {
		t.Errorf("ComputeEDC over zeros = 0x%08X, want 0", got)
	}

	// Folding in two parts must match a single pass.
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := ComputeEDC(0, data)
	split := ComputeEDC(ComputeEDC(0, data[:10]), data[10:])
	if whole != split {
		t.Errorf("split EDC 0x%08X != whole EDC 0x%08X", split, whole)
	}
}

func TestReconstructMode1(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload func(i int) byte
		header  string
		wantEDC uint32
		wantSHA string
		lba     int32
	}{
		{
			name:    "zero payload at LBA 0",
			lba:     0,
			payload: func(int) byte { return 0 },
			header:  "00020001",
			wantEDC: 0x2B6813C5,
			wantSHA: "b4f18ab66709c9b3fdef2721cc323e031b6728f3ca6c57b7c435c96189222250",
		},
		{
			name:    "counting payload at LBA 16",
			lba:     16,
			payload: func(i int) byte { return byte(i) },
			header:  "00021601",
			wantEDC: 0x9251935E,
			wantSHA: "24a4cb49d5e7ffb4ba3f3cda43ef5e533ef987bc7b60a642012c95f23e4a08c6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sector := make([]byte, SectorSize)
			for i := range UserDataSize {
				sector[0x10+i] = tt.payload(i)
			}
			// Garbage in the reserved area must be cleared.
			sector[0x815] = 0xEE

			if res := ReconstructPrefix(sector, TrackMode1, tt.lba); res != Transformed {
				t.Fatalf("ReconstructPrefix = %v, want transformed", res)
			}
			if res := ReconstructECC(sector, TrackMode1); res != Transformed {
				t.Fatalf("ReconstructECC = %v, want transformed", res)
			}

			if got := hex.EncodeToString(sector[12:16]); got != tt.header {
				t.Errorf("header = %s, want %s", got, tt.header)
			}
			if got := binary.LittleEndian.Uint32(sector[edcMode1Offset:]); got != tt.wantEDC {
				t.Errorf("EDC = 0x%08X, want 0x%08X", got, tt.wantEDC)
			}
			if got := sha256Hex(sector); got != tt.wantSHA {
				t.Errorf("sector SHA-256 = %s, want %s", got, tt.wantSHA)
			}
		})
	}
}

func TestReconstructMode1ParityBytes(t *testing.T) {
	t.Parallel()

	sector := make([]byte, SectorSize)
	ReconstructPrefix(sector, TrackMode1, 0)
	ReconstructECC(sector, TrackMode1)

	if got := sector[pParityOffset : pParityOffset+8]; !bytes.Equal(got, mustHex(t, "00f700f500000000")) {
		t.Errorf("P parity head = %x", got)
	}
	if got := sector[qParityOffset : qParityOffset+8]; !bytes.Equal(got, mustHex(t, "0041000000000000")) {
		t.Errorf("Q parity head = %x", got)
	}
	if got := sector[SectorSize-4:]; !bytes.Equal(got, mustHex(t, "00c10012")) {
		t.Errorf("Q parity tail = %x", got)
	}
}

func TestReconstructMode2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		subheader []byte
		wantSHA   string
		edcOffset int
		wantEDC   uint32
		tt        TrackType
	}{
		{
			name:      "form 1",
			tt:        TrackMode2Form1,
			subheader: []byte{0x00, 0x00, 0x08, 0x00},
			edcOffset: edcForm1Offset,
			wantEDC:   0x9481880B,
			wantSHA:   "019d8734ffd82181a112f3b3c485312e8cfc1e37c1fc85374606669356ee35b8",
		},
		{
			name:      "form 2",
			tt:        TrackMode2Form2,
			subheader: []byte{0x00, 0x00, 0x20, 0x00},
			edcOffset: edcForm2Offset,
			wantEDC:   0xBEB0133F,
			wantSHA:   "7642dcde6dc9ef4bb2f5071ba19207bb8f0d56da1b530dfc5205fcd7499322af",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sector := make([]byte, SectorSize)
			copy(sector[subheaderOffset+4:], tt.subheader)
			ReconstructPrefix(sector, tt.tt, 0)

			if !bytes.Equal(sector[0x10:0x14], tt.subheader) || !bytes.Equal(sector[0x14:0x18], tt.subheader) {
				t.Fatalf("subheader = %x, want %x twice", sector[0x10:0x18], tt.subheader)
			}
			if res := ReconstructECC(sector, tt.tt); res != Transformed {
				t.Fatalf("ReconstructECC = %v, want transformed", res)
			}
			if got := binary.LittleEndian.Uint32(sector[tt.edcOffset:]); got != tt.wantEDC {
				t.Errorf("EDC = 0x%08X, want 0x%08X", got, tt.wantEDC)
			}
			if got := sha256Hex(sector); got != tt.wantSHA {
				t.Errorf("sector SHA-256 = %s, want %s", got, tt.wantSHA)
			}
		})
	}
}

func TestForm1ParityIgnoresAddress(t *testing.T) {
	t.Parallel()

	a := make([]byte, SectorSize)
	b := make([]byte, SectorSize)
	for _, s := range [][]byte{a, b} {
		copy(s[subheaderOffset+4:], []byte{0, 0, 0x08, 0})
	}
	ReconstructPrefix(a, TrackMode2Form1, 0)
	ReconstructPrefix(b, TrackMode2Form1, 12345)
	ReconstructECC(a, TrackMode2Form1)
	ReconstructECC(b, TrackMode2Form1)

	if !bytes.Equal(a[pParityOffset:], b[pParityOffset:]) {
		t.Error("Form 1 parity depends on the sector address")
	}
	if bytes.Equal(a[12:16], b[12:16]) {
		t.Error("headers should differ")
	}
}

func TestReconstructUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sector []byte
		tt     TrackType
	}{
		{"audio", make([]byte, SectorSize), TrackAudio},
		{"other", make([]byte, SectorSize), TrackOther},
		{"formless mode 2", make([]byte, SectorSize), TrackMode2Formless},
		{"short mode 1", make([]byte, SectorSize-1), TrackMode1},
		{"empty", nil, TrackMode1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			before := bytes.Clone(tt.sector)
			if res := ReconstructECC(tt.sector, tt.tt); res != Unchanged {
				t.Errorf("ReconstructECC = %v, want unchanged", res)
			}
			if res := ReconstructParity(tt.sector, tt.tt); res != Unchanged {
				t.Errorf("ReconstructParity = %v, want unchanged", res)
			}
			if !bytes.Equal(before, tt.sector) {
				t.Error("buffer was modified")
			}
		})
	}

	if res := ReconstructPrefix(make([]byte, SectorSize), TrackAudio, 0); res != Unchanged {
		t.Errorf("ReconstructPrefix(audio) = %v, want unchanged", res)
	}
	if res := ReconstructPrefix(make([]byte, 100), TrackMode1, 0); res != Unchanged {
		t.Errorf("ReconstructPrefix(short) = %v, want unchanged", res)
	}
}

func TestReconstructFormlessPrefix(t *testing.T) {
	t.Parallel()

	sector := make([]byte, SectorSize)
	for i := 0x10; i < SectorSize; i++ {
		sector[i] = byte(i)
	}
	before := bytes.Clone(sector)

	if res := ReconstructPrefix(sector, TrackMode2Formless, 0); res != Transformed {
		t.Fatalf("ReconstructPrefix = %v, want transformed", res)
	}
	if sector[modeOffset] != 2 {
		t.Errorf("mode = %d, want 2", sector[modeOffset])
	}
	if !bytes.Equal(sector[0x10:0x14], before[0x14:0x18]) {
		t.Errorf("subheader field = %x, want %x", sector[0x10:0x14], before[0x14:0x18])
	}
	if !bytes.Equal(sector[0x14:], before[0x14:]) {
		t.Error("bytes from 0x14 on were modified")
	}
}

func TestReconstructPrefixKeepsSubheaderCopy(t *testing.T) {
	t.Parallel()

	subheader := []byte{0x01, 0x02, 0x20, 0x00}
	for _, tt := range []TrackType{TrackMode2Form1, TrackMode2Form2, TrackMode2Formless} {
		t.Run(tt.String(), func(t *testing.T) {
			t.Parallel()
			sector := make([]byte, SectorSize)
			copy(sector[0x14:], subheader)
			ReconstructPrefix(sector, tt, 0)
			if want := append(bytes.Clone(subheader), subheader...); !bytes.Equal(sector[0x10:0x18], want) {
				t.Errorf("[0x10,0x18) = %x, want %x", sector[0x10:0x18], want)
			}
		})
	}
}

func TestReconstructParityOnly(t *testing.T) {
	t.Parallel()

	want := make([]byte, SectorSize)
	ReconstructPrefix(want, TrackMode1, 0)
	ReconstructECC(want, TrackMode1)

	got := bytes.Clone(want)
	clear(got[pParityOffset:])
	if res := ReconstructParity(got, TrackMode1); res != Transformed {
		t.Fatalf("ReconstructParity = %v, want transformed", res)
	}
	if !bytes.Equal(got, want) {
		t.Error("parity regeneration did not restore the sector")
	}
}

func TestTrackTypeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		tt   TrackType
	}{
		{"AUDIO", TrackAudio},
		{"MODE1", TrackMode1},
		{"MODE2/FORM1", TrackMode2Form1},
		{"MODE2/FORM2", TrackMode2Form2},
		{"MODE2", TrackMode2Formless},
		{"OTHER", TrackOther},
		{"OTHER", TrackType(99)},
	}
	for _, tt := range tests {
		if got := tt.tt.String(); got != tt.want {
			t.Errorf("TrackType(%d).String() = %q, want %q", tt.tt, got, tt.want)
		}
	}
}

func FuzzReconstructECC(f *testing.F) {
	f.Add(make([]byte, SectorSize), uint8(TrackMode1))
	f.Add(make([]byte, 100), uint8(TrackMode2Form1))
	f.Add(make([]byte, SectorSize+SubchannelSize), uint8(TrackMode2Form2))

	f.Fuzz(func(t *testing.T, data []byte, tt uint8) {
		sector := bytes.Clone(data)
		ReconstructPrefix(sector, TrackType(tt), 0)
		ReconstructECC(sector, TrackType(tt))
		if len(sector) != len(data) {
			t.Fatal("buffer length changed")
		}
		if len(sector) > SectorSize && !bytes.Equal(sector[SectorSize:], data[SectorSize:]) {
			t.Fatal("bytes past the sector were modified")
		}
		if len(sector) >= SectorSize && TrackType(tt).IsData() && TrackType(tt) != TrackMode2Formless {
			if c := Check(sector, TrackType(tt)); !c.OK() {
				t.Fatalf("regenerated sector fails its own check: %+v", c)
			}
		}
	})
}
