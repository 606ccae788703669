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

import "testing"

func TestLBAToMSF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		lba  int32
	}{
		{"00:02:00", 0},
		{"00:00:00", -150},
		{"99:59:74", -151},
		{"90:00:00", -45150},
		{"00:02:16", 16},
		{"01:00:00", 4350},
		{"79:59:74", 359849},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			msf := LBAToMSF(tt.lba)
			if got := msf.String(); got != tt.want {
				t.Errorf("LBAToMSF(%d) = %s, want %s", tt.lba, got, tt.want)
			}
			if back := msf.LBA(); back != tt.lba {
				t.Errorf("LBA(%s) = %d, want %d", msf, back, tt.lba)
			}
		})
	}
}

func TestMSFBCD(t *testing.T) {
	t.Parallel()

	msf := LBAToMSF(359849)
	b := msf.BCD()
	if b != [3]byte{0x79, 0x59, 0x74} {
		t.Errorf("BCD = %x, want 795974", b)
	}
	back, ok := MSFFromBCD(b)
	if !ok || back != msf {
		t.Errorf("MSFFromBCD(%x) = %v, %v", b, back, ok)
	}

	if _, ok := MSFFromBCD([3]byte{0x00, 0x60, 0x00}); ok {
		t.Error("seconds 60 accepted")
	}
	if _, ok := MSFFromBCD([3]byte{0x00, 0x00, 0x75}); ok {
		t.Error("frame 75 accepted")
	}
	if _, ok := MSFFromBCD([3]byte{0x0A, 0x00, 0x00}); ok {
		t.Error("invalid BCD accepted")
	}
}
