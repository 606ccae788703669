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

package dvd

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

// plainSector returns an unscrambled sector with a counting payload and a
// valid EDC.
func plainSector() []byte {
	sector := make([]byte, SectorSize)
	copy(sector, []byte{0x03, 0x03, 0x00, 0x00})
	for i := range DataSize {
		sector[DataOffset+i] = byte(i*7 + 3)
	}
	binary.BigEndian.PutUint32(sector[EDCOffset:], ComputeEDC(sector[:EDCOffset]))
	return sector
}

func scrambledSector(seed uint16) []byte {
	sector := plainSector()
	ks := Keystream(seed)
	for i := range DataSize {
		sector[DataOffset+i] ^= ks[i]
	}
	return sector
}

func TestKeystream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want string
		seed uint16
	}{
		{"0002004408091130046084d193915508", 0x0001},
		{"aa001402a8505aab", 0x5500},
		// ECMA-267 initial value 0x0001.
		{"0100220404889802304268c9c8aa8405", 0x0080},
		{"0000000000000000", 0x0000},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			ks := Keystream(tt.seed)
			if got := hex.EncodeToString(ks[:len(tt.want)/2]); got != tt.want {
				t.Errorf("Keystream(0x%04X) = %s, want %s", tt.seed, got, tt.want)
			}
		})
	}
}

func TestKeystreamMatchesTick(t *testing.T) {
	t.Parallel()

	ks := Keystream(0x2A5F)
	reg := uint16(0x2A5F)
	for i := range 64 {
		var v byte
		for range 8 {
			var bit byte
			reg, bit = tick(reg)
			v = v<<1 | bit
		}
		if ks[i] != v {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, ks[i], v)
		}
	}
}

func TestComputeEDC(t *testing.T) {
	t.Parallel()

	if got := ComputeEDC([]byte("123456789")); got != 0xB27CE117 {
		t.Errorf("ComputeEDC(123456789) = 0x%08X, want 0xB27CE117", got)
	}
	if got := ComputeEDC(make([]byte, EDCOffset)); got != 0 {
		t.Errorf("ComputeEDC(zeros) = 0x%08X, want 0", got)
	}
	if got := StoredEDC(plainSector()); got != 0x68074C45 {
		t.Errorf("plain sector EDC = 0x%08X, want 0x68074C45", got)
	}
	if !ValidEDC(plainSector()) {
		t.Error("plain sector EDC does not verify")
	}
	if ValidEDC(scrambledSector(0x1234)) {
		t.Error("scrambled sector EDC verifies")
	}
}

func TestFindSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sector     []byte
		wantSeed   uint16
		wantTrials int
		wantOK     bool
	}{
		{"first ECMA seed", scrambledSector(0x0080), 0x0080, 1, true},
		{"last ECMA seed but one", scrambledSector(0x4008), 0x4008, 15, true},
		{"brute force", scrambledSector(0x1234), 0x1234, 16 + 0x1234 + 1, true},
		{"brute force low seed", scrambledSector(0x0001), 0x0001, 16 + 2, true},
		{"plain sector", plainSector(), 0, 17, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewDescrambler()
			seed, trials, ok := d.FindSeed(tt.sector)
			if seed != tt.wantSeed || trials != tt.wantTrials || ok != tt.wantOK {
				t.Errorf("FindSeed = 0x%04X, %d, %v; want 0x%04X, %d, %v",
					seed, trials, ok, tt.wantSeed, tt.wantTrials, tt.wantOK)
			}
		})
	}
}

func TestECMASeeds(t *testing.T) {
	t.Parallel()

	want := [16]uint16{
		0x0080, 0x0005, 0x0100, 0x000A, 0x0200, 0x0014, 0x0400, 0x00A8,
		0x0801, 0x0150, 0x1002, 0x02A0, 0x2004, 0x05C0, 0x4008, 0x0B81,
	}
	if ECMASeeds != want {
		t.Fatalf("ECMASeeds = %04X, want %04X", ECMASeeds, want)
	}

	for i, v := range ecmaInitialValues {
		if ks := Keystream(ECMASeeds[i]); ks[0] != byte(v) {
			t.Errorf("seed %d: first keystream byte = 0x%02X, want 0x%02X", i, ks[0], byte(v))
		}
	}
}

func TestFindSeedECMAOrder(t *testing.T) {
	t.Parallel()

	for i, seed := range ECMASeeds {
		d := NewDescrambler()
		got, trials, ok := d.FindSeed(scrambledSector(seed))
		if !ok || got != seed || trials != i+1 {
			t.Errorf("ECMA seed %d (0x%04X): FindSeed = 0x%04X, %d, %v; want %d trials",
				i, seed, got, trials, ok, i+1)
		}
	}
}

func TestFindSeedExhaustive(t *testing.T) {
	if testing.Short() {
		t.Skip("exhaustive seed search")
	}
	t.Parallel()

	d := NewDescrambler()
	seed, trials, ok := d.FindSeed(scrambledSector(0x7FFF))
	if !ok || seed != 0x7FFF || trials != len(ECMASeeds)+SeedSpace {
		t.Errorf("FindSeed(0x7FFF) = 0x%04X, %d, %v", seed, trials, ok)
	}

	corrupt := scrambledSector(0x1234)
	corrupt[SectorSize-1] ^= 0x01
	d = NewDescrambler()
	before := bytes.Clone(corrupt)
	res := d.Scramble(corrupt)
	if res.Status != StatusNoSeed {
		t.Errorf("Scramble(corrupt) status = %v, want no seed", res.Status)
	}
	if res.Trials != len(ECMASeeds)+SeedSpace {
		t.Errorf("Scramble(corrupt) trials = %d, want %d", res.Trials, len(ECMASeeds)+SeedSpace)
	}
	if !bytes.Equal(before, corrupt) {
		t.Error("unrecoverable sector was modified")
	}
	if len(d.Seeds()) != 0 {
		t.Errorf("cache = %v, want empty", d.Seeds())
	}
}

func TestFindSeedUsesHintAndCache(t *testing.T) {
	t.Parallel()

	d := NewDescrambler()
	if _, _, ok := d.FindSeed(scrambledSector(0x1234)); !ok {
		t.Fatal("seed 0x1234 not found")
	}
	if _, trials, _ := d.FindSeed(scrambledSector(0x1234)); trials != 1 {
		t.Errorf("repeat lookup trials = %d, want 1", trials)
	}

	if _, _, ok := d.FindSeed(scrambledSector(0x0555)); !ok {
		t.Fatal("seed 0x0555 not found")
	}
	// Hint is now 0x0555; 0x1234 is the first cached seed.
	seed, trials, _ := d.FindSeed(scrambledSector(0x1234))
	if seed != 0x1234 || trials != 2 {
		t.Errorf("cached lookup = 0x%04X after %d trials, want 0x1234 after 2", seed, trials)
	}

	if got := d.Seeds(); !slices.Equal(got, []uint16{0x1234, 0x0555}) {
		t.Errorf("Seeds() = %v, want insertion order [0x1234 0x0555]", got)
	}
	if last, ok := d.LastSeed(); !ok || last != 0x1234 {
		t.Errorf("LastSeed() = 0x%04X, %v", last, ok)
	}
}

func TestTestSeed(t *testing.T) {
	t.Parallel()

	d := NewDescrambler()
	sector := scrambledSector(0x2468)
	if !d.TestSeed(sector, 0x2468) {
		t.Error("correct seed rejected")
	}
	if d.TestSeed(sector, 0x2469) {
		t.Error("wrong seed accepted")
	}
	if d.TestSeed(sector[:100], 0x2468) {
		t.Error("short sector accepted")
	}
	if !d.TestSeed(plainSector(), 0) {
		t.Error("plain sector rejected with zero seed")
	}
}

func TestScramble(t *testing.T) {
	t.Parallel()

	d := NewDescrambler()
	sector := scrambledSector(0x0ACE)
	res := d.Scramble(sector)
	if res.Status != StatusTransformed || res.Seed != 0x0ACE {
		t.Fatalf("Scramble = %+v, want transformed with seed 0x0ACE", res)
	}
	if !bytes.Equal(sector, plainSector()) {
		t.Fatal("descrambled sector does not match the plain sector")
	}

	res = d.Scramble(sector)
	if res.Status != StatusPlain {
		t.Errorf("second Scramble status = %v, want plain", res.Status)
	}
	if !bytes.Equal(sector, plainSector()) {
		t.Error("plain sector was modified")
	}
	if slices.Contains(d.Seeds(), 0) {
		t.Error("zero seed was cached")
	}

	if res := d.Scramble(make([]byte, SectorSize-1)); res.Status != StatusBadLength {
		t.Errorf("short buffer status = %v, want bad length", res.Status)
	}
}

func TestScrambleBlocks(t *testing.T) {
	t.Parallel()

	seeds := []uint16{0x0080, 0x0100, 0x0080}
	var buf []byte
	for _, s := range seeds {
		buf = append(buf, scrambledSector(s)...)
	}

	d := NewDescrambler()
	results, err := d.ScrambleBlocks(buf, len(seeds))
	if err != nil {
		t.Fatalf("ScrambleBlocks() error = %v", err)
	}
	for i, res := range results {
		if res.Status != StatusTransformed || res.Seed != seeds[i] {
			t.Errorf("sector %d = %+v, want seed 0x%04X", i, res, seeds[i])
		}
		if !bytes.Equal(buf[i*SectorSize:(i+1)*SectorSize], plainSector()) {
			t.Errorf("sector %d not descrambled", i)
		}
	}
	if results[2].Trials != 2 {
		t.Errorf("third sector trials = %d, want 2 (hint miss, cache hit)", results[2].Trials)
	}

	short := buf[:len(buf)-1]
	before := bytes.Clone(short)
	if _, err := d.ScrambleBlocks(short, len(seeds)); !errors.Is(err, ErrBlockLength) {
		t.Errorf("ScrambleBlocks(short) error = %v, want ErrBlockLength", err)
	}
	if !bytes.Equal(before, short) {
		t.Error("rejected buffer was modified")
	}
	if _, err := d.ScrambleBlocks(nil, 0); !errors.Is(err, ErrBlockLength) {
		t.Errorf("ScrambleBlocks(nil, 0) error = %v, want ErrBlockLength", err)
	}
}

func TestSeedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seeds.gob.gz")

	d := NewDescrambler()
	if err := d.LoadSeedFile(path); err != nil {
		t.Fatalf("LoadSeedFile(missing) error = %v", err)
	}
	d.Prime(0x0100, 0x1234, 0x0100, 0)
	if got := d.Seeds(); !slices.Equal(got, []uint16{0x0100, 0x1234}) {
		t.Fatalf("Seeds() after Prime = %v", got)
	}
	if err := d.SaveSeedFile(path); err != nil {
		t.Fatalf("SaveSeedFile() error = %v", err)
	}

	loaded := NewDescrambler()
	if err := loaded.LoadSeedFile(path); err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if got := loaded.Seeds(); !slices.Equal(got, []uint16{0x0100, 0x1234}) {
		t.Errorf("loaded seeds = %v", got)
	}

	// A primed cache resolves the seed without the exhaustive search.
	_, trials, ok := loaded.FindSeed(scrambledSector(0x1234))
	if !ok || trials != 2 {
		t.Errorf("FindSeed with primed cache = %d trials, %v; want 2, true", trials, ok)
	}
}

func TestLoadSeedsErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadSeeds(bytes.NewReader([]byte("not gzip"))); err == nil {
		t.Error("LoadSeeds(garbage) succeeded")
	}

	var buf bytes.Buffer
	if err := SaveSeeds(&buf, []uint16{1, 2, 3}); err != nil {
		t.Fatalf("SaveSeeds() error = %v", err)
	}
	seeds, err := LoadSeeds(&buf)
	if err != nil {
		t.Fatalf("LoadSeeds() error = %v", err)
	}
	if !slices.Equal(seeds, []uint16{1, 2, 3}) {
		t.Errorf("LoadSeeds() = %v", seeds)
	}
}

func FuzzTestSeed(f *testing.F) {
	f.Add(plainSector(), uint16(0))
	f.Add(scrambledSector(0x0080), uint16(0x0080))
	f.Add([]byte{1, 2, 3}, uint16(7))

	f.Fuzz(func(t *testing.T, data []byte, seed uint16) {
		sector := make([]byte, SectorSize)
		copy(sector, data)
		seed &= seedMask

		// Descramble explicitly and compare with the linear shortcut.
		explicit := bytes.Clone(sector)
		ks := Keystream(seed)
		for i := range DataSize {
			explicit[DataOffset+i] ^= ks[i]
		}
		d := NewDescrambler()
		if got, want := d.TestSeed(sector, seed), ValidEDC(explicit); got != want {
			t.Fatalf("TestSeed(0x%04X) = %v, explicit check = %v", seed, got, want)
		}
	})
}
