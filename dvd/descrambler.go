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
	"fmt"
	"iter"
)

type cachedSeed struct {
	stream [DataSize]byte
	edc    uint32
}

// Descrambler recovers per-sector keystream seeds and remembers the ones it
// has seen. Consecutive sectors usually share a handful of seeds, so the last
// seed and the cached seeds are tried before the exhaustive search.
//
// A Descrambler is not safe for concurrent use.
type Descrambler struct {
	cache   map[uint16]*cachedSeed
	order   []uint16
	last    uint16
	hasLast bool
}

// NewDescrambler returns a Descrambler with an empty seed cache.
func NewDescrambler() *Descrambler {
	return &Descrambler{cache: make(map[uint16]*cachedSeed)}
}

// Seeds returns the cached seeds in the order they were first recovered.
func (d *Descrambler) Seeds() []uint16 {
	return append([]uint16(nil), d.order...)
}

// LastSeed returns the most recently verified seed.
func (d *Descrambler) LastSeed() (uint16, bool) {
	return d.last, d.hasLast
}

// Prime adds seeds to the cache, for example from a previous run. The zero
// seed and duplicates are ignored.
func (d *Descrambler) Prime(seeds ...uint16) {
	for _, s := range seeds {
		d.remember(s & seedMask)
	}
}

func (d *Descrambler) remember(seed uint16) *cachedSeed {
	if c, ok := d.cache[seed]; ok {
		return c
	}
	if seed == 0 {
		return nil
	}
	c := &cachedSeed{}
	fillKeystream(&c.stream, seed)
	c.edc = ComputeEDC(c.stream[:])
	d.cache[seed] = c
	d.order = append(d.order, seed)
	return c
}

func (d *Descrambler) streamEDC(seed uint16) uint32 {
	if c, ok := d.cache[seed]; ok {
		return c.edc
	}
	return keystreamEDCs()[seed]
}

// candidates yields seeds in search order: the last verified seed, the cached
// seeds, the ECMA-267 initial values, then every 15-bit value. Seeds may
// repeat; the sequence stops as soon as the consumer does.
func (d *Descrambler) candidates() iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		if d.hasLast && !yield(d.last) {
			return
		}
		for _, s := range d.order {
			if !yield(s) {
				return
			}
		}
		for _, s := range ECMASeeds {
			if !yield(s) {
				return
			}
		}
		for s := range uint16(SeedSpace) {
			if !yield(s) {
				return
			}
		}
	}
}

// TestSeed reports whether descrambling sector with seed yields data that
// matches the sector's stored EDC. The sector is not modified.
func (d *Descrambler) TestSeed(sector []byte, seed uint16) bool {
	if len(sector) != SectorSize {
		return false
	}
	return ComputeEDC(sector[:EDCOffset])^d.streamEDC(seed&seedMask) == StoredEDC(sector)
}

// FindSeed searches for the seed that scrambled sector. It returns the seed,
// the number of candidates tested and whether one verified. A verified
// non-zero seed is cached and becomes the first candidate for the next call.
func (d *Descrambler) FindSeed(sector []byte) (seed uint16, trials int, ok bool) {
	if len(sector) != SectorSize {
		return 0, 0, false
	}

	base := ComputeEDC(sector[:EDCOffset])
	want := StoredEDC(sector)
	for s := range d.candidates() {
		trials++
		if base^d.streamEDC(s) != want {
			continue
		}
		if s != 0 {
			d.remember(s)
			d.last, d.hasLast = s, true
		}
		return s, trials, true
	}
	return 0, trials, false
}

// Scramble recovers the sector's seed and XORs the main data with its
// keystream in place. The transform is its own inverse, so the same call
// descrambles a scrambled sector. When no seed verifies, or when the sector
// is already plain, the buffer is left untouched.
func (d *Descrambler) Scramble(sector []byte) Result {
	if len(sector) != SectorSize {
		return Result{Status: StatusBadLength}
	}

	seed, trials, ok := d.FindSeed(sector)
	switch {
	case !ok:
		return Result{Status: StatusNoSeed, Trials: trials}
	case seed == 0:
		return Result{Status: StatusPlain, Trials: trials}
	}

	stream := &d.cache[seed].stream
	data := sector[DataOffset:EDCOffset]
	for i := range data {
		data[i] ^= stream[i]
	}
	return Result{Status: StatusTransformed, Seed: seed, Trials: trials}
}

// ScrambleBlocks applies Scramble to each of count consecutive sectors in buf.
// If buf is not exactly count sectors long it is left untouched and
// ErrBlockLength is returned.
func (d *Descrambler) ScrambleBlocks(buf []byte, count int) ([]Result, error) {
	if count <= 0 || len(buf) != count*SectorSize {
		return nil, fmt.Errorf("%d bytes for %d sectors: %w", len(buf), count, ErrBlockLength)
	}

	results := make([]Result, count)
	for i := range count {
		results[i] = d.Scramble(buf[i*SectorSize : (i+1)*SectorSize])
	}
	return results, nil
}
