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
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

const seedFileVersion = 1

// seedFile is the on-disk form of a seed cache.
type seedFile struct {
	Version int
	Seeds   []uint16
}

// SaveSeeds writes seeds to w as gzip-compressed gob.
func SaveSeeds(w io.Writer, seeds []uint16) error {
	gz := gzip.NewWriter(w)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(seedFile{Version: seedFileVersion, Seeds: seeds}); err != nil {
		_ = gz.Close()
		return fmt.Errorf("failed to encode seeds: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush seeds: %w", err)
	}
	return nil
}

// LoadSeeds reads a seed list written by SaveSeeds.
func LoadSeeds(r io.Reader) ([]uint16, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	var f seedFile
	if err := gob.NewDecoder(gz).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seeds: %w", err)
	}
	if f.Version != seedFileVersion {
		return nil, fmt.Errorf("%w: %d", ErrSeedFileVersion, f.Version)
	}
	return f.Seeds, nil
}

// SaveSeedFile writes the descrambler's cached seeds to a .gob.gz file.
func (d *Descrambler) SaveSeedFile(path string) error {
	file, err := os.Create(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		return fmt.Errorf("failed to create seed file: %w", err)
	}
	if err := SaveSeeds(file, d.Seeds()); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close seed file: %w", err)
	}
	return nil
}

// LoadSeedFile primes the cache from a .gob.gz file. A missing file is not
// an error.
func (d *Descrambler) LoadSeedFile(path string) error {
	file, err := os.Open(path) //nolint:gosec // Path from user input is expected
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = file.Close() }()

	seeds, err := LoadSeeds(file)
	if err != nil {
		return err
	}
	d.Prime(seeds...)
	return nil
}
