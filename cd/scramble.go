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

import "bytes"

// Scramble applies the ECMA-130 scrambler to a raw sector in place.
//
// Sectors shorter than SectorSize, or whose first 12 bytes are not the sync
// mark, are returned Unchanged. Bytes beyond SectorSize (for example an
// appended subchannel) are never touched.
func Scramble(sector []byte) Result {
	if len(sector) < SectorSize || !bytes.Equal(sector[:SyncSize], Sync[:]) {
		return Unchanged
	}
	for i := SyncSize; i < SectorSize; i++ {
		sector[i] ^= scrambleTable[i]
	}
	return Transformed
}

// Descramble reverses Scramble. The transform is an involution.
func Descramble(sector []byte) Result {
	return Scramble(sector)
}

// ScrambleTable returns a copy of the 2352-byte scrambler keystream.
func ScrambleTable() [SectorSize]byte {
	return scrambleTable
}
