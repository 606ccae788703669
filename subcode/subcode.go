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

// Package subcode implements the CD subchannel codec: conversion between the
// interleaved 96-byte P-W frame a drive returns and the deinterleaved form
// with one contiguous 12-byte block per channel, plus Q channel decoding.
package subcode

// Frame geometry.
const (
	FrameSize    = 96
	ChannelCount = 8
	ChannelSize  = FrameSize / ChannelCount
)

// Channel identifies one of the eight subchannels.
type Channel uint8

// Subchannels in wire order.
const (
	ChannelP Channel = iota
	ChannelQ
	ChannelR
	ChannelS
	ChannelT
	ChannelU
	ChannelV
	ChannelW
)

// String returns the channel letter.
func (c Channel) String() string {
	if c >= ChannelCount {
		return "?"
	}
	return string(rune('P' + c))
}

// channelMask maps a channel (or a bit index within a channel byte) to its bit
// in an interleaved byte: P is the most significant bit, W the least.
var channelMask = [ChannelCount]byte{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}

// Frame is 96 bytes of subchannel data for one sector, either interleaved
// (one bit per channel in every byte) or deinterleaved (channel c occupies
// bytes c*12 to c*12+11).
type Frame [FrameSize]byte

// Interleave converts a deinterleaved frame to the interleaved wire form.
// Byte 8*j+k of the output holds bit 7-k of byte j of every channel, with
// channel c at bit 7-c.
func Interleave(in Frame) Frame {
	var out Frame
	for c := range ChannelCount {
		mask := channelMask[c]
		for j := range ChannelSize {
			b := in[c*ChannelSize+j]
			if b == 0 {
				continue
			}
			group := out[8*j : 8*j+8]
			for k := range 8 {
				if b&channelMask[k] != 0 {
					group[k] |= mask
				}
			}
		}
	}
	return out
}

// Deinterleave converts an interleaved frame to one block per channel. It is
// the exact inverse of Interleave.
func Deinterleave(in Frame) Frame {
	var out Frame
	for j := range ChannelSize {
		for k := range 8 {
			b := in[8*j+k]
			if b == 0 {
				continue
			}
			bit := channelMask[k]
			for c := range ChannelCount {
				if b&channelMask[c] != 0 {
					out[c*ChannelSize+j] |= bit
				}
			}
		}
	}
	return out
}

// Channel returns the 12 bytes of channel c of a deinterleaved frame.
func (f *Frame) Channel(c Channel) []byte {
	return f[int(c)*ChannelSize : int(c+1)*ChannelSize]
}

// Q returns the Q block of a deinterleaved frame.
func (f *Frame) Q() Q {
	var q Q
	copy(q[:], f.Channel(ChannelQ))
	return q
}

// Pause decodes the P channel of a deinterleaved frame. The flag is set when
// most P bits are set; corrupted is true when the bits disagree.
func (f *Frame) Pause() (set, corrupted bool) {
	ones := 0
	for _, b := range f.Channel(ChannelP) {
		for _, m := range channelMask {
			if b&m != 0 {
				ones++
			}
		}
	}
	const bits = ChannelSize * 8
	return ones > bits/2, ones != 0 && ones != bits
}

// RWEmpty reports whether channels R to W of a deinterleaved frame are all
// zero.
func (f *Frame) RWEmpty() bool {
	for _, b := range f[int(ChannelR)*ChannelSize:] {
		if b != 0 {
			return false
		}
	}
	return true
}

// RecordSize is the length of one Q record: 12 bytes of Q, three pad bytes
// and a flag byte whose top bit is the P channel.
const RecordSize = 16

// ConvertQToRaw expands a stream of 16-byte Q records into interleaved
// 96-byte frames. A trailing partial record is ignored. Channels R to W are
// left empty.
func ConvertQToRaw(records []byte) []byte {
	n := len(records) / RecordSize
	out := make([]byte, 0, n*FrameSize)
	for i := range n {
		rec := records[i*RecordSize : (i+1)*RecordSize]
		var q Q
		copy(q[:], rec[:QSize])
		f := Interleave(FrameFromQ(q, rec[RecordSize-1]&0x80 != 0))
		out = append(out, f[:]...)
	}
	return out
}

// FrameFromQ builds a deinterleaved frame carrying q and a uniform P channel.
func FrameFromQ(q Q, pause bool) Frame {
	var f Frame
	if pause {
		p := f.Channel(ChannelP)
		for i := range p {
			p[i] = 0xFF
		}
	}
	copy(f.Channel(ChannelQ), q[:])
	return f
}
