// Copyright (C) 2011 Werner Dittmann
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package rtp implements a minimal RFC 3550 RTP packet, sender and receiver:
// fixed 12-byte header plus an optional CSRC list, big-endian wire layout,
// no RTCP, no extensions, no padding.
package rtp

import (
	"encoding/binary"
	"math/rand"
)

const (
	headerLength   = 12
	maxCsrcEntries = 15
	version2       = 2

	// DefaultPayloadType is linear 16-bit PCM, mono, per RFC 3551 convention.
	DefaultPayloadType = 11
)

const (
	versionShift    = 6
	paddingBit      = 0x20
	extensionBit    = 0x10
	ccMask          = 0x0f
	markerBit       = 0x80
	payloadTypeMask = 0x7f
)

// Packet is a mutable RTP header plus payload. Construction seeds a random
// sequence number and SSRC; SSRC never changes afterward.
type Packet struct {
	padding     bool
	extension   bool
	marker      bool
	payloadType uint8
	sequence    uint16
	timestamp   uint32
	ssrc        uint32
	csrc        []uint32
	payload     []byte
}

// NewPacket builds a packet with version 2, payload type 11, a zero
// timestamp, and a uniform-random sequence number and SSRC drawn from an
// OS-seeded source.
func NewPacket() *Packet {
	return &Packet{
		payloadType: DefaultPayloadType,
		sequence:    uint16(rand.Uint32()),
		ssrc:        rand.Uint32(),
	}
}

// SetPayload replaces the packet's payload bytes.
func (p *Packet) SetPayload(b []byte) {
	p.payload = b
}

// SetMarker sets or clears the marker bit.
func (p *Packet) SetMarker(m bool) {
	p.marker = m
}

// Marker reports the current marker bit.
func (p *Packet) Marker() bool {
	return p.marker
}

// AddCsrc appends a contributing source identifier. Once 15 entries are
// present, further additions are silently dropped — csrcCount never exceeds
// the 4-bit field's range.
func (p *Packet) AddCsrc(c uint32) {
	if len(p.csrc) >= maxCsrcEntries {
		return
	}
	p.csrc = append(p.csrc, c)
}

// Sequence returns the current sequence number.
func (p *Packet) Sequence() uint16 {
	return p.sequence
}

// IncrementSequenceNumber advances the sequence number by one, wrapping mod
// 2^16.
func (p *Packet) IncrementSequenceNumber() {
	p.sequence++
}

// Timestamp returns the current timestamp.
func (p *Packet) Timestamp() uint32 {
	return p.timestamp
}

// IncrementTimestamp advances the timestamp by k, wrapping mod 2^32.
func (p *Packet) IncrementTimestamp(k uint32) {
	p.timestamp += k
}

// Ssrc returns the packet's synchronization source identifier. It is fixed
// at construction and never changes.
func (p *Packet) Ssrc() uint32 {
	return p.ssrc
}

// Serialize renders the packet into its RFC 3550 wire layout: a 12-byte
// fixed header, the CSRC list (each entry big-endian), then the payload
// verbatim and unprefixed.
func (p *Packet) Serialize() []byte {
	buf := make([]byte, headerLength+len(p.csrc)*4+len(p.payload))

	b0 := byte(version2<<versionShift) | byte(len(p.csrc)&ccMask)
	if p.padding {
		b0 |= paddingBit
	}
	if p.extension {
		b0 |= extensionBit
	}
	buf[0] = b0

	b1 := p.payloadType & payloadTypeMask
	if p.marker {
		b1 |= markerBit
	}
	buf[1] = b1

	binary.BigEndian.PutUint16(buf[2:4], p.sequence)
	binary.BigEndian.PutUint32(buf[4:8], p.timestamp)
	binary.BigEndian.PutUint32(buf[8:12], p.ssrc)

	off := headerLength
	for _, c := range p.csrc {
		binary.BigEndian.PutUint32(buf[off:off+4], c)
		off += 4
	}
	copy(buf[off:], p.payload)
	return buf
}
