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

package rtp

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/HCL-Hbot/edge-vox/internal/metrics"
	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
)

var ipv4Literal = regexp.MustCompile(
	`^(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)(\.(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)){3}$`)

// validEndpointHost reports whether host is a dotted IPv4 literal or the
// literal "localhost".
func validEndpointHost(host string) bool {
	return host == "localhost" || ipv4Literal.MatchString(host)
}

// Sender converts float PCM frames into RTP datagrams and transmits them
// over a connected UDP socket. The raw-UDP wire path is normative: the
// sender builds its own header and always sets the marker bit at a
// talkspurt's first packet — it never delegates to a higher-level RTP
// library, which would silently skip that bit.
type Sender struct {
	mu          sync.Mutex
	host        string
	port        int
	payloadSize int
	conn        *net.UDPConn
	active      atomic.Bool
	packet      *Packet
	talkspurt   atomic.Bool // true: next send_audio starts a new talkspurt
}

// NewSender validates host/port/payloadSize and opens a connected-mode UDP
// socket to the destination. host must be an IPv4 literal or "localhost";
// port must be nonzero; payloadSize must be positive.
func NewSender(host string, port, payloadSize int) (*Sender, error) {
	if !validEndpointHost(host) || port == 0 || payloadSize <= 0 {
		return nil, xerrors.ErrInvalidArgument
	}
	s := &Sender{host: host, port: port, payloadSize: payloadSize}
	if err := s.dial(); err != nil {
		return nil, err
	}
	s.talkspurt.Store(true)
	return s, nil
}

func (s *Sender) dial() error {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", resolveHost(s.host), s.port))
	if err != nil {
		return xerrors.ErrSocketOpen
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return xerrors.ErrSocketOpen
	}
	s.conn = conn
	if s.packet == nil {
		s.packet = NewPacket()
	}
	return nil
}

func resolveHost(host string) string {
	if host == "localhost" {
		return "127.0.0.1"
	}
	return host
}

// Start marks the sender active, lazily re-opening the socket if Stop
// closed it.
func (s *Sender) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		if err := s.dial(); err != nil {
			return err
		}
	}
	s.active.Store(true)
	s.talkspurt.Store(true)
	return nil
}

// Stop deactivates the sender and closes its socket.
func (s *Sender) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active.Store(false)
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// SendAudio converts samples to big-endian int16 PCM, wraps them in one RTP
// packet, and transmits exactly once. Returns (true, nil) without
// transmitting for empty input. Returns an error if the sender is inactive,
// the payload exceeds payloadSize, or the transmit was short.
func (s *Sender) SendAudio(samples []float32) (bool, error) {
	if len(samples) == 0 {
		return true, nil
	}
	if !s.active.Load() {
		return false, xerrors.ErrNotRunning
	}

	payload := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := int32(math.Round(float64(f) * 32767))
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		payload[2*i] = byte(int16(v) >> 8)
		payload[2*i+1] = byte(int16(v))
	}
	if len(payload) > s.payloadSize {
		return false, xerrors.ErrPayloadTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return false, xerrors.ErrNotRunning
	}

	s.packet.SetMarker(s.talkspurt.CompareAndSwap(true, false))
	s.packet.SetPayload(payload)
	s.packet.IncrementTimestamp(uint32(len(samples)))

	buf := s.packet.Serialize()
	n, err := s.conn.Write(buf)
	if err != nil {
		return false, err
	}
	if n < len(buf) {
		return false, xerrors.ErrTransmitShort
	}
	s.packet.IncrementSequenceNumber()
	metrics.PacketsSentTotal.Inc()
	return true, nil
}

// MarkGap signals that the next SendAudio call starts a new talkspurt (its
// packet's marker bit will be set), used after a detected send gap.
func (s *Sender) MarkGap() {
	s.talkspurt.Store(true)
}

// Ssrc returns the stable synchronization source identifier for this
// sender's stream.
func (s *Sender) Ssrc() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packet.Ssrc()
}
