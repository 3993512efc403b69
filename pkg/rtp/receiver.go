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
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/HCL-Hbot/edge-vox/internal/metrics"
	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
	"github.com/HCL-Hbot/edge-vox/pkg/buffer"
)

// ReceiveFlags normalizes the source's inconsistent flags parameter (see
// DESIGN.md, Open Question c) to a single option set.
type ReceiveFlags struct {
	// ReceiveOnly is the default flag: the receiver never transmits.
	ReceiveOnly bool
}

// DefaultReceiveFlags matches the source's implicit default.
var DefaultReceiveFlags = ReceiveFlags{ReceiveOnly: true}

const maxDatagramSize = 65536

// AudioCallback receives one demarshaled frame of float PCM per well-formed
// datagram, in arrival order.
type AudioCallback func(samples []float32)

// Receiver binds a local UDP endpoint, parses inbound RTP datagrams, and
// forwards float PCM to the currently registered callback. No reordering or
// duplicate suppression is performed.
type Receiver struct {
	localIP string
	port    int
	flags   ReceiveFlags

	mu   sync.Mutex
	conn *net.UDPConn

	cbMu sync.RWMutex
	cb   AudioCallback

	arrivals *buffer.PacketRing

	stop     chan struct{}
	readDone chan struct{}
	dispDone chan struct{}
}

// NewReceiver validates localIP and binds a UDP endpoint at port. flags is
// optional; DefaultReceiveFlags is used when nil.
func NewReceiver(localIP string, port int, flags *ReceiveFlags) (*Receiver, error) {
	if !validEndpointHost(localIP) {
		return nil, xerrors.ErrInvalidArgument
	}
	f := DefaultReceiveFlags
	if flags != nil {
		f = *flags
	}
	r := &Receiver{localIP: localIP, port: port, flags: f}
	laddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", resolveHost(localIP), port))
	if err != nil {
		return nil, xerrors.ErrSocketOpen
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, xerrors.ErrSocketOpen
	}
	r.conn = conn
	r.port = conn.LocalAddr().(*net.UDPAddr).Port
	r.arrivals = buffer.NewPacketRing(buffer.DefaultPacketRingCapacity)
	return r, nil
}

// SetAudioCallback atomically replaces the callback invoked for subsequent
// frames.
func (r *Receiver) SetAudioCallback(cb AudioCallback) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.cb = cb
}

// Start installs the receive loop and the dispatch loop, each on its own
// goroutine: the receive loop only drains the socket into the arrival ring,
// and the dispatch loop parses and invokes the callback, so callback
// latency never delays draining the socket.
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return xerrors.ErrNotInitialized
	}
	if r.stop != nil {
		return nil // already running, idempotent
	}
	r.stop = make(chan struct{})
	r.readDone = make(chan struct{})
	r.dispDone = make(chan struct{})
	go r.readLoop(r.conn, r.stop, r.readDone)
	go r.dispatchLoop(r.stop, r.dispDone)
	return nil
}

// Stop tears down both loops idempotently and closes the socket.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	stop, readDone, dispDone, conn := r.stop, r.readDone, r.dispDone, r.conn
	r.stop, r.readDone, r.dispDone, r.conn = nil, nil, nil, nil
	r.mu.Unlock()

	if stop == nil {
		if conn != nil {
			return conn.Close()
		}
		return nil
	}
	close(stop)
	<-readDone
	<-dispDone
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// readLoop only drains the socket and hands each raw datagram to the
// arrival ring, drop-newest when the consumer falls behind.
func (r *Receiver) readLoop(conn *net.UDPConn, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-stop:
			return
		default:
		}
		conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		if !r.arrivals.Push(datagram) {
			metrics.PacketsDroppedTotal.Inc()
		}
	}
}

// dispatchLoop drains the arrival ring in order, parses each datagram, and
// invokes the current callback.
func (r *Receiver) dispatchLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		datagram, ok := r.arrivals.Pop()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		samples, ok := parseDatagram(datagram)
		if !ok {
			metrics.MalformedPacketsTotal.Inc()
			continue // malformed packet, dropped silently
		}
		metrics.PacketsReceivedTotal.Inc()
		r.cbMu.RLock()
		cb := r.cb
		r.cbMu.RUnlock()
		if cb != nil {
			cb(samples)
		}
	}
}

// parseDatagram implements the receive-side wire parse from spec §4.6:
// verify version 2, skip the CSRC list, treat the remainder as big-endian
// int16 PCM.
func parseDatagram(buf []byte) ([]float32, bool) {
	if len(buf) < headerLength {
		return nil, false
	}
	version := buf[0] >> versionShift
	if version != version2 {
		return nil, false
	}
	csrcCount := int(buf[0] & ccMask)
	off := headerLength + csrcCount*4
	if off > len(buf) {
		return nil, false
	}
	payload := buf[off:]
	if len(payload)%2 != 0 {
		return nil, false
	}
	samples := make([]float32, len(payload)/2)
	for i := range samples {
		v := int16(binary.BigEndian.Uint16(payload[2*i:]))
		samples[i] = float32(v) / 32767.0
	}
	return samples, true
}
