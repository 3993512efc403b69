package rtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReceiverBindsEphemeralPort(t *testing.T) {
	rcv, err := NewReceiver("127.0.0.1", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { rcv.Stop() })
	assert.NotZero(t, rcv.port)
}

func TestParseDatagramRejectsShort(t *testing.T) {
	_, ok := parseDatagram([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestParseDatagramRejectsWrongVersion(t *testing.T) {
	buf := make([]byte, headerLength+2)
	buf[0] = 0x40 // version 1
	_, ok := parseDatagram(buf)
	assert.False(t, ok)
}

func TestParseDatagramSkipsCsrcList(t *testing.T) {
	buf := make([]byte, headerLength+4+2) // header + 1 CSRC + 1 sample
	buf[0] = byte(version2<<versionShift) | 1
	buf[len(buf)-2] = 0x7f
	buf[len(buf)-1] = 0xff
	samples, ok := parseDatagram(buf)
	require.True(t, ok)
	require.Len(t, samples, 1)
	assert.InDelta(t, 1.0, samples[0], 0.001)
}

func TestParseDatagramRejectsOddPayload(t *testing.T) {
	buf := make([]byte, headerLength+1)
	buf[0] = byte(version2 << versionShift)
	_, ok := parseDatagram(buf)
	assert.False(t, ok)
}

func TestEndToEndSendReceive(t *testing.T) {
	rcv, err := NewReceiver("127.0.0.1", 0, nil)
	require.NoError(t, err)

	received := make(chan []float32, 1)
	rcv.SetAudioCallback(func(s []float32) { received <- s })
	require.NoError(t, rcv.Start())
	t.Cleanup(func() { rcv.Stop() })

	sender, err := NewSender("127.0.0.1", rcv.port, 4096)
	require.NoError(t, err)
	require.NoError(t, sender.Start())
	t.Cleanup(func() { sender.Stop() })

	in := []float32{0.1, -0.2, 0.5, -0.9}
	ok, err := sender.SendAudio(in)
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case out := <-received:
		require.Len(t, out, len(in))
		for i := range in {
			assert.InDelta(t, in[i], out[i], 1.0/32767.0+0.0005)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver callback did not fire within 1s")
	}
}

func TestMalformedPacketDroppedSilently(t *testing.T) {
	rcv, err := NewReceiver("127.0.0.1", 0, nil)
	require.NoError(t, err)
	fired := false
	rcv.SetAudioCallback(func(s []float32) { fired = true })
	require.NoError(t, rcv.Start())
	t.Cleanup(func() { rcv.Stop() })

	samples, ok := parseDatagram([]byte{0x00, 0x00})
	assert.False(t, ok)
	assert.Nil(t, samples)
	assert.False(t, fired)
}
