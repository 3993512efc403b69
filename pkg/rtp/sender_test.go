package rtp

import (
	"net"
	"testing"

	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenUDPLoopback(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func TestNewSenderRejectsBadHost(t *testing.T) {
	_, err := NewSender("not-an-ip", 5004, 512)
	assert.ErrorIs(t, err, xerrors.ErrInvalidArgument)
}

func TestNewSenderRejectsZeroPort(t *testing.T) {
	_, err := NewSender("127.0.0.1", 0, 512)
	assert.Error(t, err)
}

func TestSendAudioBeforeStartFails(t *testing.T) {
	_, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 512)
	require.NoError(t, err)

	ok, err := s.SendAudio([]float32{0.1, 0.2})
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestSendAudioEmptyIsNoop(t *testing.T) {
	_, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 512)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ok, err := s.SendAudio(nil)
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestSendAudioTransmitsAndAdvancesState(t *testing.T) {
	conn, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 512)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	seq0 := s.packet.Sequence()
	ok, err := s.SendAudio([]float32{0.5, -0.5, 1.5, -1.5})
	require.NoError(t, err)
	assert.True(t, ok)

	buf := make([]byte, 2048)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, headerLength+8)

	assert.Equal(t, seq0+1, s.packet.Sequence())
	// clamped samples: 1.5 -> 32767, -1.5 -> -32768
	payload := buf[headerLength:n]
	assert.Equal(t, byte(0x7f), payload[4])
	assert.Equal(t, byte(0xff), payload[5])
	assert.Equal(t, byte(0x80), payload[6])
	assert.Equal(t, byte(0x00), payload[7])
}

func TestFirstSendAfterStartSetsMarker(t *testing.T) {
	conn, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 512)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ok, err := s.SendAudio([]float32{0.1})
	require.NoError(t, err)
	require.True(t, ok)

	buf := make([]byte, 64)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 2)
	assert.NotZero(t, buf[1]&0x80, "marker bit must be set on talkspurt start")

	ok, err = s.SendAudio([]float32{0.1})
	require.NoError(t, err)
	require.True(t, ok)
	n, _, err = conn.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Zero(t, buf[1]&0x80, "marker bit must be clear on subsequent packets")
}

func TestPayloadTooLargeRejected(t *testing.T) {
	_, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 4)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ok, err := s.SendAudio(make([]float32, 100))
	assert.False(t, ok)
	assert.ErrorIs(t, err, xerrors.ErrPayloadTooLarge)
}

func TestStopThenStartReopensSocket(t *testing.T) {
	_, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 512)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Start())

	ok, err := s.SendAudio([]float32{0.1})
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestSsrcPreservedAcrossStopStart(t *testing.T) {
	_, port := listenUDPLoopback(t)
	s, err := NewSender("127.0.0.1", port, 512)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ssrc0 := s.Ssrc()
	require.NoError(t, s.Stop())
	require.NoError(t, s.Start())

	assert.Equal(t, ssrc0, s.Ssrc(), "SSRC must stay constant over the sender's lifetime")
}
