package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HCL-Hbot/edge-vox/internal/config"
	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
)

// Connect/StartStream exercise github.com/gen2brain/malgo against real audio
// hardware, so — matching the rest of this corpus, which contains no tests
// against malgo-backed code — they are not driven end-to-end here. The
// state-machine guard rails reachable without an open device are covered
// below.

func newIdleClient() *Client {
	return New(nil, config.DefaultAudioConfig(), config.DefaultStreamConfig())
}

func TestNewClientStartsIdle(t *testing.T) {
	c := newIdleClient()
	assert.Equal(t, Idle, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Connected", Connected.String())
	assert.Equal(t, "Streaming", Streaming.String())
}

func TestSetStreamConfigAllowedWhileIdle(t *testing.T) {
	c := newIdleClient()
	cfg := config.DefaultStreamConfig()
	cfg.RtpPort = 7000
	require.NoError(t, c.SetStreamConfig(cfg))
}

func TestSetAudioConfigAllowedWhileIdle(t *testing.T) {
	c := newIdleClient()
	cfg := config.DefaultAudioConfig()
	cfg.SampleRate = 16000
	require.NoError(t, c.SetAudioConfig(cfg))
}

func TestDisconnectFromIdleIsNoop(t *testing.T) {
	c := newIdleClient()
	require.NoError(t, c.Disconnect())
	assert.Equal(t, Idle, c.State())
}

func TestStopStreamFromIdleIsNoop(t *testing.T) {
	c := newIdleClient()
	require.NoError(t, c.StopStream())
	assert.Equal(t, Idle, c.State())
}

func TestStartStreamFromIdleFails(t *testing.T) {
	c := newIdleClient()
	err := c.StartStream()
	assert.Error(t, err)
	assert.Equal(t, Idle, c.State())
}

func TestConnectFromNonIdleIsNoop(t *testing.T) {
	c := newIdleClient()
	c.state = Connected // simulate post-connect state without opening real hardware
	require.NoError(t, c.Connect("127.0.0.1", 0))
	assert.Equal(t, Connected, c.State())
}

func TestSetAudioConfigRejectedWhileStreaming(t *testing.T) {
	c := newIdleClient()
	c.state = Streaming
	err := c.SetAudioConfig(config.DefaultAudioConfig())
	assert.ErrorIs(t, err, xerrors.ErrBusy)
}

func TestSetStreamConfigRejectedWhileConnected(t *testing.T) {
	c := newIdleClient()
	c.state = Connected
	err := c.SetStreamConfig(config.DefaultStreamConfig())
	assert.ErrorIs(t, err, xerrors.ErrBusy)
}
