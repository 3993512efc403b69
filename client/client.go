// Package client implements the top-level facade wiring the capture/
// playback device, the RTP sender, and the sideband control channel into a
// single Idle -> Connected -> Streaming state machine.
package client

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HCL-Hbot/edge-vox/internal/config"
	"github.com/HCL-Hbot/edge-vox/internal/metrics"
	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
	"github.com/HCL-Hbot/edge-vox/pkg/control"
	"github.com/HCL-Hbot/edge-vox/pkg/device"
	"github.com/HCL-Hbot/edge-vox/pkg/rtp"
)

// State is one of the facade's three states.
type State int

const (
	Idle State = iota
	Connected
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Connected:
		return "Connected"
	case Streaming:
		return "Streaming"
	default:
		return "Unknown"
	}
}

const drainInterval = 10 * time.Millisecond

// StatusCallback receives forwarded control-channel status strings.
type StatusCallback func(status string)

// WakeWordCallback is invoked from the realtime capture callback, once per
// captured buffer. No detector ships with this package, so the callback is
// not gated on a detected wake word; the hook exists so a caller may build
// one on top of it.
type WakeWordCallback func()

// Client owns the audio device, RTP sender, and control channel, and
// enforces the Idle/Connected/Streaming state invariants over them.
type Client struct {
	log *zap.Logger

	mu    sync.Mutex
	state State

	audioCfg  config.AudioConfig
	streamCfg config.StreamConfig

	device  *device.Adapter
	sender  *rtp.Sender
	control *control.Channel

	statusMu sync.RWMutex
	statusCb StatusCallback

	wakeMu sync.RWMutex
	wakeCb WakeWordCallback

	drainStop chan struct{}
	drainDone chan struct{}
	drainBuf  []float32
}

// New constructs an Idle client with the given defaults. Either config may
// be overridden with SetAudioConfig/SetStreamConfig before Connect.
func New(log *zap.Logger, audioCfg config.AudioConfig, streamCfg config.StreamConfig) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		log:       log,
		state:     Idle,
		audioCfg:  audioCfg,
		streamCfg: streamCfg,
		device:    device.NewAdapter(log),
	}
}

// SetStatusCallback registers the callback for forwarded control-channel
// status strings.
func (c *Client) SetStatusCallback(cb StatusCallback) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.statusCb = cb
}

// SetWakeWordCallback registers the reserved wake-word hook. Once Connect
// has opened the audio device, a registered callback is invoked for every
// captured buffer; no detector ships here to filter those invocations.
func (c *Client) SetWakeWordCallback(cb WakeWordCallback) {
	c.wakeMu.Lock()
	defer c.wakeMu.Unlock()
	c.wakeCb = cb
}

// SetAudioConfig replaces the audio config. Rejected with Busy while
// Streaming.
func (c *Client) SetAudioConfig(cfg config.AudioConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Streaming {
		return xerrors.ErrBusy
	}
	c.audioCfg = cfg
	return nil
}

// SetStreamConfig replaces the stream config. Rejected with Busy while
// Connected or Streaming.
func (c *Client) SetStreamConfig(cfg config.StreamConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return xerrors.ErrBusy
	}
	c.streamCfg = cfg
	return nil
}

// State reports the current facade state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect initializes the sender, control channel, and audio device, in
// that order, and transitions Idle -> Connected. If any step fails, every
// resource already opened during this call is torn down before returning.
func (c *Client) Connect(host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return nil
	}

	sender, err := rtp.NewSender(host, c.streamCfg.RtpPort, c.streamCfg.PacketSize)
	if err != nil {
		return fmt.Errorf("connect: sender init: %w", err)
	}

	ctrl := control.NewChannel(c.log, "command/client", c.streamCfg.ControlTopic)
	ctrl.SetStatusCallback(func(status string) {
		c.statusMu.RLock()
		cb := c.statusCb
		c.statusMu.RUnlock()
		if cb != nil {
			cb(status)
		}
	})
	if err := ctrl.Connect(host, c.streamCfg.ControlPort); err != nil {
		sender.Stop()
		return fmt.Errorf("connect: control connect: %w", err)
	}

	if err := c.device.Init(-1, -1, c.audioCfg.SampleRate, c.audioCfg.BufferMs); err != nil {
		ctrl.Disconnect()
		sender.Stop()
		return fmt.Errorf("connect: device init: %w", err)
	}
	c.device.SetCaptureCallback(func(samples []float32) {
		c.wakeMu.RLock()
		cb := c.wakeCb
		c.wakeMu.RUnlock()
		if cb != nil {
			cb()
		}
	})

	c.sender = sender
	c.control = ctrl
	c.state = Connected
	metrics.ClientState.Set(float64(Connected))
	return nil
}

// StartStream starts the sender and the capture drain loop, transitioning
// Connected -> Streaming. Idempotent while already Streaming.
func (c *Client) StartStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Streaming {
		return nil
	}
	if c.state != Connected {
		return xerrors.ErrNotRunning
	}

	if err := c.sender.Start(); err != nil {
		return fmt.Errorf("start_stream: %w", err)
	}
	if err := c.device.Clear(); err != nil {
		c.log.Debug("clear before resume skipped", zap.Error(err))
	}
	if err := c.device.Resume(); err != nil {
		c.sender.Stop()
		return fmt.Errorf("start_stream: device resume: %w", err)
	}

	c.drainStop = make(chan struct{})
	c.drainDone = make(chan struct{})
	go c.drainLoop(c.drainStop, c.drainDone)

	c.state = Streaming
	metrics.ClientState.Set(float64(Streaming))
	return nil
}

// StopStream pauses capture and stops the sender, returning to Connected.
func (c *Client) StopStream() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopStreamLocked()
}

func (c *Client) stopStreamLocked() error {
	if c.state != Streaming {
		return nil
	}
	close(c.drainStop)
	<-c.drainDone
	c.drainStop, c.drainDone = nil, nil

	c.device.Pause()
	c.sender.Stop()
	c.state = Connected
	metrics.ClientState.Set(float64(Connected))
	return nil
}

// Disconnect tears the client down from any non-Idle state: stops
// streaming if active, disconnects control, and returns to Idle.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle {
		return nil
	}
	c.stopStreamLocked()
	if c.control != nil {
		c.control.Disconnect()
	}
	c.device.Close()
	c.state = Idle
	metrics.ClientState.Set(float64(Idle))
	return nil
}

// drainLoop pulls the most recent drainInterval worth of capture audio
// every tick and submits it as a single send_audio call. An empty drain
// sends nothing and marks the sender's next packet as starting a new
// talkspurt.
func (c *Client) drainLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	windowMs := int(drainInterval / time.Millisecond)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		start := time.Now()
		samples, err := c.device.GetInto(windowMs, c.drainBuf)
		if err != nil || len(samples) == 0 {
			c.sender.MarkGap()
			continue
		}
		c.drainBuf = samples
		if _, err := c.sender.SendAudio(samples); err != nil {
			c.log.Warn("periodic drain send failed", zap.Error(err))
		}
		metrics.DrainLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		metrics.CaptureBufferFillMs.Set(float64(c.device.CaptureFill().Milliseconds()))
	}
}
