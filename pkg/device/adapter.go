// Package device opens the capture/playback audio devices and routes their
// realtime callbacks into the capture ring and playback FIFO the rest of
// the pipeline drains.
package device

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
	"github.com/HCL-Hbot/edge-vox/pkg/buffer"
)

const framesPerCallback = 1024

// Adapter opens capture and optional playback devices over malgo
// (miniaudio), feeding a CircularAudioBuffer from the realtime capture
// thread and draining a playback FIFO on the realtime playback thread.
type Adapter struct {
	log *zap.Logger

	malgoCtx *malgo.AllocatedContext

	captureDevice  *malgo.Device
	playbackDevice *malgo.Device

	capture *buffer.CircularAudioBuffer

	playMu    sync.Mutex
	playQueue [][]float32 // unbounded FIFO of play() submissions; see DESIGN.md

	sampleRate int
	running    bool
	playing    bool

	captureCbMu sync.RWMutex
	captureCb   func(samples []float32)
}

// NewAdapter constructs an unopened adapter. Call Init before any other
// operation.
func NewAdapter(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{log: log}
}

// Init opens capture (and, if playbackID >= -1, playback) devices at
// sampleRate, mono float32, framesPerCallback frames per buffer, and sizes
// the capture buffer for windowMs. The system default device is opened for
// both capture and playback whatever the ids are; captureID and playbackID
// are only logged and do not select a specific device. If either open fails
// after the other succeeded, the already-opened device is closed before
// returning DeviceOpen.
func (a *Adapter) Init(captureID, playbackID, sampleRate, windowMs int) error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: malgo context: %v", xerrors.ErrDeviceOpen, err)
	}
	a.malgoCtx = ctx

	capCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	capCfg.Capture.Format = malgo.FormatF32
	capCfg.Capture.Channels = 1
	capCfg.SampleRate = uint32(sampleRate)
	capCfg.PeriodSizeInFrames = framesPerCallback

	a.capture = buffer.NewCircularAudioBuffer(sampleRate, windowMs)

	capDevice, err := malgo.InitDevice(a.malgoCtx.Context, capCfg, malgo.DeviceCallbacks{
		Data: a.onCaptureData,
	})
	if err != nil {
		a.capture = nil
		a.malgoCtx.Uninit()
		a.malgoCtx.Free()
		a.malgoCtx = nil
		return fmt.Errorf("%w: capture device: %v", xerrors.ErrDeviceOpen, err)
	}
	a.captureDevice = capDevice
	a.log.Info("capture device opened", zap.Int("deviceID", captureID), zap.Int("sampleRate", sampleRate))
	a.logDiscoveredDevices(malgo.Capture)

	if playbackID >= -1 {
		playCfg := malgo.DefaultDeviceConfig(malgo.Playback)
		playCfg.Playback.Format = malgo.FormatF32
		playCfg.Playback.Channels = 1
		playCfg.SampleRate = uint32(sampleRate)
		playCfg.PeriodSizeInFrames = framesPerCallback

		playDevice, err := malgo.InitDevice(a.malgoCtx.Context, playCfg, malgo.DeviceCallbacks{
			Data: a.onPlaybackData,
		})
		if err != nil {
			a.captureDevice.Uninit()
			a.captureDevice = nil
			a.capture = nil
			a.malgoCtx.Uninit()
			a.malgoCtx.Free()
			a.malgoCtx = nil
			return fmt.Errorf("%w: playback device: %v", xerrors.ErrDeviceOpen, err)
		}
		a.playbackDevice = playDevice
		a.log.Info("playback device opened", zap.Int("deviceID", playbackID))
		a.logDiscoveredDevices(malgo.Playback)
	}

	a.sampleRate = sampleRate
	return nil
}

// logDiscoveredDevices logs the name of every device malgo can enumerate for
// kind, for operator diagnosis when the wrong hardware gets picked up. Purely
// informational; enumeration failures are logged and otherwise ignored.
func (a *Adapter) logDiscoveredDevices(kind malgo.DeviceType) {
	infos, err := a.malgoCtx.Devices(kind)
	if err != nil {
		a.log.Debug("device enumeration failed", zap.Error(err))
		return
	}
	for i, info := range infos {
		a.log.Info("discovered audio device", zap.Int("index", i), zap.String("name", info.Name()))
	}
}

// onCaptureData is invoked on the realtime capture thread. It converts the
// input into a newly allocated slice of frameCount samples, performs one
// bounded push to the capture buffer, then takes a read lock on the
// capture-callback mutex and invokes the registered capture callback, if
// any. It performs no I/O of its own.
func (a *Adapter) onCaptureData(_ []byte, input []byte, frameCount uint32) {
	samples := bytesToFloat32(input, int(frameCount))
	a.capture.Push(samples)

	a.captureCbMu.RLock()
	cb := a.captureCb
	a.captureCbMu.RUnlock()
	if cb != nil {
		cb(samples)
	}
}

// SetCaptureCallback registers a callback invoked from the realtime capture
// thread after every push to the capture buffer, alongside the ring write.
// Callers must keep it allocation-free and non-blocking; this is the wake-
// word detection hook (see DESIGN.md) — no detector is registered here.
func (a *Adapter) SetCaptureCallback(cb func(samples []float32)) {
	a.captureCbMu.Lock()
	defer a.captureCbMu.Unlock()
	a.captureCb = cb
}

// onPlaybackData is invoked on the realtime playback thread. It copies up
// to frameCount samples from the playback FIFO into the device's output
// buffer, zero-filling any shortfall.
func (a *Adapter) onPlaybackData(output []byte, _ []byte, frameCount uint32) {
	want := int(frameCount)
	out := make([]float32, want)

	a.playMu.Lock()
	n := 0
	for n < want && len(a.playQueue) > 0 {
		head := a.playQueue[0]
		take := want - n
		if take > len(head) {
			take = len(head)
		}
		copy(out[n:], head[:take])
		n += take
		if take == len(head) {
			a.playQueue = a.playQueue[1:]
		} else {
			a.playQueue[0] = head[take:]
		}
	}
	a.playMu.Unlock()

	float32ToBytes(out, output)
}

// Resume starts the opened streams. Idempotent; succeeds if at least one
// device was opened.
func (a *Adapter) Resume() error {
	if a.captureDevice == nil && a.playbackDevice == nil {
		return xerrors.ErrNotInitialized
	}
	if a.running {
		return nil
	}
	if a.captureDevice != nil {
		if err := a.captureDevice.Start(); err != nil {
			return fmt.Errorf("%w: %v", xerrors.ErrDeviceOpen, err)
		}
	}
	if a.playbackDevice != nil {
		if err := a.playbackDevice.Start(); err != nil {
			return fmt.Errorf("%w: %v", xerrors.ErrDeviceOpen, err)
		}
	}
	a.running = true
	return nil
}

// Pause stops the streams. Idempotent.
func (a *Adapter) Pause() error {
	if !a.running {
		return nil
	}
	if a.captureDevice != nil {
		a.captureDevice.Stop()
	}
	if a.playbackDevice != nil {
		a.playbackDevice.Stop()
	}
	a.running = false
	a.playing = false
	return nil
}

// Clear empties the capture buffer. Fails NotRunning if not resumed.
func (a *Adapter) Clear() error {
	if !a.running {
		return xerrors.ErrNotRunning
	}
	a.capture.Clear()
	return nil
}

// Get drains the most recent ms of capture. Fails NotInitialized if capture
// was never opened.
func (a *Adapter) Get(ms int) ([]float32, error) {
	if a.capture == nil {
		return nil, xerrors.ErrNotInitialized
	}
	return a.capture.Get(ms)
}

// GetInto behaves like Get but reuses dst instead of allocating, for
// latency-sensitive drain paths that tick faster than garbage collection
// pauses are acceptable.
func (a *Adapter) GetInto(ms int, dst []float32) ([]float32, error) {
	if a.capture == nil {
		return nil, xerrors.ErrNotInitialized
	}
	return a.capture.GetInto(ms, dst)
}

// CaptureFill reports how much audio the capture buffer currently holds.
func (a *Adapter) CaptureFill() time.Duration {
	if a.capture == nil {
		return 0
	}
	return a.capture.Available()
}

// Play appends samples to the playback FIFO. The FIFO has no hard capacity
// cap (see DESIGN.md, Open Question b) — callers are expected to throttle
// submissions to roughly real time.
func (a *Adapter) Play(samples []float32) {
	if len(samples) == 0 {
		return
	}
	cp := make([]float32, len(samples))
	copy(cp, samples)
	a.playMu.Lock()
	a.playQueue = append(a.playQueue, cp)
	a.playMu.Unlock()
}

// StartPlayback sets the playing flag reported by IsPlaying. The flag does
// not gate the playback callback: the FIFO is drained whenever the playback
// device runs, that is between Resume and Pause.
func (a *Adapter) StartPlayback() error {
	if a.playbackDevice == nil {
		return xerrors.ErrNotInitialized
	}
	a.playing = true
	return nil
}

// StopPlayback clears the playing flag reported by IsPlaying. It does not
// stop the playback device, which keeps draining the FIFO until Pause.
func (a *Adapter) StopPlayback() {
	a.playing = false
}

// IsPlaying reports the playback flag.
func (a *Adapter) IsPlaying() bool {
	return a.playing
}

// Close releases all device and context resources.
func (a *Adapter) Close() error {
	a.Pause()
	if a.captureDevice != nil {
		a.captureDevice.Uninit()
		a.captureDevice = nil
	}
	if a.playbackDevice != nil {
		a.playbackDevice.Uninit()
		a.playbackDevice = nil
	}
	if a.malgoCtx != nil {
		a.malgoCtx.Uninit()
		a.malgoCtx.Free()
		a.malgoCtx = nil
	}
	return nil
}

func bytesToFloat32(b []byte, frames int) []float32 {
	out := make([]float32, frames)
	for i := 0; i < frames && i*4+4 <= len(b); i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func float32ToBytes(in []float32, out []byte) {
	for i, f := range in {
		bits := math.Float32bits(f)
		if i*4+4 > len(out) {
			break
		}
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
}
