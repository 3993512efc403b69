package device

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesToFloat32RoundTrip(t *testing.T) {
	in := []float32{0.25, -0.5, 1.0, -1.0}
	raw := make([]byte, len(in)*4)
	float32ToBytes(in, raw)

	out := bytesToFloat32(raw, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-6)
	}
}

func TestPlaybackCallbackZeroFillsOnUnderrun(t *testing.T) {
	a := &Adapter{}
	a.playQueue = [][]float32{{0.1, 0.2}}

	out := make([]byte, 4*4) // 4 frames requested, only 2 samples queued
	a.onPlaybackData(out, nil, 4)

	got := bytesToFloat32(out, 4)
	assert.InDelta(t, 0.1, got[0], 1e-6)
	assert.InDelta(t, 0.2, got[1], 1e-6)
	assert.Equal(t, float32(0), got[2])
	assert.Equal(t, float32(0), got[3])
}

func TestPlayAppendsCopyNotAlias(t *testing.T) {
	a := &Adapter{}
	in := []float32{1, 2, 3}
	a.Play(in)
	in[0] = 99

	a.playMu.Lock()
	defer a.playMu.Unlock()
	assert.Equal(t, float32(1), a.playQueue[0][0])
}

func TestFloat32BitsSanity(t *testing.T) {
	assert.Equal(t, math.Float32bits(1.0), uint32(0x3f800000))
}
