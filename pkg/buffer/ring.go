// Package buffer implements the two bounded, mutex-protected ring
// containers edge-vox builds its audio paths on: a fixed-window PCM capture
// ring on the send path and a bounded FIFO of opaque serialized packets on
// the receiver's arrival path.
package buffer

import (
	"sync"
	"time"

	"github.com/HCL-Hbot/edge-vox/internal/xerrors"
)

// CircularAudioBuffer retains the most recent window of mono float32 PCM
// samples. One realtime callback thread pushes; one application thread
// reads. All operations are guarded by a single non-recursive mutex whose
// critical sections are bounded by the request size — producers never
// allocate once the buffer is sized.
type CircularAudioBuffer struct {
	mu         sync.Mutex
	buf        []float32
	pos        int
	length     int
	sampleRate int
}

// NewCircularAudioBuffer sizes the backing storage for windowMs at
// sampleRate samples/sec. A zero or negative sampleRate or windowMs leaves
// the buffer uninitialized; Push and Get then report ErrNotInitialized.
func NewCircularAudioBuffer(sampleRate, windowMs int) *CircularAudioBuffer {
	if sampleRate <= 0 || windowMs <= 0 {
		return &CircularAudioBuffer{}
	}
	n := sampleRate * windowMs / 1000
	return &CircularAudioBuffer{
		buf:        make([]float32, n),
		sampleRate: sampleRate,
	}
}

// Push appends samples, wrapping and dropping the oldest data on overflow.
// After Push, the buffer holds the most recent min(len+len(samples), N)
// samples. Called from the realtime capture callback; it must never
// allocate, which holds here since buf is pre-sized.
func (c *CircularAudioBuffer) Push(samples []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.buf)
	if n == 0 {
		return xerrors.ErrNotInitialized
	}
	k := len(samples)
	if k == 0 {
		return nil
	}
	if k >= n {
		copy(c.buf, samples[k-n:])
		c.pos = 0
		c.length = n
		return nil
	}

	if c.pos+k <= n {
		copy(c.buf[c.pos:c.pos+k], samples)
	} else {
		first := n - c.pos
		copy(c.buf[c.pos:], samples[:first])
		copy(c.buf[:k-first], samples[first:])
	}
	c.pos = (c.pos + k) % n
	if c.length+k > n {
		c.length = n
	} else {
		c.length += k
	}
	return nil
}

// Get returns the last min(sampleRate*ms/1000, len) samples in chronological
// order, newest last. Requesting before any data, or for more than is
// available, is never an error: the result is simply empty or clipped.
func (c *CircularAudioBuffer) Get(ms int) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.buf)
	if n == 0 {
		return nil, xerrors.ErrNotInitialized
	}
	want := c.sampleRate * ms / 1000
	if want > c.length {
		want = c.length
	}
	if want <= 0 {
		return nil, nil
	}

	out := make([]float32, want)
	start := (c.pos - want + n) % n
	if start+want <= n {
		copy(out, c.buf[start:start+want])
	} else {
		first := n - start
		copy(out[:first], c.buf[start:])
		copy(out[first:], c.buf[:want-first])
	}
	return out, nil
}

// GetInto behaves like Get but writes into dst, resliced to the number of
// samples returned, for use on latency-sensitive drain paths. A new slice is
// allocated only when dst's capacity is smaller than that number.
func (c *CircularAudioBuffer) GetInto(ms int, dst []float32) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.buf)
	if n == 0 {
		return nil, xerrors.ErrNotInitialized
	}
	want := c.sampleRate * ms / 1000
	if want > c.length {
		want = c.length
	}
	if want <= 0 {
		return dst[:0], nil
	}
	if cap(dst) < want {
		dst = make([]float32, want)
	}
	dst = dst[:want]

	start := (c.pos - want + n) % n
	if start+want <= n {
		copy(dst, c.buf[start:start+want])
	} else {
		first := n - start
		copy(dst[:first], c.buf[start:])
		copy(dst[first:], c.buf[:want-first])
	}
	return dst, nil
}

// Clear empties the buffer atomically with respect to producers.
func (c *CircularAudioBuffer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 0
	c.length = 0
}

// Available reports the currently-filled duration.
func (c *CircularAudioBuffer) Available() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampleRate == 0 {
		return 0
	}
	return time.Duration(c.length) * time.Second / time.Duration(c.sampleRate)
}
