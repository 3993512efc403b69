package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketRingPushPopOrder(t *testing.T) {
	r := NewPacketRing(4)
	assert.True(t, r.Push([]byte("a")))
	assert.True(t, r.Push([]byte("b")))

	p, ok := r.Pop()
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), p)

	p, ok = r.Pop()
	assert.True(t, ok)
	assert.Equal(t, []byte("b"), p)
}

func TestPacketRingDropsNewestWhenFull(t *testing.T) {
	r := NewPacketRing(2)
	assert.True(t, r.Push([]byte("a")))
	assert.True(t, r.Push([]byte("b")))
	assert.False(t, r.Push([]byte("c"))) // dropped, not overwritten
	assert.True(t, r.Full())

	p, ok := r.Pop()
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), p)
}

func TestPacketRingPopEmpty(t *testing.T) {
	r := NewPacketRing(2)
	_, ok := r.Pop()
	assert.False(t, ok)
	assert.True(t, r.Empty())
}

func TestPacketRingPeekDoesNotRemove(t *testing.T) {
	r := NewPacketRing(2)
	r.Push([]byte("a"))

	p, ok := r.Peek()
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), p)
	assert.Equal(t, 1, r.Size())
}

func TestPacketRingClear(t *testing.T) {
	r := NewPacketRing(4)
	r.Push([]byte("a"))
	r.Push([]byte("b"))
	r.Clear()

	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.Size())
}
