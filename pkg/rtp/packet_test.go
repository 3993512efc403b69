package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacketDefaults(t *testing.T) {
	p := NewPacket()
	assert.EqualValues(t, DefaultPayloadType, p.payloadType)
	assert.Zero(t, p.Timestamp())
	assert.False(t, p.Marker())
}

func TestSerializeLayout(t *testing.T) {
	p := NewPacket()
	p.sequence = 0x1234
	p.timestamp = 0xdeadbeef
	p.ssrc = 0x01020304
	p.SetMarker(true)
	p.SetPayload([]byte{0xaa, 0xbb})

	buf := p.Serialize()
	require.Len(t, buf, headerLength+2)

	assert.Equal(t, byte(0x80), buf[0]) // version=2, no flags, csrcCount=0
	assert.Equal(t, byte(0x80|DefaultPayloadType), buf[1])
	assert.Equal(t, []byte{0x12, 0x34}, buf[2:4])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, buf[4:8])
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf[8:12])
	assert.Equal(t, []byte{0xaa, 0xbb}, buf[12:14])
}

func TestSequenceNumberWrap(t *testing.T) {
	p := NewPacket()
	p.sequence = 0xFFFF
	p.IncrementSequenceNumber()
	assert.EqualValues(t, 0x0000, p.Sequence())

	buf := p.Serialize()
	assert.Equal(t, []byte{0x00, 0x00}, buf[2:4])
}

func TestTimestampWrap(t *testing.T) {
	p := NewPacket()
	p.timestamp = 0xFFFFFFFF
	p.IncrementTimestamp(1)
	assert.EqualValues(t, 0, p.Timestamp())
}

func TestAddCsrcClampsAt15(t *testing.T) {
	p := NewPacket()
	for i := 0; i < 20; i++ {
		p.AddCsrc(uint32(i))
	}
	assert.Len(t, p.csrc, maxCsrcEntries)

	buf := p.Serialize()
	assert.EqualValues(t, maxCsrcEntries, buf[0]&ccMask)
}

func TestSsrcStableAcrossMutation(t *testing.T) {
	p := NewPacket()
	ssrc := p.Ssrc()
	p.IncrementSequenceNumber()
	p.IncrementTimestamp(480)
	p.SetMarker(true)
	assert.Equal(t, ssrc, p.Ssrc())
}
