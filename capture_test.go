package wasapi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi/internal/engine/enginetest"
)

func newTestCaptureClient(t *testing.T, mode StreamMode) (*CaptureClient, *enginetest.Capturer) {
	t.Helper()

	c, fc := newInitializedTestClient(t, Capture, mode)
	cc, err := c.CaptureClient()
	require.NoError(t, err)

	return cc, fc.Capture
}

func TestCaptureRead(t *testing.T) {
	cc, fake := newTestCaptureClient(t, EventsShared(false, 100000))
	fake.Push([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 2, uint32(BufferDataDiscontinuity), 480, 99)

	frames, ok, err := cc.NextPacketSize()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(2), frames)

	buf := make([]byte, 16)
	n, info, err := cc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf[:8])
	assert.True(t, info.Flags.Has(BufferDataDiscontinuity))
	assert.Equal(t, uint64(480), info.DevicePosition)
	assert.Equal(t, uint64(99), info.Timestamp)

	assert.Equal(t, 1, fake.Acquired)
	assert.Equal(t, []uint32{2}, fake.ReleasedFrames)
	assert.Zero(t, fake.Pending())
}

func TestCaptureReadEmpty(t *testing.T) {
	cc, fake := newTestCaptureClient(t, EventsShared(false, 100000))

	n, info, err := cc.Read(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, BufferInfo{}, info)
	assert.Zero(t, fake.Acquired, "an empty buffer must not acquire")

	n, info, err = cc.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, BufferInfo{}, info)
	assert.Equal(t, 1, fake.Acquired)
	assert.Equal(t, 1, fake.Released, "a zero frame acquisition must still be released")
	assert.Equal(t, []uint32{0}, fake.ReleasedFrames)
}

func TestCaptureReadTooShort(t *testing.T) {
	cc, fake := newTestCaptureClient(t, EventsShared(false, 100000))
	fake.Push(make([]byte, 16), 4, 0, 0, 0)

	n, _, err := cc.Read(make([]byte, 8))
	assert.ErrorIs(t, err, ErrDataLengthTooShort)
	assert.Zero(t, n)

	var le *DataLengthError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 8, le.Received)
	assert.Equal(t, 16, le.Expected)

	assert.Equal(t, fake.Acquired, fake.Released)
	assert.Equal(t, 1, fake.Pending(), "the packet must stay queued")

	n, _, err = cc.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCaptureReadSilent(t *testing.T) {
	cc, fake := newTestCaptureClient(t, EventsShared(false, 100000))
	fake.Push([]byte{9, 9, 9, 9}, 1, uint32(BufferSilent), 0, 0)

	buf := []byte{7, 7, 7, 7}
	n, info, err := cc.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, info.Flags.Has(BufferSilent))
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)
}

func TestCaptureReadToQueue(t *testing.T) {
	cc, fake := newTestCaptureClient(t, EventsShared(false, 100000))
	fake.Push([]byte{1, 2, 3, 4}, 1, 0, 0, 0)
	fake.Push([]byte{5, 6, 7, 8, 9, 10, 11, 12}, 2, 0, 1, 0)

	var queue bytes.Buffer
	queue.WriteByte(0)

	for i := 0; i < 3; i++ {
		_, err := cc.ReadToQueue(&queue)
		require.NoError(t, err)
	}

	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, queue.Bytes())
	assert.Equal(t, fake.Acquired, fake.Released)
	assert.Equal(t, []uint32{1, 2, 0}, fake.ReleasedFrames)
}

func TestCaptureNextPacketSizeExclusive(t *testing.T) {
	cc, fake := newTestCaptureClient(t, EventsExclusive(100000))
	fake.Push(make([]byte, 8), 2, 0, 0, 0)

	frames, ok, err := cc.NextPacketSize()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, frames)
}
