package wasapi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi/internal/engine/enginetest"
)

func newTestRenderClient(t *testing.T) (*RenderClient, *enginetest.Renderer) {
	t.Helper()

	c, fc := newInitializedTestClient(t, Render, EventsShared(false, 100000))
	r, err := c.RenderClient()
	require.NoError(t, err)
	require.Equal(t, 4, r.BytesPerFrame())

	return r, fc.Render
}

func TestRenderWrite(t *testing.T) {
	r, fake := newTestRenderClient(t)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, r.Write(2, data, 0))
	require.NoError(t, r.Write(1, []byte{0, 0, 0, 0}, BufferSilent))

	assert.Equal(t, append(data, 0, 0, 0, 0), fake.Data)
	assert.Equal(t, 2, fake.Acquired)
	assert.Equal(t, 2, fake.Released)
	assert.Equal(t, []uint32{0, uint32(BufferSilent)}, fake.FlagsSeen)
}

func TestRenderWriteLengthMismatch(t *testing.T) {
	r, fake := newTestRenderClient(t)

	testCases := []struct {
		name   string
		frames int
		data   []byte
	}{
		{"too short", 2, make([]byte, 7)},
		{"too long", 2, make([]byte, 9)},
		{"partial frame", 1, make([]byte, 3)},
		{"nil data", 1, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Write(tc.frames, tc.data, 0)
			assert.ErrorIs(t, err, ErrDataLengthMismatch)

			var le *DataLengthError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, len(tc.data), le.Received)
			assert.Equal(t, tc.frames*4, le.Expected)
		})
	}

	assert.Zero(t, fake.Acquired, "no buffer may be acquired for a rejected write")
	assert.Empty(t, fake.Data)
}

func TestRenderWriteZeroFrames(t *testing.T) {
	r, fake := newTestRenderClient(t)

	assert.NoError(t, r.Write(0, nil, 0))
	assert.NoError(t, r.Write(0, []byte{1, 2, 3}, 0))
	assert.Zero(t, fake.Acquired)
}

func TestRenderWriteFromQueue(t *testing.T) {
	r, fake := newTestRenderClient(t)

	queue := bytes.NewBuffer([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, r.WriteFromQueue(2, queue, 0))

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, fake.Data)
	assert.Equal(t, []byte{9, 10}, queue.Bytes())
	assert.Equal(t, fake.Acquired, fake.Released)
}

func TestRenderWriteFromQueueTooShort(t *testing.T) {
	r, fake := newTestRenderClient(t)

	queue := bytes.NewBuffer([]byte{1, 2, 3, 4, 5, 6, 7})
	err := r.WriteFromQueue(2, queue, 0)
	assert.ErrorIs(t, err, ErrDataLengthTooShort)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7}, queue.Bytes(), "queue must be left untouched")
	assert.Zero(t, fake.Acquired)

	assert.NoError(t, r.WriteFromQueue(0, queue, 0))
	assert.Equal(t, 7, queue.Len())
}

func TestRenderNegativeFrames(t *testing.T) {
	r, fake := newTestRenderClient(t)

	err := r.Write(-1, nil, 0)
	assert.ErrorIs(t, err, ErrDataLengthMismatch)

	queue := bytes.NewBuffer(make([]byte, 8))
	err = r.WriteFromQueue(-1, queue, 0)
	var le *DataLengthError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, ErrDataLengthMismatch)
	assert.Equal(t, -4, le.Expected)

	assert.Equal(t, 8, queue.Len())
	assert.Zero(t, fake.Acquired)
}

func TestRenderGetBufferFailure(t *testing.T) {
	r, fake := newTestRenderClient(t)
	fake.GetErr = AUDCLNT_E_DEVICE_INVALIDATED

	queue := bytes.NewBuffer(make([]byte, 8))
	err := r.WriteFromQueue(2, queue, 0)
	assert.ErrorIs(t, err, AUDCLNT_E_DEVICE_INVALIDATED)
	assert.Equal(t, 8, queue.Len())
	assert.Zero(t, fake.Released)
}
