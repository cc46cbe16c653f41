package main

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSineGenerator(t *testing.T) {
	gen := newSineGenerator(1000, 0.5, 8000, 2, 10*time.Millisecond)

	d, err := gen.Duration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, d)

	buf := &audio.IntBuffer{Data: make([]int, 64*2)}

	n, err := gen.PCMBuffer(buf)
	require.NoError(t, err)
	assert.Equal(t, 128, n)
	assert.Equal(t, 0, buf.Data[0])
	assert.Equal(t, buf.Data[2], buf.Data[3], "channels carry the same sample")
	assert.Equal(t, 16384, buf.Data[4], "a quarter period at 1 kHz / 8 kHz peaks at half amplitude")

	n, err = gen.PCMBuffer(buf)
	require.NoError(t, err)
	assert.Equal(t, 32, n, "16 of the 80 frames are left")

	_, err = gen.PCMBuffer(buf)
	assert.ErrorIs(t, err, io.EOF)
}

type writeSeeker struct {
	bytes.Buffer
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if extra := w.pos + len(p) - w.Len(); extra > 0 {
		w.Buffer.Write(make([]byte, extra))
	}
	copy(w.Bytes()[w.pos:], p)
	w.pos += len(p)

	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		w.pos = int(offset)
	case io.SeekCurrent:
		w.pos += int(offset)
	case io.SeekEnd:
		w.pos = w.Len() + int(offset)
	}

	return int64(w.pos), nil
}

func TestWavDecoder(t *testing.T) {
	var out writeSeeker
	enc := wav.NewEncoder(&out, 44100, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           []int{1, 2, 3, -4},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())

	dec, err := newWavDecoder(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), dec.SampleRate())
	assert.Equal(t, uint16(1), dec.NumChans())
	assert.Equal(t, uint16(16), dec.BitDepth())

	buf := &audio.IntBuffer{Data: make([]int, 8)}
	n, err := dec.PCMBuffer(buf)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, -4}, buf.Data[:n])

	_, err = newWavDecoder(bytes.NewReader([]byte("not a wav file")))
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00.000", formatDuration(0))
	assert.Equal(t, "01:02:03.045", formatDuration(time.Hour+2*time.Minute+3*time.Second+45*time.Millisecond))
}
