package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi"
)

func TestSampleCodecInt16(t *testing.T) {
	c, err := newSampleCodec(wasapi.NewWaveFormat(16, 16, wasapi.SampleTypeInt, 48000, 2))
	require.NoError(t, err)

	data := c.encode(nil, []int{1, -1, 32767, -32768}, 16)
	assert.Equal(t, []byte{0x01, 0x00, 0xFF, 0xFF, 0xFF, 0x7F, 0x00, 0x80}, data)

	buf := c.decode(data, 2, 48000)
	assert.Equal(t, []int{1, -1, 32767, -32768}, buf.Data)
	assert.Equal(t, 16, buf.SourceBitDepth)
	assert.Equal(t, 2, buf.Format.NumChannels)
}

func TestSampleCodecScaling(t *testing.T) {
	c24, err := newSampleCodec(wasapi.NewWaveFormat(24, 24, wasapi.SampleTypeInt, 44100, 1))
	require.NoError(t, err)

	data := c24.encode(nil, []int{0x1234, -1}, 16)
	assert.Equal(t, []byte{0x00, 0x34, 0x12, 0x00, 0xFF, 0xFF}, data)
	assert.Equal(t, []int{0x123400, -256}, c24.decode(data, 1, 44100).Data)

	c32, err := newSampleCodec(wasapi.NewWaveFormat(32, 24, wasapi.SampleTypeInt, 44100, 1))
	require.NoError(t, err)

	data = c32.encode(nil, []int{1}, 24)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x00}, data)
	assert.Equal(t, []int{1}, c32.decode(data, 1, 44100).Data)
	assert.Equal(t, 24, c32.bits())

	c8, err := newSampleCodec(wasapi.NewWaveFormat(8, 8, wasapi.SampleTypeInt, 8000, 1))
	require.NoError(t, err)
	assert.Equal(t, []byte{128, 255, 0}, c8.encode(nil, []int{0, 32767, -32768}, 16))
}

func TestSampleCodecFloat(t *testing.T) {
	c, err := newSampleCodec(wasapi.NewWaveFormat(32, 32, wasapi.SampleTypeFloat, 48000, 1))
	require.NoError(t, err)

	data := c.encode(nil, []int{16384, -32768}, 16)
	require.Len(t, data, 8)

	buf := c.decode(data, 1, 48000)
	assert.Equal(t, 32, buf.SourceBitDepth)
	assert.Equal(t, []int{1 << 30, -(1 << 31)}, buf.Data)
}

func TestSampleCodecUnsupported(t *testing.T) {
	_, err := newSampleCodec(wasapi.NewWaveFormat(16, 16, wasapi.SampleTypeFloat, 48000, 2))
	assert.Error(t, err)
}
