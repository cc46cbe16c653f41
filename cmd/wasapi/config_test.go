package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "50ms", cfg.Stream.Buffer)
	assert.True(t, cfg.Stream.Events)
	assert.True(t, cfg.Stream.AutoConvert)
	assert.False(t, cfg.Stream.Exclusive)
	assert.Equal(t, 48000, cfg.Format.Rate)
	assert.Equal(t, 2, cfg.Format.Channels)
	assert.Equal(t, 16, cfg.Format.Bits)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[stream]
device = "Speakers (USB DAC)"
exclusive = true
buffer = "3ms"

[format]
rate = 96000
bits = 24

[metrics]
addr = "localhost:9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Speakers (USB DAC)", cfg.Stream.Device)
	assert.True(t, cfg.Stream.Exclusive)
	assert.True(t, cfg.Stream.Events, "unset keys keep their defaults")
	assert.Equal(t, "3ms", cfg.Stream.Buffer)
	assert.Equal(t, 96000, cfg.Format.Rate)
	assert.Equal(t, 2, cfg.Format.Channels)
	assert.Equal(t, 24, cfg.Format.Bits)
	assert.Equal(t, "localhost:9090", cfg.Metrics.Addr)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[stream\nexclusive = "), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestStreamConfigMode(t *testing.T) {
	testCases := []struct {
		name     string
		stream   StreamConfig
		expected wasapi.StreamMode
	}{
		{"polling shared", StreamConfig{Buffer: "20ms", AutoConvert: true}, wasapi.PollingShared(true, 200000)},
		{"events shared", StreamConfig{Events: true, Buffer: "10ms"}, wasapi.EventsShared(false, 100000)},
		{"polling exclusive", StreamConfig{Exclusive: true, Buffer: "3ms"}, wasapi.PollingExclusive(30000)},
		{"events exclusive", StreamConfig{Exclusive: true, Events: true}, wasapi.EventsExclusive(0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mode, err := tc.stream.Mode()
			require.NoError(t, err)
			assert.Equal(t, tc.expected, mode)
		})
	}

	_, err := StreamConfig{Buffer: "fast"}.Mode()
	assert.Error(t, err)

	_, err = StreamConfig{Buffer: "-5ms"}.Mode()
	assert.Error(t, err)
}

func TestFormatConfigWaveFormat(t *testing.T) {
	f, err := FormatConfig{Rate: 44100, Channels: 2, Bits: 24}.WaveFormat()
	require.NoError(t, err)
	assert.Equal(t, 6, f.BlockAlign())

	f, err = FormatConfig{Rate: 48000, Channels: 1, Bits: 32, Float: true}.WaveFormat()
	require.NoError(t, err)
	st, err := f.SampleType()
	require.NoError(t, err)
	assert.Equal(t, wasapi.SampleTypeFloat, st)

	_, err = FormatConfig{Rate: 48000, Channels: 2, Bits: 12}.WaveFormat()
	assert.Error(t, err)

	_, err = FormatConfig{Rate: 48000, Channels: 2, Bits: 16, Float: true}.WaveFormat()
	assert.Error(t, err)

	_, err = FormatConfig{Rate: 0, Channels: 2, Bits: 16}.WaveFormat()
	assert.Error(t, err)
}
