package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gen2brain/wasapi"
)

// Default configuration values.
const (
	DefaultBufferDuration = "50ms"
	DefaultSampleRate     = 48000
	DefaultChannels       = 2
	DefaultBits           = 16
	DefaultRecordDuration = "10s"
	DefaultRingDuration   = "250ms"
	DefaultLogLevel       = "info"
)

// Config represents the profile of the wasapi tool.
type Config struct {
	Stream   StreamConfig   `toml:"stream"`
	Format   FormatConfig   `toml:"format"`
	Record   RecordConfig   `toml:"record"`
	Loopback LoopbackConfig `toml:"loopback"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// StreamConfig holds the stream mode options shared by all streaming commands.
type StreamConfig struct {
	Device      string `toml:"device"` // Friendly name, empty selects the default device
	Exclusive   bool   `toml:"exclusive"`
	Events      bool   `toml:"events"`
	AutoConvert bool   `toml:"autoconvert"` // Shared mode only
	// Buffer is the buffer duration in shared mode and the period in exclusive mode.
	// Zero in exclusive mode selects the aligned default device period.
	Buffer string `toml:"buffer"`
}

// FormatConfig describes the sample format used for recording and generated signals.
type FormatConfig struct {
	Rate     int  `toml:"rate"`
	Channels int  `toml:"channels"`
	Bits     int  `toml:"bits"`
	Float    bool `toml:"float"`
}

// RecordConfig holds record options.
type RecordConfig struct {
	Duration string `toml:"duration"` // 0 records until interrupted
}

// LoopbackConfig holds options of the loopback command.
type LoopbackConfig struct {
	Ring string `toml:"ring"` // Amount of audio the ring buffer holds
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level"`
}

// MetricsConfig holds the metrics endpoint options.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Stream: StreamConfig{
			Events:      true,
			AutoConvert: true,
			Buffer:      DefaultBufferDuration,
		},
		Format: FormatConfig{
			Rate:     DefaultSampleRate,
			Channels: DefaultChannels,
			Bits:     DefaultBits,
		},
		Record: RecordConfig{
			Duration: DefaultRecordDuration,
		},
		Loopback: LoopbackConfig{
			Ring: DefaultRingDuration,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "wasapi", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// parseDuration parses s, treating an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}

	return d, nil
}

// to100ns converts d into the 100 ns units used for buffer durations and periods.
func to100ns(d time.Duration) int64 {
	return d.Nanoseconds() / 100
}

// Mode returns the stream mode described by the config.
func (s StreamConfig) Mode() (wasapi.StreamMode, error) {
	d, err := parseDuration(s.Buffer)
	if err != nil {
		return wasapi.StreamMode{}, fmt.Errorf("invalid buffer duration: %w", err)
	}

	switch {
	case s.Exclusive && s.Events:
		return wasapi.EventsExclusive(to100ns(d)), nil
	case s.Exclusive:
		return wasapi.PollingExclusive(to100ns(d)), nil
	case s.Events:
		return wasapi.EventsShared(s.AutoConvert, to100ns(d)), nil
	default:
		return wasapi.PollingShared(s.AutoConvert, to100ns(d)), nil
	}
}

// WaveFormat returns the sample format described by the config.
func (f FormatConfig) WaveFormat() (wasapi.WaveFormat, error) {
	if f.Rate <= 0 || f.Channels <= 0 {
		return wasapi.WaveFormat{}, fmt.Errorf("invalid format: %d Hz, %d channels", f.Rate, f.Channels)
	}

	if f.Float {
		if f.Bits != 32 && f.Bits != 64 {
			return wasapi.WaveFormat{}, fmt.Errorf("unsupported float bit depth: %d", f.Bits)
		}

		return wasapi.NewWaveFormat(f.Bits, f.Bits, wasapi.SampleTypeFloat, f.Rate, f.Channels), nil
	}

	switch f.Bits {
	case 8, 16, 24, 32:
		return wasapi.NewWaveFormat(f.Bits, f.Bits, wasapi.SampleTypeInt, f.Rate, f.Channels), nil
	default:
		return wasapi.WaveFormat{}, fmt.Errorf("unsupported integer bit depth: %d", f.Bits)
	}
}
