package wasapi

import (
	"fmt"

	"github.com/gen2brain/wasapi/internal/engine"
)

// AudioClock reports the position of a stream.
type AudioClock struct {
	clock engine.Clock
}

// Frequency returns the number of position units per second.
func (c *AudioClock) Frequency() (uint64, error) {
	freq, err := c.clock.Frequency()
	if err != nil {
		return 0, fmt.Errorf("IAudioClock::GetFrequency failed: %w", err)
	}

	return freq, nil
}

// Position returns the stream position in Frequency units, and the performance counter value
// in 100 ns units at which it was sampled.
func (c *AudioClock) Position() (pos, qpc uint64, err error) {
	pos, qpc, err = c.clock.Position()
	if err != nil {
		return 0, 0, fmt.Errorf("IAudioClock::GetPosition failed: %w", err)
	}

	return pos, qpc, nil
}

// Close releases the clock.
func (c *AudioClock) Close() error {
	if c == nil || c.clock == nil {
		return nil
	}

	err := c.clock.Close()
	c.clock = nil

	return err
}
