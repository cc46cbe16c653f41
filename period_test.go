package wasapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriod100ns(t *testing.T) {
	assert.Equal(t, int64(100000), Period100ns(480, 48000))
	assert.Equal(t, int64(14512), Period100ns(64, 44100))
	assert.Equal(t, int64(480), PeriodFrames(100000, 48000))
}

func TestAlignedPeriodNear(t *testing.T) {
	testCases := []struct {
		name       string
		format     WaveFormat
		desired    int64
		minPeriod  int64
		alignBytes int
		want       int64
	}{
		// 24 bit stereo frames are 6 bytes; lcm(6, 128) = 384 bytes = 64 frames.
		{"below minimum clamps to one segment", stereo24, 150, 450, 128, 14512},
		{"frame aligned only", stereo16, 100000, 30000, 0, 100000},
		{"already aligned", stereo16, 100000, 30000, 128, 100000},
		{"rounded up to next segment", stereo16, 101000, 30000, 128, 106667},
		{"minimum dominates", stereo16, 1000, 30000, 128, 33333},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := alignedPeriodNear(tc.desired, tc.minPeriod, tc.alignBytes, tc.format)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, tc.minPeriod)

			if tc.alignBytes > 0 {
				frames := PeriodFrames(got, tc.format.SampleRate())
				assert.Zero(t, frames*int64(tc.format.BlockAlign())%int64(tc.alignBytes), "period must be byte aligned")
			}
		})
	}
}

func TestCalculateAlignedPeriodNear(t *testing.T) {
	c, fc := newTestClient(Render)
	fc.MinPeriod = 450

	period, err := c.CalculateAlignedPeriodNear(150, 128, stereo24)
	require.NoError(t, err)
	assert.Equal(t, int64(14512), period)
}
