package wasapi

import "math"

// Period100ns converts a number of frames at sampleRate into 100 ns units.
func Period100ns(frames int64, sampleRate int) int64 {
	return int64(10000000.0/float64(sampleRate)*float64(frames) + 0.5)
}

// PeriodFrames converts a duration in 100 ns units into the nearest number of frames at sampleRate.
func PeriodFrames(period int64, sampleRate int) int64 {
	return int64(math.Round(float64(period) * float64(sampleRate) / 10000000.0))
}

// alignedPeriodNear returns the period closest to desired that is a whole number of alignment
// segments and not shorter than minPeriod. A segment is the smallest frame count whose byte size
// is a multiple of both the block align and alignBytes. alignBytes <= 0 aligns to whole frames.
func alignedPeriodNear(desired, minPeriod int64, alignBytes int, format WaveFormat) int64 {
	blockAlign := format.BlockAlign()
	rate := format.SampleRate()
	adjusted := max(desired, minPeriod)
	if blockAlign <= 0 || rate <= 0 {
		return adjusted
	}

	if alignBytes <= 0 {
		alignBytes = blockAlign
	}
	segmentFrames := int64(lcm(blockAlign, alignBytes) / blockAlign)

	desiredFrames := PeriodFrames(adjusted, rate)
	minFrames := int64(math.Ceil(float64(minPeriod) * float64(rate) / 10000000.0))

	segments := ceilDiv(desiredFrames, segmentFrames)
	if segments*segmentFrames < minFrames {
		segments = ceilDiv(minFrames, segmentFrames)
	}
	if segments < 1 {
		segments = 1
	}

	return Period100ns(segments*segmentFrames, rate)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
