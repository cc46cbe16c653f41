package wasapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi/internal/engine/enginetest"
)

var (
	stereo16 = NewWaveFormat(16, 16, SampleTypeInt, 48000, 2)
	stereo24 = NewWaveFormat(24, 24, SampleTypeInt, 44100, 2)
)

// useFakeBackend swaps the package backend for a scripted one for the duration of the test.
func useFakeBackend(t *testing.T) *enginetest.Backend {
	t.Helper()

	fake := enginetest.NewBackend()
	prev := backend
	backend = fake
	t.Cleanup(func() { backend = prev })

	return fake
}

// newTestClient returns an unbound client on a device of direction dir.
func newTestClient(dir Direction) (*AudioClient, *enginetest.Client) {
	fc := enginetest.NewClient()

	return newAudioClient(fc, dir, false), fc
}

// newInitializedTestClient returns a client initialized with stereo16 in mode.
func newInitializedTestClient(t *testing.T, dir Direction, mode StreamMode) (*AudioClient, *enginetest.Client) {
	t.Helper()

	c, fc := newTestClient(dir)
	require.NoError(t, c.Initialize(stereo16, dir, mode))

	return c, fc
}

func mustMarshal(w WaveFormat) []byte {
	b, _ := w.MarshalBinary()

	return b
}
