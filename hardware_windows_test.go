//go:build windows

package wasapi_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi"
)

// requireHardware skips tests that need a real audio endpoint unless WASAPI_HW_TESTS=1.
func requireHardware(t *testing.T) {
	t.Helper()

	if os.Getenv("WASAPI_HW_TESTS") != "1" {
		t.Skip("set WASAPI_HW_TESTS=1 to run tests against the audio devices of this machine")
	}

	require.NoError(t, wasapi.InitializeMTA())
	t.Cleanup(wasapi.Deinitialize)
}

// TestHardware runs all hardware-related tests sequentially.
func TestHardware(t *testing.T) {
	requireHardware(t)

	t.Run("Enumerate", testEnumerate)
	t.Run("MixFormat", testMixFormat)
	t.Run("RenderSilence", testRenderSilence)
	t.Run("LoopbackCapture", testLoopbackCapture)
	t.Run("Session", testSession)
	t.Run("ExclusiveQuirks", testExclusiveQuirks)
}

func testEnumerate(t *testing.T) {
	for _, dir := range []wasapi.Direction{wasapi.Render, wasapi.Capture} {
		devices, err := wasapi.Devices(dir)
		require.NoError(t, err)

		for _, d := range devices.All() {
			name, err := d.Name()
			require.NoError(t, err)
			assert.NotEmpty(t, name)

			id, err := d.ID()
			require.NoError(t, err)

			byID, err := wasapi.DeviceByID(id)
			require.NoError(t, err)
			assert.Equal(t, dir, byID.Direction())
			byID.Close()
		}

		require.NoError(t, devices.Close())
	}
}

func defaultRenderClient(t *testing.T) *wasapi.AudioClient {
	t.Helper()

	d, err := wasapi.DefaultDevice(wasapi.Render)
	if err != nil {
		t.Skipf("no default render device: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	c, err := d.NewAudioClient()
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c
}

func testMixFormat(t *testing.T) {
	c := defaultRenderClient(t)

	mix, err := c.MixFormat()
	require.NoError(t, err)
	assert.NotZero(t, mix.SampleRate())
	assert.NotZero(t, mix.Channels())

	nearest, err := c.IsSupported(mix, wasapi.Shared)
	require.NoError(t, err)
	assert.Nil(t, nearest, "the mix format is always supported in shared mode")

	def, minPeriod, err := c.DevicePeriod()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, def, minPeriod)
}

func testRenderSilence(t *testing.T) {
	c := defaultRenderClient(t)

	format := wasapi.NewWaveFormat(32, 32, wasapi.SampleTypeFloat, 48000, 2)
	require.NoError(t, c.Initialize(format, wasapi.Render, wasapi.EventsShared(true, 200000)))

	h, err := c.SetGetEventHandle()
	require.NoError(t, err)
	defer h.Close()

	r, err := c.RenderClient()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, c.Start())
	defer c.Stop()

	for i := 0; i < 10; i++ {
		err := h.Wait(1000)
		require.NoError(t, err)

		frames, err := c.AvailableSpace()
		require.NoError(t, err)

		data := make([]byte, int(frames)*r.BytesPerFrame())
		require.NoError(t, r.Write(int(frames), data, wasapi.BufferSilent))
	}
}

func testLoopbackCapture(t *testing.T) {
	c := defaultRenderClient(t)

	mix, err := c.MixFormat()
	require.NoError(t, err)
	require.NoError(t, c.Initialize(mix, wasapi.Capture, wasapi.PollingShared(false, 200000)))

	cc, err := c.CaptureClient()
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, c.Start())
	defer c.Stop()

	frames, ok, err := cc.NextPacketSize()
	require.NoError(t, err)
	require.True(t, ok)

	buf := make([]byte, (int(frames)+1024)*cc.BytesPerFrame())
	_, _, err = cc.Read(buf)
	if errors.Is(err, wasapi.ErrDataLengthTooShort) {
		t.Skipf("packet grew between the size query and the read: %v", err)
	}
	require.NoError(t, err)
}

func testSession(t *testing.T) {
	c := defaultRenderClient(t)

	mix, err := c.MixFormat()
	require.NoError(t, err)
	require.NoError(t, c.Initialize(mix, wasapi.Render, wasapi.PollingShared(false, 200000)))

	s, err := c.SessionControl()
	require.NoError(t, err)
	defer s.Close()

	state, err := s.State()
	require.NoError(t, err)
	assert.Contains(t, []wasapi.SessionState{wasapi.SessionStateInactive, wasapi.SessionStateActive}, state)

	callbacks := wasapi.NewEventCallbacks()
	callbacks.SetStateCallback(func(wasapi.SessionState) {})

	reg, err := s.RegisterSessionNotification(callbacks)
	require.NoError(t, err)

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	require.NoError(t, reg.Close())
}

func testExclusiveQuirks(t *testing.T) {
	c := defaultRenderClient(t)

	for _, bits := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%dbit", bits), func(t *testing.T) {
			format := wasapi.NewWaveFormat(bits, bits, wasapi.SampleTypeInt, 48000, 2)

			accepted, err := c.IsSupportedExclusiveWithQuirks(format)
			if errors.Is(err, wasapi.ErrUnsupportedFormat) {
				t.Skipf("device does not take %s in exclusive mode", format)
			}
			require.NoError(t, err)
			assert.Equal(t, format.SampleRate(), accepted.SampleRate())
		})
	}
}
