package wasapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi/internal/engine"
	"github.com/gen2brain/wasapi/internal/engine/enginetest"
)

func newTestDevices(t *testing.T) *enginetest.Backend {
	t.Helper()

	fake := useFakeBackend(t)
	fake.AddDevice(enginetest.NewDevice("{0.0.0.00000000}.{speakers}", "Speakers (Realtek Audio)", engine.FlowRender))
	fake.AddDevice(enginetest.NewDevice("{0.0.0.00000000}.{hdmi}", "HDMI Output", engine.FlowRender))
	fake.AddDevice(enginetest.NewDevice("{0.0.1.00000000}.{mic}", "Microphone (USB)", engine.FlowCapture))

	disabled := enginetest.NewDevice("{0.0.1.00000000}.{line}", "Line In", engine.FlowCapture)
	disabled.StateValue = 2
	fake.AddDevice(disabled)

	return fake
}

func TestDevices(t *testing.T) {
	newTestDevices(t)

	render, err := Devices(Render)
	require.NoError(t, err)
	defer render.Close()

	assert.Equal(t, Render, render.Direction())
	assert.Equal(t, 2, render.Len())
	assert.Len(t, render.All(), 2)

	d, err := render.Device(1)
	require.NoError(t, err)
	name, err := d.Name()
	require.NoError(t, err)
	assert.Equal(t, "HDMI Output", name)

	_, err = render.Device(2)
	assert.Error(t, err)
	_, err = render.Device(-1)
	assert.Error(t, err)

	d, err = render.DeviceByName("speakers (realtek audio)")
	require.NoError(t, err)
	id, err := d.ID()
	require.NoError(t, err)
	assert.Equal(t, "{0.0.0.00000000}.{speakers}", id)

	_, err = render.DeviceByName("Headphones")
	var nf *DeviceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Headphones", nf.Name)

	capture, err := Devices(Capture)
	require.NoError(t, err)
	assert.Equal(t, 1, capture.Len(), "only active devices are listed")
	require.NoError(t, capture.Close())
	assert.Zero(t, capture.Len())
}

func TestDefaultDevice(t *testing.T) {
	newTestDevices(t)

	d, err := DefaultDevice(Capture)
	require.NoError(t, err)
	assert.Equal(t, Capture, d.Direction())
	assert.Equal(t, "Microphone (USB) [Capture]", d.String())

	desc, err := d.Description()
	require.NoError(t, err)
	assert.Equal(t, "Microphone (USB)", desc)

	state, err := d.State()
	require.NoError(t, err)
	assert.Equal(t, DeviceStateActive, state)

	_, err = DefaultDeviceForRole(Render, Role(9))
	var ie *IllegalEnumError
	assert.ErrorAs(t, err, &ie)

	useFakeBackend(t)
	_, err = DefaultDevice(Render)
	assert.ErrorIs(t, err, enginetest.ErrNotFound)
}

func TestDeviceByID(t *testing.T) {
	newTestDevices(t)

	d, err := DeviceByID("{0.0.1.00000000}.{line}")
	require.NoError(t, err)
	assert.Equal(t, Capture, d.Direction())

	state, err := d.State()
	require.NoError(t, err)
	assert.Equal(t, DeviceStateDisabled, state)

	_, err = DeviceByID("{missing}")
	var nf *DeviceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "{missing}", nf.Name)
}

func TestDeviceIllegalState(t *testing.T) {
	fake := useFakeBackend(t)
	dev := fake.AddDevice(enginetest.NewDevice("odd", "Odd", engine.FlowRender))
	dev.StateValue = 3

	d, err := DeviceByID("odd")
	require.NoError(t, err)

	_, err = d.State()
	var ie *IllegalEnumError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, uint32(3), ie.Value)
}

func TestNewInitializedClientAlignmentRetry(t *testing.T) {
	fake := useFakeBackend(t)
	dev := fake.AddDevice(enginetest.NewDevice("usb", "USB DAC", engine.FlowRender))
	dev.NewClient = func() *enginetest.Client {
		c := enginetest.NewClient()
		if len(dev.Clients) == 0 {
			c.InitializeErrs = []error{AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED}
			c.BufferFrames = 1056
		}

		return c
	}

	d, err := DefaultDevice(Render)
	require.NoError(t, err)

	c, err := NewInitializedClient(d, stereo16, Render, EventsExclusive(100000))
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.IsInitialized())

	require.Len(t, dev.Clients, 2)
	assert.True(t, dev.Clients[0].Closed, "the rejected client must be released")
	assert.Equal(t, int64(100000), dev.Clients[0].InitCalls[0].Period)

	retry := dev.Clients[1].InitCalls
	require.Len(t, retry, 1)
	assert.Equal(t, int64(220000), retry[0].Period)
	assert.Equal(t, int64(220000), retry[0].BufferDuration)
}

func TestNewInitializedClientSharedRetry(t *testing.T) {
	fake := useFakeBackend(t)
	dev := fake.AddDevice(enginetest.NewDevice("usb", "USB DAC", engine.FlowRender))
	dev.NewClient = func() *enginetest.Client {
		c := enginetest.NewClient()
		if len(dev.Clients) == 0 {
			c.InitializeErrs = []error{AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED}
			c.BufferFrames = 1056
		}

		return c
	}

	d, err := DefaultDevice(Render)
	require.NoError(t, err)

	c, err := NewInitializedClient(d, stereo16, Render, EventsShared(false, 100000))
	require.NoError(t, err)
	defer c.Close()

	retry := dev.Clients[1].InitCalls[0]
	assert.Equal(t, int64(220000), retry.BufferDuration)
	assert.Zero(t, retry.Period)
}

func TestNewInitializedClientError(t *testing.T) {
	fake := useFakeBackend(t)
	dev := fake.AddDevice(enginetest.NewDevice("usb", "USB DAC", engine.FlowRender))
	dev.NewClient = func() *enginetest.Client {
		c := enginetest.NewClient()
		c.InitializeErrs = []error{AUDCLNT_E_DEVICE_IN_USE}

		return c
	}

	d, err := DefaultDevice(Render)
	require.NoError(t, err)

	_, err = NewInitializedClient(d, stereo16, Render, EventsExclusive(100000))
	assert.ErrorIs(t, err, AUDCLNT_E_DEVICE_IN_USE)
	require.Len(t, dev.Clients, 1, "only alignment errors are retried")
	assert.True(t, dev.Clients[0].Closed)

	_, err = NewInitializedClient(d, stereo16, Capture, EventsExclusive(100000))
	assert.ErrorIs(t, err, ErrInvalidModeCombination)
}
