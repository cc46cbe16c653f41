package wasapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/wasapi/internal/engine"
)

func TestApplicationLoopbackClient(t *testing.T) {
	fake := useFakeBackend(t)

	c, err := NewApplicationLoopbackClient(4242, true)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, uint32(4242), fake.LoopbackPID)
	assert.True(t, fake.LoopbackTree)
	assert.True(t, c.IsProcessLoopback())
	assert.Equal(t, Render, c.Direction())

	err = c.Initialize(stereo16, Capture, EventsExclusive(100000))
	assert.ErrorIs(t, err, ErrLoopbackWithExclusiveMode)

	require.NoError(t, c.Initialize(stereo16, Capture, EventsShared(true, 0)))

	calls := fake.LoopbackClient.InitCalls
	require.Len(t, calls, 1)
	assert.Equal(t, uint32(engine.ShareModeShared), calls[0].ShareMode)
	assert.Equal(t, uint32(engine.StreamFlagsLoopback|engine.StreamFlagsEventCallback|
		engine.StreamFlagsAutoConvertPCM|engine.StreamFlagsSrcDefaultQuality), calls[0].Flags)
}

func TestApplicationLoopbackClientError(t *testing.T) {
	fake := useFakeBackend(t)
	fake.LoopbackErr = E_NOINTERFACE

	_, err := NewApplicationLoopbackClient(1, false)
	assert.ErrorIs(t, err, E_NOINTERFACE)
	assert.False(t, fake.LoopbackTree)
}
