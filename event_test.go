package wasapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHandle(t *testing.T) {
	fake := useFakeBackend(t)
	c, fc := newInitializedTestClient(t, Render, EventsShared(false, 100000))

	h, err := c.SetGetEventHandle()
	require.NoError(t, err)
	require.NotNil(t, fake.LastEvent())
	assert.Equal(t, fake.LastEvent(), fc.Event)

	fake.LastEvent().Signal()
	assert.NoError(t, h.Wait(100))

	assert.ErrorIs(t, h.Wait(10), ErrEventTimeout)

	require.NoError(t, h.Close())
	assert.Error(t, h.Wait(10))
	assert.NoError(t, h.Close())
}

func TestEventHandleNotInitialized(t *testing.T) {
	useFakeBackend(t)
	c, _ := newTestClient(Render)

	_, err := c.SetGetEventHandle()
	assert.ErrorIs(t, err, ErrClientNotInit)
}
