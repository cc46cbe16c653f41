package wasapi

import (
	"fmt"

	"github.com/gen2brain/wasapi/internal/engine"
)

// EventHandle is the event the engine signals in the Events timing mode.
type EventHandle struct {
	event engine.Event
}

// Wait blocks until the event is signaled or timeoutMs milliseconds elapsed, in which case it
// returns ErrEventTimeout. Streaming loops use the timeout to check for shutdown.
func (h *EventHandle) Wait(timeoutMs uint32) error {
	if h == nil || h.event == nil {
		return fmt.Errorf("event handle is nil")
	}

	signaled, err := h.event.Wait(timeoutMs)
	if err != nil {
		return err
	}

	if !signaled {
		eventTimeoutsTotal.Inc()

		return ErrEventTimeout
	}

	return nil
}

// Close closes the event. The client must not be running.
func (h *EventHandle) Close() error {
	if h == nil || h.event == nil {
		return nil
	}

	err := h.event.Close()
	h.event = nil

	return err
}
