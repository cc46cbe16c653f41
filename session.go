package wasapi

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gen2brain/wasapi/internal/engine"
)

// SessionControl controls the audio session of a stream.
type SessionControl struct {
	session engine.Session
	log     zerolog.Logger
}

func sessionStateFromCode(code uint32) (SessionState, error) {
	if code > uint32(SessionStateExpired) {
		return 0, &IllegalEnumError{Kind: "session state", Value: code}
	}

	return SessionState(code), nil
}

// State returns the current session state.
func (s *SessionControl) State() (SessionState, error) {
	code, err := s.session.State()
	if err != nil {
		return 0, fmt.Errorf("IAudioSessionControl::GetState failed: %w", err)
	}

	return sessionStateFromCode(code)
}

// DisplayName returns the display name of the session, often empty.
func (s *SessionControl) DisplayName() (string, error) {
	name, err := s.session.DisplayName()
	if err != nil {
		return "", fmt.Errorf("IAudioSessionControl::GetDisplayName failed: %w", err)
	}

	return name, nil
}

// IconPath returns the icon resource path of the session.
func (s *SessionControl) IconPath() (string, error) {
	path, err := s.session.IconPath()
	if err != nil {
		return "", fmt.Errorf("IAudioSessionControl::GetIconPath failed: %w", err)
	}

	return path, nil
}

// GroupingParam returns the grouping parameter of the session.
func (s *SessionControl) GroupingParam() (GUID, error) {
	g, err := s.session.GroupingParam()
	if err != nil {
		return GUID{}, fmt.Errorf("IAudioSessionControl::GetGroupingParam failed: %w", err)
	}

	return g, nil
}

// RegisterSessionNotification starts delivering session notifications to callbacks.
// Notifications run on a thread owned by the engine; callbacks that share state with the
// streaming goroutine must synchronize it themselves. Delivery stops when the returned
// registration is closed.
func (s *SessionControl) RegisterSessionNotification(callbacks *EventCallbacks) (*EventRegistration, error) {
	if callbacks == nil {
		return nil, fmt.Errorf("callbacks are nil")
	}

	r := &EventRegistration{callbacks: callbacks, log: s.log}
	reg, err := s.session.Register(sessionSink{r: r})
	if err != nil {
		return nil, &RegistrationError{Err: err}
	}
	r.registration = reg
	s.log.Debug().Msg("registered session notifications")

	return r, nil
}

// Close releases the session control. Registrations must be closed first.
func (s *SessionControl) Close() error {
	if s == nil || s.session == nil {
		return nil
	}

	err := s.session.Close()
	s.session = nil

	return err
}

// EventCallbacks holds the handlers for session notifications. Each handler can be set and
// unset at any time, also while registered.
type EventCallbacks struct {
	mu sync.RWMutex

	simpleVolume  func(volume float32, mute bool, ctx GUID)
	channelVolume func(volumes []float32, changed uint32, ctx GUID)
	state         func(state SessionState)
	disconnected  func(reason DisconnectReason)
	iconPath      func(path string, ctx GUID)
	displayName   func(name string, ctx GUID)
	groupingParam func(param GUID, ctx GUID)
}

// NewEventCallbacks returns an empty set of callbacks.
func NewEventCallbacks() *EventCallbacks {
	return &EventCallbacks{}
}

// SetSimpleVolumeCallback sets the handler for master volume and mute changes.
func (e *EventCallbacks) SetSimpleVolumeCallback(fn func(volume float32, mute bool, ctx GUID)) {
	e.mu.Lock()
	e.simpleVolume = fn
	e.mu.Unlock()
}

// UnsetSimpleVolumeCallback removes the master volume handler.
func (e *EventCallbacks) UnsetSimpleVolumeCallback() {
	e.SetSimpleVolumeCallback(nil)
}

// SetChannelVolumeCallback sets the handler for channel volume changes. changed is the index
// of the changed channel, or 0xFFFFFFFF if several changed.
func (e *EventCallbacks) SetChannelVolumeCallback(fn func(volumes []float32, changed uint32, ctx GUID)) {
	e.mu.Lock()
	e.channelVolume = fn
	e.mu.Unlock()
}

// UnsetChannelVolumeCallback removes the channel volume handler.
func (e *EventCallbacks) UnsetChannelVolumeCallback() {
	e.SetChannelVolumeCallback(nil)
}

// SetStateCallback sets the handler for session state changes.
func (e *EventCallbacks) SetStateCallback(fn func(state SessionState)) {
	e.mu.Lock()
	e.state = fn
	e.mu.Unlock()
}

// UnsetStateCallback removes the session state handler.
func (e *EventCallbacks) UnsetStateCallback() {
	e.SetStateCallback(nil)
}

// SetDisconnectedCallback sets the handler for session disconnects.
func (e *EventCallbacks) SetDisconnectedCallback(fn func(reason DisconnectReason)) {
	e.mu.Lock()
	e.disconnected = fn
	e.mu.Unlock()
}

// UnsetDisconnectedCallback removes the disconnect handler.
func (e *EventCallbacks) UnsetDisconnectedCallback() {
	e.SetDisconnectedCallback(nil)
}

// SetIconPathCallback sets the handler for icon path changes.
func (e *EventCallbacks) SetIconPathCallback(fn func(path string, ctx GUID)) {
	e.mu.Lock()
	e.iconPath = fn
	e.mu.Unlock()
}

// UnsetIconPathCallback removes the icon path handler.
func (e *EventCallbacks) UnsetIconPathCallback() {
	e.SetIconPathCallback(nil)
}

// SetDisplayNameCallback sets the handler for display name changes.
func (e *EventCallbacks) SetDisplayNameCallback(fn func(name string, ctx GUID)) {
	e.mu.Lock()
	e.displayName = fn
	e.mu.Unlock()
}

// UnsetDisplayNameCallback removes the display name handler.
func (e *EventCallbacks) UnsetDisplayNameCallback() {
	e.SetDisplayNameCallback(nil)
}

// SetGroupingParamCallback sets the handler for grouping parameter changes.
func (e *EventCallbacks) SetGroupingParamCallback(fn func(param GUID, ctx GUID)) {
	e.mu.Lock()
	e.groupingParam = fn
	e.mu.Unlock()
}

// UnsetGroupingParamCallback removes the grouping parameter handler.
func (e *EventCallbacks) UnsetGroupingParamCallback() {
	e.SetGroupingParamCallback(nil)
}

// EventRegistration is an active session notification registration.
type EventRegistration struct {
	// mu is held for reading while a notification is dispatched.
	mu     sync.RWMutex
	closed bool

	callbacks    *EventCallbacks
	registration engine.Registration
	log          zerolog.Logger
}

// Close unregisters the callbacks. It waits for a notification that is being delivered to
// return, and no callback runs after Close returned, even for notifications the engine had
// already queued. Close must not be called from inside one of the callbacks.
func (r *EventRegistration) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.registration.Unregister(); err != nil {
		return fmt.Errorf("failed to unregister session notifications: %w", err)
	}
	r.log.Debug().Msg("unregistered session notifications")

	return nil
}

// dispatch runs fn with the callbacks unless the registration was closed.
func (r *EventRegistration) dispatch(event string, fn func(cb *EventCallbacks)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	sessionEventsTotal.WithLabelValues(event).Inc()
	r.log.Trace().Str("event", event).Msg("session notification")

	fn(r.callbacks)
}

// sessionSink adapts a registration to the engine notification interface.
type sessionSink struct {
	r *EventRegistration
}

func (s sessionSink) OnDisplayNameChanged(name string, ctx engine.GUID) {
	s.r.dispatch("display_name", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.displayName
		cb.mu.RUnlock()
		if fn != nil {
			fn(name, ctx)
		}
	})
}

func (s sessionSink) OnIconPathChanged(path string, ctx engine.GUID) {
	s.r.dispatch("icon_path", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.iconPath
		cb.mu.RUnlock()
		if fn != nil {
			fn(path, ctx)
		}
	})
}

func (s sessionSink) OnSimpleVolumeChanged(volume float32, mute bool, ctx engine.GUID) {
	s.r.dispatch("simple_volume", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.simpleVolume
		cb.mu.RUnlock()
		if fn != nil {
			fn(volume, mute, ctx)
		}
	})
}

func (s sessionSink) OnChannelVolumeChanged(volumes []float32, changed uint32, ctx engine.GUID) {
	s.r.dispatch("channel_volume", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.channelVolume
		cb.mu.RUnlock()
		if fn != nil {
			fn(volumes, changed, ctx)
		}
	})
}

func (s sessionSink) OnGroupingParamChanged(param, ctx engine.GUID) {
	s.r.dispatch("grouping_param", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.groupingParam
		cb.mu.RUnlock()
		if fn != nil {
			fn(param, ctx)
		}
	})
}

func (s sessionSink) OnStateChanged(code uint32) {
	state, err := sessionStateFromCode(code)
	if err != nil {
		s.r.log.Warn().Uint32("state", code).Msg("ignoring unknown session state")

		return
	}

	s.r.dispatch("state", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.state
		cb.mu.RUnlock()
		if fn != nil {
			fn(state)
		}
	})
}

func (s sessionSink) OnSessionDisconnected(code uint32) {
	reason := disconnectReasonFromCode(code)

	s.r.dispatch("disconnected", func(cb *EventCallbacks) {
		cb.mu.RLock()
		fn := cb.disconnected
		cb.mu.RUnlock()
		if fn != nil {
			fn(reason)
		}
	})
}
