//go:build windows

package engine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// comSession wraps IAudioSessionControl.
type comSession struct {
	obj    uintptr
	volume uintptr // ISimpleAudioVolume, may be 0
}

func (s *comSession) State() (uint32, error) {
	var state uint32
	if err := comCall(s.obj, 3, uintptr(unsafe.Pointer(&state))).Err(); err != nil {
		return 0, err
	}

	return state, nil
}

func (s *comSession) DisplayName() (string, error) {
	var p *uint16
	if err := comCall(s.obj, 4, uintptr(unsafe.Pointer(&p))).Err(); err != nil {
		return "", err
	}

	return coTaskString(p), nil
}

func (s *comSession) IconPath() (string, error) {
	var p *uint16
	if err := comCall(s.obj, 6, uintptr(unsafe.Pointer(&p))).Err(); err != nil {
		return "", err
	}

	return coTaskString(p), nil
}

func (s *comSession) GroupingParam() (GUID, error) {
	var g GUID
	if err := comCall(s.obj, 8, uintptr(unsafe.Pointer(&g))).Err(); err != nil {
		return GUID{}, err
	}

	return g, nil
}

func (s *comSession) Register(events SessionEvents) (Registration, error) {
	sink := newSessionSink(events, s.volume)
	liveSinks.Store(sink, struct{}{})

	if err := comCall(s.obj, 10, uintptr(unsafe.Pointer(sink))).Err(); err != nil {
		liveSinks.Delete(sink)

		return nil, fmt.Errorf("RegisterAudioSessionNotification failed: %w", err)
	}
	comCall(s.obj, 1) // AddRef, released by Unregister

	return &comRegistration{session: s.obj, sink: sink}, nil
}

func (s *comSession) Close() error {
	comRelease(s.volume)
	comRelease(s.obj)
	s.volume, s.obj = 0, 0

	return nil
}

// comRegistration undoes a RegisterAudioSessionNotification.
type comRegistration struct {
	once    sync.Once
	session uintptr
	sink    *sessionSink
	err     error
}

func (r *comRegistration) Unregister() error {
	r.once.Do(func() {
		if err := comCall(r.session, 11, uintptr(unsafe.Pointer(r.sink))).Err(); err != nil {
			r.err = fmt.Errorf("UnregisterAudioSessionNotification failed: %w", err)
		}

		// The engine may still be inside a callback; wait for it and block later ones.
		r.sink.mu.Lock()
		r.sink.closed = true
		r.sink.mu.Unlock()

		comRelease(r.session)
		liveSinks.Delete(r.sink)
	})

	return r.err
}

// sessionEventsVtbl is the IAudioSessionEvents method table.
type sessionEventsVtbl struct {
	QueryInterface         uintptr
	AddRef                 uintptr
	Release                uintptr
	OnDisplayNameChanged   uintptr
	OnIconPathChanged      uintptr
	OnSimpleVolumeChanged  uintptr
	OnChannelVolumeChanged uintptr
	OnGroupingParamChanged uintptr
	OnStateChanged         uintptr
	OnSessionDisconnected  uintptr
}

// sessionSink is a Go allocated COM object implementing IAudioSessionEvents.
type sessionSink struct {
	vtbl   *sessionEventsVtbl // must stay the first field
	refs   atomic.Int32
	events SessionEvents
	volume uintptr

	mu     sync.RWMutex
	closed bool
}

var (
	sessionVtblOnce sync.Once
	sessionVtbl     *sessionEventsVtbl

	// liveSinks keeps registered sinks reachable while the engine holds raw pointers to them.
	liveSinks sync.Map
)

func newSessionSink(events SessionEvents, volume uintptr) *sessionSink {
	// NewCallback slots are a finite process resource, so the table is built once.
	sessionVtblOnce.Do(func() {
		sessionVtbl = &sessionEventsVtbl{
			QueryInterface:         syscall.NewCallback(sessionQueryInterface),
			AddRef:                 syscall.NewCallback(sessionAddRef),
			Release:                syscall.NewCallback(sessionRelease),
			OnDisplayNameChanged:   syscall.NewCallback(sessionOnDisplayNameChanged),
			OnIconPathChanged:      syscall.NewCallback(sessionOnIconPathChanged),
			OnSimpleVolumeChanged:  syscall.NewCallback(sessionOnSimpleVolumeChanged),
			OnChannelVolumeChanged: syscall.NewCallback(sessionOnChannelVolumeChanged),
			OnGroupingParamChanged: syscall.NewCallback(sessionOnGroupingParamChanged),
			OnStateChanged:         syscall.NewCallback(sessionOnStateChanged),
			OnSessionDisconnected:  syscall.NewCallback(sessionOnSessionDisconnected),
		}
	})

	sink := &sessionSink{vtbl: sessionVtbl, events: events, volume: volume}
	sink.refs.Store(1)

	return sink
}

func sinkFrom(this uintptr) *sessionSink {
	return (*sessionSink)(unsafe.Pointer(this))
}

// dispatch runs fn unless the registration has been closed.
func (s *sessionSink) dispatch(fn func(SessionEvents)) uintptr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.closed {
		fn(s.events)
	}

	return uintptr(S_OK)
}

func guidAt(p uintptr) GUID {
	if p == 0 {
		return GUID{}
	}

	return *(*GUID)(unsafe.Pointer(p))
}

func sessionQueryInterface(this, riid, ppv uintptr) uintptr {
	iid := guidAt(riid)
	if iid != iidIUnknown && iid != iidIAudioSessionEvents {
		*(*uintptr)(unsafe.Pointer(ppv)) = 0

		return uintptr(E_NOINTERFACE)
	}
	*(*uintptr)(unsafe.Pointer(ppv)) = this
	sinkFrom(this).refs.Add(1)

	return uintptr(S_OK)
}

func sessionAddRef(this uintptr) uintptr {
	return uintptr(sinkFrom(this).refs.Add(1))
}

func sessionRelease(this uintptr) uintptr {
	return uintptr(sinkFrom(this).refs.Add(-1))
}

func sessionOnDisplayNameChanged(this, name, ctx uintptr) uintptr {
	s := windows.UTF16PtrToString((*uint16)(unsafe.Pointer(name)))

	return sinkFrom(this).dispatch(func(ev SessionEvents) { ev.OnDisplayNameChanged(s, guidAt(ctx)) })
}

func sessionOnIconPathChanged(this, path, ctx uintptr) uintptr {
	s := windows.UTF16PtrToString((*uint16)(unsafe.Pointer(path)))

	return sinkFrom(this).dispatch(func(ev SessionEvents) { ev.OnIconPathChanged(s, guidAt(ctx)) })
}

func sessionOnSimpleVolumeChanged(this, volume, mute, ctx uintptr) uintptr {
	sink := sinkFrom(this)

	// On 64-bit targets the float arrives in an XMM register that the callback
	// trampoline does not capture, so the level is read back from the session.
	level := math.Float32frombits(uint32(volume))
	if unsafe.Sizeof(uintptr(0)) == 8 {
		level = 0
		if sink.volume != 0 {
			comCall(sink.volume, 4, uintptr(unsafe.Pointer(&level)))
		}
	}

	return sink.dispatch(func(ev SessionEvents) { ev.OnSimpleVolumeChanged(level, mute != 0, guidAt(ctx)) })
}

func sessionOnChannelVolumeChanged(this, count, volumes, changed, ctx uintptr) uintptr {
	levels := make([]float32, count)
	if count > 0 && volumes != 0 {
		copy(levels, unsafe.Slice((*float32)(unsafe.Pointer(volumes)), count))
	}

	return sinkFrom(this).dispatch(func(ev SessionEvents) { ev.OnChannelVolumeChanged(levels, uint32(changed), guidAt(ctx)) })
}

func sessionOnGroupingParamChanged(this, param, ctx uintptr) uintptr {
	return sinkFrom(this).dispatch(func(ev SessionEvents) { ev.OnGroupingParamChanged(guidAt(param), guidAt(ctx)) })
}

func sessionOnStateChanged(this, state uintptr) uintptr {
	return sinkFrom(this).dispatch(func(ev SessionEvents) { ev.OnStateChanged(uint32(state)) })
}

func sessionOnSessionDisconnected(this, reason uintptr) uintptr {
	return sinkFrom(this).dispatch(func(ev SessionEvents) { ev.OnSessionDisconnected(uint32(reason)) })
}
