// Package engine is the boundary between the wasapi package and the platform audio subsystem.
//
// Every OS resource (enumerator, endpoint, stream client, render and capture services, session
// control, clock, wait event) is an owned handle with an explicit Close. Wave formats cross the
// boundary as the raw little-endian WAVEFORMATEX or WAVEFORMATEXTENSIBLE bytes the OS consumes.
package engine

import "errors"

// ErrUnsupportedPlatform is returned by every constructor on platforms without WASAPI.
var ErrUnsupportedPlatform = errors.New("wasapi is only available on windows")

// Data flow values (EDataFlow).
const (
	FlowRender  uint32 = 0
	FlowCapture uint32 = 1
)

// Endpoint roles (ERole).
const (
	RoleConsole        uint32 = 0
	RoleMultimedia     uint32 = 1
	RoleCommunications uint32 = 2
)

// Share modes (AUDCLNT_SHAREMODE).
const (
	ShareModeShared    uint32 = 0
	ShareModeExclusive uint32 = 1
)

// Stream flags passed to Client.Initialize.
const (
	StreamFlagsLoopback          uint32 = 0x00020000
	StreamFlagsEventCallback     uint32 = 0x00040000
	StreamFlagsSrcDefaultQuality uint32 = 0x08000000
	StreamFlagsAutoConvertPCM    uint32 = 0x80000000
)

// PropertyKey identifies an endpoint property (PROPERTYKEY).
type PropertyKey struct {
	FmtID GUID
	PID   uint32
}

var (
	// PKeyDeviceFriendlyName is the "Speakers (Realtek Audio)" style name.
	PKeyDeviceFriendlyName = PropertyKey{FmtID: MustParseGUID("a45c254e-df1c-4efd-8020-67d146a850e0"), PID: 14}
	// PKeyDeviceDescription is the short "Speakers" style description.
	PKeyDeviceDescription = PropertyKey{FmtID: MustParseGUID("a45c254e-df1c-4efd-8020-67d146a850e0"), PID: 2}
)

// Backend creates the root objects of the audio subsystem.
type Backend interface {
	// Initialize initializes COM on the calling thread.
	Initialize(multithreaded bool) error
	// Uninitialize undoes a successful Initialize on the calling thread.
	Uninitialize()
	// Enumerator returns a new endpoint enumerator.
	Enumerator() (Enumerator, error)
	// NewEvent creates an auto-reset, initially unsignaled event.
	NewEvent() (Event, error)
	// ActivateProcessLoopback activates a client on the process loopback virtual endpoint and
	// blocks until the activation completed.
	ActivateProcessLoopback(pid uint32, includeTree bool) (Client, error)
}

// Enumerator lists endpoints.
type Enumerator interface {
	Devices(flow uint32) ([]Device, error)
	Default(flow, role uint32) (Device, error)
	Device(id string) (Device, error)
	Close() error
}

// Device is an audio endpoint.
type Device interface {
	ID() (string, error)
	Property(key PropertyKey) (string, error)
	State() (uint32, error)
	Flow() (uint32, error)
	Activate() (Client, error)
	Close() error
}

// Client is a stream client (IAudioClient).
type Client interface {
	Initialize(shareMode, flags uint32, bufferDuration, period int64, format []byte) error
	BufferSize() (uint32, error)
	StreamLatency() (int64, error)
	CurrentPadding() (uint32, error)
	// IsFormatSupported returns nil when the format is accepted as is. In shared mode a modified
	// result is reported as S_FALSE together with the closest match.
	IsFormatSupported(shareMode uint32, format []byte) ([]byte, error)
	MixFormat() ([]byte, error)
	DevicePeriod() (def, min int64, err error)
	Start() error
	Stop() error
	Reset() error
	SetEventHandle(ev Event) error
	Renderer() (Renderer, error)
	Capturer() (Capturer, error)
	Session() (Session, error)
	Clock() (Clock, error)
	Close() error
}

// Renderer is the render service (IAudioRenderClient).
type Renderer interface {
	// GetBuffer returns a writable region of frames*blockAlign bytes.
	GetBuffer(frames uint32) ([]byte, error)
	ReleaseBuffer(frames, flags uint32) error
	Close() error
}

// CapturedPacket describes one acquired capture buffer.
type CapturedPacket struct {
	Data           []byte
	Frames         uint32
	Flags          uint32
	DevicePosition uint64
	Timestamp      uint64
}

// Capturer is the capture service (IAudioCaptureClient).
type Capturer interface {
	GetBuffer() (CapturedPacket, error)
	ReleaseBuffer(frames uint32) error
	NextPacketSize() (uint32, error)
	Close() error
}

// SessionEvents receives session notifications on an engine-owned thread.
type SessionEvents interface {
	OnDisplayNameChanged(name string, ctx GUID)
	OnIconPathChanged(path string, ctx GUID)
	OnSimpleVolumeChanged(volume float32, mute bool, ctx GUID)
	OnChannelVolumeChanged(volumes []float32, changed uint32, ctx GUID)
	OnGroupingParamChanged(param GUID, ctx GUID)
	OnStateChanged(state uint32)
	OnSessionDisconnected(reason uint32)
}

// Registration is an active session notification registration.
type Registration interface {
	// Unregister stops delivery and returns once no callback is running.
	Unregister() error
}

// Session is the session control service (IAudioSessionControl).
type Session interface {
	State() (uint32, error)
	DisplayName() (string, error)
	IconPath() (string, error)
	GroupingParam() (GUID, error)
	Register(events SessionEvents) (Registration, error)
	Close() error
}

// Clock is the stream clock service (IAudioClock).
type Clock interface {
	Frequency() (uint64, error)
	Position() (pos, qpc uint64, err error)
	Close() error
}

// Event is a kernel wait object.
type Event interface {
	// Wait returns false when the timeout elapsed before the event was signaled.
	Wait(timeoutMs uint32) (bool, error)
	Handle() uintptr
	Close() error
}
