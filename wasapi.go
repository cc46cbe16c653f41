// Package wasapi is a safe access layer over the Windows Audio Session API.
//
// Devices are looked up with DefaultDevice or Devices, an AudioClient is created from a Device,
// initialized once with a WaveFormat and a StreamMode, and then drives a RenderClient or a
// CaptureClient that copy raw interleaved PCM bytes to and from the engine ring buffer.
//
// COM must be initialized on every thread that calls into this package, see InitializeMTA.
package wasapi

import (
	"fmt"
	"strings"
)

// Direction is the data flow of a device or stream.
type Direction int

const (
	Render Direction = iota
	Capture
)

// String returns the name of the direction.
func (d Direction) String() string {
	switch d {
	case Render:
		return "Render"
	case Capture:
		return "Capture"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ShareMode selects between the shared mix engine and exclusive device ownership.
type ShareMode int

const (
	Shared ShareMode = iota
	Exclusive
)

// String returns the name of the share mode.
func (m ShareMode) String() string {
	switch m {
	case Shared:
		return "Shared"
	case Exclusive:
		return "Exclusive"
	default:
		return fmt.Sprintf("ShareMode(%d)", int(m))
	}
}

// TimingMode selects who signals buffer readiness.
type TimingMode int

const (
	// Polling leaves pacing to the application.
	Polling TimingMode = iota
	// Events makes the engine signal an event handle once per period.
	Events
)

// String returns the name of the timing mode.
func (m TimingMode) String() string {
	switch m {
	case Polling:
		return "Polling"
	case Events:
		return "Events"
	default:
		return fmt.Sprintf("TimingMode(%d)", int(m))
	}
}

// SampleType is the sample encoding of a WaveFormat.
type SampleType int

const (
	SampleTypeInt SampleType = iota
	SampleTypeFloat
)

// String returns the name of the sample type.
func (t SampleType) String() string {
	switch t {
	case SampleTypeInt:
		return "Int"
	case SampleTypeFloat:
		return "Float"
	default:
		return fmt.Sprintf("SampleType(%d)", int(t))
	}
}

// Role is the device role used when asking for a default device.
type Role int

const (
	Console Role = iota
	Multimedia
	Communications
)

// String returns the name of the role.
func (r Role) String() string {
	switch r {
	case Console:
		return "Console"
	case Multimedia:
		return "Multimedia"
	case Communications:
		return "Communications"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// DeviceState is the state of an endpoint.
type DeviceState uint32

const (
	DeviceStateActive     DeviceState = 0x1
	DeviceStateDisabled   DeviceState = 0x2
	DeviceStateNotPresent DeviceState = 0x4
	DeviceStateUnplugged  DeviceState = 0x8
)

// String returns the name of the device state.
func (s DeviceState) String() string {
	switch s {
	case DeviceStateActive:
		return "Active"
	case DeviceStateDisabled:
		return "Disabled"
	case DeviceStateNotPresent:
		return "NotPresent"
	case DeviceStateUnplugged:
		return "Unplugged"
	default:
		return fmt.Sprintf("DeviceState(%d)", uint32(s))
	}
}

// SessionState is the state of an audio session. Active and Inactive alternate, Expired is terminal.
type SessionState int

const (
	SessionStateInactive SessionState = iota
	SessionStateActive
	SessionStateExpired
)

// String returns the name of the session state.
func (s SessionState) String() string {
	switch s {
	case SessionStateInactive:
		return "Inactive"
	case SessionStateActive:
		return "Active"
	case SessionStateExpired:
		return "Expired"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// DisconnectReason tells why a session was disconnected.
type DisconnectReason int

const (
	DisconnectDeviceRemoval DisconnectReason = iota
	DisconnectServerShutdown
	DisconnectFormatChanged
	DisconnectSessionLogoff
	DisconnectSessionDisconnected
	DisconnectExclusiveModeOverride
	// DisconnectUnknown is reported for reason codes newer than this package.
	DisconnectUnknown
)

var disconnectReasonNames = [...]string{
	"DeviceRemoval",
	"ServerShutdown",
	"FormatChanged",
	"SessionLogoff",
	"SessionDisconnected",
	"ExclusiveModeOverride",
	"Unknown",
}

// String returns the name of the reason.
func (r DisconnectReason) String() string {
	if r >= 0 && int(r) < len(disconnectReasonNames) {
		return disconnectReasonNames[r]
	}

	return fmt.Sprintf("DisconnectReason(%d)", int(r))
}

func disconnectReasonFromCode(code uint32) DisconnectReason {
	if code < uint32(DisconnectUnknown) {
		return DisconnectReason(code)
	}

	return DisconnectUnknown
}

// BufferFlags are the per buffer flags reported by the engine or passed to a write.
type BufferFlags uint32

const (
	BufferDataDiscontinuity BufferFlags = 0x1
	BufferSilent            BufferFlags = 0x2
	BufferTimestampError    BufferFlags = 0x4
)

// Has reports whether all bits of f are set.
func (b BufferFlags) Has(f BufferFlags) bool {
	return b&f == f
}

// String returns the set flags joined by '|'.
func (b BufferFlags) String() string {
	if b == 0 {
		return "none"
	}

	var parts []string
	if b.Has(BufferDataDiscontinuity) {
		parts = append(parts, "discontinuity")
	}
	if b.Has(BufferSilent) {
		parts = append(parts, "silent")
	}
	if b.Has(BufferTimestampError) {
		parts = append(parts, "timestamp-error")
	}
	if rest := b &^ (BufferDataDiscontinuity | BufferSilent | BufferTimestampError); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}

	return strings.Join(parts, "|")
}

// BufferInfo is the metadata of one acquired buffer.
type BufferInfo struct {
	Flags BufferFlags
	// DevicePosition is the device position of the first frame, capture only.
	DevicePosition uint64
	// Timestamp is the performance counter value in 100 ns units at the first frame, capture only.
	Timestamp uint64
}

// StreamMode configures AudioClient.Initialize.
type StreamMode struct {
	ShareMode  ShareMode
	TimingMode TimingMode
	// AutoConvert lets the shared mix engine convert the stream format. Shared mode only.
	AutoConvert bool
	// BufferDuration is the requested buffer duration in 100 ns units, shared mode.
	BufferDuration int64
	// Period is the device period in 100 ns units, exclusive mode. The buffer is one period long.
	Period int64
}

// PollingShared returns a shared mode where the application polls for space.
func PollingShared(autoConvert bool, bufferDuration int64) StreamMode {
	return StreamMode{ShareMode: Shared, TimingMode: Polling, AutoConvert: autoConvert, BufferDuration: bufferDuration}
}

// EventsShared returns a shared mode signaled through an event handle.
func EventsShared(autoConvert bool, bufferDuration int64) StreamMode {
	return StreamMode{ShareMode: Shared, TimingMode: Events, AutoConvert: autoConvert, BufferDuration: bufferDuration}
}

// PollingExclusive returns an exclusive mode where the application polls for space.
func PollingExclusive(period int64) StreamMode {
	return StreamMode{ShareMode: Exclusive, TimingMode: Polling, Period: period}
}

// EventsExclusive returns an exclusive mode signaled through an event handle.
func EventsExclusive(period int64) StreamMode {
	return StreamMode{ShareMode: Exclusive, TimingMode: Events, Period: period}
}

// String returns a description of the mode.
func (m StreamMode) String() string {
	if m.ShareMode == Exclusive {
		return fmt.Sprintf("%s%s(period=%d)", m.TimingMode, m.ShareMode, m.Period)
	}

	return fmt.Sprintf("%s%s(autoconvert=%t, buffer=%d)", m.TimingMode, m.ShareMode, m.AutoConvert, m.BufferDuration)
}
