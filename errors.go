package wasapi

import (
	"errors"
	"fmt"

	"github.com/gen2brain/wasapi/internal/engine"
)

// HRESULT is a status code reported by the audio engine. Engine failures that have no dedicated
// error in this package are returned as HRESULT, so they can be matched with errors.Is.
type HRESULT = engine.HRESULT

// Engine status codes.
const (
	S_OK                              = engine.S_OK
	S_FALSE                           = engine.S_FALSE
	E_NOTIMPL                         = engine.E_NOTIMPL
	E_NOINTERFACE                     = engine.E_NOINTERFACE
	E_POINTER                         = engine.E_POINTER
	E_FAIL                            = engine.E_FAIL
	E_INVALIDARG                      = engine.E_INVALIDARG
	AUDCLNT_E_NOT_INITIALIZED         = engine.AUDCLNT_E_NOT_INITIALIZED
	AUDCLNT_E_ALREADY_INITIALIZED     = engine.AUDCLNT_E_ALREADY_INITIALIZED
	AUDCLNT_E_WRONG_ENDPOINT_TYPE     = engine.AUDCLNT_E_WRONG_ENDPOINT_TYPE
	AUDCLNT_E_DEVICE_INVALIDATED      = engine.AUDCLNT_E_DEVICE_INVALIDATED
	AUDCLNT_E_NOT_STOPPED             = engine.AUDCLNT_E_NOT_STOPPED
	AUDCLNT_E_UNSUPPORTED_FORMAT      = engine.AUDCLNT_E_UNSUPPORTED_FORMAT
	AUDCLNT_E_DEVICE_IN_USE           = engine.AUDCLNT_E_DEVICE_IN_USE
	AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED = engine.AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED
	AUDCLNT_E_INVALID_DEVICE_PERIOD   = engine.AUDCLNT_E_INVALID_DEVICE_PERIOD
)

var (
	// ErrUnsupportedPlatform is returned on platforms without WASAPI.
	ErrUnsupportedPlatform = engine.ErrUnsupportedPlatform

	// ErrClientNotInit is returned by operations that need a successful Initialize.
	ErrClientNotInit = errors.New("client has not been initialized")

	// ErrUnsupportedFormat is returned when no acceptable format could be negotiated.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEventTimeout is returned by EventHandle.Wait when the timeout elapsed.
	ErrEventTimeout = errors.New("timeout while waiting for event")

	// ErrDataLengthMismatch is returned when a byte count does not match the frame count.
	ErrDataLengthMismatch = errors.New("data length mismatch")

	// ErrDataLengthTooShort is returned when a buffer or queue cannot hold or provide enough data.
	ErrDataLengthTooShort = errors.New("data length too short")

	// ErrInvalidModeCombination is wrapped by every rejected direction and mode combination.
	ErrInvalidModeCombination = errors.New("invalid mode combination")

	// ErrLoopbackWithExclusiveMode is returned for loopback capture in exclusive mode.
	ErrLoopbackWithExclusiveMode = fmt.Errorf("%w: loopback can not be used in exclusive mode", ErrInvalidModeCombination)

	// ErrRenderToCaptureDevice is returned when a capture device is initialized for rendering.
	ErrRenderToCaptureDevice = fmt.Errorf("%w: can not render to a capture device", ErrInvalidModeCombination)

	// ErrAutoConvertInExclusiveMode is returned when auto conversion is requested in exclusive mode.
	ErrAutoConvertInExclusiveMode = fmt.Errorf("%w: autoconvert can not be used in exclusive mode", ErrInvalidModeCombination)
)

// DeviceNotFoundError is returned when a device lookup by name or id fails.
type DeviceNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("unable to find device %q", e.Name)
}

// IllegalEnumError is returned when the engine reports a value outside of a known enumeration.
type IllegalEnumError struct {
	Kind  string
	Value uint32
}

// Error implements the error interface.
func (e *IllegalEnumError) Error() string {
	return fmt.Sprintf("illegal %s value: %d", e.Kind, e.Value)
}

// FormatError describes a failed format negotiation. It wraps ErrUnsupportedFormat.
type FormatError struct {
	Requested WaveFormat
	// Nearest is the closest match proposed by the engine, if any.
	Nearest *WaveFormat
	Err     error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	msg := fmt.Sprintf("unsupported format %s", e.Requested)
	if e.Nearest != nil {
		msg += fmt.Sprintf(", nearest match %s", *e.Nearest)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is makes FormatError match ErrUnsupportedFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// Unwrap returns the engine error, if any.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// DataLengthError carries the sizes of a rejected transfer.
type DataLengthError struct {
	// Kind is ErrDataLengthMismatch or ErrDataLengthTooShort.
	Kind     error
	Received int
	Expected int
}

// Error implements the error interface.
func (e *DataLengthError) Error() string {
	return fmt.Sprintf("%v: received %d, expected %d", e.Kind, e.Received, e.Expected)
}

// Unwrap returns Kind.
func (e *DataLengthError) Unwrap() error {
	return e.Kind
}

// RegistrationError is returned when the engine rejects a session notification registration.
type RegistrationError struct {
	Err error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("session notification registration failed: %v", e.Err)
}

// Unwrap returns the engine error.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ServiceError is returned when a client service is not available.
type ServiceError struct {
	Service string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("failed to get %s: %v", e.Service, e.Err)
}

// Unwrap returns the engine error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
