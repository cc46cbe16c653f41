package engine

import "fmt"

// HRESULT is a status code returned by the audio subsystem.
type HRESULT uint32

// Generic and audio client status codes.
const (
	S_OK                               HRESULT = 0x00000000
	S_FALSE                            HRESULT = 0x00000001
	E_NOTIMPL                          HRESULT = 0x80004001
	E_NOINTERFACE                      HRESULT = 0x80004002
	E_POINTER                          HRESULT = 0x80004003
	E_FAIL                             HRESULT = 0x80004005
	E_INVALIDARG                       HRESULT = 0x80070057
	E_OUTOFMEMORY                      HRESULT = 0x8007000E
	AUDCLNT_E_NOT_INITIALIZED          HRESULT = 0x88890001
	AUDCLNT_E_ALREADY_INITIALIZED      HRESULT = 0x88890002
	AUDCLNT_E_WRONG_ENDPOINT_TYPE      HRESULT = 0x88890003
	AUDCLNT_E_DEVICE_INVALIDATED       HRESULT = 0x88890004
	AUDCLNT_E_NOT_STOPPED              HRESULT = 0x88890005
	AUDCLNT_E_BUFFER_TOO_LARGE         HRESULT = 0x88890006
	AUDCLNT_E_OUT_OF_ORDER             HRESULT = 0x88890007
	AUDCLNT_E_UNSUPPORTED_FORMAT       HRESULT = 0x88890008
	AUDCLNT_E_INVALID_SIZE             HRESULT = 0x88890009
	AUDCLNT_E_DEVICE_IN_USE            HRESULT = 0x8889000A
	AUDCLNT_E_BUFFER_OPERATION_PENDING HRESULT = 0x8889000B
	AUDCLNT_E_SERVICE_NOT_RUNNING      HRESULT = 0x88890010
	AUDCLNT_E_EVENTHANDLE_NOT_SET      HRESULT = 0x88890014
	AUDCLNT_E_BUFFER_SIZE_ERROR        HRESULT = 0x88890016
	AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED  HRESULT = 0x88890019
	AUDCLNT_E_INVALID_DEVICE_PERIOD    HRESULT = 0x88890020
	AUDCLNT_S_BUFFER_EMPTY             HRESULT = 0x08890001
)

var hresultNames = map[HRESULT]string{
	S_FALSE:                            "S_FALSE",
	E_NOTIMPL:                          "E_NOTIMPL",
	E_NOINTERFACE:                      "E_NOINTERFACE",
	E_POINTER:                          "E_POINTER",
	E_FAIL:                             "E_FAIL",
	E_INVALIDARG:                       "E_INVALIDARG",
	E_OUTOFMEMORY:                      "E_OUTOFMEMORY",
	AUDCLNT_E_NOT_INITIALIZED:          "AUDCLNT_E_NOT_INITIALIZED",
	AUDCLNT_E_ALREADY_INITIALIZED:      "AUDCLNT_E_ALREADY_INITIALIZED",
	AUDCLNT_E_WRONG_ENDPOINT_TYPE:      "AUDCLNT_E_WRONG_ENDPOINT_TYPE",
	AUDCLNT_E_DEVICE_INVALIDATED:       "AUDCLNT_E_DEVICE_INVALIDATED",
	AUDCLNT_E_NOT_STOPPED:              "AUDCLNT_E_NOT_STOPPED",
	AUDCLNT_E_BUFFER_TOO_LARGE:         "AUDCLNT_E_BUFFER_TOO_LARGE",
	AUDCLNT_E_OUT_OF_ORDER:             "AUDCLNT_E_OUT_OF_ORDER",
	AUDCLNT_E_UNSUPPORTED_FORMAT:       "AUDCLNT_E_UNSUPPORTED_FORMAT",
	AUDCLNT_E_INVALID_SIZE:             "AUDCLNT_E_INVALID_SIZE",
	AUDCLNT_E_DEVICE_IN_USE:            "AUDCLNT_E_DEVICE_IN_USE",
	AUDCLNT_E_BUFFER_OPERATION_PENDING: "AUDCLNT_E_BUFFER_OPERATION_PENDING",
	AUDCLNT_E_SERVICE_NOT_RUNNING:      "AUDCLNT_E_SERVICE_NOT_RUNNING",
	AUDCLNT_E_EVENTHANDLE_NOT_SET:      "AUDCLNT_E_EVENTHANDLE_NOT_SET",
	AUDCLNT_E_BUFFER_SIZE_ERROR:        "AUDCLNT_E_BUFFER_SIZE_ERROR",
	AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED:  "AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED",
	AUDCLNT_E_INVALID_DEVICE_PERIOD:    "AUDCLNT_E_INVALID_DEVICE_PERIOD",
	AUDCLNT_S_BUFFER_EMPTY:             "AUDCLNT_S_BUFFER_EMPTY",
}

// Error implements the error interface.
func (hr HRESULT) Error() string {
	if name, ok := hresultNames[hr]; ok {
		return fmt.Sprintf("%s (0x%08X)", name, uint32(hr))
	}

	return fmt.Sprintf("HRESULT 0x%08X", uint32(hr))
}

// Failed reports whether the severity bit is set.
func (hr HRESULT) Failed() bool {
	return hr&0x80000000 != 0
}

// Err returns nil for success codes and hr otherwise.
func (hr HRESULT) Err() error {
	if hr.Failed() {
		return hr
	}

	return nil
}
