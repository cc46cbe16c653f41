//go:build windows

package engine

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modole32    = windows.NewLazySystemDLL("ole32.dll")
	modmmdevapi = windows.NewLazySystemDLL("mmdevapi.dll")

	procCoInitializeEx              = modole32.NewProc("CoInitializeEx")
	procCoCreateInstance            = modole32.NewProc("CoCreateInstance")
	procPropVariantClear            = modole32.NewProc("PropVariantClear")
	procActivateAudioInterfaceAsync = modmmdevapi.NewProc("ActivateAudioInterfaceAsync")
)

const (
	clsctxAll               = 0x17
	coinitMultithreaded     = 0x0
	coinitApartmentThreaded = 0x2
	stgmRead                = 0x0
	vtLPWSTR                = 31
	vtBlob                  = 65
	deviceStateActive       = 0x1
	waitTimeout             = 0x102
)

var (
	clsidMMDeviceEnumerator = MustParseGUID("BCDE0395-E52F-467C-8E3D-C4579291692E")

	iidIUnknown                                 = MustParseGUID("00000000-0000-0000-C000-000000000046")
	iidIAgileObject                             = MustParseGUID("94EA2B94-E9CC-49E0-C0FF-EE64CA8F5B90")
	iidIMMDeviceEnumerator                      = MustParseGUID("A95664D2-9614-4F35-A746-DE8DB63617E6")
	iidIMMEndpoint                              = MustParseGUID("1BE09788-6894-4089-8586-9A2A6C265AC5")
	iidIAudioClient                             = MustParseGUID("1CB9AD4C-DBFA-4C32-B178-C2F568A703B2")
	iidIAudioRenderClient                       = MustParseGUID("F294ACFC-3146-4483-A7BF-ADDCA7C260E2")
	iidIAudioCaptureClient                      = MustParseGUID("C8ADBD64-E71E-48A0-A4DE-185C395CD317")
	iidIAudioSessionControl                     = MustParseGUID("F4B1A599-7266-4319-A8CA-E70ACB11E8CD")
	iidIAudioSessionEvents                      = MustParseGUID("24918ACC-64B3-37C1-8CA9-74A66E9957A8")
	iidIAudioClock                              = MustParseGUID("CD63314F-3FBA-4A1B-812C-EF96358728E7")
	iidISimpleAudioVolume                       = MustParseGUID("87CE5498-68D6-44E5-9215-6DA47EF883D8")
	iidIActivateAudioInterfaceCompletionHandler = MustParseGUID("41D949AB-9862-444A-80F6-C261334DA5EB")
)

// propVariant mirrors PROPVARIANT for the VT_LPWSTR and VT_BLOB members used here.
type propVariant struct {
	vt       uint16
	reserved [6]byte
	val      uintptr
	val2     uintptr
}

func (pv *propVariant) clear() {
	_, _, _ = procPropVariantClear.Call(uintptr(unsafe.Pointer(pv)))
}

// comCall invokes the method in vtable slot index of the COM object obj.
func comCall(obj uintptr, index int, args ...uintptr) HRESULT {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))
	r, _, _ := syscall.SyscallN(fn, append([]uintptr{obj}, args...)...)

	return HRESULT(uint32(r))
}

// comRelease calls IUnknown::Release.
func comRelease(obj uintptr) {
	if obj != 0 {
		comCall(obj, 2)
	}
}

// comQueryInterface calls IUnknown::QueryInterface.
func comQueryInterface(obj uintptr, iid *GUID) (uintptr, error) {
	var out uintptr
	if err := comCall(obj, 0, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out))).Err(); err != nil {
		return 0, err
	}

	return out, nil
}

// refTime expands a REFERENCE_TIME argument for the calling convention of the current architecture.
func refTime(v int64) []uintptr {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return []uintptr{uintptr(v)}
	}

	return []uintptr{uintptr(uint32(v)), uintptr(uint32(uint64(v) >> 32))}
}

// coTaskString converts and frees a CoTaskMemAlloc'ed wide string.
func coTaskString(p *uint16) string {
	if p == nil {
		return ""
	}
	s := windows.UTF16PtrToString(p)
	windows.CoTaskMemFree(unsafe.Pointer(p))

	return s
}

type comBackend struct{}

// Default returns the platform backend.
func Default() Backend {
	return comBackend{}
}

func (comBackend) Initialize(multithreaded bool) error {
	coinit := uintptr(coinitApartmentThreaded)
	if multithreaded {
		coinit = coinitMultithreaded
	}

	r, _, _ := procCoInitializeEx.Call(0, coinit)
	if err := HRESULT(uint32(r)).Err(); err != nil {
		return fmt.Errorf("CoInitializeEx failed: %w", err)
	}

	return nil
}

func (comBackend) Uninitialize() {
	windows.CoUninitialize()
}

func (comBackend) Enumerator() (Enumerator, error) {
	var obj uintptr
	r, _, _ := procCoCreateInstance.Call(
		uintptr(unsafe.Pointer(&clsidMMDeviceEnumerator)),
		0,
		clsctxAll,
		uintptr(unsafe.Pointer(&iidIMMDeviceEnumerator)),
		uintptr(unsafe.Pointer(&obj)),
	)
	if err := HRESULT(uint32(r)).Err(); err != nil {
		return nil, fmt.Errorf("CoCreateInstance(MMDeviceEnumerator) failed: %w", err)
	}

	return &comEnumerator{obj: obj}, nil
}

func (comBackend) NewEvent() (Event, error) {
	h, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent failed: %w", err)
	}

	return &winEvent{handle: h}, nil
}

// winEvent is an auto-reset kernel event.
type winEvent struct {
	handle windows.Handle
}

func (e *winEvent) Wait(timeoutMs uint32) (bool, error) {
	ret, err := windows.WaitForSingleObject(e.handle, timeoutMs)
	switch {
	case ret == windows.WAIT_OBJECT_0:
		return true, nil
	case ret == waitTimeout:
		return false, nil
	default:
		return false, fmt.Errorf("WaitForSingleObject failed: %w", err)
	}
}

func (e *winEvent) Handle() uintptr {
	return uintptr(e.handle)
}

func (e *winEvent) Close() error {
	if e.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(e.handle)
	e.handle = 0

	return err
}
