//go:build windows

package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	processLoopbackPath           = `VAD\Process_Loopback`
	activationTypeProcessLoopback = 1
	loopbackModeIncludeTree       = 0
	loopbackModeExcludeTree       = 1
)

// activationParams mirrors AUDIOCLIENT_ACTIVATION_PARAMS with process loopback parameters.
type activationParams struct {
	ActivationType uint32
	TargetPID      uint32
	LoopbackMode   uint32
}

// activationHandlerVtbl is the IActivateAudioInterfaceCompletionHandler method table.
type activationHandlerVtbl struct {
	QueryInterface    uintptr
	AddRef            uintptr
	Release           uintptr
	ActivateCompleted uintptr
}

// activationHandler signals done once the asynchronous activation finished.
type activationHandler struct {
	vtbl *activationHandlerVtbl // must stay the first field
	refs atomic.Int32
	done windows.Handle
}

var (
	activationVtblOnce sync.Once
	activationVtbl     *activationHandlerVtbl
)

func newActivationHandler(done windows.Handle) *activationHandler {
	activationVtblOnce.Do(func() {
		activationVtbl = &activationHandlerVtbl{
			QueryInterface:    syscall.NewCallback(activationQueryInterface),
			AddRef:            syscall.NewCallback(activationAddRef),
			Release:           syscall.NewCallback(activationRelease),
			ActivateCompleted: syscall.NewCallback(activationCompleted),
		}
	})

	h := &activationHandler{vtbl: activationVtbl, done: done}
	h.refs.Store(1)

	return h
}

func handlerFrom(this uintptr) *activationHandler {
	return (*activationHandler)(unsafe.Pointer(this))
}

func activationQueryInterface(this, riid, ppv uintptr) uintptr {
	// The activation completes on an MTA worker, so the handler has to be agile.
	iid := guidAt(riid)
	if iid != iidIUnknown && iid != iidIActivateAudioInterfaceCompletionHandler && iid != iidIAgileObject {
		*(*uintptr)(unsafe.Pointer(ppv)) = 0

		return uintptr(E_NOINTERFACE)
	}
	*(*uintptr)(unsafe.Pointer(ppv)) = this
	handlerFrom(this).refs.Add(1)

	return uintptr(S_OK)
}

func activationAddRef(this uintptr) uintptr {
	return uintptr(handlerFrom(this).refs.Add(1))
}

func activationRelease(this uintptr) uintptr {
	return uintptr(handlerFrom(this).refs.Add(-1))
}

func activationCompleted(this, _ uintptr) uintptr {
	_ = windows.SetEvent(handlerFrom(this).done)

	return uintptr(S_OK)
}

func (comBackend) ActivateProcessLoopback(pid uint32, includeTree bool) (Client, error) {
	params := activationParams{ActivationType: activationTypeProcessLoopback, TargetPID: pid, LoopbackMode: loopbackModeExcludeTree}
	if includeTree {
		params.LoopbackMode = loopbackModeIncludeTree
	}

	pv := propVariant{
		vt:   vtBlob,
		val:  unsafe.Sizeof(params),
		val2: uintptr(unsafe.Pointer(&params)),
	}

	path, err := windows.UTF16PtrFromString(processLoopbackPath)
	if err != nil {
		return nil, err
	}

	done, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent failed: %w", err)
	}
	defer windows.CloseHandle(done)

	handler := newActivationHandler(done)

	var op uintptr
	r, _, _ := procActivateAudioInterfaceAsync.Call(
		uintptr(unsafe.Pointer(path)),
		uintptr(unsafe.Pointer(&iidIAudioClient)),
		uintptr(unsafe.Pointer(&pv)),
		uintptr(unsafe.Pointer(handler)),
		uintptr(unsafe.Pointer(&op)),
	)
	if err := HRESULT(uint32(r)).Err(); err != nil {
		return nil, fmt.Errorf("ActivateAudioInterfaceAsync failed: %w", err)
	}
	defer comRelease(op)

	if _, err := windows.WaitForSingleObject(done, windows.INFINITE); err != nil {
		return nil, fmt.Errorf("waiting for activation failed: %w", err)
	}
	runtime.KeepAlive(handler)
	runtime.KeepAlive(&params)

	var (
		activateResult HRESULT
		unknown        uintptr
	)
	if err := comCall(op, 3, uintptr(unsafe.Pointer(&activateResult)), uintptr(unsafe.Pointer(&unknown))).Err(); err != nil {
		return nil, fmt.Errorf("GetActivateResult failed: %w", err)
	}
	if err := activateResult.Err(); err != nil {
		comRelease(unknown)

		return nil, fmt.Errorf("process loopback activation failed: %w", err)
	}
	defer comRelease(unknown)

	client, err := comQueryInterface(unknown, &iidIAudioClient)
	if err != nil {
		return nil, fmt.Errorf("QueryInterface(IAudioClient) failed: %w", err)
	}

	return &comClient{obj: client}, nil
}
