//go:build windows

package engine

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// comEnumerator wraps IMMDeviceEnumerator.
type comEnumerator struct {
	obj uintptr
}

func (e *comEnumerator) Devices(flow uint32) ([]Device, error) {
	var coll uintptr
	if err := comCall(e.obj, 3, uintptr(flow), deviceStateActive, uintptr(unsafe.Pointer(&coll))).Err(); err != nil {
		return nil, fmt.Errorf("EnumAudioEndpoints failed: %w", err)
	}
	defer comRelease(coll)

	var count uint32
	if err := comCall(coll, 3, uintptr(unsafe.Pointer(&count))).Err(); err != nil {
		return nil, fmt.Errorf("IMMDeviceCollection::GetCount failed: %w", err)
	}

	devices := make([]Device, 0, count)
	for i := uint32(0); i < count; i++ {
		var dev uintptr
		if err := comCall(coll, 4, uintptr(i), uintptr(unsafe.Pointer(&dev))).Err(); err != nil {
			for _, d := range devices {
				_ = d.Close()
			}

			return nil, fmt.Errorf("IMMDeviceCollection::Item(%d) failed: %w", i, err)
		}
		devices = append(devices, &comDevice{obj: dev})
	}

	return devices, nil
}

func (e *comEnumerator) Default(flow, role uint32) (Device, error) {
	var dev uintptr
	if err := comCall(e.obj, 4, uintptr(flow), uintptr(role), uintptr(unsafe.Pointer(&dev))).Err(); err != nil {
		return nil, fmt.Errorf("GetDefaultAudioEndpoint failed: %w", err)
	}

	return &comDevice{obj: dev}, nil
}

func (e *comEnumerator) Device(id string) (Device, error) {
	wid, err := windows.UTF16PtrFromString(id)
	if err != nil {
		return nil, fmt.Errorf("invalid device id %q: %w", id, err)
	}

	var dev uintptr
	if err := comCall(e.obj, 5, uintptr(unsafe.Pointer(wid)), uintptr(unsafe.Pointer(&dev))).Err(); err != nil {
		return nil, fmt.Errorf("GetDevice(%q) failed: %w", id, err)
	}

	return &comDevice{obj: dev}, nil
}

func (e *comEnumerator) Close() error {
	comRelease(e.obj)
	e.obj = 0

	return nil
}

// comDevice wraps IMMDevice.
type comDevice struct {
	obj uintptr
}

func (d *comDevice) ID() (string, error) {
	var p *uint16
	if err := comCall(d.obj, 5, uintptr(unsafe.Pointer(&p))).Err(); err != nil {
		return "", fmt.Errorf("IMMDevice::GetId failed: %w", err)
	}

	return coTaskString(p), nil
}

func (d *comDevice) Property(key PropertyKey) (string, error) {
	var store uintptr
	if err := comCall(d.obj, 4, stgmRead, uintptr(unsafe.Pointer(&store))).Err(); err != nil {
		return "", fmt.Errorf("IMMDevice::OpenPropertyStore failed: %w", err)
	}
	defer comRelease(store)

	var pv propVariant
	if err := comCall(store, 5, uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&pv))).Err(); err != nil {
		return "", fmt.Errorf("IPropertyStore::GetValue failed: %w", err)
	}
	defer pv.clear()

	if pv.vt != vtLPWSTR || pv.val == 0 {
		return "", nil
	}

	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(pv.val))), nil
}

func (d *comDevice) State() (uint32, error) {
	var state uint32
	if err := comCall(d.obj, 6, uintptr(unsafe.Pointer(&state))).Err(); err != nil {
		return 0, fmt.Errorf("IMMDevice::GetState failed: %w", err)
	}

	return state, nil
}

func (d *comDevice) Flow() (uint32, error) {
	endpoint, err := comQueryInterface(d.obj, &iidIMMEndpoint)
	if err != nil {
		return 0, fmt.Errorf("QueryInterface(IMMEndpoint) failed: %w", err)
	}
	defer comRelease(endpoint)

	var flow uint32
	if err := comCall(endpoint, 3, uintptr(unsafe.Pointer(&flow))).Err(); err != nil {
		return 0, fmt.Errorf("IMMEndpoint::GetDataFlow failed: %w", err)
	}

	return flow, nil
}

func (d *comDevice) Activate() (Client, error) {
	var client uintptr
	if err := comCall(d.obj, 3, uintptr(unsafe.Pointer(&iidIAudioClient)), clsctxAll, 0, uintptr(unsafe.Pointer(&client))).Err(); err != nil {
		return nil, fmt.Errorf("IMMDevice::Activate(IAudioClient) failed: %w", err)
	}

	return &comClient{obj: client}, nil
}

func (d *comDevice) Close() error {
	comRelease(d.obj)
	d.obj = 0

	return nil
}
