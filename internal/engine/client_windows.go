//go:build windows

package engine

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

// comClient wraps IAudioClient.
type comClient struct {
	obj        uintptr
	blockAlign uint32
}

func (c *comClient) Initialize(shareMode, flags uint32, bufferDuration, period int64, format []byte) error {
	if len(format) < 18 {
		return fmt.Errorf("format blob too short: %d bytes", len(format))
	}

	args := []uintptr{uintptr(shareMode), uintptr(flags)}
	args = append(args, refTime(bufferDuration)...)
	args = append(args, refTime(period)...)
	args = append(args, uintptr(unsafe.Pointer(&format[0])), 0)

	hr := comCall(c.obj, 3, args...)
	runtime.KeepAlive(format)
	if err := hr.Err(); err != nil {
		return err
	}
	c.blockAlign = uint32(binary.LittleEndian.Uint16(format[12:14]))

	return nil
}

func (c *comClient) BufferSize() (uint32, error) {
	var frames uint32
	if err := comCall(c.obj, 4, uintptr(unsafe.Pointer(&frames))).Err(); err != nil {
		return 0, err
	}

	return frames, nil
}

func (c *comClient) StreamLatency() (int64, error) {
	var latency int64
	if err := comCall(c.obj, 5, uintptr(unsafe.Pointer(&latency))).Err(); err != nil {
		return 0, err
	}

	return latency, nil
}

func (c *comClient) CurrentPadding() (uint32, error) {
	var frames uint32
	if err := comCall(c.obj, 6, uintptr(unsafe.Pointer(&frames))).Err(); err != nil {
		return 0, err
	}

	return frames, nil
}

func (c *comClient) IsFormatSupported(shareMode uint32, format []byte) ([]byte, error) {
	if len(format) < 18 {
		return nil, fmt.Errorf("format blob too short: %d bytes", len(format))
	}

	var closest uintptr
	closestArg := uintptr(0)
	if shareMode == ShareModeShared {
		closestArg = uintptr(unsafe.Pointer(&closest))
	}

	hr := comCall(c.obj, 7, uintptr(shareMode), uintptr(unsafe.Pointer(&format[0])), closestArg)
	runtime.KeepAlive(format)

	var blob []byte
	if closest != 0 {
		blob = copyWaveFormat(closest)
		windows.CoTaskMemFree(unsafe.Pointer(closest))
	}

	switch {
	case hr == S_OK:
		return nil, nil
	case hr == S_FALSE:
		return blob, S_FALSE
	default:
		return nil, hr
	}
}

func (c *comClient) MixFormat() ([]byte, error) {
	var p uintptr
	if err := comCall(c.obj, 8, uintptr(unsafe.Pointer(&p))).Err(); err != nil {
		return nil, err
	}
	blob := copyWaveFormat(p)
	windows.CoTaskMemFree(unsafe.Pointer(p))

	return blob, nil
}

func (c *comClient) DevicePeriod() (int64, int64, error) {
	var def, minPeriod int64
	if err := comCall(c.obj, 9, uintptr(unsafe.Pointer(&def)), uintptr(unsafe.Pointer(&minPeriod))).Err(); err != nil {
		return 0, 0, err
	}

	return def, minPeriod, nil
}

func (c *comClient) Start() error {
	return comCall(c.obj, 10).Err()
}

func (c *comClient) Stop() error {
	return comCall(c.obj, 11).Err()
}

func (c *comClient) Reset() error {
	return comCall(c.obj, 12).Err()
}

func (c *comClient) SetEventHandle(ev Event) error {
	return comCall(c.obj, 13, ev.Handle()).Err()
}

func (c *comClient) service(iid *GUID) (uintptr, error) {
	var out uintptr
	if err := comCall(c.obj, 14, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out))).Err(); err != nil {
		return 0, err
	}
	if out == 0 {
		return 0, E_POINTER
	}

	return out, nil
}

func (c *comClient) Renderer() (Renderer, error) {
	obj, err := c.service(&iidIAudioRenderClient)
	if err != nil {
		return nil, err
	}

	return &comRenderer{obj: obj, blockAlign: c.blockAlign}, nil
}

func (c *comClient) Capturer() (Capturer, error) {
	obj, err := c.service(&iidIAudioCaptureClient)
	if err != nil {
		return nil, err
	}

	return &comCapturer{obj: obj, blockAlign: c.blockAlign}, nil
}

func (c *comClient) Session() (Session, error) {
	obj, err := c.service(&iidIAudioSessionControl)
	if err != nil {
		return nil, err
	}

	// Volume reads are best effort; loopback clients do not expose ISimpleAudioVolume.
	volume, _ := c.service(&iidISimpleAudioVolume)

	return &comSession{obj: obj, volume: volume}, nil
}

func (c *comClient) Clock() (Clock, error) {
	obj, err := c.service(&iidIAudioClock)
	if err != nil {
		return nil, err
	}

	return &comClock{obj: obj}, nil
}

func (c *comClient) Close() error {
	comRelease(c.obj)
	c.obj = 0

	return nil
}

// copyWaveFormat copies a WAVEFORMATEX including its cbSize extension.
func copyWaveFormat(p uintptr) []byte {
	if p == 0 {
		return nil
	}
	head := unsafe.Slice((*byte)(unsafe.Pointer(p)), 18)
	size := 18 + int(binary.LittleEndian.Uint16(head[16:18]))
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), size))

	return out
}

// comRenderer wraps IAudioRenderClient.
type comRenderer struct {
	obj        uintptr
	blockAlign uint32
}

func (r *comRenderer) GetBuffer(frames uint32) ([]byte, error) {
	var p *byte
	if err := comCall(r.obj, 3, uintptr(frames), uintptr(unsafe.Pointer(&p))).Err(); err != nil {
		return nil, err
	}
	if p == nil || frames == 0 {
		return nil, nil
	}

	return unsafe.Slice(p, int(frames*r.blockAlign)), nil
}

func (r *comRenderer) ReleaseBuffer(frames, flags uint32) error {
	return comCall(r.obj, 4, uintptr(frames), uintptr(flags)).Err()
}

func (r *comRenderer) Close() error {
	comRelease(r.obj)
	r.obj = 0

	return nil
}

// comCapturer wraps IAudioCaptureClient.
type comCapturer struct {
	obj        uintptr
	blockAlign uint32
}

func (c *comCapturer) GetBuffer() (CapturedPacket, error) {
	var (
		p   *byte
		pkt CapturedPacket
	)
	hr := comCall(c.obj, 3,
		uintptr(unsafe.Pointer(&p)),
		uintptr(unsafe.Pointer(&pkt.Frames)),
		uintptr(unsafe.Pointer(&pkt.Flags)),
		uintptr(unsafe.Pointer(&pkt.DevicePosition)),
		uintptr(unsafe.Pointer(&pkt.Timestamp)),
	)
	if err := hr.Err(); err != nil {
		return CapturedPacket{}, err
	}
	if hr == AUDCLNT_S_BUFFER_EMPTY {
		pkt.Frames = 0
	}
	if p != nil && pkt.Frames > 0 {
		pkt.Data = unsafe.Slice(p, int(pkt.Frames*c.blockAlign))
	}

	return pkt, nil
}

func (c *comCapturer) ReleaseBuffer(frames uint32) error {
	return comCall(c.obj, 4, uintptr(frames)).Err()
}

func (c *comCapturer) NextPacketSize() (uint32, error) {
	var frames uint32
	if err := comCall(c.obj, 5, uintptr(unsafe.Pointer(&frames))).Err(); err != nil {
		return 0, err
	}

	return frames, nil
}

func (c *comCapturer) Close() error {
	comRelease(c.obj)
	c.obj = 0

	return nil
}

// comClock wraps IAudioClock.
type comClock struct {
	obj uintptr
}

func (c *comClock) Frequency() (uint64, error) {
	var freq uint64
	if err := comCall(c.obj, 3, uintptr(unsafe.Pointer(&freq))).Err(); err != nil {
		return 0, err
	}

	return freq, nil
}

func (c *comClock) Position() (uint64, uint64, error) {
	var pos, qpc uint64
	if err := comCall(c.obj, 4, uintptr(unsafe.Pointer(&pos)), uintptr(unsafe.Pointer(&qpc))).Err(); err != nil {
		return 0, 0, err
	}

	return pos, qpc, nil
}

func (c *comClock) Close() error {
	comRelease(c.obj)
	c.obj = 0

	return nil
}
