package wasapi

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/gen2brain/wasapi/internal/engine"
)

// CaptureClient reads frames from the engine buffer of a capture or loopback stream.
// It must only be used from one goroutine at a time.
type CaptureClient struct {
	client        engine.Capturer
	bytesPerFrame int
	shareMode     ShareMode
	log           zerolog.Logger
}

// BytesPerFrame returns the frame stride.
func (c *CaptureClient) BytesPerFrame() int {
	return c.bytesPerFrame
}

// NextPacketSize returns the number of frames in the next packet. In exclusive mode packets
// always span the whole buffer and ok is false.
func (c *CaptureClient) NextPacketSize() (frames uint32, ok bool, err error) {
	if c.shareMode == Exclusive {
		return 0, false, nil
	}

	frames, err = c.client.NextPacketSize()
	if err != nil {
		return 0, false, fmt.Errorf("IAudioCaptureClient::GetNextPacketSize failed: %w", err)
	}

	return frames, true, nil
}

// acquire gets the next packet. A packet without frames is released right away.
func (c *CaptureClient) acquire() (engine.CapturedPacket, BufferInfo, error) {
	pkt, err := c.client.GetBuffer()
	if err != nil {
		return pkt, BufferInfo{}, fmt.Errorf("IAudioCaptureClient::GetBuffer failed: %w", err)
	}

	if pkt.Frames == 0 {
		if err := c.client.ReleaseBuffer(0); err != nil {
			return pkt, BufferInfo{}, fmt.Errorf("IAudioCaptureClient::ReleaseBuffer failed: %w", err)
		}

		return pkt, BufferInfo{}, nil
	}

	info := BufferInfo{
		Flags:          BufferFlags(pkt.Flags),
		DevicePosition: pkt.DevicePosition,
		Timestamp:      pkt.Timestamp,
	}
	if info.Flags.Has(BufferSilent) {
		silentBuffersTotal.Inc()
	}
	if info.Flags.Has(BufferDataDiscontinuity) {
		discontinuitiesTotal.Inc()
	}

	return pkt, info, nil
}

func (c *CaptureClient) release(frames uint32) error {
	if err := c.client.ReleaseBuffer(frames); err != nil {
		return fmt.Errorf("IAudioCaptureClient::ReleaseBuffer failed: %w", err)
	}

	return nil
}

// copyPacket copies the frames of pkt into dst, writing zeros for packets flagged silent.
func copyPacket(dst []byte, pkt engine.CapturedPacket, info BufferInfo) {
	if info.Flags.Has(BufferSilent) || len(pkt.Data) < len(dst) {
		clear(dst)
	}
	if !info.Flags.Has(BufferSilent) {
		copy(dst, pkt.Data)
	}
}

// Read copies the next packet into buf and returns the number of frames read.
//
// An empty buf or an empty packet returns zero frames. If the packet does not fit into buf it
// is left in the engine buffer and an error matching ErrDataLengthTooShort is returned; size
// buf with NextPacketSize in shared mode. Packets flagged silent are returned as zeros.
func (c *CaptureClient) Read(buf []byte) (int, BufferInfo, error) {
	if len(buf) == 0 {
		return 0, BufferInfo{}, nil
	}

	pkt, info, err := c.acquire()
	if err != nil || pkt.Frames == 0 {
		return 0, BufferInfo{}, err
	}

	size := int(pkt.Frames) * c.bytesPerFrame
	if size > len(buf) {
		if err := c.release(0); err != nil {
			return 0, BufferInfo{}, err
		}

		return 0, BufferInfo{}, &DataLengthError{Kind: ErrDataLengthTooShort, Received: len(buf), Expected: size}
	}

	copyPacket(buf[:size], pkt, info)
	if err := c.release(pkt.Frames); err != nil {
		return 0, BufferInfo{}, err
	}

	framesCapturedTotal.Add(float64(pkt.Frames))
	c.log.Trace().Uint32("frames", pkt.Frames).Stringer("flags", info.Flags).Msg("read buffer")

	return int(pkt.Frames), info, nil
}

// ReadToQueue appends the next packet to queue. The queue grows without bound; draining it is
// up to the caller.
func (c *CaptureClient) ReadToQueue(queue io.Writer) (BufferInfo, error) {
	pkt, info, err := c.acquire()
	if err != nil || pkt.Frames == 0 {
		return BufferInfo{}, err
	}

	data := make([]byte, int(pkt.Frames)*c.bytesPerFrame)
	copyPacket(data, pkt, info)

	if err := c.release(pkt.Frames); err != nil {
		return BufferInfo{}, err
	}

	if _, err := queue.Write(data); err != nil {
		return info, fmt.Errorf("failed to append to queue: %w", err)
	}

	framesCapturedTotal.Add(float64(pkt.Frames))
	c.log.Trace().Uint32("frames", pkt.Frames).Stringer("flags", info.Flags).Msg("read buffer to queue")

	return info, nil
}

// Close releases the capture service.
func (c *CaptureClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil

	return err
}
