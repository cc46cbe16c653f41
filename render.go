package wasapi

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gen2brain/wasapi/internal/engine"
)

// ByteQueue is a FIFO of bytes. *bytes.Buffer implements it.
type ByteQueue interface {
	Len() int
	// Next removes and returns the next n bytes.
	Next(n int) []byte
}

// RenderClient writes frames into the engine buffer of a render stream.
// It must only be used from one goroutine at a time.
type RenderClient struct {
	client        engine.Renderer
	bytesPerFrame int
	log           zerolog.Logger
}

// BytesPerFrame returns the frame stride.
func (r *RenderClient) BytesPerFrame() int {
	return r.bytesPerFrame
}

// Write copies frames frames from data into the engine buffer. frames must not exceed the
// space reported by AudioClient.AvailableSpace and len(data) must be exactly
// frames*BytesPerFrame. flags may be BufferSilent to render silence regardless of data.
// Writing zero frames does nothing.
func (r *RenderClient) Write(frames int, data []byte, flags BufferFlags) error {
	if frames == 0 {
		return nil
	}
	if frames < 0 {
		return &DataLengthError{Kind: ErrDataLengthMismatch, Received: len(data), Expected: frames * r.bytesPerFrame}
	}

	expected := frames * r.bytesPerFrame
	if len(data) != expected {
		return &DataLengthError{Kind: ErrDataLengthMismatch, Received: len(data), Expected: expected}
	}

	buf, err := r.client.GetBuffer(uint32(frames))
	if err != nil {
		return fmt.Errorf("IAudioRenderClient::GetBuffer failed: %w", err)
	}
	copy(buf, data)

	return r.release(frames, flags)
}

// WriteFromQueue is like Write but takes the frames*BytesPerFrame bytes from the front of queue.
// If queue holds fewer bytes, nothing is written and the queue is left untouched.
func (r *RenderClient) WriteFromQueue(frames int, queue ByteQueue, flags BufferFlags) error {
	if frames == 0 {
		return nil
	}
	if frames < 0 {
		return &DataLengthError{Kind: ErrDataLengthMismatch, Received: queue.Len(), Expected: frames * r.bytesPerFrame}
	}

	expected := frames * r.bytesPerFrame
	if queue.Len() < expected {
		return &DataLengthError{Kind: ErrDataLengthTooShort, Received: queue.Len(), Expected: expected}
	}

	buf, err := r.client.GetBuffer(uint32(frames))
	if err != nil {
		return fmt.Errorf("IAudioRenderClient::GetBuffer failed: %w", err)
	}
	copy(buf, queue.Next(expected))

	return r.release(frames, flags)
}

func (r *RenderClient) release(frames int, flags BufferFlags) error {
	if err := r.client.ReleaseBuffer(uint32(frames), uint32(flags)); err != nil {
		return fmt.Errorf("IAudioRenderClient::ReleaseBuffer failed: %w", err)
	}

	framesRenderedTotal.Add(float64(frames))
	r.log.Trace().Int("frames", frames).Stringer("flags", flags).Msg("wrote buffer")

	return nil
}

// Close releases the render service.
func (r *RenderClient) Close() error {
	if r == nil || r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil

	return err
}
