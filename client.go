package wasapi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/gen2brain/wasapi/internal/engine"
)

// AudioClient is a stream on a device. It starts unbound, is bound to a format and a mode by a
// single successful Initialize, and then moves between running and stopped with Start and Stop.
// A client is never re-initialized; create a new one from the Device instead.
type AudioClient struct {
	client          engine.Client
	direction       Direction
	processLoopback bool
	log             zerolog.Logger

	// Set by Initialize, immutable afterwards.
	initialized   bool
	format        WaveFormat
	shareMode     ShareMode
	timingMode    TimingMode
	bytesPerFrame int

	running atomic.Bool
}

func newAudioClient(c engine.Client, direction Direction, processLoopback bool) *AudioClient {
	return &AudioClient{
		client:          c,
		direction:       direction,
		processLoopback: processLoopback,
		log:             componentLogger("client").With().Stringer("direction", direction).Logger(),
	}
}

// Direction returns the direction of the device the client was created from.
func (c *AudioClient) Direction() Direction {
	return c.direction
}

// IsProcessLoopback reports whether the client captures a process tree.
// Buffer size and padding reported by such clients are not reliable.
func (c *AudioClient) IsProcessLoopback() bool {
	return c.processLoopback
}

// IsInitialized reports whether Initialize succeeded.
func (c *AudioClient) IsInitialized() bool {
	return c != nil && c.initialized
}

// IsRunning reports whether the stream has been started and not stopped since.
func (c *AudioClient) IsRunning() bool {
	return c.running.Load()
}

// Format returns the negotiated format.
func (c *AudioClient) Format() (WaveFormat, error) {
	if !c.IsInitialized() {
		return WaveFormat{}, ErrClientNotInit
	}

	return c.format, nil
}

// ShareMode returns the share mode the client was initialized with.
func (c *AudioClient) ShareMode() (ShareMode, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	return c.shareMode, nil
}

// TimingMode returns the timing mode the client was initialized with.
func (c *AudioClient) TimingMode() (TimingMode, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	return c.timingMode, nil
}

// BytesPerFrame returns the frame stride of the negotiated format.
func (c *AudioClient) BytesPerFrame() (int, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	return c.bytesPerFrame, nil
}

func (c *AudioClient) checkOpen() error {
	if c == nil || c.client == nil {
		return fmt.Errorf("audio client is closed")
	}

	return nil
}

// streamFlags validates the combination of device direction, requested direction and mode and
// returns the stream flags for it.
func streamFlags(device, requested Direction, mode StreamMode) (uint32, error) {
	var flags uint32

	switch {
	case device == Render && requested == Capture:
		if mode.ShareMode == Exclusive {
			return 0, ErrLoopbackWithExclusiveMode
		}
		flags |= engine.StreamFlagsLoopback
	case device == Capture && requested == Render:
		return 0, ErrRenderToCaptureDevice
	}

	if mode.AutoConvert {
		if mode.ShareMode == Exclusive {
			return 0, ErrAutoConvertInExclusiveMode
		}
		flags |= engine.StreamFlagsAutoConvertPCM | engine.StreamFlagsSrcDefaultQuality
	}

	if mode.TimingMode == Events {
		flags |= engine.StreamFlagsEventCallback
	}

	return flags, nil
}

// checkStreamEnums rejects direction and mode values outside of their enumerations.
func checkStreamEnums(direction Direction, mode StreamMode) error {
	if direction != Render && direction != Capture {
		return &IllegalEnumError{Kind: "direction", Value: uint32(direction)}
	}
	if err := checkShareMode(mode.ShareMode); err != nil {
		return err
	}
	if mode.TimingMode != Polling && mode.TimingMode != Events {
		return &IllegalEnumError{Kind: "timing mode", Value: uint32(mode.TimingMode)}
	}

	return nil
}

func checkShareMode(m ShareMode) error {
	if m != Shared && m != Exclusive {
		return &IllegalEnumError{Kind: "share mode", Value: uint32(m)}
	}

	return nil
}

func shareModeCode(m ShareMode) uint32 {
	if m == Exclusive {
		return engine.ShareModeExclusive
	}

	return engine.ShareModeShared
}

// Initialize binds the client to format, direction and mode.
//
// A render device may be opened for Capture in shared mode, which captures the output mix
// (loopback). Every other direction mismatch, and auto conversion in exclusive mode, fails with an
// error wrapping ErrInvalidModeCombination before the engine is called. In exclusive mode the
// buffer duration and the period are both mode.Period.
//
// On failure the client stays unbound and Initialize may be retried, see NewInitializedClient
// for the AUDCLNT_E_BUFFER_SIZE_NOT_ALIGNED recovery. A rejected format is reported as a
// *FormatError carrying, in shared mode, the closest format the engine proposes.
// Directions and modes outside of their enumerations fail with *IllegalEnumError.
func (c *AudioClient) Initialize(format WaveFormat, direction Direction, mode StreamMode) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	if c.initialized {
		return AUDCLNT_E_ALREADY_INITIALIZED
	}

	if err := checkStreamEnums(direction, mode); err != nil {
		return err
	}

	flags, err := streamFlags(c.direction, direction, mode)
	if err != nil {
		return err
	}

	blob, err := format.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode format: %w", err)
	}

	bufferDuration, period := mode.BufferDuration, int64(0)
	if mode.ShareMode == Exclusive {
		bufferDuration, period = mode.Period, mode.Period
	}

	c.log.Debug().
		Stringer("format", format).
		Stringer("mode", mode).
		Stringer("stream", direction).
		Uint32("flags", flags).
		Int64("buffer_duration", bufferDuration).
		Int64("period", period).
		Msg("initializing client")

	if err := c.client.Initialize(shareModeCode(mode.ShareMode), flags, bufferDuration, period, blob); err != nil {
		if errors.Is(err, AUDCLNT_E_UNSUPPORTED_FORMAT) {
			return c.rejectedFormat(format, blob, mode.ShareMode, err)
		}

		return fmt.Errorf("IAudioClient::Initialize failed: %w", err)
	}

	c.format = format
	c.shareMode = mode.ShareMode
	c.timingMode = mode.TimingMode
	c.bytesPerFrame = format.BlockAlign()
	c.initialized = true

	return nil
}

// rejectedFormat builds the error for a format refused by Initialize. In shared mode the engine is
// asked for its closest match.
func (c *AudioClient) rejectedFormat(format WaveFormat, blob []byte, shareMode ShareMode, err error) error {
	ferr := &FormatError{Requested: format, Err: err}
	if shareMode != Shared {
		return ferr
	}

	closest, serr := c.client.IsFormatSupported(engine.ShareModeShared, blob)
	if errors.Is(serr, S_FALSE) {
		if nearest, perr := ParseWaveFormat(closest); perr == nil {
			ferr.Nearest = &nearest
		}
	}
	c.log.Debug().Stringer("format", format).Err(err).Msg("format rejected")

	return ferr
}

// BufferSize returns the capacity of the engine buffer in frames.
func (c *AudioClient) BufferSize() (uint32, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	frames, err := c.client.BufferSize()
	if err != nil {
		return 0, fmt.Errorf("IAudioClient::GetBufferSize failed: %w", err)
	}
	c.log.Trace().Uint32("frames", frames).Msg("buffer size")

	return frames, nil
}

// CurrentPadding returns the number of frames queued for playback, or waiting to be read for capture.
func (c *AudioClient) CurrentPadding() (uint32, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	frames, err := c.client.CurrentPadding()
	if err != nil {
		return 0, fmt.Errorf("IAudioClient::GetCurrentPadding failed: %w", err)
	}
	c.log.Trace().Uint32("frames", frames).Msg("current padding")

	return frames, nil
}

// AvailableSpace returns the number of frames that can be written now. In exclusive event mode
// the engine signals once a whole buffer is free, so this is the buffer size. Otherwise it is the
// buffer size minus the padding.
func (c *AudioClient) AvailableSpace() (uint32, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	size, err := c.BufferSize()
	if err != nil {
		return 0, err
	}

	if c.shareMode == Exclusive && c.timingMode == Events {
		return size, nil
	}

	padding, err := c.CurrentPadding()
	if err != nil {
		return 0, err
	}
	if padding > size {
		return 0, nil
	}

	return size - padding, nil
}

// StreamLatency returns the maximum stream latency in 100 ns units.
func (c *AudioClient) StreamLatency() (int64, error) {
	if !c.IsInitialized() {
		return 0, ErrClientNotInit
	}

	latency, err := c.client.StreamLatency()
	if err != nil {
		return 0, fmt.Errorf("IAudioClient::GetStreamLatency failed: %w", err)
	}

	return latency, nil
}

// DevicePeriod returns the default and the minimum device period in 100 ns units.
func (c *AudioClient) DevicePeriod() (int64, int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, 0, err
	}

	def, minPeriod, err := c.client.DevicePeriod()
	if err != nil {
		return 0, 0, fmt.Errorf("IAudioClient::GetDevicePeriod failed: %w", err)
	}
	c.log.Trace().Int64("default", def).Int64("min", minPeriod).Msg("device period")

	return def, minPeriod, nil
}

// MixFormat returns the format the shared mode engine mixes in.
func (c *AudioClient) MixFormat() (WaveFormat, error) {
	if err := c.checkOpen(); err != nil {
		return WaveFormat{}, err
	}

	blob, err := c.client.MixFormat()
	if err != nil {
		return WaveFormat{}, fmt.Errorf("IAudioClient::GetMixFormat failed: %w", err)
	}

	return ParseWaveFormat(blob)
}

// IsSupported asks the engine whether format can be used in shareMode.
//
// It returns (nil, nil) when the format is accepted as is. In shared mode the engine may instead
// propose a close match, which is returned as a non-nil format with a nil error. A rejected format
// returns a *FormatError that matches ErrUnsupportedFormat.
func (c *AudioClient) IsSupported(format WaveFormat, shareMode ShareMode) (*WaveFormat, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if err := checkShareMode(shareMode); err != nil {
		return nil, err
	}

	blob, err := format.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode format: %w", err)
	}

	closest, err := c.client.IsFormatSupported(shareModeCode(shareMode), blob)
	switch {
	case err == nil:
		c.log.Debug().Stringer("format", format).Stringer("share_mode", shareMode).Msg("format supported")

		return nil, nil
	case errors.Is(err, S_FALSE):
		nearest, perr := ParseWaveFormat(closest)
		if perr != nil {
			return nil, &FormatError{Requested: format, Err: perr}
		}
		c.log.Debug().Stringer("format", format).Stringer("nearest", nearest).Msg("format supported with modifications")

		return &nearest, nil
	case errors.Is(err, AUDCLNT_E_UNSUPPORTED_FORMAT):
		return nil, &FormatError{Requested: format, Err: err}
	default:
		return nil, fmt.Errorf("IAudioClient::IsFormatSupported failed: %w", err)
	}
}

// exclusiveCandidates returns the variants of format tried by IsSupportedExclusiveWithQuirks, in
// order. Formats with more than two channels are only tried as given.
func exclusiveCandidates(format WaveFormat) []WaveFormat {
	candidates := []WaveFormat{format}
	if format.Channels() > 2 {
		return candidates
	}

	seen := map[WaveFormat]bool{format: true}
	add := func(w WaveFormat) {
		if !seen[w] {
			seen[w] = true
			candidates = append(candidates, w)
		}
	}

	if st, err := format.SampleType(); err == nil && st == SampleTypeInt {
		if canonical, err := format.ToCanonical(); err == nil {
			add(canonical)
		}
	}

	base := format
	if !base.IsExtensible() {
		ext, err := FromCanonical(format)
		if err != nil {
			return candidates
		}
		base = ext
	}

	add(base.WithChannelMask(standardMasks[base.Channels()]))
	add(base.WithChannelMask(defaultChannelMask(base.Channels())))
	add(base.WithChannelMask(0))

	return candidates
}

// IsSupportedExclusiveWithQuirks works around drivers that reject valid exclusive mode formats
// depending on how they are described. For one or two channels it tries, in order, the format as
// given, the canonical descriptor of integer PCM, and the format with the standard, the simple and
// a zero channel mask. The first accepted variant is returned. Other formats are only tried as
// given.
func (c *AudioClient) IsSupportedExclusiveWithQuirks(format WaveFormat) (WaveFormat, error) {
	var lastErr error
	for _, candidate := range exclusiveCandidates(format) {
		c.log.Debug().Stringer("format", candidate).Msg("trying exclusive format")

		_, err := c.IsSupported(candidate, Exclusive)
		if err == nil {
			return candidate, nil
		}
		lastErr = err
	}

	return WaveFormat{}, &FormatError{Requested: format, Err: lastErr}
}

// CalculateAlignedPeriodNear returns the period in 100 ns units closest to desired that is at
// least the minimum device period and whose frame count is a multiple of the smallest segment
// that is both whole frames and a multiple of alignBytes. Some HD audio drivers only accept
// buffers aligned to 128 bytes. alignBytes <= 0 aligns to whole frames only.
func (c *AudioClient) CalculateAlignedPeriodNear(desired int64, alignBytes int, format WaveFormat) (int64, error) {
	_, minPeriod, err := c.DevicePeriod()
	if err != nil {
		return 0, err
	}

	period := alignedPeriodNear(desired, minPeriod, alignBytes, format)
	c.log.Debug().Int64("desired", desired).Int64("min", minPeriod).Int("align_bytes", alignBytes).Int64("period", period).Msg("aligned period")

	return period, nil
}

// Start starts the stream.
func (c *AudioClient) Start() error {
	if !c.IsInitialized() {
		return ErrClientNotInit
	}

	if err := c.client.Start(); err != nil {
		return fmt.Errorf("IAudioClient::Start failed: %w", err)
	}
	c.running.Store(true)
	c.log.Debug().Msg("stream started")

	return nil
}

// Stop stops the stream. The buffer keeps its content.
func (c *AudioClient) Stop() error {
	if !c.IsInitialized() {
		return ErrClientNotInit
	}

	if err := c.client.Stop(); err != nil {
		return fmt.Errorf("IAudioClient::Stop failed: %w", err)
	}
	c.running.Store(false)
	c.log.Debug().Msg("stream stopped")

	return nil
}

// Reset flushes the buffer of a stopped stream.
func (c *AudioClient) Reset() error {
	if !c.IsInitialized() {
		return ErrClientNotInit
	}

	if err := c.client.Reset(); err != nil {
		return fmt.Errorf("IAudioClient::Reset failed: %w", err)
	}
	c.log.Debug().Msg("stream reset")

	return nil
}

// SetGetEventHandle creates an event and registers it with the engine, which signals it each
// time a buffer is ready. The client must have been initialized with the Events timing mode.
func (c *AudioClient) SetGetEventHandle() (*EventHandle, error) {
	if !c.IsInitialized() {
		return nil, ErrClientNotInit
	}

	ev, err := backend.NewEvent()
	if err != nil {
		return nil, err
	}

	if err := c.client.SetEventHandle(ev); err != nil {
		_ = ev.Close()

		return nil, fmt.Errorf("IAudioClient::SetEventHandle failed: %w", err)
	}

	return &EventHandle{event: ev}, nil
}

// RenderClient returns the render service of an initialized client.
func (c *AudioClient) RenderClient() (*RenderClient, error) {
	if !c.IsInitialized() {
		return nil, ErrClientNotInit
	}

	r, err := c.client.Renderer()
	if err != nil {
		return nil, &ServiceError{Service: "IAudioRenderClient", Err: err}
	}

	return &RenderClient{
		client:        r,
		bytesPerFrame: c.bytesPerFrame,
		log:           componentLogger("render"),
	}, nil
}

// CaptureClient returns the capture service of an initialized client.
func (c *AudioClient) CaptureClient() (*CaptureClient, error) {
	if !c.IsInitialized() {
		return nil, ErrClientNotInit
	}

	cc, err := c.client.Capturer()
	if err != nil {
		return nil, &ServiceError{Service: "IAudioCaptureClient", Err: err}
	}

	return &CaptureClient{
		client:        cc,
		bytesPerFrame: c.bytesPerFrame,
		shareMode:     c.shareMode,
		log:           componentLogger("capture"),
	}, nil
}

// SessionControl returns the session control of an initialized client.
func (c *AudioClient) SessionControl() (*SessionControl, error) {
	if !c.IsInitialized() {
		return nil, ErrClientNotInit
	}

	s, err := c.client.Session()
	if err != nil {
		return nil, &ServiceError{Service: "IAudioSessionControl", Err: err}
	}

	return &SessionControl{session: s, log: componentLogger("session")}, nil
}

// Clock returns the stream clock of an initialized client.
func (c *AudioClient) Clock() (*AudioClock, error) {
	if !c.IsInitialized() {
		return nil, ErrClientNotInit
	}

	clk, err := c.client.Clock()
	if err != nil {
		return nil, &ServiceError{Service: "IAudioClock", Err: err}
	}

	return &AudioClock{clock: clk}, nil
}

// Close releases the client. Services obtained from it must not be used afterwards.
func (c *AudioClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil
	c.initialized = false
	c.running.Store(false)

	return err
}
