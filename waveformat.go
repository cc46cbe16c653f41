package wasapi

import (
	"encoding/binary"
	"fmt"

	"github.com/go-audio/audio"

	"github.com/gen2brain/wasapi/internal/engine"
)

// GUID is a Windows GUID.
type GUID = engine.GUID

// Format tags of the canonical descriptor.
const (
	WAVE_FORMAT_PCM        uint16 = 0x0001
	WAVE_FORMAT_IEEE_FLOAT uint16 = 0x0003
	WAVE_FORMAT_EXTENSIBLE uint16 = 0xFFFE
)

// Sub format GUIDs of the extensible descriptor.
var (
	KSDATAFORMAT_SUBTYPE_PCM        = engine.MustParseGUID("00000001-0000-0010-8000-00aa00389b71")
	KSDATAFORMAT_SUBTYPE_IEEE_FLOAT = engine.MustParseGUID("00000003-0000-0010-8000-00aa00389b71")
)

const (
	waveFormatExSize         = 18
	waveFormatExtensibleSize = 40
	extensibleExtraSize      = waveFormatExtensibleSize - waveFormatExSize
)

// standardMasks are the default speaker layouts of the engine for 1 to 8 channels.
var standardMasks = map[int]uint32{
	1: 0x4,   // front center
	2: 0x3,   // front left, front right
	3: 0x7,   // 2.0 + front center
	4: 0x33,  // quad
	5: 0x37,  // quad + front center
	6: 0x3F,  // 5.1
	7: 0x13F, // 5.1 + back center
	8: 0x63F, // 7.1
}

// WaveFormat describes the layout of interleaved PCM frames.
//
// A WaveFormat is either extensible (WAVEFORMATEXTENSIBLE, carrying valid bits, channel mask and
// sub format) or canonical (plain WAVEFORMATEX, identified by its format tag). Block align and
// average bytes per second are always derived. The zero value is not a valid format.
type WaveFormat struct {
	extensible bool
	tag        uint16
	subFormat  GUID
	storeBits  uint16
	validBits  uint16
	rate       uint32
	channels   uint16
	mask       uint32
}

// NewWaveFormat returns an extensible format with the default channel mask: one bit per
// channel for up to 18 channels, zero above.
func NewWaveFormat(storeBits, validBits int, sampleType SampleType, sampleRate, channels int) WaveFormat {
	return NewWaveFormatMask(storeBits, validBits, sampleType, sampleRate, channels, defaultChannelMask(channels))
}

// NewWaveFormatMask returns an extensible format with an explicit channel mask.
func NewWaveFormatMask(storeBits, validBits int, sampleType SampleType, sampleRate, channels int, mask uint32) WaveFormat {
	sub := KSDATAFORMAT_SUBTYPE_PCM
	if sampleType == SampleTypeFloat {
		sub = KSDATAFORMAT_SUBTYPE_IEEE_FLOAT
	}

	return WaveFormat{
		extensible: true,
		tag:        WAVE_FORMAT_EXTENSIBLE,
		subFormat:  sub,
		storeBits:  uint16(storeBits),
		validBits:  uint16(validBits),
		rate:       uint32(sampleRate),
		channels:   uint16(channels),
		mask:       mask,
	}
}

// NewWaveFormatFromAudio returns an extensible format for a go-audio format description.
func NewWaveFormatFromAudio(f *audio.Format, bitDepth int, sampleType SampleType) WaveFormat {
	return NewWaveFormat(bitDepth, bitDepth, sampleType, f.SampleRate, f.NumChannels)
}

func defaultChannelMask(channels int) uint32 {
	if channels <= 0 || channels > 18 {
		return 0
	}

	return uint32(1)<<uint(channels) - 1
}

// FromCanonical converts a canonical descriptor into the extensible form. Valid bits are set to
// the storage bits and the channel mask to the default mask. An extensible format is returned as is.
func FromCanonical(desc WaveFormat) (WaveFormat, error) {
	if desc.extensible {
		return desc, nil
	}

	var st SampleType
	switch desc.tag {
	case WAVE_FORMAT_PCM:
		st = SampleTypeInt
	case WAVE_FORMAT_IEEE_FLOAT:
		st = SampleTypeFloat
	default:
		return WaveFormat{}, fmt.Errorf("%w: format tag 0x%04x", ErrUnsupportedFormat, desc.tag)
	}

	return NewWaveFormat(int(desc.storeBits), int(desc.storeBits), st, int(desc.rate), int(desc.channels)), nil
}

// ToCanonical returns the canonical descriptor of w. Valid bits, channel mask and sub format are dropped.
func (w WaveFormat) ToCanonical() (WaveFormat, error) {
	st, err := w.SampleType()
	if err != nil {
		return WaveFormat{}, err
	}

	tag := WAVE_FORMAT_PCM
	if st == SampleTypeFloat {
		tag = WAVE_FORMAT_IEEE_FLOAT
	}

	return WaveFormat{
		tag:       tag,
		storeBits: w.storeBits,
		validBits: w.storeBits,
		rate:      w.rate,
		channels:  w.channels,
	}, nil
}

// WithChannelMask returns a copy of an extensible format with another channel mask.
func (w WaveFormat) WithChannelMask(mask uint32) WaveFormat {
	w.mask = mask

	return w
}

// IsExtensible reports whether w is in the extensible form.
func (w WaveFormat) IsExtensible() bool {
	return w.extensible
}

// FormatTag returns the format tag, WAVE_FORMAT_EXTENSIBLE for extensible formats.
func (w WaveFormat) FormatTag() uint16 {
	return w.tag
}

// SubFormat returns the sub format GUID of an extensible format, or the zero GUID.
func (w WaveFormat) SubFormat() GUID {
	return w.subFormat
}

// SampleType returns the sample encoding.
func (w WaveFormat) SampleType() (SampleType, error) {
	if w.extensible {
		switch w.subFormat {
		case KSDATAFORMAT_SUBTYPE_PCM:
			return SampleTypeInt, nil
		case KSDATAFORMAT_SUBTYPE_IEEE_FLOAT:
			return SampleTypeFloat, nil
		}

		return 0, fmt.Errorf("%w: sub format %s", ErrUnsupportedFormat, w.subFormat)
	}

	switch w.tag {
	case WAVE_FORMAT_PCM:
		return SampleTypeInt, nil
	case WAVE_FORMAT_IEEE_FLOAT:
		return SampleTypeFloat, nil
	}

	return 0, fmt.Errorf("%w: format tag 0x%04x", ErrUnsupportedFormat, w.tag)
}

// StoreBits returns the container size of a sample in bits.
func (w WaveFormat) StoreBits() int {
	return int(w.storeBits)
}

// ValidBits returns the number of significant bits in a sample.
func (w WaveFormat) ValidBits() int {
	return int(w.validBits)
}

// SampleRate returns the rate in frames per second.
func (w WaveFormat) SampleRate() int {
	return int(w.rate)
}

// Channels returns the number of channels.
func (w WaveFormat) Channels() int {
	return int(w.channels)
}

// ChannelMask returns the speaker position mask, zero for canonical formats.
func (w WaveFormat) ChannelMask() uint32 {
	return w.mask
}

// BlockAlign returns the size of one frame in bytes.
func (w WaveFormat) BlockAlign() int {
	return int(w.channels) * int(w.storeBits) / 8
}

// AvgBytesPerSec returns SampleRate * BlockAlign.
func (w WaveFormat) AvgBytesPerSec() int {
	return int(w.rate) * w.BlockAlign()
}

// AudioFormat returns the go-audio description of w.
func (w WaveFormat) AudioFormat() *audio.Format {
	return &audio.Format{NumChannels: int(w.channels), SampleRate: int(w.rate)}
}

// String returns a short description, e.g. "Int 24/24 bit, 44100 Hz, 2 ch, mask 0x3".
func (w WaveFormat) String() string {
	enc := fmt.Sprintf("tag 0x%04x", w.tag)
	if st, err := w.SampleType(); err == nil {
		enc = st.String()
	}

	if !w.extensible {
		return fmt.Sprintf("%s %d bit, %d Hz, %d ch (canonical)", enc, w.storeBits, w.rate, w.channels)
	}

	return fmt.Sprintf("%s %d/%d bit, %d Hz, %d ch, mask 0x%x", enc, w.validBits, w.storeBits, w.rate, w.channels, w.mask)
}

// MarshalBinary encodes w as the little-endian WAVEFORMATEX (18 bytes) or
// WAVEFORMATEXTENSIBLE (40 bytes) structure.
func (w WaveFormat) MarshalBinary() ([]byte, error) {
	size := waveFormatExSize
	if w.extensible {
		size = waveFormatExtensibleSize
	}

	b := make([]byte, size)
	binary.LittleEndian.PutUint16(b[0:2], w.tag)
	binary.LittleEndian.PutUint16(b[2:4], w.channels)
	binary.LittleEndian.PutUint32(b[4:8], w.rate)
	binary.LittleEndian.PutUint32(b[8:12], uint32(w.AvgBytesPerSec()))
	binary.LittleEndian.PutUint16(b[12:14], uint16(w.BlockAlign()))
	binary.LittleEndian.PutUint16(b[14:16], w.storeBits)

	if w.extensible {
		binary.LittleEndian.PutUint16(b[16:18], extensibleExtraSize)
		binary.LittleEndian.PutUint16(b[18:20], w.validBits)
		binary.LittleEndian.PutUint32(b[20:24], w.mask)
		w.subFormat.PutLE(b[24:40])
	}

	return b, nil
}

// ParseWaveFormat decodes a WAVEFORMATEX or WAVEFORMATEXTENSIBLE structure. Block align and
// average bytes per second stored in b are ignored and recomputed.
func ParseWaveFormat(b []byte) (WaveFormat, error) {
	if len(b) < waveFormatExSize {
		return WaveFormat{}, &DataLengthError{Kind: ErrDataLengthTooShort, Received: len(b), Expected: waveFormatExSize}
	}

	w := WaveFormat{
		tag:       binary.LittleEndian.Uint16(b[0:2]),
		channels:  binary.LittleEndian.Uint16(b[2:4]),
		rate:      binary.LittleEndian.Uint32(b[4:8]),
		storeBits: binary.LittleEndian.Uint16(b[14:16]),
	}
	w.validBits = w.storeBits

	if w.tag != WAVE_FORMAT_EXTENSIBLE {
		if _, err := w.SampleType(); err != nil {
			return WaveFormat{}, err
		}

		return w, nil
	}

	extra := binary.LittleEndian.Uint16(b[16:18])
	if extra < extensibleExtraSize || len(b) < waveFormatExtensibleSize {
		return WaveFormat{}, &DataLengthError{Kind: ErrDataLengthTooShort, Received: len(b), Expected: waveFormatExtensibleSize}
	}

	w.extensible = true
	w.validBits = binary.LittleEndian.Uint16(b[18:20])
	w.mask = binary.LittleEndian.Uint32(b[20:24])
	w.subFormat = engine.GUIDFromLE(b[24:40])

	return w, nil
}
