package main

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-audio/audio"

	"github.com/gen2brain/wasapi"
)

// sampleCodec converts between go-audio integer buffers and the interleaved bytes of a stream format.
type sampleCodec struct {
	bytesPerSample int
	validBits      int
	float          bool
}

func newSampleCodec(format wasapi.WaveFormat) (sampleCodec, error) {
	st, err := format.SampleType()
	if err != nil {
		return sampleCodec{}, err
	}

	c := sampleCodec{
		bytesPerSample: format.StoreBits() / 8,
		validBits:      format.ValidBits(),
		float:          st == wasapi.SampleTypeFloat,
	}

	switch {
	case c.float && c.bytesPerSample != 4 && c.bytesPerSample != 8:
		return sampleCodec{}, fmt.Errorf("unsupported float sample size: %d bits", format.StoreBits())
	case !c.float && (c.bytesPerSample < 1 || c.bytesPerSample > 4):
		return sampleCodec{}, fmt.Errorf("unsupported integer sample size: %d bits", format.StoreBits())
	}

	return c, nil
}

// scale converts s from srcBits to dstBits integer resolution.
func scale(s, srcBits, dstBits int) int {
	switch {
	case srcBits == dstBits || srcBits == 0:
		return s
	case srcBits < dstBits:
		return s << (dstBits - srcBits)
	default:
		return s >> (srcBits - dstBits)
	}
}

// encode appends samples of srcBits resolution to dst in the stream format.
func (c sampleCodec) encode(dst []byte, samples []int, srcBits int) []byte {
	var tmp [8]byte
	maxVal := float64(int64(1) << (srcBits - 1))

	for _, s := range samples {
		b := tmp[:c.bytesPerSample]

		switch {
		case c.float && c.bytesPerSample == 4:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(float64(s)/maxVal)))
		case c.float:
			binary.LittleEndian.PutUint64(b, math.Float64bits(float64(s)/maxVal))
		case c.bytesPerSample == 1:
			// 8-bit PCM is unsigned.
			b[0] = byte(clamp(scale(s, srcBits, 8), 8) + 128)
		case c.bytesPerSample == 2:
			binary.LittleEndian.PutUint16(b, uint16(int16(clamp(scale(s, srcBits, 16), 16))))
		case c.bytesPerSample == 3:
			v := uint32(int32(clamp(scale(s, srcBits, 24), 24)))
			b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
		default:
			// Samples with fewer valid bits are left aligned in the container.
			v := clamp(scale(s, srcBits, c.validBits), c.validBits) << (32 - c.validBits)
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
		}

		dst = append(dst, b...)
	}

	return dst
}

// decode converts interleaved bytes of the stream format into an integer buffer. Float samples
// are converted to 32-bit integers.
func (c sampleCodec) decode(data []byte, channels, rate int) *audio.IntBuffer {
	n := len(data) / c.bytesPerSample
	out := make([]int, n)
	bits := c.bits()

	for i := 0; i < n; i++ {
		b := data[i*c.bytesPerSample:]

		switch {
		case c.float && c.bytesPerSample == 4:
			out[i] = floatToInt(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), bits)
		case c.float:
			out[i] = floatToInt(math.Float64frombits(binary.LittleEndian.Uint64(b)), bits)
		case c.bytesPerSample == 1:
			out[i] = int(b[0]) - 128
		case c.bytesPerSample == 2:
			out[i] = int(int16(binary.LittleEndian.Uint16(b)))
		case c.bytesPerSample == 3:
			v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
			if v&0x800000 != 0 {
				v |= 0xFF000000
			}
			out[i] = int(int32(v))
		default:
			out[i] = int(int32(binary.LittleEndian.Uint32(b))) >> (32 - c.validBits)
		}
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           out,
		SourceBitDepth: bits,
	}
}

// bits returns the integer resolution of decoded samples.
func (c sampleCodec) bits() int {
	if c.float {
		return 32
	}
	if c.bytesPerSample == 4 {
		return c.validBits
	}

	return c.bytesPerSample * 8
}

func clamp(v, bits int) int {
	hi := 1<<(bits-1) - 1
	lo := -1 << (bits - 1)

	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}

	return v
}

func floatToInt(f float64, bits int) int {
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}

	return clamp(int(math.Round(f*float64(int64(1)<<(bits-1)))), bits)
}
