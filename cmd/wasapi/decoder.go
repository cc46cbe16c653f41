package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// AudioDecoder abstracts the audio sources of the play command.
type AudioDecoder interface {
	// PCMBuffer reads decoded samples into buf and returns the number of samples (not frames) read.
	PCMBuffer(buf *audio.IntBuffer) (n int, err error)
	// Duration returns the total duration of the stream, zero if unbounded.
	Duration() (time.Duration, error)
	NumChans() uint16
	SampleRate() uint32
	// BitDepth is the integer resolution of the decoded samples.
	BitDepth() uint16
}

// openDecoder opens path as WAV or MP3 by its extension.
func openDecoder(path string) (AudioDecoder, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var dec AudioDecoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		dec, err = newWavDecoder(f)
	case ".mp3":
		dec, err = newMp3Decoder(f)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()

		return nil, nil, err
	}

	return dec, f, nil
}

type wavDecoderWrapper struct {
	*wav.Decoder
}

func newWavDecoder(r io.ReadSeeker) (AudioDecoder, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if decoder.WavAudioFormat == 3 {
		return nil, errors.New("IEEE float WAV files are not supported")
	}

	return &wavDecoderWrapper{Decoder: decoder}, nil
}

func (w *wavDecoderWrapper) SampleRate() uint32 { return w.Decoder.SampleRate }
func (w *wavDecoderWrapper) NumChans() uint16   { return w.Decoder.NumChans }
func (w *wavDecoderWrapper) BitDepth() uint16   { return uint16(w.Decoder.BitDepth) }

// mp3DecoderWrapper decodes to 16-bit stereo.
type mp3DecoderWrapper struct {
	decoder    *mp3.Decoder
	sampleRate uint32
	length     int64 // decoded size in bytes
	raw        []byte
}

func newMp3Decoder(r io.Reader) (AudioDecoder, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	return &mp3DecoderWrapper{
		decoder:    decoder,
		sampleRate: uint32(decoder.SampleRate()),
		length:     decoder.Length(),
	}, nil
}

func (m *mp3DecoderWrapper) PCMBuffer(buf *audio.IntBuffer) (int, error) {
	need := len(buf.Data) * 2
	if cap(m.raw) < need {
		m.raw = make([]byte, need)
	}
	raw := m.raw[:need]

	n, err := io.ReadFull(m.decoder, raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	if samples > 0 {
		return samples, nil
	}

	return 0, err
}

func (m *mp3DecoderWrapper) Duration() (time.Duration, error) {
	if m.length <= 0 {
		return 0, errors.New("unknown stream length")
	}

	frames := m.length / 4
	seconds := float64(frames) / float64(m.sampleRate)

	return time.Duration(seconds * float64(time.Second)), nil
}

func (m *mp3DecoderWrapper) SampleRate() uint32 { return m.sampleRate }
func (m *mp3DecoderWrapper) NumChans() uint16   { return 2 }
func (m *mp3DecoderWrapper) BitDepth() uint16   { return 16 }

// sineGenerator produces a 16-bit sine tone, optionally limited to a number of frames.
type sineGenerator struct {
	freq       float64
	amplitude  float64
	sampleRate uint32
	channels   uint16
	limit      int64 // frames, 0 is unbounded
	pos        int64
}

func newSineGenerator(freq, amplitude float64, sampleRate uint32, channels uint16, d time.Duration) *sineGenerator {
	return &sineGenerator{
		freq:       freq,
		amplitude:  amplitude,
		sampleRate: sampleRate,
		channels:   channels,
		limit:      int64(d.Seconds() * float64(sampleRate)),
	}
}

func (s *sineGenerator) PCMBuffer(buf *audio.IntBuffer) (int, error) {
	frames := len(buf.Data) / int(s.channels)
	if s.limit > 0 && s.pos+int64(frames) > s.limit {
		frames = int(s.limit - s.pos)
	}
	if frames <= 0 {
		return 0, io.EOF
	}

	step := 2 * math.Pi * s.freq / float64(s.sampleRate)
	for i := 0; i < frames; i++ {
		v := int(math.Round(s.amplitude * 32767 * math.Sin(step*float64(s.pos))))
		for ch := 0; ch < int(s.channels); ch++ {
			buf.Data[i*int(s.channels)+ch] = v
		}
		s.pos++
	}

	return frames * int(s.channels), nil
}

func (s *sineGenerator) Duration() (time.Duration, error) {
	return time.Duration(float64(s.limit) / float64(s.sampleRate) * float64(time.Second)), nil
}

func (s *sineGenerator) SampleRate() uint32 { return s.sampleRate }
func (s *sineGenerator) NumChans() uint16   { return s.channels }
func (s *sineGenerator) BitDepth() uint16   { return 16 }
