package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-audio/audio"
	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var playOpts struct {
	sine     float64
	duration string
	volume   float64
}

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Play a WAV or MP3 file, or a sine tone",
	Long: `Play a WAV or MP3 file on a render device.

The stream uses the sample rate and channel count of the file. In exclusive mode the
device must accept them, in shared mode without --autoconvert they must match the mix
format. With --sine a tone of the given frequency is played instead of a file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	addStreamFlags(playCmd)

	playCmd.Flags().Float64Var(&playOpts.sine, "sine", 0,
		"Play a sine tone of this frequency in Hz instead of a file")
	playCmd.Flags().StringVar(&playOpts.duration, "duration", "5s",
		"Duration of the sine tone, 0 plays until interrupted")
	playCmd.Flags().Float64Var(&playOpts.volume, "volume", 0.3,
		"Amplitude of the sine tone (0..1)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	var (
		dec AudioDecoder
		src string
	)

	switch {
	case len(args) == 1:
		d, closer, err := openDecoder(args[0])
		if err != nil {
			return err
		}
		defer closer.Close()
		dec, src = d, args[0]
	case playOpts.sine > 0:
		d, err := parseDuration(playOpts.duration)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		dec = newSineGenerator(playOpts.sine, playOpts.volume, uint32(cfg.Format.Rate), uint16(cfg.Format.Channels), d)
		src = fmt.Sprintf("sine %.1f Hz", playOpts.sine)
	default:
		return errors.New("a file or --sine is required")
	}

	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	sc := streamConfig(cmd)
	device, err := openDevice(wasapi.Render, sc.Device)
	if err != nil {
		return err
	}
	defer device.Close()

	format := wasapi.NewWaveFormat(int(dec.BitDepth()), int(dec.BitDepth()), wasapi.SampleTypeInt,
		int(dec.SampleRate()), int(dec.NumChans()))

	s, err := openStream(device, format, wasapi.Render, sc)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Playing: %s\n", src)
	fmt.Printf("Device:  %s\n", device)
	fmt.Printf("Format:  %s\n", s.format)
	fmt.Printf("Mode:    %s\n", s.mode)
	if d, err := dec.Duration(); err == nil && d > 0 {
		fmt.Printf("Length:  %s\n", d.Round(time.Millisecond))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	frames, err := playStream(ctx, s, dec)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Printf("Playback finished in %s (%s frames, %s)\n", time.Since(start).Round(time.Millisecond),
		humanize.Comma(frames), humanize.IBytes(uint64(frames)*uint64(s.format.BlockAlign())))

	return nil
}

// playStream renders dec until it is exhausted and the engine buffer drained, or ctx is done.
// It returns the number of frames written.
func playStream(ctx context.Context, s *stream, dec AudioDecoder) (int64, error) {
	codec, err := newSampleCodec(s.format)
	if err != nil {
		return 0, err
	}

	r, err := s.client.RenderClient()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	bufferFrames, err := s.client.BufferSize()
	if err != nil {
		return 0, err
	}

	bpf := r.BytesPerFrame()
	pcm := &audio.IntBuffer{Data: make([]int, int(bufferFrames)*int(dec.NumChans()))}

	var (
		queue   bytes.Buffer
		eof     bool
		written int64
		started bool
	)

	// fill decodes until the queue holds want bytes or the decoder is exhausted.
	fill := func(want int) error {
		for !eof && queue.Len() < want {
			n, err := dec.PCMBuffer(pcm)
			if n > 0 {
				queue.Write(codec.encode(nil, pcm.Data[:n], int(dec.BitDepth())))
			}
			if errors.Is(err, io.EOF) || (err == nil && n == 0) {
				eof = true
			} else if err != nil {
				return err
			}
		}

		return nil
	}

	for {
		if started {
			if err := s.wait(ctx); err != nil {
				return written, err
			}
		}

		avail, err := s.client.AvailableSpace()
		if err != nil {
			return written, err
		}

		if err := fill(int(avail) * bpf); err != nil {
			return written, err
		}

		// Exclusive event streams take whole buffers only.
		if eof && s.mode.ShareMode == wasapi.Exclusive && queue.Len() > 0 && queue.Len() < int(avail)*bpf {
			queue.Write(make([]byte, int(avail)*bpf-queue.Len()))
		}

		frames := min(int(avail), queue.Len()/bpf)
		if err := r.WriteFromQueue(frames, &queue, 0); err != nil {
			return written, err
		}
		written += int64(frames)

		if !started {
			if err := s.client.Start(); err != nil {
				return written, err
			}
			started = true
		}

		if eof && queue.Len() < bpf {
			return written, drain(ctx, s)
		}
	}
}

// drain waits until the engine played everything that was written.
func drain(ctx context.Context, s *stream) error {
	for {
		padding, err := s.client.CurrentPadding()
		if err != nil || padding == 0 {
			return err
		}

		if s.mode.ShareMode == wasapi.Exclusive {
			// The whole buffer is queued in exclusive mode; one more buffer duration drains it.
			latency := time.Duration(s.mode.Period*100) * 2
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(latency):
				return nil
			}
		}

		if err := s.wait(ctx); err != nil {
			return err
		}
	}
}
