package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var recordOpts struct {
	loopback bool
	duration string
	rate     int
	channels int
	bits     int
	float    bool
}

var recordCmd = &cobra.Command{
	Use:   "record <output-wav-file>",
	Short: "Record from a capture device into a WAV file",
	Long: `Record from a capture device into a WAV file.

With --loopback the output mix of a render device is recorded instead. Loopback
capture is only available in shared mode. Press Ctrl+C to stop early.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addStreamFlags(recordCmd)
	addFormatFlags(recordCmd)

	recordCmd.Flags().BoolVar(&recordOpts.loopback, "loopback", false,
		"Record the output of a render device")
	recordCmd.Flags().StringVar(&recordOpts.duration, "duration", "",
		"Duration of the recording, 0 records until interrupted (default from profile)")
}

// addFormatFlags registers the sample format flags on cmd.
func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&recordOpts.rate, "rate", DefaultSampleRate, "Sample rate in Hz")
	cmd.Flags().IntVar(&recordOpts.channels, "channels", DefaultChannels, "Number of channels")
	cmd.Flags().IntVar(&recordOpts.bits, "bits", DefaultBits, "Bits per sample (8, 16, 24, 32)")
	cmd.Flags().BoolVar(&recordOpts.float, "float", false, "Capture IEEE float samples (32 or 64 bits)")
}

// formatConfig merges the format flags that were set into the profile.
func formatConfig(cmd *cobra.Command) FormatConfig {
	fc := cfg.Format

	if cmd.Flags().Changed("rate") {
		fc.Rate = recordOpts.rate
	}
	if cmd.Flags().Changed("channels") {
		fc.Channels = recordOpts.channels
	}
	if cmd.Flags().Changed("bits") {
		fc.Bits = recordOpts.bits
	}
	if cmd.Flags().Changed("float") {
		fc.Float = recordOpts.float
	}

	return fc
}

func recordDuration(cmd *cobra.Command) (time.Duration, error) {
	s := cfg.Record.Duration
	if cmd.Flags().Changed("duration") {
		s = recordOpts.duration
	}

	d, err := parseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}

	return d, nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	format, err := formatConfig(cmd).WaveFormat()
	if err != nil {
		return err
	}

	duration, err := recordDuration(cmd)
	if err != nil {
		return err
	}

	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	sc := streamConfig(cmd)

	deviceDir := wasapi.Capture
	if recordOpts.loopback {
		deviceDir = wasapi.Render
	}

	device, err := openDevice(deviceDir, sc.Device)
	if err != nil {
		return err
	}
	defer device.Close()

	s, err := openStream(device, format, wasapi.Capture, sc)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Recording from: %s\n", device)

	return recordToFile(s, args[0], duration)
}

// recordToFile captures s into a WAV file at path until duration elapsed or the user interrupts.
func recordToFile(s *stream, path string, duration time.Duration) error {
	codec, err := newSampleCodec(s.format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}
	defer f.Close()

	encoder := wav.NewEncoder(f, s.format.SampleRate(), codec.bits(), s.format.Channels(), 1)

	fmt.Printf("Format:         %s\n", s.format)
	fmt.Printf("Mode:           %s\n", s.mode)
	if duration > 0 {
		fmt.Printf("Duration:       %s\n", duration)
	}
	fmt.Println("Starting capture... Press Ctrl+C to stop early.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	limit := int64(duration.Seconds() * float64(s.format.SampleRate()))
	frames, err := captureStream(ctx, s, limit, func(data []byte, _ wasapi.BufferInfo) error {
		return encoder.Write(codec.decode(data, s.format.Channels(), s.format.SampleRate()))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		encoder.Close()

		return err
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}

	seconds := float64(frames) / float64(s.format.SampleRate())
	fmt.Printf("Capture finished. Wrote %s frames (%.2f seconds, %s) to %s\n",
		humanize.Comma(frames), seconds, humanize.IBytes(uint64(frames)*uint64(s.format.BlockAlign())), path)

	return nil
}

// captureStream starts s and hands every captured packet to sink until limit frames were
// captured (0 is unbounded) or ctx is done. It returns the number of frames captured.
func captureStream(ctx context.Context, s *stream, limit int64, sink func([]byte, wasapi.BufferInfo) error) (int64, error) {
	cc, err := s.client.CaptureClient()
	if err != nil {
		return 0, err
	}
	defer cc.Close()

	bufferFrames, err := s.client.BufferSize()
	if err != nil {
		return 0, err
	}

	bpf := cc.BytesPerFrame()
	buf := make([]byte, int(bufferFrames)*bpf)

	if err := s.client.Start(); err != nil {
		return 0, err
	}
	defer s.client.Stop()

	var captured int64
	for limit == 0 || captured < limit {
		if err := s.wait(ctx); err != nil {
			return captured, err
		}

		for {
			next, ok, err := cc.NextPacketSize()
			if err != nil {
				return captured, err
			}
			if ok && next == 0 {
				break
			}

			n, info, err := cc.Read(buf)
			var le *wasapi.DataLengthError
			if errors.As(err, &le) && errors.Is(err, wasapi.ErrDataLengthTooShort) {
				// Buffer sizes reported for process loopback are not reliable.
				buf = make([]byte, le.Expected)

				continue
			}
			if err != nil {
				return captured, err
			}
			if n == 0 {
				break
			}
			if info.Flags.Has(wasapi.BufferDataDiscontinuity) {
				logger.Debug().Uint64("position", info.DevicePosition).Msg("capture discontinuity")
			}

			if limit > 0 && captured+int64(n) > limit {
				n = int(limit - captured)
			}
			if err := sink(buf[:n*bpf], info); err != nil {
				return captured, err
			}
			captured += int64(n)

			if !ok || (limit > 0 && captured >= limit) {
				break
			}
		}
	}

	return captured, nil
}
