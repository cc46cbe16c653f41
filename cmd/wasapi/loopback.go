package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/smallnest/ringbuffer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gen2brain/wasapi"
)

var loopbackOpts struct {
	from       string
	to         string
	fromRender bool
	ring       string
}

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Route a capture device to a render device",
	Long: `Route the audio of a capture device to a render device.

A capture goroutine fills a ring buffer that the render loop drains. With
--from-render the source is the output mix of a render device. Both streams run
in shared mode with automatic format conversion.`,
	Args: cobra.NoArgs,
	RunE: runLoopback,
}

func init() {
	rootCmd.AddCommand(loopbackCmd)
	addFormatFlags(loopbackCmd)

	loopbackCmd.Flags().StringVar(&loopbackOpts.from, "from", "",
		"Source device friendly name (default: the default device)")
	loopbackCmd.Flags().StringVar(&loopbackOpts.to, "to", "",
		"Destination render device friendly name (default: the default device)")
	loopbackCmd.Flags().BoolVar(&loopbackOpts.fromRender, "from-render", false,
		"Use the output of a render device as source")
	loopbackCmd.Flags().StringVar(&loopbackOpts.ring, "ring", "",
		"Amount of audio the ring buffer holds (default from profile)")
}

func runLoopback(cmd *cobra.Command, _ []string) error {
	format, err := formatConfig(cmd).WaveFormat()
	if err != nil {
		return err
	}

	ringSetting := cfg.Loopback.Ring
	if cmd.Flags().Changed("ring") {
		ringSetting = loopbackOpts.ring
	}
	ringDuration, err := parseDuration(ringSetting)
	if err != nil || ringDuration == 0 {
		return fmt.Errorf("invalid ring duration %q", ringSetting)
	}

	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	sc := cfg.Stream
	sc.Exclusive = false
	sc.AutoConvert = true

	sourceDir := wasapi.Capture
	if loopbackOpts.fromRender {
		sourceDir = wasapi.Render
	}

	source, err := openDevice(sourceDir, loopbackOpts.from)
	if err != nil {
		return err
	}
	defer source.Close()

	sink, err := openDevice(wasapi.Render, loopbackOpts.to)
	if err != nil {
		return err
	}
	defer sink.Close()

	in, err := openStream(source, format, wasapi.Capture, sc)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openStream(sink, format, wasapi.Render, sc)
	if err != nil {
		return err
	}
	defer out.Close()

	ringFrames := int(ringDuration.Seconds() * float64(format.SampleRate()))
	ring := ringbuffer.New(ringFrames * format.BlockAlign())

	fmt.Printf("Source:  %s\n", source)
	fmt.Printf("Sink:    %s\n", sink)
	fmt.Printf("Format:  %s\n", format)
	fmt.Printf("Ring:    %s (%s)\n", ringDuration, humanize.IBytes(uint64(ring.Capacity())))
	fmt.Println("Routing... Press Ctrl+C to stop.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var stats routeStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := captureStream(gctx, in, 0, func(data []byte, _ wasapi.BufferInfo) error {
			n, _ := ring.Write(data)
			stats.captured.Add(uint64(n))
			if n < len(data) {
				stats.dropped.Add(uint64(len(data) - n))
			}

			return nil
		})

		return err
	})

	g.Go(func() error {
		return renderFromRing(gctx, out, ring, &stats)
	})

	err = g.Wait()

	fmt.Printf("Routed %s, %s dropped, %s of silence inserted\n",
		humanize.IBytes(stats.rendered.Load()), humanize.IBytes(stats.dropped.Load()), humanize.IBytes(stats.silence.Load()))

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

type routeStats struct {
	captured atomic.Uint64
	rendered atomic.Uint64
	dropped  atomic.Uint64 // bytes lost to a full ring
	silence  atomic.Uint64 // bytes of silence rendered on an empty ring
}

// renderFromRing renders what the capture side put into ring. It waits for half of the ring to
// fill before it starts and renders silence whenever the ring runs dry.
func renderFromRing(ctx context.Context, s *stream, ring *ringbuffer.RingBuffer, stats *routeStats) error {
	r, err := s.client.RenderClient()
	if err != nil {
		return err
	}
	defer r.Close()

	bpf := r.BytesPerFrame()

	for ring.Length() < ring.Capacity()/2 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}

	buf := make([]byte, 0)
	started := false

	for {
		if started {
			if err := s.wait(ctx); err != nil {
				return err
			}
		}

		avail, err := s.client.AvailableSpace()
		if err != nil {
			return err
		}

		need := int(avail) * bpf
		if cap(buf) < need {
			buf = make([]byte, need)
		}
		buf = buf[:need]

		n := 0
		if ring.Length() >= bpf {
			n, _ = ring.Read(buf[:min(need, ring.Length()/bpf*bpf)])
		}
		if n < need {
			clear(buf[n:])
			stats.silence.Add(uint64(need - n))
		}

		if err := r.Write(int(avail), buf, 0); err != nil {
			return err
		}
		stats.rendered.Add(uint64(n))

		if !started {
			if err := s.client.Start(); err != nil {
				return err
			}
			started = true
		}
	}
}
