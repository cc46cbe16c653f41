package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var streamOpts struct {
	device      string
	exclusive   bool
	events      bool
	autoConvert bool
	buffer      string
}

// addStreamFlags registers the stream mode flags on cmd. Flags that are set override the profile.
func addStreamFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&streamOpts.device, "device", "d", "",
		"Device friendly name (default: the default device)")
	cmd.Flags().BoolVar(&streamOpts.exclusive, "exclusive", false,
		"Open the device in exclusive mode")
	cmd.Flags().BoolVar(&streamOpts.events, "events", true,
		"Let the audio engine signal buffer readiness instead of polling")
	cmd.Flags().BoolVar(&streamOpts.autoConvert, "autoconvert", true,
		"Let the shared mode engine convert sample rate and format")
	cmd.Flags().StringVar(&streamOpts.buffer, "buffer", "",
		"Buffer duration in shared mode, period in exclusive mode (e.g. 20ms)")
}

// streamConfig merges the stream flags that were set into the profile.
func streamConfig(cmd *cobra.Command) StreamConfig {
	sc := cfg.Stream

	if cmd.Flags().Changed("device") {
		sc.Device = streamOpts.device
	}
	if cmd.Flags().Changed("exclusive") {
		sc.Exclusive = streamOpts.exclusive
	}
	if cmd.Flags().Changed("events") {
		sc.Events = streamOpts.events
	}
	if cmd.Flags().Changed("autoconvert") {
		sc.AutoConvert = streamOpts.autoConvert
	}
	if cmd.Flags().Changed("buffer") {
		sc.Buffer = streamOpts.buffer
	}
	if sc.Exclusive {
		sc.AutoConvert = false
	}

	return sc
}

// initAudio initializes COM for the process and returns the cleanup function.
func initAudio() (func(), error) {
	if err := wasapi.InitializeMTA(); err != nil {
		return nil, fmt.Errorf("failed to initialize COM: %w", err)
	}

	return wasapi.Deinitialize, nil
}

// openDevice returns the device named name, or the default device if name is empty.
func openDevice(direction wasapi.Direction, name string) (*wasapi.Device, error) {
	if name == "" {
		return wasapi.DefaultDevice(direction)
	}

	devices, err := wasapi.Devices(direction)
	if err != nil {
		return nil, err
	}
	defer devices.Close()

	d, err := devices.DeviceByName(name)
	if err != nil {
		return nil, err
	}

	id, err := d.ID()
	if err != nil {
		return nil, err
	}

	return wasapi.DeviceByID(id)
}

// stream is an initialized client together with the event handle of the Events timing mode.
type stream struct {
	client *wasapi.AudioClient
	event  *wasapi.EventHandle
	format wasapi.WaveFormat
	mode   wasapi.StreamMode
}

// openStream initializes a client on device for direction. In exclusive mode the format is
// negotiated with the quirks ladder and a zero period is replaced by the aligned default period.
func openStream(device *wasapi.Device, format wasapi.WaveFormat, direction wasapi.Direction, sc StreamConfig) (*stream, error) {
	mode, err := sc.Mode()
	if err != nil {
		return nil, err
	}

	if mode.ShareMode == wasapi.Exclusive {
		format, mode, err = negotiateExclusive(device, format, mode)
		if err != nil {
			return nil, err
		}
	}

	client, err := wasapi.NewInitializedClient(device, format, direction, mode)
	if err != nil {
		return nil, err
	}

	s := &stream{client: client, format: format, mode: mode}
	if mode.TimingMode == wasapi.Events {
		s.event, err = client.SetGetEventHandle()
		if err != nil {
			client.Close()

			return nil, err
		}
	}

	logger.Debug().
		Stringer("format", format).
		Stringer("mode", mode).
		Stringer("direction", direction).
		Msg("stream initialized")

	return s, nil
}

func negotiateExclusive(device *wasapi.Device, format wasapi.WaveFormat, mode wasapi.StreamMode) (wasapi.WaveFormat, wasapi.StreamMode, error) {
	probe, err := device.NewAudioClient()
	if err != nil {
		return format, mode, err
	}
	defer probe.Close()

	accepted, err := probe.IsSupportedExclusiveWithQuirks(format)
	if err != nil {
		return format, mode, err
	}

	if mode.Period == 0 {
		def, _, err := probe.DevicePeriod()
		if err != nil {
			return format, mode, err
		}

		mode.Period, err = probe.CalculateAlignedPeriodNear(def, 128, accepted)
		if err != nil {
			return format, mode, err
		}
	}

	return accepted, mode, nil
}

// wait blocks for the next period, either on the engine event or by sleeping half a period.
func (s *stream) wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if s.event != nil {
		err := s.event.Wait(1000)
		if errors.Is(err, wasapi.ErrEventTimeout) {
			logger.Debug().Msg("no buffer event within a second")

			return nil
		}

		return err
	}

	def, _, err := s.client.DevicePeriod()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(def*100) / 2):
		return nil
	}
}

func (s *stream) Close() error {
	if s.client.IsRunning() {
		_ = s.client.Stop()
	}

	err := s.client.Close()
	if s.event != nil {
		_ = s.event.Close()
	}

	return err
}
