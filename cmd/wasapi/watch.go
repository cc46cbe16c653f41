package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the session notifications of a stream",
	Long: `Open a shared stream on a device and print the notifications of its audio
session: volume and mute changes, state changes and disconnects. Change the
volume of the stream in the Windows volume mixer to see events.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addStreamFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	sc := streamConfig(cmd)
	sc.Exclusive = false

	device, err := openDevice(wasapi.Render, sc.Device)
	if err != nil {
		return err
	}
	defer device.Close()

	probe, err := device.NewAudioClient()
	if err != nil {
		return err
	}
	mix, err := probe.MixFormat()
	probe.Close()
	if err != nil {
		return err
	}

	s, err := openStream(device, mix, wasapi.Render, sc)
	if err != nil {
		return err
	}
	defer s.Close()

	session, err := s.client.SessionControl()
	if err != nil {
		return err
	}
	defer session.Close()

	state, err := session.State()
	if err != nil {
		return err
	}
	fmt.Printf("Watching session of %s (state %s). Press Ctrl+C to stop.\n", device, state)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	callbacks := wasapi.NewEventCallbacks()
	callbacks.SetSimpleVolumeCallback(func(volume float32, mute bool, ctx wasapi.GUID) {
		logger.Info().Float32("volume", volume).Bool("mute", mute).Stringer("context", ctx).Msg("volume changed")
	})
	callbacks.SetChannelVolumeCallback(func(volumes []float32, changed uint32, _ wasapi.GUID) {
		logger.Info().Floats32("volumes", volumes).Uint32("channel", changed).Msg("channel volume changed")
	})
	callbacks.SetStateCallback(func(state wasapi.SessionState) {
		logger.Info().Stringer("state", state).Msg("state changed")
	})
	callbacks.SetDisplayNameCallback(func(name string, _ wasapi.GUID) {
		logger.Info().Str("name", name).Msg("display name changed")
	})
	callbacks.SetIconPathCallback(func(path string, _ wasapi.GUID) {
		logger.Info().Str("path", path).Msg("icon path changed")
	})
	callbacks.SetGroupingParamCallback(func(param wasapi.GUID, _ wasapi.GUID) {
		logger.Info().Stringer("grouping", param).Msg("grouping parameter changed")
	})
	callbacks.SetDisconnectedCallback(func(reason wasapi.DisconnectReason) {
		logger.Warn().Stringer("reason", reason).Msg("session disconnected")
		stop()
	})

	reg, err := session.RegisterSessionNotification(callbacks)
	if err != nil {
		return err
	}
	defer reg.Close()

	// Silence keeps the session active while watching.
	if _, err := playStream(ctx, s, newSineGenerator(0, 0, uint32(mix.SampleRate()), uint16(mix.Channels()), 0)); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}
