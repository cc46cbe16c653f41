package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var appRecordOpts struct {
	exclude bool
}

var appRecordCmd = &cobra.Command{
	Use:   "app-record <pid> <output-wav-file>",
	Short: "Record the audio of one process into a WAV file",
	Long: `Record the audio rendered by a process and its children into a WAV file.

With --exclude everything except the process tree is recorded. Needs Windows 10
build 20348 or later. The stream always runs in shared mode.`,
	Args: cobra.ExactArgs(2),
	RunE: runAppRecord,
}

func init() {
	rootCmd.AddCommand(appRecordCmd)
	addFormatFlags(appRecordCmd)

	appRecordCmd.Flags().BoolVar(&appRecordOpts.exclude, "exclude", false,
		"Record everything but the process tree")
	appRecordCmd.Flags().StringVar(&recordOpts.duration, "duration", "",
		"Duration of the recording, 0 records until interrupted (default from profile)")
	appRecordCmd.Flags().StringVar(&streamOpts.buffer, "buffer", "",
		"Buffer duration (e.g. 20ms)")
}

func runAppRecord(cmd *cobra.Command, args []string) error {
	pid, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid pid %q: %w", args[0], err)
	}

	format, err := formatConfig(cmd).WaveFormat()
	if err != nil {
		return err
	}

	duration, err := recordDuration(cmd)
	if err != nil {
		return err
	}

	sc := cfg.Stream
	if cmd.Flags().Changed("buffer") {
		sc.Buffer = streamOpts.buffer
	}
	sc.Exclusive = false
	sc.AutoConvert = true

	mode, err := sc.Mode()
	if err != nil {
		return err
	}

	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	client, err := wasapi.NewApplicationLoopbackClient(uint32(pid), !appRecordOpts.exclude)
	if err != nil {
		return err
	}

	// The process loopback client does not report a mix format, so the format is always explicit.
	if err := client.Initialize(format, wasapi.Capture, mode); err != nil {
		client.Close()

		return err
	}

	s := &stream{client: client, format: format, mode: mode}
	if mode.TimingMode == wasapi.Events {
		s.event, err = client.SetGetEventHandle()
		if err != nil {
			client.Close()

			return err
		}
	}
	defer s.Close()

	fmt.Printf("Recording process: %d (include tree: %t)\n", pid, !appRecordOpts.exclude)

	return recordToFile(s, args[1], duration)
}
