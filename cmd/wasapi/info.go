package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var infoOpts struct {
	device  string
	capture bool
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about a device",
	Long: `Display the properties, the mix format, the device periods and the exclusive
mode formats of a device.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoOpts.device, "device", "d", "",
		"Device friendly name (default: the default device)")
	infoCmd.Flags().BoolVar(&infoOpts.capture, "capture", false,
		"Show a capture device instead of a render device")
}

// exclusiveProbes are the formats checked for exclusive mode support.
var exclusiveProbes = []struct {
	bits, valid int
	sampleType  wasapi.SampleType
}{
	{16, 16, wasapi.SampleTypeInt},
	{24, 24, wasapi.SampleTypeInt},
	{32, 24, wasapi.SampleTypeInt},
	{32, 32, wasapi.SampleTypeInt},
	{32, 32, wasapi.SampleTypeFloat},
}

func runInfo(_ *cobra.Command, _ []string) error {
	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	dir := wasapi.Render
	if infoOpts.capture {
		dir = wasapi.Capture
	}

	device, err := openDevice(dir, infoOpts.device)
	if err != nil {
		return err
	}
	defer device.Close()

	name, _ := device.Name()
	desc, _ := device.Description()
	id, _ := device.ID()
	state, err := device.State()
	stateStr := fmt.Sprint(state)
	if err != nil {
		stateStr = err.Error()
	}

	fmt.Printf("Name:            %s\n", name)
	fmt.Printf("Description:     %s\n", desc)
	fmt.Printf("ID:              %s\n", id)
	fmt.Printf("Direction:       %s\n", device.Direction())
	fmt.Printf("State:           %s\n", stateStr)

	client, err := device.NewAudioClient()
	if err != nil {
		return err
	}
	defer client.Close()

	mix, err := client.MixFormat()
	if err != nil {
		return err
	}

	def, minPeriod, err := client.DevicePeriod()
	if err != nil {
		return err
	}

	fmt.Printf("Mix format:      %s\n", mix)
	fmt.Printf("Mix rate:        %s/s\n", humanize.IBytes(uint64(mix.AvgBytesPerSec())))
	fmt.Printf("Default period:  %s\n", hundredNs(def))
	fmt.Printf("Minimum period:  %s\n", hundredNs(minPeriod))

	if aligned, err := client.CalculateAlignedPeriodNear(def, 128, mix); err == nil {
		fmt.Printf("Aligned period:  %s (%d frames)\n", hundredNs(aligned), wasapi.PeriodFrames(aligned, mix.SampleRate()))
	}

	fmt.Println("Exclusive mode:")
	for _, p := range exclusiveProbes {
		format := wasapi.NewWaveFormat(p.bits, p.valid, p.sampleType, mix.SampleRate(), mix.Channels())

		accepted, err := client.IsSupportedExclusiveWithQuirks(format)
		switch {
		case errors.Is(err, wasapi.ErrUnsupportedFormat):
			fmt.Printf("  %-40s no\n", format)
		case err != nil:
			fmt.Printf("  %-40s %v\n", format, err)
		default:
			fmt.Printf("  %-40s yes, as %s\n", format, accepted)
		}
	}

	return nil
}

func hundredNs(v int64) time.Duration {
	return time.Duration(v * 100)
}
