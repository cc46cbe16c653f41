package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var wavinfoCmd = &cobra.Command{
	Use:   "wavinfo <wav-file>",
	Short: "Display information about a WAV file",
	Long: `Display the header of a WAV file and the stream format it would be played with.
Does not need an audio device.`,
	Args: cobra.ExactArgs(1),
	RunE: runWavinfo,
}

func init() {
	rootCmd.AddCommand(wavinfoCmd)
}

func runWavinfo(_ *cobra.Command, args []string) error {
	wavPath := args[0]

	file, err := os.Open(wavPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return fmt.Errorf("invalid WAV file: %s", wavPath)
	}

	// Format 1 is integer PCM, format 3 is IEEE float.
	sampleType := wasapi.SampleTypeInt
	if decoder.WavAudioFormat == 3 {
		sampleType = wasapi.SampleTypeFloat
	}

	format := wasapi.NewWaveFormat(int(decoder.BitDepth), int(decoder.BitDepth), sampleType,
		int(decoder.SampleRate), int(decoder.NumChans))

	duration, err := decoder.Duration()
	if err != nil {
		return fmt.Errorf("failed to get duration: %w", err)
	}

	fmt.Printf("Filename:           %s\n", wavPath)
	fmt.Printf("Size:               %s\n", humanize.IBytes(uint64(stat.Size())))
	fmt.Printf("Channels:           %d\n", decoder.NumChans)
	fmt.Printf("Sample Rate:        %d Hz\n", decoder.SampleRate)
	fmt.Printf("Bits Per Sample:    %d\n", decoder.BitDepth)
	fmt.Printf("Format:             %s\n", sampleType)
	fmt.Printf("Stream Format:      %s\n", format)
	fmt.Printf("Data Rate:          %s/s\n", humanize.IBytes(uint64(format.AvgBytesPerSec())))
	fmt.Printf("Duration:           %s\n", formatDuration(duration))
	fmt.Printf("Frames:             %s\n", humanize.Comma(int64(duration.Seconds()*float64(decoder.SampleRate))))

	return nil
}

// formatDuration formats a time.Duration as HH:MM:SS.ms.
func formatDuration(d time.Duration) string {
	millis := d.Milliseconds() % 1000

	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
