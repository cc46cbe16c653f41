package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gen2brain/wasapi"
)

var devicesOpts struct {
	ids bool
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List active render and capture devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&devicesOpts.ids, "ids", false,
		"Show endpoint id strings")
}

func runDevices(_ *cobra.Command, _ []string) error {
	deinit, err := initAudio()
	if err != nil {
		return err
	}
	defer deinit()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	for _, dir := range []wasapi.Direction{wasapi.Render, wasapi.Capture} {
		if err := listDevices(w, dir); err != nil {
			return err
		}
	}

	return nil
}

func listDevices(w *tabwriter.Writer, dir wasapi.Direction) error {
	devices, err := wasapi.Devices(dir)
	if err != nil {
		return err
	}
	defer devices.Close()

	defaultID := ""
	if d, err := wasapi.DefaultDevice(dir); err == nil {
		defaultID, _ = d.ID()
		d.Close()
	}

	fmt.Fprintf(w, "%s devices (%d):\n", dir, devices.Len())

	for i, d := range devices.All() {
		name, err := d.Name()
		if err != nil {
			name = fmt.Sprintf("<%v>", err)
		}

		id, _ := d.ID()
		marker := " "
		if id != "" && id == defaultID {
			marker = "*"
		}

		if devicesOpts.ids {
			fmt.Fprintf(w, " %s %d\t%s\t%s\n", marker, i, name, id)
		} else {
			fmt.Fprintf(w, " %s %d\t%s\n", marker, i, name)
		}
	}

	return nil
}
