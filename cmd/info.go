// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"path/filepath"

	"spectro/internal/surface"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Describe a sound file and its spectral clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, decoded, err := a.loadClip(args[0])
			if err != nil {
				return err
			}

			model := surface.NewClipModel(c, 0, true)
			energy := surface.EnergyRange(model, true)

			// Column sums give the dominant frequency over the whole clip.
			totals := make([]float64, c.FrameWidth())
			row := make([]float64, c.FrameWidth())
			for f := range c.FrameCount() {
				for b := range row {
					row[b] = model.EnergyAt(f, b)
				}
				floats.Add(totals, row)
			}
			peak := floats.MaxIdx(totals[1:]) + 1

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:         %s\n", filepath.Base(args[0]))
			fmt.Fprintf(out, "Sample rate:  %d Hz (%d channel(s) mixed to mono)\n", decoded.SampleRate, decoded.Channels)
			fmt.Fprintf(out, "Duration:     %s (%d samples)\n", c.Duration(), c.SampleCount())
			fmt.Fprintf(out, "Frames:       %d x %d bins (frame size %d, %s window)\n",
				c.FrameCount(), c.FrameWidth(), c.FrameSize(), a.cfg.Clip.Window)
			fmt.Fprintf(out, "Energy range: %.4g .. %.4g\n", energy.Min, energy.Max)
			fmt.Fprintf(out, "Peak bin:     %d (%.1f Hz)\n", peak, c.BinFrequency(peak))
			return nil
		},
	}
}
