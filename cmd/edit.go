// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"spectro/internal/audio"
	"spectro/internal/clip"
	"spectro/internal/tool"

	"github.com/spf13/cobra"
)

// Edit operations accepted by --op.
const (
	opScale     = "scale"
	opThreshold = "threshold"
	opVFlip     = "vflip"
	opHFlip     = "hflip"
	opPaint     = "paint"
)

type editOptions struct {
	op        string
	region    string
	factor    float64
	threshold float64
	position  int
	upper     bool
	radius    int
	stroke    []string
}

func (a *app) newEditCmd() *cobra.Command {
	var o editOptions
	cmd := &cobra.Command{
		Use:   "edit INPUT OUTPUT.wav",
		Short: "Apply one region edit to a sound file and write the result as WAV",
		Long: `Apply one region edit to a sound file and write the result as WAV.

Regions are given as frame,frames,bin,bins. Without --region the whole clip
is edited. The paint operation ignores --region and paints a stroke through
the --at cells.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.loadClip(args[0])
			if err != nil {
				return err
			}
			if err := a.runEdit(cmd, c, o); err != nil {
				return err
			}
			if err := audio.ExportFile(args[1], c); err != nil {
				return fmt.Errorf("writing %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.op, "op", opScale, "Edit: scale, threshold, vflip, hflip or paint")
	f.StringVar(&o.region, "region", "", "Region as frame,frames,bin,bins (default: whole clip)")
	f.Float64Var(&o.factor, "factor", 1, "Scale factor for --op scale")
	f.Float64Var(&o.threshold, "threshold", 0, "Cutoff for --op threshold; overrides --position")
	f.IntVar(&o.position, "position", tool.SliderResolution, "Threshold slider position 0..100 for --op threshold")
	f.BoolVar(&o.upper, "upper", false, "Threshold removes loud cells instead of quiet ones")
	f.IntVar(&o.radius, "radius", 0, "Brush radius for --op paint (overrides tools.brush_radius)")
	f.StringSliceVar(&o.stroke, "at", nil, "Brush cells as frame,bin for --op paint; repeat for a stroke")
	cmd.MarkFlagsMutuallyExclusive("threshold", "position")
	return cmd
}

func (a *app) runEdit(cmd *cobra.Command, c *clip.Clip, o editOptions) error {
	session := tool.NewSession(c)
	flip, scale, threshold, brush := a.newTools()

	region := c.Bounds()
	if o.region != "" {
		r, err := parseRegion(o.region)
		if err != nil {
			return err
		}
		region = r
	}
	session.SelectRegion(region)

	switch o.op {
	case opScale:
		session.SetTool(scale)
		return scale.Scale(o.factor)
	case opThreshold:
		session.SetTool(threshold)
		if cmd.Flags().Changed("threshold") {
			return threshold.Apply(o.threshold, o.upper)
		}
		if err := threshold.SetUpper(o.upper); err != nil {
			return err
		}
		return threshold.SetPosition(o.position)
	case opVFlip:
		session.SetTool(flip)
		return flip.FlipVertical()
	case opHFlip:
		session.SetTool(flip)
		return flip.FlipHorizontal()
	case opPaint:
		if len(o.stroke) == 0 {
			return fmt.Errorf("--op paint needs at least one --at frame,bin")
		}
		if o.radius > 0 {
			brush.SetRadius(o.radius)
		}
		session.SetTool(brush)
		return paintStroke(brush, o.stroke)
	default:
		return fmt.Errorf("unknown edit %q", o.op)
	}
}

func paintStroke(brush *tool.PaintbrushTool, cells []string) error {
	for i, cell := range cells {
		v, err := parseInts(cell, 2)
		if err != nil {
			return fmt.Errorf("--at %w", err)
		}
		if i == 0 {
			err = brush.Press(v[0], v[1])
		} else {
			err = brush.Drag(v[0], v[1])
		}
		if err != nil {
			brush.Release()
			return err
		}
	}
	return brush.Release()
}
