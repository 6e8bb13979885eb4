// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"spectro/internal/clip"
	"spectro/internal/decode"
	"spectro/internal/tool"
)

// loadClip decodes path and analyses it with the configured frame size and window.
func (a *app) loadClip(path string) (*clip.Clip, *decode.Audio, error) {
	audio, err := decode.DecodeFile(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := clip.New(audio.Samples, audio.SampleRate, clip.Options{
		FrameSize: a.cfg.Clip.FrameSize,
		Window:    a.cfg.Clip.Window,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("analysing %s: %w", path, err)
	}
	return c, audio, nil
}

// newTools builds the editing tools from the tools config section.
func (a *app) newTools() (*tool.FlipTool, *tool.ScaleTool, *tool.ThresholdTool, *tool.PaintbrushTool) {
	t := a.cfg.Tools
	return tool.NewFlipTool(),
		tool.NewScaleTool(),
		tool.NewThresholdTool(tool.NewCurvedSlider(t.ThresholdMax, t.ThresholdCurve)),
		tool.NewPaintbrushTool(t.BrushRadius)
}

// parseInts parses exactly n comma-separated integers.
func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%q: want %d comma-separated integers", s, n)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseRegion parses "frame,frames,bin,bins".
func parseRegion(s string) (clip.Region, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return clip.Region{}, fmt.Errorf("region %w", err)
	}
	return clip.Region{Frame: v[0], Frames: v[1], Bin: v[2], Bins: v[3]}, nil
}
