// SPDX-License-Identifier: MIT
package tool

import "math"

const thresholdLabel = "Region Threshold"

// ThresholdTool zeroes cells of the selected region by magnitude. In upper
// mode cells louder than the threshold are removed, otherwise quieter ones.
// Everything else keeps its original value.
type ThresholdTool struct {
	regionTool
	slider    CurvedSlider
	position  int
	upper     bool
	threshold float64
}

// NewThresholdTool returns a threshold tool driven by slider. The slider
// starts at its top position.
func NewThresholdTool(slider CurvedSlider) *ThresholdTool {
	t := &ThresholdTool{slider: slider}
	t.reset()
	return t
}

func (t *ThresholdTool) reset() {
	t.position = SliderResolution
	t.threshold = t.slider.Value(t.position)
}

func (t *ThresholdTool) Name() string { return "threshold" }

func (t *ThresholdTool) Activate(s *Session) {
	t.reset()
	t.activate(s, t.reset)
}

func (t *ThresholdTool) Deactivate() { t.deactivate() }

// Threshold returns the current cutoff.
func (t *ThresholdTool) Threshold() float64 { return t.threshold }

// Position returns the current slider position.
func (t *ThresholdTool) Position() int { return t.position }

// Upper reports whether loud cells are removed.
func (t *ThresholdTool) Upper() bool { return t.upper }

// SetPosition moves the slider and applies the resulting threshold.
func (t *ThresholdTool) SetPosition(pos int) error {
	t.position = max(0, min(pos, SliderResolution))
	return t.Apply(t.slider.Value(t.position), t.upper)
}

// SetUpper switches mode and re-applies the current threshold.
func (t *ThresholdTool) SetUpper(upper bool) error {
	return t.Apply(t.threshold, upper)
}

// Apply recomputes the region from its original values with cutoff
// threshold.
func (t *ThresholdTool) Apply(threshold float64, upper bool) error {
	t.threshold, t.upper = threshold, upper
	snap, ok := t.snapshot()
	if !ok {
		return nil
	}
	return t.apply(snap, thresholdLabel, func(v float64) float64 {
		if upper && math.Abs(v) > threshold || !upper && math.Abs(v) < threshold {
			return 0
		}
		return v
	})
}
