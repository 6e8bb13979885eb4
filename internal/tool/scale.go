// SPDX-License-Identifier: MIT
package tool

const (
	scaleLabel   = "Scale Region"
	InitialScale = 1.0
)

// ScaleTool multiplies the selected region by a factor. Each call scales the
// original values, so Scale(1) always restores them.
type ScaleTool struct {
	regionTool
	factor float64
}

func NewScaleTool() *ScaleTool {
	return &ScaleTool{factor: InitialScale}
}

func (t *ScaleTool) Name() string { return "scale" }

func (t *ScaleTool) Activate(s *Session) {
	t.factor = InitialScale
	t.activate(s, func() { t.factor = InitialScale })
}

func (t *ScaleTool) Deactivate() { t.deactivate() }

// Factor returns the factor last applied, reset to 1 on selection change.
func (t *ScaleTool) Factor() float64 { return t.factor }

// Scale sets the region to its original values times factor. With an empty
// selection it does nothing.
func (t *ScaleTool) Scale(factor float64) error {
	snap, ok := t.snapshot()
	if !ok {
		return nil
	}
	t.factor = factor
	return t.apply(snap, scaleLabel, func(v float64) float64 {
		return v * factor
	})
}
