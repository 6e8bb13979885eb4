// SPDX-License-Identifier: MIT
package tool

import (
	"errors"

	"spectro/internal/clip"
)

const (
	strokeLabel = "Painting"
	dabLabel    = "Brush stroke"
)

var ErrNoStroke = errors.New("tool: no brush stroke in progress")

// PaintbrushTool zeroes a square of side 2*radius centred on the cursor
// cell. A Press, Drag..., Release gesture is recorded as one undo step.
// Cells outside the buffer are clipped off the brush.
type PaintbrushTool struct {
	session  *Session
	radius   int
	stroking bool
}

func NewPaintbrushTool(radius int) *PaintbrushTool {
	return &PaintbrushTool{radius: max(1, radius)}
}

func (t *PaintbrushTool) Name() string { return "paintbrush" }

func (t *PaintbrushTool) Activate(s *Session) { t.session = s }

// Deactivate ends a stroke left open.
func (t *PaintbrushTool) Deactivate() {
	if t.stroking {
		_ = t.Release()
	}
	t.session = nil
}

func (t *PaintbrushTool) Radius() int { return t.radius }

// SetRadius changes the brush size for subsequent dabs.
func (t *PaintbrushTool) SetRadius(r int) { t.radius = max(1, r) }

// Press starts a stroke and paints the first dab.
func (t *PaintbrushTool) Press(frame, bin int) error {
	if t.session == nil {
		return nil
	}
	if err := t.session.Buffer().BeginCompoundEdit(strokeLabel); err != nil {
		return err
	}
	t.stroking = true
	return t.Drag(frame, bin)
}

// Drag paints one dab at (frame, bin).
func (t *PaintbrushTool) Drag(frame, bin int) error {
	if !t.stroking {
		return ErrNoStroke
	}
	buf := t.session.Buffer()
	dab := clip.Region{
		Frame: frame - t.radius, Frames: 2 * t.radius,
		Bin: bin - t.radius, Bins: 2 * t.radius,
	}.Intersect(bounds(buf))
	if dab.Empty() {
		return nil
	}

	if err := buf.BeginEdit(dab, dabLabel); err != nil {
		return err
	}
	for i := dab.Frame; i < dab.Frame+dab.Frames; i++ {
		f := buf.Frame(i)
		for j := dab.Bin; j < dab.Bin+dab.Bins; j++ {
			f.SetReal(j, 0)
		}
	}
	return buf.EndEdit()
}

// Release ends the stroke.
func (t *PaintbrushTool) Release() error {
	if !t.stroking {
		return ErrNoStroke
	}
	t.stroking = false
	return t.session.Buffer().EndCompoundEdit()
}
