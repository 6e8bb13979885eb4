// SPDX-License-Identifier: MIT

// Package tool implements the region editing tools: scale, threshold, flip
// and paintbrush. Tools act on a Buffer through edit transactions, so every
// change is undoable and readers never see a half-applied edit.
//
// Scale and threshold recompute from a Snapshot of the region taken on
// first use. Moving their control back to its initial value restores the
// original data exactly.
package tool

import (
	"spectro/internal/clip"
)

// Buffer is the editable spectral data a tool works on. *clip.Clip
// implements it.
type Buffer interface {
	Frame(i int) *clip.Frame
	FrameCount() int
	FrameWidth() int
	BeginEdit(r clip.Region, label string) error
	EndEdit() error
	BeginCompoundEdit(label string) error
	EndCompoundEdit() error
	OnRegionChanged(fn func(clip.Region)) (unsubscribe func())
}

// Tool is an editing mode attached to a Session while active.
type Tool interface {
	Name() string
	Activate(s *Session)
	Deactivate()
}

func bounds(b Buffer) clip.Region {
	return clip.Region{Frames: b.FrameCount(), Bins: b.FrameWidth()}
}
