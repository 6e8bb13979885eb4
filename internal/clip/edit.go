// SPDX-License-Identifier: MIT
package clip

import (
	"errors"
	"fmt"
)

var (
	ErrNoEdit          = errors.New("clip: no edit in progress")
	ErrEditInProgress  = errors.New("clip: an edit is already in progress")
	ErrNothingToUndo   = errors.New("clip: nothing to undo")
	ErrNothingToRedo   = errors.New("clip: nothing to redo")
	ErrRegionOutOfClip = errors.New("clip: region lies outside the clip")
)

// Region is a rectangle of cells: Frames frames starting at Frame, Bins bins
// starting at Bin.
type Region struct {
	Frame, Frames int
	Bin, Bins     int
}

// Empty reports whether the region covers no cells.
func (r Region) Empty() bool { return r.Frames <= 0 || r.Bins <= 0 }

// Contains reports whether the cell (frame, bin) lies inside r.
func (r Region) Contains(frame, bin int) bool {
	return frame >= r.Frame && frame < r.Frame+r.Frames &&
		bin >= r.Bin && bin < r.Bin+r.Bins
}

// Intersect returns the overlap of r and o, or a zero Region.
func (r Region) Intersect(o Region) Region {
	f0, f1 := max(r.Frame, o.Frame), min(r.Frame+r.Frames, o.Frame+o.Frames)
	b0, b1 := max(r.Bin, o.Bin), min(r.Bin+r.Bins, o.Bin+o.Bins)
	if f1 <= f0 || b1 <= b0 {
		return Region{}
	}
	return Region{Frame: f0, Frames: f1 - f0, Bin: b0, Bins: b1 - b0}
}

// Union returns the smallest region containing r and o.
func (r Region) Union(o Region) Region {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	f0, f1 := min(r.Frame, o.Frame), max(r.Frame+r.Frames, o.Frame+o.Frames)
	b0, b1 := min(r.Bin, o.Bin), max(r.Bin+r.Bins, o.Bin+o.Bins)
	return Region{Frame: f0, Frames: f1 - f0, Bin: b0, Bins: b1 - b0}
}

func (r Region) String() string {
	return fmt.Sprintf("frames %d+%d, bins %d+%d", r.Frame, r.Frames, r.Bin, r.Bins)
}

// DataEdit records the values of a region before and after one edit.
type DataEdit struct {
	label  string
	region Region
	old    [][]float64
	new    [][]float64
}

func (e *DataEdit) Label() string  { return e.label }
func (e *DataEdit) Region() Region { return e.region }

func (e *DataEdit) undo(c *Clip) Region {
	c.writeRegion(e.region, e.old)
	return e.region
}

func (e *DataEdit) redo(c *Clip) Region {
	c.writeRegion(e.region, e.new)
	return e.region
}

// CompoundEdit groups edits that undo and redo as one step, such as the
// individual dabs of a paintbrush stroke.
type CompoundEdit struct {
	label string
	edits []*DataEdit
}

func (e *CompoundEdit) Label() string { return e.label }

// Len returns the number of edits in the group.
func (e *CompoundEdit) Len() int { return len(e.edits) }

func (e *CompoundEdit) undo(c *Clip) Region {
	var r Region
	for i := len(e.edits) - 1; i >= 0; i-- {
		r = r.Union(e.edits[i].undo(c))
	}
	return r
}

func (e *CompoundEdit) redo(c *Clip) Region {
	var r Region
	for _, d := range e.edits {
		r = r.Union(d.redo(c))
	}
	return r
}

type undoable interface {
	Label() string
	undo(c *Clip) Region
	redo(c *Clip) Region
}

type editState struct {
	active   *DataEdit
	compound *CompoundEdit
	undo     []undoable
	redo     []undoable
	limit    int
}

func (s *editState) push(u undoable) {
	s.undo = append(s.undo, u)
	if len(s.undo) > s.limit {
		s.undo = s.undo[len(s.undo)-s.limit:]
	}
	s.redo = nil
}

// BeginEdit opens a transaction over r. The region's current values are
// captured for undo and the clip is locked against readers until EndEdit.
// Regions must lie inside the clip.
func (c *Clip) BeginEdit(r Region, label string) error {
	if r.Empty() {
		r = Region{}
	} else if r.Intersect(c.Bounds()) != r {
		return fmt.Errorf("%w: %s", ErrRegionOutOfClip, r)
	}

	c.editMu.Lock()
	defer c.editMu.Unlock()
	if c.edits.active != nil {
		return ErrEditInProgress
	}

	c.mu.Lock()
	c.edits.active = &DataEdit{label: label, region: r, old: c.copyRegion(r)}
	return nil
}

// EndEdit commits the open transaction, records it for undo (inside the
// open compound edit, if any) and notifies region-changed subscribers.
func (c *Clip) EndEdit() error {
	c.editMu.Lock()
	e := c.edits.active
	if e == nil {
		c.editMu.Unlock()
		return ErrNoEdit
	}
	e.new = c.copyRegion(e.region)
	c.edits.active = nil
	c.mu.Unlock()

	if c.edits.compound != nil {
		c.edits.compound.edits = append(c.edits.compound.edits, e)
	} else {
		c.edits.push(e)
	}
	c.editMu.Unlock()

	c.log.Debugf("%s: %s", e.label, e.region)
	if !e.region.Empty() {
		c.regionChanged.Publish(e.region)
	}
	return nil
}

// BeginCompoundEdit starts grouping subsequent edits into one undo step.
// Compound edits do not nest.
func (c *Clip) BeginCompoundEdit(label string) error {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	if c.edits.compound != nil {
		return ErrEditInProgress
	}
	c.edits.compound = &CompoundEdit{label: label}
	return nil
}

// EndCompoundEdit closes the group opened by BeginCompoundEdit. A group
// without edits leaves no undo step behind.
func (c *Clip) EndCompoundEdit() error {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	ce := c.edits.compound
	if ce == nil {
		return ErrNoEdit
	}
	c.edits.compound = nil
	if len(ce.edits) > 0 {
		c.edits.push(ce)
	}
	return nil
}

// CanUndo reports whether Undo has a step to revert.
func (c *Clip) CanUndo() bool {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	return len(c.edits.undo) > 0
}

// CanRedo reports whether Redo has a step to reapply.
func (c *Clip) CanRedo() bool {
	c.editMu.Lock()
	defer c.editMu.Unlock()
	return len(c.edits.redo) > 0
}

// Undo reverts the most recent edit step and returns its label.
func (c *Clip) Undo() (string, error) {
	return c.step(true)
}

// Redo reapplies the most recently undone step and returns its label.
func (c *Clip) Redo() (string, error) {
	return c.step(false)
}

func (c *Clip) step(undo bool) (string, error) {
	c.editMu.Lock()
	if c.edits.active != nil || c.edits.compound != nil {
		c.editMu.Unlock()
		return "", ErrEditInProgress
	}

	from, to := &c.edits.undo, &c.edits.redo
	empty := ErrNothingToUndo
	if !undo {
		from, to = to, from
		empty = ErrNothingToRedo
	}
	if len(*from) == 0 {
		c.editMu.Unlock()
		return "", empty
	}
	u := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]

	c.mu.Lock()
	var r Region
	if undo {
		r = u.undo(c)
	} else {
		r = u.redo(c)
	}
	c.mu.Unlock()
	*to = append(*to, u)
	c.editMu.Unlock()

	if !r.Empty() {
		c.regionChanged.Publish(r)
	}
	return u.Label(), nil
}
