// SPDX-License-Identifier: MIT
package clip

import (
	"errors"
	"testing"
	"time"

	"spectro/pkg/utils"
)

func fill(t *testing.T, c *Clip, r Region, label string, v float64) {
	t.Helper()
	if err := c.BeginEdit(r, label); err != nil {
		t.Fatalf("BeginEdit(%s): %v", r, err)
	}
	for f := r.Frame; f < r.Frame+r.Frames; f++ {
		for b := r.Bin; b < r.Bin+r.Bins; b++ {
			c.Frame(f).SetReal(b, v)
		}
	}
	if err := c.EndEdit(); err != nil {
		t.Fatalf("EndEdit: %v", err)
	}
}

func TestRegion(t *testing.T) {
	r := Region{Frame: 2, Frames: 4, Bin: 1, Bins: 4}
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"empty", r.Empty(), false},
		{"zero frames", Region{Frames: 0, Bins: 3}.Empty(), true},
		{"contains corner", r.Contains(2, 1), true},
		{"excludes far edge", r.Contains(6, 1), false},
		{"intersect", r.Intersect(Region{Frame: 4, Frames: 10, Bin: 0, Bins: 2}), Region{Frame: 4, Frames: 2, Bin: 1, Bins: 1}},
		{"disjoint", r.Intersect(Region{Frame: 10, Frames: 1, Bin: 0, Bins: 1}), Region{}},
		{"union", r.Union(Region{Frame: 0, Frames: 1, Bin: 6, Bins: 1}), Region{Frame: 0, Frames: 6, Bin: 1, Bins: 6}},
		{"union with empty", r.Union(Region{}), r},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestEditUndoRedo(t *testing.T) {
	c := newTestClip(t, utils.GenerateSineWave(2048, testRate, 1000), "")
	r := Region{Frame: 3, Frames: 2, Bin: 30, Bins: 5}
	before := c.EnergyAt(3, 32)

	fill(t, c, r, "zero", 0)
	if got := c.EnergyAt(3, 32); got != 0 {
		t.Fatalf("after edit EnergyAt = %v, want 0", got)
	}
	if !c.CanUndo() || c.CanRedo() {
		t.Fatalf("CanUndo/CanRedo = %v/%v, want true/false", c.CanUndo(), c.CanRedo())
	}

	label, err := c.Undo()
	if err != nil || label != "zero" {
		t.Fatalf("Undo() = %q, %v", label, err)
	}
	if got := c.EnergyAt(3, 32); got != before {
		t.Errorf("after undo EnergyAt = %v, want %v", got, before)
	}

	if _, err := c.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if got := c.EnergyAt(3, 32); got != 0 {
		t.Errorf("after redo EnergyAt = %v, want 0", got)
	}

	if _, err := c.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("second Redo = %v, want ErrNothingToRedo", err)
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	c := newTestClip(t, make([]float64, 512), "")
	r := Region{Frame: 0, Frames: 1, Bin: 0, Bins: 1}
	fill(t, c, r, "one", 1)
	if _, err := c.Undo(); err != nil {
		t.Fatal(err)
	}
	fill(t, c, r, "two", 2)
	if c.CanRedo() {
		t.Error("a new edit should discard the redo history")
	}
}

func TestUndoLimit(t *testing.T) {
	c, err := New(make([]float64, 512), testRate, Options{FrameSize: 16, UndoLimit: 2})
	if err != nil {
		t.Fatal(err)
	}
	r := Region{Frame: 0, Frames: 1, Bin: 0, Bins: 1}
	for i := range 3 {
		fill(t, c, r, "step", float64(i+1))
	}
	for range 2 {
		if _, err := c.Undo(); err != nil {
			t.Fatalf("Undo: %v", err)
		}
	}
	if _, err := c.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("third Undo = %v, want ErrNothingToUndo", err)
	}
	if got := c.EnergyAt(0, 0); got != 1 {
		t.Errorf("oldest retained value = %v, want 1", got)
	}
}

func TestCompoundEditUndoesAsOneStep(t *testing.T) {
	c := newTestClip(t, utils.GenerateSineWave(2048, testRate, 1000), "")
	orig := c.EnergyAt(5, 32)

	if err := c.BeginCompoundEdit("stroke"); err != nil {
		t.Fatal(err)
	}
	for f := 2; f < 8; f++ {
		fill(t, c, Region{Frame: f, Frames: 1, Bin: 30, Bins: 4}, "dab", 0)
	}
	if _, err := c.Undo(); !errors.Is(err, ErrEditInProgress) {
		t.Errorf("Undo inside compound edit = %v, want ErrEditInProgress", err)
	}
	if err := c.EndCompoundEdit(); err != nil {
		t.Fatal(err)
	}

	var changed []Region
	c.OnRegionChanged(func(r Region) { changed = append(changed, r) })

	label, err := c.Undo()
	if err != nil || label != "stroke" {
		t.Fatalf("Undo() = %q, %v", label, err)
	}
	if got := c.EnergyAt(5, 32); got != orig {
		t.Errorf("EnergyAt after undo = %v, want %v", got, orig)
	}
	if c.CanUndo() {
		t.Error("stroke should be a single undo step")
	}
	want := Region{Frame: 2, Frames: 6, Bin: 30, Bins: 4}
	if len(changed) != 1 || changed[0] != want {
		t.Errorf("region events = %v, want [%v]", changed, want)
	}
}

func TestEmptyCompoundEditLeavesNoStep(t *testing.T) {
	c := newTestClip(t, make([]float64, 512), "")
	_ = c.BeginCompoundEdit("nothing")
	_ = c.EndCompoundEdit()
	if c.CanUndo() {
		t.Error("empty compound edit should not be undoable")
	}
}

func TestEditMisuse(t *testing.T) {
	c := newTestClip(t, make([]float64, 512), "")

	if err := c.EndEdit(); !errors.Is(err, ErrNoEdit) {
		t.Errorf("EndEdit without BeginEdit = %v, want ErrNoEdit", err)
	}
	if err := c.EndCompoundEdit(); !errors.Is(err, ErrNoEdit) {
		t.Errorf("EndCompoundEdit without begin = %v, want ErrNoEdit", err)
	}
	out := Region{Frame: c.FrameCount() - 1, Frames: 2, Bin: 0, Bins: 1}
	if err := c.BeginEdit(out, "overflow"); !errors.Is(err, ErrRegionOutOfClip) {
		t.Errorf("BeginEdit out of bounds = %v, want ErrRegionOutOfClip", err)
	}

	if err := c.BeginEdit(Region{Frames: 1, Bins: 1}, "first"); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginEdit(Region{Frames: 1, Bins: 1}, "second"); !errors.Is(err, ErrEditInProgress) {
		t.Errorf("nested BeginEdit = %v, want ErrEditInProgress", err)
	}
	_ = c.EndEdit()
}

func TestRegionChangedEvents(t *testing.T) {
	c := newTestClip(t, make([]float64, 512), "")
	r := Region{Frame: 1, Frames: 2, Bin: 3, Bins: 4}

	var got []Region
	unsubscribe := c.OnRegionChanged(func(r Region) { got = append(got, r) })
	fill(t, c, r, "paint", 1)
	fill(t, c, Region{}, "empty", 1)
	unsubscribe()
	fill(t, c, r, "paint", 2)

	if len(got) != 1 || got[0] != r {
		t.Errorf("events = %v, want [%v]", got, r)
	}
}

func TestReadersWaitForOpenEdit(t *testing.T) {
	c := newTestClip(t, make([]float64, 512), "")
	r := Region{Frame: 0, Frames: 1, Bin: 0, Bins: 1}

	if err := c.BeginEdit(r, "slow"); err != nil {
		t.Fatal(err)
	}
	c.Frame(0).SetReal(0, 0.5)

	done := make(chan float64)
	go func() { done <- c.EnergyAt(0, 0) }()

	select {
	case v := <-done:
		t.Fatalf("EnergyAt returned %v during an open edit", v)
	case <-time.After(20 * time.Millisecond):
	}

	c.Frame(0).SetReal(0, 0.75)
	if err := c.EndEdit(); err != nil {
		t.Fatal(err)
	}
	if v := <-done; v != 0.75 {
		t.Errorf("EnergyAt = %v, want the committed 0.75", v)
	}
}
