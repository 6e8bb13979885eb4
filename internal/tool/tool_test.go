// SPDX-License-Identifier: MIT
package tool

import (
	"errors"
	"math"
	"testing"

	"spectro/internal/clip"
	"spectro/internal/event"
	"spectro/pkg/utils"
)

// grid is an in-memory Buffer with plain transaction bookkeeping.
type grid struct {
	frames   []*clip.Frame
	width    int
	open     bool
	compound bool
	region   clip.Region
	edits    []string
	changed  event.Registry[clip.Region]
}

func newGrid(frames, bins int) *grid {
	g := &grid{width: bins}
	for i := range frames {
		row := make([]float64, bins)
		for j := range row {
			row[j] = float64(i*bins+j) + 0.25*float64(j%3) - 2.7
		}
		g.frames = append(g.frames, clip.NewFrame(row))
	}
	return g
}

func (g *grid) Frame(i int) *clip.Frame { return g.frames[i] }
func (g *grid) FrameCount() int         { return len(g.frames) }
func (g *grid) FrameWidth() int         { return g.width }

func (g *grid) BeginEdit(r clip.Region, label string) error {
	if g.open {
		return clip.ErrEditInProgress
	}
	g.open = true
	g.region = r
	g.edits = append(g.edits, label)
	return nil
}

func (g *grid) EndEdit() error {
	if !g.open {
		return clip.ErrNoEdit
	}
	g.open = false
	g.changed.Publish(g.region)
	return nil
}

func (g *grid) OnRegionChanged(fn func(clip.Region)) func() { return g.changed.Subscribe(fn) }

func (g *grid) BeginCompoundEdit(string) error { g.compound = true; return nil }
func (g *grid) EndCompoundEdit() error         { g.compound = false; return nil }

func (g *grid) values() [][]float64 {
	out := make([][]float64, len(g.frames))
	for i, f := range g.frames {
		out[i] = make([]float64, f.Len())
		for j := range out[i] {
			out[i][j] = f.Real(j)
		}
	}
	return out
}

func assertGrid(t *testing.T, got, want [][]float64) {
	t.Helper()
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("cell (%d,%d) = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func newSession(t *testing.T, b Buffer, r clip.Region, tl Tool) *Session {
	t.Helper()
	s := NewSession(b)
	s.SetTool(tl)
	s.SelectRegion(r)
	return s
}

func TestScaleScenario(t *testing.T) {
	g := newGrid(10, 8)
	orig := g.values()
	scale := NewScaleTool()
	newSession(t, g, clip.Region{Frame: 2, Frames: 4, Bin: 1, Bins: 4}, scale)

	if err := scale.Scale(0.5); err != nil {
		t.Fatal(err)
	}
	if got, want := g.frames[3].Real(2), orig[3][2]*0.5; got != want {
		t.Fatalf("after 0.5: cell = %v, want %v", got, want)
	}
	if err := scale.Scale(2.0); err != nil {
		t.Fatal(err)
	}
	// Non-cumulative: 2.0 applies to the original, not to the halved data.
	if got, want := g.frames[3].Real(2), orig[3][2]*2; got != want {
		t.Fatalf("after 2.0: cell = %v, want %v", got, want)
	}
	if err := scale.Scale(1.0); err != nil {
		t.Fatal(err)
	}
	assertGrid(t, g.values(), orig)
}

func TestScaleIdentityRestoresSnapshot(t *testing.T) {
	factors := [][]float64{
		{0},
		{3.7, 0.01},
		{-1, 5, 0.5, 1e6},
		{math.Pi, math.Pi, 0.3},
	}
	for _, seq := range factors {
		g := newGrid(6, 9)
		orig := g.values()
		scale := NewScaleTool()
		newSession(t, g, clip.Region{Frame: 1, Frames: 4, Bin: 2, Bins: 6}, scale)

		for _, f := range seq {
			if err := scale.Scale(f); err != nil {
				t.Fatal(err)
			}
		}
		if err := scale.Scale(1.0); err != nil {
			t.Fatal(err)
		}
		assertGrid(t, g.values(), orig)
	}
}

func TestScaleOnlyTouchesRegion(t *testing.T) {
	g := newGrid(10, 8)
	orig := g.values()
	r := clip.Region{Frame: 2, Frames: 4, Bin: 1, Bins: 4}
	scale := NewScaleTool()
	newSession(t, g, r, scale)
	_ = scale.Scale(3)

	vals := g.values()
	for i := range vals {
		for j := range vals[i] {
			if !r.Contains(i, j) && vals[i][j] != orig[i][j] {
				t.Fatalf("cell (%d,%d) outside region changed", i, j)
			}
		}
	}
}

func TestRegionChangeResetsScale(t *testing.T) {
	g := newGrid(10, 8)
	scale := NewScaleTool()
	s := newSession(t, g, clip.Region{Frame: 0, Frames: 2, Bin: 0, Bins: 2}, scale)
	_ = scale.Scale(4)

	s.SelectRegion(clip.Region{Frame: 5, Frames: 2, Bin: 0, Bins: 2})
	if scale.Factor() != InitialScale {
		t.Errorf("Factor() = %v after region change, want %v", scale.Factor(), InitialScale)
	}
	after := g.values()
	_ = scale.Scale(1)
	// The new region is captured fresh, so identity changes nothing.
	assertGrid(t, g.values(), after)
}

func TestEmptyRegionIsNoOp(t *testing.T) {
	g := newGrid(4, 4)
	orig := g.values()
	scale := NewScaleTool()
	threshold := NewThresholdTool(NewCurvedSlider(10, 3))
	flip := NewFlipTool()

	s := NewSession(g)
	for _, tl := range []Tool{scale, threshold, flip} {
		s.SetTool(tl)
		s.SelectRegion(clip.Region{Frame: 1, Frames: 0, Bin: 1, Bins: 2})
		if err := scale.Scale(9); err != nil {
			t.Fatal(err)
		}
		if err := threshold.Apply(0, false); err != nil {
			t.Fatal(err)
		}
		if err := flip.FlipVertical(); err != nil {
			t.Fatal(err)
		}
	}
	assertGrid(t, g.values(), orig)
	if len(g.edits) != 0 {
		t.Errorf("empty region opened %d edits", len(g.edits))
	}
	if scale.snap.Valid() || threshold.snap.Valid() {
		t.Error("snapshot kept for an empty region")
	}
}

func TestThresholdSymmetry(t *testing.T) {
	const thr = 20.0
	tests := []struct {
		name  string
		upper bool
		zero  func(v float64) bool
	}{
		{"upper removes loud", true, func(v float64) bool { return math.Abs(v) > thr }},
		{"lower removes quiet", false, func(v float64) bool { return math.Abs(v) < thr }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGrid(10, 8)
			orig := g.values()
			r := clip.Region{Frame: 1, Frames: 6, Bin: 0, Bins: 8}
			th := NewThresholdTool(NewCurvedSlider(10, 3))
			newSession(t, g, r, th)

			// Applying a different cutoff first must not leak into the result.
			_ = th.Apply(5, !tt.upper)
			if err := th.Apply(thr, tt.upper); err != nil {
				t.Fatal(err)
			}

			vals := g.values()
			for i := range vals {
				for j := range vals[i] {
					want := orig[i][j]
					if r.Contains(i, j) && tt.zero(orig[i][j]) {
						want = 0
					}
					if vals[i][j] != want {
						t.Fatalf("cell (%d,%d) = %v, want %v", i, j, vals[i][j], want)
					}
				}
			}
		})
	}
}

func TestThresholdSlider(t *testing.T) {
	th := NewThresholdTool(NewCurvedSlider(10, 3))
	if math.Abs(th.Threshold()-10) > 1e-9 || th.Position() != SliderResolution {
		t.Fatalf("initial threshold = %v at %d, want 10 at %d", th.Threshold(), th.Position(), SliderResolution)
	}

	g := newGrid(4, 4)
	s := newSession(t, g, clip.Region{Frames: 2, Bins: 2}, th)
	if err := th.SetPosition(50); err != nil {
		t.Fatal(err)
	}
	if want := 10.0 / 8; math.Abs(th.Threshold()-want) > 1e-9 {
		t.Errorf("threshold at 50 = %v, want %v", th.Threshold(), want)
	}
	if err := th.SetUpper(true); err != nil || !th.Upper() {
		t.Fatalf("SetUpper(true) = %v, upper %v", err, th.Upper())
	}

	s.SelectRegion(clip.Region{Frame: 2, Frames: 2, Bins: 2})
	if th.Position() != SliderResolution {
		t.Errorf("position = %d after region change, want reset", th.Position())
	}
}

func TestCurvedSlider(t *testing.T) {
	tests := []struct {
		top, curve float64
		pos        int
		want       float64
	}{
		{10, 3, 0, 0},
		{10, 3, 100, 10},
		{10, 1, 50, 5},
		{10, 3, 10, 0.01},
		{8, 2, 50, 2},
	}
	for _, tt := range tests {
		got := NewCurvedSlider(tt.top, tt.curve).Value(tt.pos)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("slider(%v, %v).Value(%d) = %v, want %v", tt.top, tt.curve, tt.pos, got, tt.want)
		}
	}
}

func TestFlipInvolution(t *testing.T) {
	regions := []clip.Region{
		{Frame: 2, Frames: 4, Bin: 1, Bins: 4},
		{Frame: 0, Frames: 5, Bin: 0, Bins: 7},
		{Frame: 9, Frames: 1, Bin: 3, Bins: 1},
		{Frame: 0, Frames: 10, Bin: 0, Bins: 8},
	}
	for _, r := range regions {
		g := newGrid(10, 8)
		orig := g.values()
		flip := NewFlipTool()
		newSession(t, g, r, flip)

		_ = flip.FlipVertical()
		if r.Bins > 1 && g.frames[r.Frame].Real(r.Bin) != orig[r.Frame][r.Bin+r.Bins-1] {
			t.Errorf("%s: vertical flip did not mirror bins", r)
		}
		_ = flip.FlipVertical()
		assertGrid(t, g.values(), orig)

		_ = flip.FlipHorizontal()
		if r.Frames > 1 && g.frames[r.Frame].Real(r.Bin) != orig[r.Frame+r.Frames-1][r.Bin] {
			t.Errorf("%s: horizontal flip did not mirror frames", r)
		}
		_ = flip.FlipHorizontal()
		assertGrid(t, g.values(), orig)
	}
}

func TestPaintbrushClampsToBuffer(t *testing.T) {
	g := newGrid(10, 8)
	brush := NewPaintbrushTool(2)
	newSession(t, g, clip.Region{}, brush)

	if err := brush.Press(0, 7); err != nil {
		t.Fatal(err)
	}
	if !g.compound {
		t.Error("stroke should be a compound edit")
	}
	if err := brush.Drag(20, 20); err != nil {
		t.Fatal(err)
	}
	if err := brush.Release(); err != nil {
		t.Fatal(err)
	}

	// Square of side 4 centred at (0,7): frames -2..1, bins 5..8, clipped.
	dab := clip.Region{Frame: 0, Frames: 2, Bin: 5, Bins: 3}
	for i, row := range g.values() {
		for j, v := range row {
			if dab.Contains(i, j) != (v == 0) {
				t.Fatalf("cell (%d,%d) = %v, painted=%v", i, j, v, dab.Contains(i, j))
			}
		}
	}
	if len(g.edits) != 1 {
		t.Errorf("opened %d dabs, want 1 (the off-buffer drag is dropped)", len(g.edits))
	}
	if err := brush.Release(); !errors.Is(err, ErrNoStroke) {
		t.Errorf("second Release = %v, want ErrNoStroke", err)
	}
}

func TestPaintStrokeUndoesInOneStep(t *testing.T) {
	c, err := clip.New(utils.GenerateSineWave(4096, 8000, 1000), 8000, clip.Options{FrameSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	before := c.EnergyAt(10, 32)

	brush := NewPaintbrushTool(3)
	newSession(t, c, clip.Region{}, brush)
	_ = brush.Press(8, 32)
	for f := 9; f < 14; f++ {
		if err := brush.Drag(f, 32); err != nil {
			t.Fatal(err)
		}
	}
	_ = brush.Release()

	if got := c.EnergyAt(10, 32); got != 0 {
		t.Fatalf("painted cell = %v, want 0", got)
	}
	label, err := c.Undo()
	if err != nil || label != strokeLabel {
		t.Fatalf("Undo() = %q, %v", label, err)
	}
	if got := c.EnergyAt(10, 32); got != before {
		t.Errorf("after undo cell = %v, want %v", got, before)
	}
	if c.CanUndo() {
		t.Error("stroke left more than one undo step")
	}
}

func TestUndoUnderScaleDropsSnapshot(t *testing.T) {
	c, err := clip.New(utils.GenerateSineWave(4096, 8000, 1000), 8000, clip.Options{FrameSize: 256})
	if err != nil {
		t.Fatal(err)
	}
	r := clip.Region{Frame: 4, Frames: 6, Bin: 20, Bins: 24}
	orig := c.EnergyAt(6, 32)

	flip := NewFlipTool()
	scale := NewScaleTool()
	s := newSession(t, c, r, flip)
	if err := flip.FlipVertical(); err != nil {
		t.Fatal(err)
	}
	s.SetTool(scale)
	if err := scale.Scale(2); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if _, err := c.Undo(); err != nil {
			t.Fatal(err)
		}
	}
	if scale.snap.Valid() {
		t.Fatal("snapshot survived an undo of its region")
	}
	if got := scale.Factor(); got != InitialScale {
		t.Errorf("factor after undo = %v, want %v", got, InitialScale)
	}

	// Scaling now works on the restored data, not the flipped snapshot.
	if err := scale.Scale(3); err != nil {
		t.Fatal(err)
	}
	if got, want := c.EnergyAt(6, 32), orig*3; math.Abs(got-want) > 1e-9*math.Abs(want) {
		t.Errorf("cell after undo and scale = %v, want %v", got, want)
	}
}

func TestOwnEditsKeepSnapshot(t *testing.T) {
	g := newGrid(6, 6)
	th := NewThresholdTool(NewCurvedSlider(10, 3))
	newSession(t, g, clip.Region{Frame: 1, Frames: 3, Bin: 1, Bins: 3}, th)
	if err := th.SetPosition(50); err != nil {
		t.Fatal(err)
	}
	snap := th.snap
	if err := th.SetPosition(20); err != nil {
		t.Fatal(err)
	}
	if !th.snap.Valid() || th.snap.Region() != snap.Region() || &th.snap.data[0][0] != &snap.data[0][0] {
		t.Error("the tool's own edit replaced its snapshot")
	}
}

func TestUnrelatedEditKeepsSnapshot(t *testing.T) {
	g := newGrid(6, 6)
	scale := NewScaleTool()
	newSession(t, g, clip.Region{Frames: 2, Bins: 2}, scale)
	_ = scale.Scale(2)

	// An edit elsewhere in the buffer leaves the selection's originals alone.
	_ = g.BeginEdit(clip.Region{Frame: 4, Frames: 2, Bin: 4, Bins: 2}, "elsewhere")
	_ = g.EndEdit()
	if !scale.snap.Valid() || scale.Factor() != 2 {
		t.Error("edit outside the selection reset the scale tool")
	}
}

func TestSetToolDeactivatesPrevious(t *testing.T) {
	g := newGrid(4, 4)
	scale := NewScaleTool()
	s := newSession(t, g, clip.Region{Frames: 2, Bins: 2}, scale)
	_ = scale.Scale(2)
	if !scale.snap.Valid() {
		t.Fatal("scale should hold a snapshot")
	}

	s.SetTool(NewFlipTool())
	if scale.snap.Valid() {
		t.Error("snapshot survived deactivation")
	}
	if s.Tool().Name() != "flip" {
		t.Errorf("active tool = %s, want flip", s.Tool().Name())
	}
}
