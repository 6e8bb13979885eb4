// SPDX-License-Identifier: MIT
package tool

import "spectro/internal/clip"

// Snapshot holds the values of a region as they were when captured. It is
// never written after Capture returns; the zero Snapshot holds nothing.
type Snapshot struct {
	region clip.Region
	data   [][]float64
}

// Capture copies the values in r out of buf. An empty region yields the zero
// Snapshot.
func Capture(buf Buffer, r clip.Region) Snapshot {
	if r.Empty() {
		return Snapshot{}
	}
	data := make([][]float64, r.Frames)
	for i := range data {
		f := buf.Frame(r.Frame + i)
		row := make([]float64, r.Bins)
		for j := range row {
			row[j] = f.Real(r.Bin + j)
		}
		data[i] = row
	}
	return Snapshot{region: r, data: data}
}

// Valid reports whether the snapshot holds data.
func (s Snapshot) Valid() bool { return s.data != nil }

// Region returns the captured region.
func (s Snapshot) Region() clip.Region { return s.region }

// Covers reports whether s is a live capture of exactly r.
func (s Snapshot) Covers(r clip.Region) bool { return s.Valid() && s.region == r }

// At returns the captured value of cell (frame, bin) in buffer coordinates.
func (s Snapshot) At(frame, bin int) float64 {
	return s.data[frame-s.region.Frame][bin-s.region.Bin]
}

// apply rewrites the snapshot's region in one transaction, mapping every
// captured value through fn.
func (s Snapshot) apply(buf Buffer, label string, fn func(float64) float64) error {
	r := s.region
	if err := buf.BeginEdit(r, label); err != nil {
		return err
	}
	for i, row := range s.data {
		f := buf.Frame(r.Frame + i)
		for j, v := range row {
			f.SetReal(r.Bin+j, fn(v))
		}
	}
	return buf.EndEdit()
}

// regionTool is the snapshot bookkeeping shared by scale and threshold.
// The snapshot is dropped, and the tool reset, when the selection changes or
// when something other than the tool rewrites cells it covers, such as an
// undo.
type regionTool struct {
	session     *Session
	snap        Snapshot
	applying    bool
	unsubscribe []func()
}

func (t *regionTool) activate(s *Session, reset func()) {
	t.session = s
	t.snap = Snapshot{}
	t.unsubscribe = []func(){
		s.OnRegionSelected(func(clip.Region) {
			t.snap = Snapshot{}
			reset()
		}),
		s.Buffer().OnRegionChanged(func(r clip.Region) {
			if t.applying || !t.snap.Valid() || t.snap.region.Intersect(r).Empty() {
				return
			}
			t.snap = Snapshot{}
			reset()
		}),
	}
}

func (t *regionTool) deactivate() {
	for _, unsubscribe := range t.unsubscribe {
		unsubscribe()
	}
	t.unsubscribe = nil
	t.snap = Snapshot{}
	t.session = nil
}

// apply rewrites the snapshot's region without invalidating the snapshot.
func (t *regionTool) apply(snap Snapshot, label string, fn func(float64) float64) error {
	t.applying = true
	defer func() { t.applying = false }()
	return snap.apply(t.session.Buffer(), label, fn)
}

// snapshot returns the capture for the current selection, taking it on
// first use. It reports false when there is nothing to edit; the snapshot
// is then discarded.
func (t *regionTool) snapshot() (Snapshot, bool) {
	if t.session == nil {
		return Snapshot{}, false
	}
	r := t.session.Region()
	if r.Empty() {
		t.snap = Snapshot{}
		return Snapshot{}, false
	}
	if !t.snap.Covers(r) {
		t.snap = Capture(t.session.Buffer(), r)
	}
	return t.snap, true
}
