// SPDX-License-Identifier: MIT
package tool

const (
	vflipLabel = "Flip Region Vertically"
	hflipLabel = "Flip Region Horizontally"
)

// FlipTool mirrors the selected region along the frequency or time axis.
// Both flips are their own inverse.
type FlipTool struct {
	session *Session
}

func NewFlipTool() *FlipTool { return &FlipTool{} }

func (t *FlipTool) Name() string        { return "flip" }
func (t *FlipTool) Activate(s *Session) { t.session = s }
func (t *FlipTool) Deactivate()         { t.session = nil }

// FlipVertical reverses the bins of every frame in the region.
func (t *FlipTool) FlipVertical() error {
	if t.session == nil {
		return nil
	}
	r := t.session.Region()
	if r.Empty() {
		return nil
	}
	buf := t.session.Buffer()
	if err := buf.BeginEdit(r, vflipLabel); err != nil {
		return err
	}
	for i := range r.Frames {
		f := buf.Frame(r.Frame + i)
		for j := range r.Bins / 2 {
			top, bottom := r.Bin+j, r.Bin+r.Bins-1-j
			tmp := f.Real(bottom)
			f.SetReal(bottom, f.Real(top))
			f.SetReal(top, tmp)
		}
	}
	return buf.EndEdit()
}

// FlipHorizontal reverses the order of the frames in the region.
func (t *FlipTool) FlipHorizontal() error {
	if t.session == nil {
		return nil
	}
	r := t.session.Region()
	if r.Empty() {
		return nil
	}
	buf := t.session.Buffer()
	if err := buf.BeginEdit(r, hflipLabel); err != nil {
		return err
	}
	for i := range r.Frames / 2 {
		l, rt := buf.Frame(r.Frame+i), buf.Frame(r.Frame+r.Frames-1-i)
		for j := r.Bin; j < r.Bin+r.Bins; j++ {
			tmp := rt.Real(j)
			rt.SetReal(j, l.Real(j))
			l.SetReal(j, tmp)
		}
	}
	return buf.EndEdit()
}
