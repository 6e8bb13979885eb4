// SPDX-License-Identifier: MIT
package tool

import (
	"sync"

	"spectro/internal/clip"
	"spectro/internal/event"
	applog "spectro/internal/log"
)

// Session ties a buffer to the current region selection and the active tool.
type Session struct {
	buf Buffer

	mu     sync.Mutex
	region clip.Region
	active Tool

	regionSelected event.Registry[clip.Region]
	log            *applog.Logger
}

func NewSession(buf Buffer) *Session {
	return &Session{buf: buf, log: applog.Named("tool")}
}

// Buffer returns the data the session edits.
func (s *Session) Buffer() Buffer { return s.buf }

// Region returns the current selection.
func (s *Session) Region() clip.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// SelectRegion clamps r to the buffer and makes it the selection.
// Subscribers are notified when the selection actually changes.
func (s *Session) SelectRegion(r clip.Region) {
	r = r.Intersect(bounds(s.buf))

	s.mu.Lock()
	if r == s.region {
		s.mu.Unlock()
		return
	}
	s.region = r
	s.mu.Unlock()

	s.log.Debugf("selected %s", r)
	s.regionSelected.Publish(r)
}

// OnRegionSelected subscribes fn to selection changes.
func (s *Session) OnRegionSelected(fn func(clip.Region)) (unsubscribe func()) {
	return s.regionSelected.Subscribe(fn)
}

// SetTool deactivates the current tool and activates t. A nil t leaves the
// session without a tool.
func (s *Session) SetTool(t Tool) {
	s.mu.Lock()
	prev := s.active
	s.active = t
	s.mu.Unlock()

	if prev != nil {
		prev.Deactivate()
	}
	if t != nil {
		t.Activate(s)
		s.log.Debugf("activated %s", t.Name())
	}
}

// Tool returns the active tool, or nil.
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
