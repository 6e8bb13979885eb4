// SPDX-License-Identifier: MIT
package player

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	applog "spectro/internal/log"
	"spectro/internal/pcm"
)

func TestMain(m *testing.M) {
	applog.SetLevel(applog.LevelError)
	code := m.Run()
	applog.SetLevel(applog.LevelInfo)
	os.Exit(code)
}

// fakeLine simulates a device that plays step bytes every time it is
// polled through Available or Running while started.
type fakeLine struct {
	mu       sync.Mutex
	format   pcm.Format
	capacity int
	step     int
	queued   int
	played   int64 // Frames.
	started  bool
	stuck    bool // Running stays true once the queue is empty.
	// playOutOnStop makes Stop play the whole queue first, like a
	// blocking device stop. playedOut counts the bytes it played.
	playOutOnStop bool
	playedOut     int
	openErr       error
	writeErr      error
	written       bytes.Buffer
	flushes       int
	closed        bool
}

func newFakeLine() *fakeLine {
	return &fakeLine{capacity: 64, step: 16}
}

func (l *fakeLine) Open(f pcm.Format) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = f
	return l.openErr
}

func (l *fakeLine) Start() error { l.mu.Lock(); l.started = true; l.mu.Unlock(); return nil }

func (l *fakeLine) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playOutOnStop && l.started {
		l.played += int64(l.queued / 2)
		l.playedOut += l.queued
		l.queued = 0
	}
	l.started = false
	return nil
}

func (l *fakeLine) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queued = 0
	l.flushes++
	return nil
}

// tickLocked plays one step of queued audio.
func (l *fakeLine) tickLocked() {
	if !l.started {
		return
	}
	k := min(l.queued, l.step)
	l.queued -= k
	l.played += int64(k / 2)
}

func (l *fakeLine) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickLocked()
	return l.capacity - l.queued
}

func (l *fakeLine) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return 0, l.writeErr
	}
	l.written.Write(p)
	l.queued += len(p)
	return len(p), nil
}

func (l *fakeLine) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickLocked()
	return l.started && (l.queued > 0 || l.stuck)
}

func (l *fakeLine) FramePosition() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.played
}

func (l *fakeLine) BufferSize() int { return l.capacity }

func (l *fakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLine) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// rampSource serves samples whose 16-bit value is their index.
type rampSource struct {
	samples int
	opens   []int
	mu      sync.Mutex
}

func (s *rampSource) Audio(start int) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opens = append(s.opens, start)
	s.mu.Unlock()
	var buf bytes.Buffer
	for i := start; i < s.samples; i++ {
		buf.WriteByte(byte(i))
		buf.WriteByte(byte(i >> 8))
	}
	return io.NopCloser(&buf), nil
}

func (s *rampSource) Format() pcm.Format { return pcm.Mono16(8000) }

// recorder collects events from the playback goroutine.
type recorder struct {
	mu        sync.Mutex
	states    []State
	positions []int
	stateCh   chan State
}

func record(p *Player) *recorder {
	r := &recorder{stateCh: make(chan State, 64)}
	p.OnStateChanged(func(s State) {
		r.mu.Lock()
		r.states = append(r.states, s)
		r.mu.Unlock()
		r.stateCh <- s
	})
	p.OnPositionUpdated(func(pos int) {
		r.mu.Lock()
		r.positions = append(r.positions, pos)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) waitFor(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.stateCh:
			if s == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

// waitPositions blocks until ok accepts the recorded positions.
func (r *recorder) waitPositions(t *testing.T, ok func([]int) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, positions := r.snapshot(); ok(positions) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	_, positions := r.snapshot()
	t.Fatalf("positions never settled: %v", positions)
}

func endsAtZero(positions []int) bool {
	return len(positions) > 0 && positions[len(positions)-1] == 0
}

func (r *recorder) snapshot() ([]State, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...), append([]int(nil), r.positions...)
}

func newTestPlayer(t *testing.T, src Source, line Line) *Player {
	t.Helper()
	p, err := New(src, line, Options{MaxChunkBytes: 24, DrainPoll: time.Millisecond, IdlePoll: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		p.Terminate()
		<-p.Done()
	})
	return p
}

func TestPlaysToEndThenDrainsAndRewinds(t *testing.T) {
	line := newFakeLine()
	src := &rampSource{samples: 500}
	p := newTestPlayer(t, src, line)
	rec := record(p)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, Stopped)
	rec.waitPositions(t, endsAtZero)

	states, positions := rec.snapshot()
	want := []State{Playing, Draining, Stopped}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}

	// Everything was written in order, chunk by chunk.
	line.mu.Lock()
	got := line.written.Bytes()
	line.mu.Unlock()
	if len(got) != 1000 {
		t.Fatalf("wrote %d bytes, want 1000", len(got))
	}
	for i := 0; i < 500; i++ {
		if v := int(got[2*i]) | int(got[2*i+1])<<8; v != i {
			t.Fatalf("sample %d = %d", i, v)
		}
	}

	// Monotonic up to the rewind, which announces 0 last.
	for i := 1; i < len(positions)-1; i++ {
		if positions[i] < positions[i-1] {
			t.Fatalf("position went backwards: %v", positions)
		}
	}
	if p.Position() != 0 {
		t.Errorf("position after drain = %d, want 0", p.Position())
	}
	if p.State() != Stopped {
		t.Errorf("state = %s, want stopped", p.State())
	}
}

func TestDrainStallEndsPlayback(t *testing.T) {
	line := newFakeLine()
	line.stuck = true
	p := newTestPlayer(t, &rampSource{samples: 100}, line)
	rec := record(p)

	_ = p.Start()
	rec.waitFor(t, Stopped)
	rec.waitPositions(t, endsAtZero)
	if p.Position() != 0 {
		t.Errorf("position = %d, want 0", p.Position())
	}
}

func TestSeekSetsPosition(t *testing.T) {
	line := newFakeLine()
	src := &rampSource{samples: 1000}
	p := newTestPlayer(t, src, line)

	if err := p.Seek(300); err != nil {
		t.Fatal(err)
	}
	if got := p.Position(); got != 300 {
		t.Errorf("Position after seek while stopped = %d, want 300", got)
	}
	if p.State() != Stopped {
		t.Errorf("seek changed state to %s", p.State())
	}

	rec := record(p)
	_ = p.Start()
	rec.waitFor(t, Stopped)

	line.mu.Lock()
	first := int(line.written.Bytes()[0]) | int(line.written.Bytes()[1])<<8
	line.mu.Unlock()
	if first != 300 {
		t.Errorf("first sample written = %d, want 300", first)
	}
	_, positions := rec.snapshot()
	if positions[0] < 300 {
		t.Errorf("first position after start = %d, want >= 300", positions[0])
	}
}

func TestSeekWhilePlayingFlushes(t *testing.T) {
	line := newFakeLine()
	line.step = 2 // Slow device so playback is still going when we seek.
	p := newTestPlayer(t, &rampSource{samples: 100000}, line)

	_ = p.Start()
	time.Sleep(5 * time.Millisecond)
	if err := p.Seek(2000); err != nil {
		t.Fatal(err)
	}
	if got := p.Position(); got != 2000 {
		t.Errorf("Position right after seek = %d, want 2000", got)
	}
	if s := p.State(); s != Playing && s != Draining {
		t.Errorf("state after seek = %s, want still playing", s)
	}
	line.mu.Lock()
	flushes := line.flushes
	line.mu.Unlock()
	if flushes == 0 {
		t.Error("seek did not flush the line")
	}
}

func TestSeekWhilePlayingDiscardsQueuedAudio(t *testing.T) {
	line := newFakeLine()
	line.step = 2
	line.playOutOnStop = true
	p := newTestPlayer(t, &rampSource{samples: 100000}, line)

	_ = p.Start()
	deadline := time.Now().Add(2 * time.Second)
	for {
		line.mu.Lock()
		queued := line.queued
		line.mu.Unlock()
		if queued > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("nothing was queued on the line")
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Seek(2000); err != nil {
		t.Fatal(err)
	}
	line.mu.Lock()
	playedOut := line.playedOut
	line.mu.Unlock()
	if playedOut != 0 {
		t.Errorf("seek played out %d queued bytes instead of dropping them", playedOut)
	}
	if got := p.Position(); got != 2000 {
		t.Errorf("Position right after seek = %d, want 2000", got)
	}
}

func TestPausedAt(t *testing.T) {
	line := newFakeLine()
	line.step = 2
	p := newTestPlayer(t, &rampSource{samples: 100000}, line)
	rec := record(p)

	if _, ok := p.PausedAt(); ok {
		t.Error("PausedAt reported a sample while stopped")
	}
	_ = p.Start()
	time.Sleep(5 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, Paused)

	at, ok := p.PausedAt()
	if !ok || at != p.Position() {
		t.Errorf("PausedAt = %d, %v; want %d, true", at, ok, p.Position())
	}

	if err := p.Seek(50); err != nil {
		t.Fatal(err)
	}
	if at, ok := p.PausedAt(); !ok || at != 50 {
		t.Errorf("PausedAt after seek = %d, %v; want 50, true", at, ok)
	}

	_ = p.Start()
	rec.waitFor(t, Playing)
	if _, ok := p.PausedAt(); ok {
		t.Error("PausedAt reported a sample while playing")
	}
}

func TestStopPreservesPosition(t *testing.T) {
	line := newFakeLine()
	line.step = 2
	p := newTestPlayer(t, &rampSource{samples: 100000}, line)
	rec := record(p)

	_ = p.Start()
	time.Sleep(5 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, Paused)
	at := p.Position()

	time.Sleep(5 * time.Millisecond)
	if got := p.Position(); got != at {
		t.Errorf("position moved while paused: %d -> %d", at, got)
	}

	line.mu.Lock()
	flushes := line.flushes
	line.mu.Unlock()
	if flushes != 0 {
		t.Error("stop flushed the line")
	}

	_, before := rec.snapshot()
	idx := len(before)
	_ = p.Start()
	rec.waitFor(t, Playing)
	rec.waitPositions(t, func(positions []int) bool { return len(positions) > idx })
	_, positions := rec.snapshot()
	if got := positions[idx]; got < at || got > at+p.opts.MaxChunkBytes/2 {
		t.Errorf("resumed at %d, want %d within one chunk", got, at)
	}
}

func TestListenersRunNewestFirst(t *testing.T) {
	p := newTestPlayer(t, &rampSource{samples: 10}, newFakeLine())

	var mu sync.Mutex
	var order []string
	var once sync.Once
	done := make(chan struct{})
	p.OnStateChanged(func(State) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		once.Do(func() { close(done) })
	})
	p.OnStateChanged(func(State) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	_ = p.Start()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(order) < 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("order = %v, want [second first]", order)
	}
}

func TestTerminate(t *testing.T) {
	line := newFakeLine()
	p, err := New(&rampSource{samples: 100}, line, Options{IdlePoll: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	rec := record(p)

	p.Terminate()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("goroutine did not exit while parked")
	}
	if !line.isClosed() {
		t.Error("line not closed on exit")
	}
	rec.waitFor(t, Terminated)

	for name, cmd := range map[string]func() error{
		"Start": p.Start,
		"Stop":  p.Stop,
		"Seek":  func() error { return p.Seek(0) },
	} {
		if err := cmd(); !errors.Is(err, ErrTerminated) {
			t.Errorf("%s after Terminate = %v, want ErrTerminated", name, err)
		}
	}
	if p.State() != Terminated {
		t.Errorf("state = %s, want terminated", p.State())
	}
	p.Terminate()
}

func TestWriteErrorIsFatal(t *testing.T) {
	line := newFakeLine()
	line.writeErr = errors.New("device unplugged")
	p, err := New(&rampSource{samples: 100}, line, Options{})
	if err != nil {
		t.Fatal(err)
	}

	_ = p.Start()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not abort")
	}
	if err := p.Err(); err == nil || !errors.Is(err, line.writeErr) {
		t.Errorf("Err() = %v, want wrapped write error", err)
	}
	if !line.isClosed() {
		t.Error("line not released after a write error")
	}
	if p.State() != Terminated {
		t.Errorf("state = %s, want terminated", p.State())
	}
}

func TestOpenErrorFailsConstruction(t *testing.T) {
	line := newFakeLine()
	line.openErr = errors.New("no device")
	if _, err := New(&rampSource{samples: 10}, line, Options{}); err == nil {
		t.Fatal("New should fail when the line cannot be opened")
	}
	if !line.isClosed() {
		t.Error("line not closed after failed open")
	}
}

type countingTap struct {
	mu    sync.Mutex
	bytes int
}

func (c *countingTap) Process(chunk []byte) {
	c.mu.Lock()
	c.bytes += len(chunk)
	c.mu.Unlock()
}

func TestTapSeesEveryChunk(t *testing.T) {
	tap := &countingTap{}
	p, err := New(&rampSource{samples: 300}, newFakeLine(), Options{MaxChunkBytes: 32, DrainPoll: time.Millisecond, Tap: tap})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { p.Terminate(); <-p.Done() }()
	rec := record(p)

	_ = p.Start()
	rec.waitFor(t, Stopped)
	tap.mu.Lock()
	defer tap.mu.Unlock()
	if tap.bytes != 600 {
		t.Errorf("tap saw %d bytes, want 600", tap.bytes)
	}
}
