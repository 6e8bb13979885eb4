// SPDX-License-Identifier: MIT

// Package player streams a clip's rendered audio to an output line on a
// goroutine it owns. Commands (Start, Stop, Seek, Terminate) may be issued
// from any goroutine; state and position notifications are delivered
// synchronously on the playback goroutine, newest subscriber first.
package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"spectro/internal/event"
	applog "spectro/internal/log"
	"spectro/internal/pcm"
	"spectro/pkg/bitint"
)

var ErrTerminated = errors.New("player: terminated")

const (
	DefaultMaxChunkBytes = 4096
	DefaultDrainPoll     = 30 * time.Millisecond
	DefaultIdlePoll      = 10 * time.Second

	// fullPoll is how long the loop waits when the device has no room.
	fullPoll = 5 * time.Millisecond
)

// Line is the output device the player writes to. audio.Line implementations
// satisfy it.
type Line interface {
	Open(f pcm.Format) error
	Start() error
	Stop() error
	Flush() error
	Available() int
	Write(p []byte) (int, error)
	Running() bool
	FramePosition() int64
	BufferSize() int
	Close() error
}

// Source renders PCM starting at a sample. *clip.Clip implements it.
type Source interface {
	Audio(startSample int) (io.ReadCloser, error)
	Format() pcm.Format
}

// Tap receives every chunk written to the device, on the playback goroutine.
type Tap interface {
	Process(chunk []byte)
}

type Options struct {
	MaxChunkBytes int
	DrainPoll     time.Duration
	IdlePoll      time.Duration
	Tap           Tap
}

func (o *Options) setDefaults() {
	if o.MaxChunkBytes <= 0 {
		o.MaxChunkBytes = DefaultMaxChunkBytes
	}
	if o.DrainPoll <= 0 {
		o.DrainPoll = DefaultDrainPoll
	}
	if o.IdlePoll <= 0 {
		o.IdlePoll = DefaultIdlePoll
	}
}

// Player plays a Source through a Line.
type Player struct {
	src    Source
	line   Line
	format pcm.Format
	opts   Options
	chunk  []byte

	mu          sync.Mutex
	state       State
	stream      io.ReadCloser
	startSample int   // Sample the stream was opened at.
	pausedAt    int   // Sample Stop paused at, valid while Paused.
	offset      int64 // Device frame counter when the stream was opened.
	terminated  bool
	err         error
	stateDirty  bool // A transition has not been announced yet.
	posDirty    bool // A reposition has not been announced yet.

	wake chan struct{}
	done chan struct{}

	stateChanged    event.Registry[State]
	positionUpdated event.Registry[int]
	log             *applog.Logger
}

// New opens line for src's format and starts the playback goroutine in the
// Stopped state at sample 0. A line that cannot be opened is a construction
// error; the line is closed in that case.
func New(src Source, line Line, opts Options) (*Player, error) {
	opts.setDefaults()
	f := src.Format()
	if err := line.Open(f); err != nil {
		line.Close()
		return nil, fmt.Errorf("player: opening line: %w", err)
	}
	stream, err := src.Audio(0)
	if err != nil {
		line.Close()
		return nil, fmt.Errorf("player: opening stream: %w", err)
	}

	p := &Player{
		src:    src,
		line:   line,
		format: f,
		opts:   opts,
		chunk:  make([]byte, max(f.FrameBytes(), bitint.AlignDown(opts.MaxChunkBytes, f.FrameBytes()))),
		stream: stream,
		offset: line.FramePosition(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		log:    applog.Named("player"),
	}
	go p.run()
	return p, nil
}

// OnStateChanged subscribes fn to state transitions.
func (p *Player) OnStateChanged(fn func(State)) (unsubscribe func()) {
	return p.stateChanged.Subscribe(fn)
}

// OnPositionUpdated subscribes fn to position updates, in samples from the
// start of the clip.
func (p *Player) OnPositionUpdated(fn func(int)) (unsubscribe func()) {
	return p.positionUpdated.Subscribe(fn)
}

// Start begins or resumes playback.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return ErrTerminated
	}
	if p.state != Stopped && p.state != Paused {
		return nil
	}
	if err := p.line.Start(); err != nil {
		p.failLocked(fmt.Errorf("starting line: %w", err))
		p.signal()
		return err
	}
	p.setStateLocked(Playing)
	p.signal()
	return nil
}

// Stop pauses playback. Queued audio stays on the device, so a later Start
// continues exactly where playback stopped.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return ErrTerminated
	}
	if !p.state.Active() {
		return nil
	}
	if err := p.line.Stop(); err != nil {
		p.failLocked(fmt.Errorf("stopping line: %w", err))
		p.signal()
		return err
	}
	p.pausedAt = p.positionLocked()
	p.setStateLocked(Paused)
	p.signal()
	return nil
}

// Seek repositions playback at sample. Queued audio is discarded. An active
// player keeps playing from the new position; a stopped or paused one stays
// as it is. The next Position call returns sample.
func (p *Player) Seek(sample int) error {
	if sample < 0 {
		return fmt.Errorf("player: cannot seek to negative sample %d", sample)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated {
		return ErrTerminated
	}

	stream, err := p.src.Audio(sample)
	if err != nil {
		return fmt.Errorf("player: seeking to %d: %w", sample, err)
	}
	active := p.state.Active()
	if err := p.repositionLocked(stream, sample, active); err != nil {
		p.failLocked(err)
		p.signal()
		return err
	}
	switch p.state {
	case Draining:
		p.setStateLocked(Playing)
	case Paused:
		p.pausedAt = sample
	}
	p.posDirty = true
	p.signal()
	p.log.Debugf("seek to sample %d (%s)", sample, p.state)
	return nil
}

// Terminate stops the playback goroutine for good. The line is closed
// before Done is closed.
func (p *Player) Terminate() {
	p.mu.Lock()
	if !p.terminated {
		p.terminated = true
		p.setStateLocked(Terminated)
	}
	p.mu.Unlock()
	p.signal()
}

// Done is closed once the playback goroutine has exited.
func (p *Player) Done() <-chan struct{} { return p.done }

// Err returns the error that ended playback, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Playing reports whether audio is being sent to the device.
func (p *Player) Playing() bool { return p.State().Active() }

// Position returns the sample currently heard.
func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// PausedAt returns the sample playback is paused at. It reports false
// unless the player is Paused.
func (p *Player) PausedAt() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Paused {
		return 0, false
	}
	return p.pausedAt, true
}

// Format returns the PCM format sent to the line.
func (p *Player) Format() pcm.Format { return p.format }

func (p *Player) positionLocked() int {
	frames := p.line.FramePosition() - p.offset
	return int(frames)*p.format.Channels + p.startSample
}

func (p *Player) setStateLocked(s State) {
	if p.state == s {
		return
	}
	p.log.Debugf("%s -> %s", p.state, s)
	p.state = s
	p.stateDirty = true
}

// failLocked ends playback with err.
func (p *Player) failLocked(err error) {
	if p.err == nil {
		p.err = err
	}
	p.log.Errorf("playback aborted: %v", err)
	p.terminated = true
	p.setStateLocked(Terminated)
}

// repositionLocked replaces the stream, flushing the device, and recaptures
// the frame offset so positions count from sample.
// The line is flushed before it is stopped: a stop may play out whatever is
// still queued.
func (p *Player) repositionLocked(stream io.ReadCloser, sample int, restart bool) error {
	if err := p.line.Flush(); err != nil {
		stream.Close()
		return fmt.Errorf("flushing line: %w", err)
	}
	if err := p.line.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("stopping line: %w", err)
	}
	if p.stream != nil {
		p.stream.Close()
	}
	p.stream = stream
	p.startSample = sample
	p.offset = p.line.FramePosition()
	if restart {
		if err := p.line.Start(); err != nil {
			return fmt.Errorf("restarting line: %w", err)
		}
	}
	return nil
}

// signal wakes the playback goroutine without blocking.
func (p *Player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// sleep waits for d. A wake ends the wait early when interrupted reports
// true.
func (p *Player) sleep(d time.Duration, interrupted func() bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case <-p.wake:
			if interrupted() {
				return
			}
		}
	}
}

func (p *Player) run() {
	defer close(p.done)
	defer func() {
		p.mu.Lock()
		if p.stream != nil {
			p.stream.Close()
		}
		p.mu.Unlock()
		if err := p.line.Close(); err != nil {
			p.log.Warnf("closing line: %v", err)
		}
		p.log.Debugf("playback goroutine exited")
	}()

	for {
		state, pos, stateDirty, posDirty, terminated := p.takeEvents()
		if stateDirty {
			p.stateChanged.Publish(state)
		}
		if posDirty {
			p.positionUpdated.Publish(pos)
		}
		if terminated {
			return
		}

		switch state {
		case Playing:
			p.playChunk()
		case Draining:
			p.drain()
		default:
			p.sleep(p.opts.IdlePoll, func() bool { return true })
		}
	}
}

func (p *Player) takeEvents() (state State, pos int, stateDirty, posDirty, terminated bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, stateDirty, posDirty, terminated = p.state, p.stateDirty, p.posDirty, p.terminated
	p.stateDirty, p.posDirty = false, false
	if posDirty {
		pos = p.positionLocked()
	}
	return
}

// playChunk copies one chunk from the stream to the device and announces
// the new position. The lock is held across the read and the write so a
// concurrent Seek waits for the chunk to land.
func (p *Player) playChunk() {
	p.mu.Lock()
	if p.state != Playing {
		p.mu.Unlock()
		return
	}
	n := bitint.AlignDown(min(p.line.Available(), len(p.chunk)), p.format.FrameBytes())
	if n == 0 {
		p.mu.Unlock()
		p.sleep(fullPoll, func() bool { return true })
		return
	}

	chunk := p.chunk[:n]
	read, rerr := io.ReadFull(p.stream, chunk)
	read = bitint.AlignDown(read, p.format.FrameBytes())
	if read > 0 {
		if _, err := p.line.Write(chunk[:read]); err != nil {
			p.failLocked(fmt.Errorf("writing line: %w", err))
			p.mu.Unlock()
			return
		}
	}
	switch {
	case rerr == nil:
	case errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF):
		p.setStateLocked(Draining)
	default:
		p.failLocked(fmt.Errorf("reading stream: %w", rerr))
		p.mu.Unlock()
		return
	}
	pos := p.positionLocked()
	p.mu.Unlock()

	if read > 0 && p.opts.Tap != nil {
		p.opts.Tap.Process(chunk[:read])
	}
	p.positionUpdated.Publish(pos)
}

// drain waits for the device to play out after EOF without blocking on it,
// so position updates keep flowing. It ends when the device stops running
// or the position stalls between two polls, then rewinds to sample 0.
func (p *Player) drain() {
	last := -1
	for {
		p.mu.Lock()
		if p.state != Draining {
			p.mu.Unlock()
			return
		}
		running := p.line.Running()
		pos := p.positionLocked()
		p.mu.Unlock()

		p.positionUpdated.Publish(pos)
		if !running || pos == last {
			if running {
				p.log.Debugf("drain stalled at sample %d", pos)
			}
			p.finishDrain()
			return
		}
		last = pos

		p.sleep(p.opts.DrainPoll, func() bool { return p.State() != Draining })
	}
}

func (p *Player) finishDrain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Draining {
		return
	}
	stream, err := p.src.Audio(0)
	if err != nil {
		p.failLocked(fmt.Errorf("rewinding stream: %w", err))
		return
	}
	if err := p.repositionLocked(stream, 0, false); err != nil {
		p.failLocked(err)
		return
	}
	p.setStateLocked(Stopped)
	p.posDirty = true
}
