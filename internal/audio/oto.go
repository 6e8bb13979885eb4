// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"spectro/internal/pcm"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat pcm.Format
	otoErr    error
)

func otoContext(f pcm.Format) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr == nil {
			<-ready
			otoFormat = f
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("audio: oto context: %w", otoErr)
	}
	if f != otoFormat {
		return nil, fmt.Errorf("audio: oto context already running at %s, cannot open %s", otoFormat, f)
	}
	return otoCtx, nil
}

// OtoLine plays through an oto player that pulls from a bounded ring.
// Once the ring runs dry the player is fed silence, which is not counted
// as played frames.
type OtoLine struct {
	bufferFrames int

	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	ring    *ring
	format  pcm.Format
	last    int64
	started bool
	closed  bool

	// Updated from oto's goroutine without l.mu, which oto may be waiting
	// on inside Pause or Close.
	consumed atomic.Int64 // Queued bytes handed to the player.
	silent   atomic.Int64 // Padding handed to the player since the last queued byte.
}

func NewOtoLine(bufferFrames int) *OtoLine {
	return &OtoLine{bufferFrames: bufferFrames}
}

func (l *OtoLine) Open(f pcm.Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	ctx, err := otoContext(f)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ctx = ctx
	l.format = f
	l.ring = newRing(l.bufferFrames * f.FrameBytes())
	l.player = ctx.NewPlayer(&otoSource{l})
	return nil
}

// otoSource is the reader handed to oto. It lives on oto's goroutine.
type otoSource struct{ l *OtoLine }

func (s *otoSource) Read(p []byte) (int, error) {
	n := s.l.ring.Read(p)
	clear(p[n:])
	s.l.consumed.Add(int64(n))
	if n > 0 {
		s.l.silent.Store(0)
	}
	s.l.silent.Add(int64(len(p) - n))
	return len(p), nil
}

func (l *OtoLine) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.player == nil {
		return ErrLineNotOpen
	}
	l.player.Play()
	l.started = true
	return nil
}

func (l *OtoLine) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.player == nil {
		return ErrLineNotOpen
	}
	l.player.Pause()
	l.started = false
	return nil
}

// Flush drops the ring and replaces the player, discarding whatever oto
// had already pulled.
func (l *OtoLine) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.player == nil {
		return ErrLineNotOpen
	}
	l.ring.Reset()
	l.player.Pause()
	if err := l.player.Close(); err != nil {
		return fmt.Errorf("audio: closing oto player: %w", err)
	}
	l.player = l.ctx.NewPlayer(&otoSource{l})
	l.silent.Store(0)
	if l.started {
		l.player.Play()
	}
	return nil
}

func (l *OtoLine) Available() int {
	if l.ring == nil {
		return 0
	}
	return l.ring.Free()
}

func (l *OtoLine) Write(p []byte) (int, error) {
	if l.ring == nil {
		return 0, ErrLineNotOpen
	}
	return l.ring.Write(p)
}

func (l *OtoLine) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started || l.player == nil {
		return false
	}
	return l.ring.Len() > 0 || l.pendingLocked() > 0
}

// pendingLocked returns the queued bytes oto holds but has not played.
func (l *OtoLine) pendingLocked() int64 {
	pending := int64(l.player.BufferedSize()) - l.silent.Load()
	return max(0, min(pending, l.consumed.Load()))
}

func (l *OtoLine) FramePosition() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.player == nil {
		return 0
	}
	pos := (l.consumed.Load() - l.pendingLocked()) / int64(l.format.FrameBytes())
	// The player's buffered size is sampled, keep the counter monotonic.
	l.last = max(l.last, pos)
	return l.last
}

func (l *OtoLine) BufferSize() int {
	if l.ring == nil {
		return 0
	}
	return l.ring.Cap()
}

func (l *OtoLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.started = false
	if l.ring != nil {
		l.ring.Close()
	}
	if l.player != nil {
		l.player.Pause()
		err := l.player.Close()
		l.player = nil
		return err
	}
	return nil
}
