// SPDX-License-Identifier: MIT

// Package clip implements the spectral buffer the editor works on: a
// frames x bins grid computed from a mono signal with a windowed real FFT at
// 50% overlap. Edits are made in place inside BeginEdit/EndEdit transactions
// which are recorded for undo and announced to region-changed subscribers.
// Audio resynthesises PCM from the current grid for playback and export.
//
// The clip assumes a single writer. Readers on other goroutines (the
// playback stream, renderers calling EnergyAt) are excluded for the duration
// of a transaction, so they never observe a half-applied edit.
package clip

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"spectro/internal/event"
	applog "spectro/internal/log"
	"spectro/internal/pcm"
	"spectro/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	ErrInvalidFrameSize = errors.New("clip: frame size must be a power of two >= 4")
	ErrNoSamples        = errors.New("clip: no samples")
)

const defaultUndoLimit = 100

// Options controls how a clip is built.
type Options struct {
	FrameSize int    // Analysis window length in samples, power of two.
	Window    string // Window function name, see ParseWindow.
	UndoLimit int    // Maximum undoable edits kept; 0 selects the default.
}

// Clip is the spectral representation of a sound.
type Clip struct {
	mu     sync.RWMutex // Guards frame contents.
	frames []*Frame

	frameSize   int
	hop         int
	sampleRate  int
	sampleCount int
	window      WindowFunction

	editMu        sync.Mutex // Guards edits; taken before mu.
	edits         editState
	regionChanged event.Registry[Region]
	log           *applog.Logger
}

// New analyses samples (mono, [-1,1]) into a clip.
func New(samples []float64, sampleRate int, opts Options) (*Clip, error) {
	n := opts.FrameSize
	if !bitint.IsPowerOfTwo(n) || n < 4 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFrameSize, n)
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("clip: sample rate must be positive, got %d", sampleRate)
	}
	window, err := ParseWindow(opts.Window, n)
	if err != nil {
		return nil, err
	}
	undoLimit := opts.UndoLimit
	if undoLimit <= 0 {
		undoLimit = defaultUndoLimit
	}

	hop := n / 2
	// Frame k covers samples [(k-1)*hop, (k+1)*hop), so every sample lies in
	// exactly two frames.
	frameCount := (len(samples)+hop-1)/hop + 1

	c := &Clip{
		frames:      make([]*Frame, frameCount),
		frameSize:   n,
		hop:         hop,
		sampleRate:  sampleRate,
		sampleCount: len(samples),
		window:      window,
		edits:       editState{limit: undoLimit},
		log:         applog.Named("clip"),
	}

	fft := fourier.NewFFT(n)
	buf := make([]float64, n)
	coeffs := make([]complex128, n/2+1)
	for k := range frameCount {
		start := (k - 1) * hop
		for i := range buf {
			idx := start + i
			if idx >= 0 && idx < len(samples) {
				buf[i] = samples[idx]
			} else {
				buf[i] = 0
			}
		}
		if err := window.Apply(buf); err != nil {
			return nil, err
		}
		fft.Coefficients(coeffs, buf)
		c.frames[k] = newFrame(coeffs)
	}

	c.log.Debugf("analysed %d samples into %d frames of %d bins (%s window)",
		len(samples), frameCount, n/2+1, opts.Window)
	return c, nil
}

// FrameCount returns the number of time frames.
func (c *Clip) FrameCount() int { return len(c.frames) }

// FrameWidth returns the number of frequency bins per frame.
func (c *Clip) FrameWidth() int { return c.frameSize/2 + 1 }

// FrameSize returns the analysis window length in samples.
func (c *Clip) FrameSize() int { return c.frameSize }

// SampleRate returns the sample rate of the analysed signal.
func (c *Clip) SampleRate() int { return c.sampleRate }

// SampleCount returns the length of the signal in samples.
func (c *Clip) SampleCount() int { return c.sampleCount }

// Format returns the PCM format produced by Audio.
func (c *Clip) Format() pcm.Format { return pcm.Mono16(c.sampleRate) }

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	return time.Duration(float64(c.sampleCount) / float64(c.sampleRate) * float64(time.Second))
}

// Frame returns frame i for in-place editing. Mutations must happen inside
// an edit transaction.
func (c *Clip) Frame(i int) *Frame { return c.frames[i] }

// EnergyAt returns the value at (frame, bin). It is safe to call from any
// goroutine except while that goroutine holds an open edit.
func (c *Clip) EnergyAt(frame, bin int) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames[frame].Real(bin)
}

// FrameAtSample returns the frame whose window is centred nearest to sample.
func (c *Clip) FrameAtSample(sample int) int {
	k := (sample + c.hop/2) / c.hop
	return max(0, min(k, len(c.frames)-1))
}

// SampleAtFrame returns the sample on which frame k is centred.
func (c *Clip) SampleAtFrame(k int) int {
	return max(0, min(k*c.hop, c.sampleCount))
}

// BinFrequency returns the centre frequency in Hz of bin.
func (c *Clip) BinFrequency(bin int) float64 {
	return float64(bin) * float64(c.sampleRate) / float64(c.frameSize)
}

// Bounds returns the region covering the whole clip.
func (c *Clip) Bounds() Region {
	return Region{Frame: 0, Frames: c.FrameCount(), Bin: 0, Bins: c.FrameWidth()}
}

// OnRegionChanged subscribes fn to region-changed events. The event is
// delivered on the goroutine that completed the edit, undo or redo.
func (c *Clip) OnRegionChanged(fn func(Region)) (unsubscribe func()) {
	return c.regionChanged.Subscribe(fn)
}

// copyRegion returns the values in r indexed [frame-r.Frame][bin-r.Bin].
// The caller holds c.mu.
func (c *Clip) copyRegion(r Region) [][]float64 {
	data := make([][]float64, r.Frames)
	for i := range data {
		f := c.frames[r.Frame+i]
		data[i] = append([]float64(nil), f.mag[r.Bin:r.Bin+r.Bins]...)
	}
	return data
}

// writeRegion is the inverse of copyRegion. The caller holds c.mu for writing.
func (c *Clip) writeRegion(r Region, data [][]float64) {
	for i, row := range data {
		copy(c.frames[r.Frame+i].mag[r.Bin:r.Bin+r.Bins], row)
	}
}
