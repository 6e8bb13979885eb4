// SPDX-License-Identifier: MIT
package clip

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidLength is returned when a window is applied to a slice whose
// length does not match the window size.
var ErrInvalidLength = errors.New("clip: invalid array length")

// WindowFunction scales a block of samples in place before analysis and
// after synthesis. Windows used here are power complementary at 50% overlap,
// w(n)^2 + w(n+N/2)^2 = 1, so windowing on both sides reconstructs the input.
type WindowFunction interface {
	Apply(data []float64) error
	Len() int
	At(i int) float64
}

type scalarWindow struct {
	name    string
	scalars []float64
}

func (w *scalarWindow) Len() int         { return len(w.scalars) }
func (w *scalarWindow) At(i int) float64 { return w.scalars[i] }
func (w *scalarWindow) String() string   { return w.name }

func (w *scalarWindow) Apply(data []float64) error {
	if len(data) != len(w.scalars) {
		return fmt.Errorf("%w (required: %d; given: %d)", ErrInvalidLength, len(w.scalars), len(data))
	}
	for i := range data {
		data[i] *= w.scalars[i]
	}
	return nil
}

// NewVorbisWindow returns the Vorbis power-complementary window,
// w(n) = sin(pi/2 * sin^2(pi*n/N)).
func NewVorbisWindow(size int) WindowFunction {
	s := make([]float64, size)
	for i := range s {
		x := math.Sin(math.Pi / float64(size) * float64(i))
		s[i] = math.Sin(math.Pi / 2 * x * x)
	}
	return &scalarWindow{name: "vorbis", scalars: s}
}

// NewSqrtHannWindow returns the square root of the periodic Hann window.
func NewSqrtHannWindow(size int) WindowFunction {
	s := make([]float64, size)
	for i := range s {
		s[i] = math.Sqrt(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size))))
	}
	return &scalarWindow{name: "sqrt-hann", scalars: s}
}

// ParseWindow builds the named window of the given size.
func ParseWindow(name string, size int) (WindowFunction, error) {
	switch strings.ToLower(name) {
	case "", "vorbis":
		return NewVorbisWindow(size), nil
	case "sqrt-hann", "sqrthann":
		return NewSqrtHannWindow(size), nil
	default:
		return nil, fmt.Errorf("clip: unknown window function %q", name)
	}
}
