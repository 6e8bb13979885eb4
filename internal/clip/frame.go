// SPDX-License-Identifier: MIT
package clip

import (
	"math"
	"math/cmplx"
)

// Frame is one time slice of a clip: the spectrum of a single analysis
// window. Each bin holds a signed real magnitude that the editing tools read
// and write; the phase of the analysed coefficient is kept alongside so the
// frame can be turned back into samples.
//
// A Frame obtained from Clip.Frame may only be mutated between BeginEdit and
// EndEdit on the owning clip.
type Frame struct {
	mag   []float64
	phase []float64
}

func newFrame(coeffs []complex128) *Frame {
	f := &Frame{
		mag:   make([]float64, len(coeffs)),
		phase: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		f.mag[i] = cmplx.Abs(c)
		f.phase[i] = cmplx.Phase(c)
	}
	return f
}

// Len returns the number of frequency bins, N/2+1 for an N-point window.
func (f *Frame) Len() int { return len(f.mag) }

// Real returns the value stored at bin.
func (f *Frame) Real(bin int) float64 { return f.mag[bin] }

// SetReal replaces the value stored at bin. Negative values invert the phase
// of the bin on resynthesis.
func (f *Frame) SetReal(bin int, v float64) { f.mag[bin] = v }

// coefficients writes the complex spectrum of the frame into dst.
func (f *Frame) coefficients(dst []complex128) {
	for i, m := range f.mag {
		s, c := math.Sincos(f.phase[i])
		dst[i] = complex(m*c, m*s)
	}
}

// NewFrame builds a frame holding values with zero phase. It is meant for
// assembling small grids by hand.
func NewFrame(values []float64) *Frame {
	return &Frame{
		mag:   append([]float64(nil), values...),
		phase: make([]float64, len(values)),
	}
}
