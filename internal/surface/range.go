// SPDX-License-Identifier: MIT
package surface

import "gonum.org/v1/gonum/floats"

// Range is a closed interval of energies.
type Range struct {
	Min, Max float64
}

// Span returns Max-Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Normalize maps v into [0,1], clamping values outside the range. A range
// of zero span maps everything to 0.
func (r Range) Normalize(v float64) float64 {
	span := r.Span()
	if span <= 0 {
		return 0
	}
	return max(0, min(1, (v-r.Min)/span))
}

// EnergyRange scans every cell of m. With absolute set the minimum is pinned
// to zero, matching a surface drawn from magnitudes. An empty model yields
// the zero Range.
func EnergyRange(m SpectrumModel, absolute bool) Range {
	frames, width := m.FrameCount(), m.FrameWidth()
	if frames == 0 || width == 0 {
		return Range{}
	}
	row := make([]float64, width)
	var r Range
	for f := range frames {
		for b := range row {
			row[b] = m.EnergyAt(f, b)
		}
		lo, hi := floats.Min(row), floats.Max(row)
		if f == 0 || lo < r.Min {
			r.Min = lo
		}
		if f == 0 || hi > r.Max {
			r.Max = hi
		}
	}
	if absolute {
		r.Min = 0
	}
	return r
}
