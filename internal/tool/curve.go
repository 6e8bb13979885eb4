// SPDX-License-Identifier: MIT
package tool

import "math"

// SliderResolution is the number of steps of a CurvedSlider; positions run
// 0..SliderResolution.
const SliderResolution = 100

// CurvedSlider maps a linear position to (c*x)^b, giving finer control over
// small values. c is chosen so the last position yields the top value.
type CurvedSlider struct {
	exponent float64
	scalar   float64
}

// NewCurvedSlider builds a slider whose last position yields top. Useful curviness lies
// between 1 (linear) and 4 (very curved).
func NewCurvedSlider(top, curviness float64) CurvedSlider {
	return CurvedSlider{
		exponent: curviness,
		scalar:   math.Pow(top, 1/curviness) / SliderResolution,
	}
}

// Value returns the curved value at pos.
func (s CurvedSlider) Value(pos int) float64 {
	return math.Pow(s.scalar*float64(pos), s.exponent)
}
