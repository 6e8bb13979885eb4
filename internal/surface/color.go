// SPDX-License-Identifier: MIT
package surface

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// ValueColorizer shows a single value as a 24-bit colour.
type ValueColorizer interface {
	ColorFor(v float64) color.RGBA
}

// Rainbow runs from blue at the bottom of its range to red at the top.
type Rainbow struct {
	Range Range
}

func (c Rainbow) ColorFor(v float64) color.RGBA {
	hue := 240 * (1 - c.Range.Normalize(v))
	r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Gray maps its range onto black..white.
type Gray struct {
	Range Range
}

func (c Gray) ColorFor(v float64) color.RGBA {
	y := uint8(c.Range.Normalize(v)*255 + 0.5)
	return color.RGBA{R: y, G: y, B: y, A: 0xff}
}

var (
	_ ValueColorizer = Rainbow{}
	_ ValueColorizer = Gray{}
)
