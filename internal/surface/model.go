// SPDX-License-Identifier: MIT

// Package surface adapts clips to rendering consumers: a read-only spectrum
// model, its value range and a colour mapping. It draws nothing itself.
package surface

import "math"

// SpectrumModel is what a renderer needs from a spectrogram.
type SpectrumModel interface {
	FrameCount() int
	FrameWidth() int
	EnergyAt(frame, bin int) float64
}

// Spectrum is the read side of *clip.Clip.
type Spectrum interface {
	SpectrumModel
	SampleRate() int
}

// ClipModel exposes a clip, optionally cut off above a maximum bin and with
// energies folded to their absolute value.
type ClipModel struct {
	src      Spectrum
	width    int
	absolute bool
}

// NewClipModel wraps src. A maxBins of zero or less keeps every bin.
func NewClipModel(src Spectrum, maxBins int, absolute bool) *ClipModel {
	width := src.FrameWidth()
	if maxBins > 0 {
		width = min(width, maxBins)
	}
	return &ClipModel{src: src, width: width, absolute: absolute}
}

func (m *ClipModel) FrameCount() int { return m.src.FrameCount() }
func (m *ClipModel) FrameWidth() int { return m.width }

func (m *ClipModel) EnergyAt(frame, bin int) float64 {
	v := m.src.EnergyAt(frame, bin)
	if m.absolute {
		return math.Abs(v)
	}
	return v
}

// Frequencies returns the frequency in Hz of every visible bin.
func (m *ClipModel) Frequencies() []float64 {
	out := make([]float64, m.width)
	full := m.src.FrameWidth()
	for i := range out {
		out[i] = BinFrequency(i, full, m.src.SampleRate())
	}
	return out
}

// MaxFrequency is the frequency of the highest visible bin.
func (m *ClipModel) MaxFrequency() float64 {
	return BinFrequency(m.width-1, m.src.FrameWidth(), m.src.SampleRate())
}

// BinFrequency maps bin of a frame width bins wide to Hz. The last bin of a
// frame is the Nyquist frequency.
func BinFrequency(bin, width, sampleRate int) float64 {
	if width < 2 {
		return 0
	}
	return float64(bin) / float64(width-1) * float64(sampleRate) / 2
}
