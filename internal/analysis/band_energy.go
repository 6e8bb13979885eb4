// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"

	"spectro/internal/transport"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range into six bands. The top band ends at
// the Nyquist frequency of the analysed stream.
func DefaultBands(sampleRate float64) []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// energyScale maps the RMS bin magnitude of a band into roughly [0,1].
const energyScale = 50.0

// BandEnergyProcessor turns the latest spectrum of an FFTResultProvider into
// per-band energies and sends them to a transport. It is meant to run in a
// Chain after the FFTProcessor it reads from.
type BandEnergyProcessor struct {
	transport transport.Transport
	provider  FFTResultProvider
	bands     []FrequencyBand
	bandOf    []int // Band index per FFT bin, -1 when outside every band.

	magnitudes []float64
	energy     []float64
	counts     []int
}

var _ AudioProcessor = (*BandEnergyProcessor)(nil)

// NewBandEnergyProcessor creates a processor over bands. A nil bands uses
// DefaultBands for the provider's sample rate.
func NewBandEnergyProcessor(t transport.Transport, provider FFTResultProvider, bands []FrequencyBand) (*BandEnergyProcessor, error) {
	if provider == nil {
		return nil, errors.New("analysis: band energy requires an FFT result provider")
	}
	if bands == nil {
		bands = DefaultBands(provider.GetSampleRate())
	}
	bins := provider.GetFFTSize()/2 + 1
	bandOf := make([]int, bins)
	for i := range bandOf {
		bandOf[i] = -1
		freq := provider.GetFrequencyForBin(i)
		for b, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				bandOf[i] = b
				break
			}
		}
	}
	logger.Infof("band energy: %d bands over %d bins", len(bands), bins)
	return &BandEnergyProcessor{
		transport:  t,
		provider:   provider,
		bands:      bands,
		bandOf:     bandOf,
		magnitudes: make([]float64, bins),
		energy:     make([]float64, len(bands)),
		counts:     make([]int, len(bands)),
	}, nil
}

// Process ignores the chunk and recomputes band energies from the provider.
func (p *BandEnergyProcessor) Process([]byte) {
	if err := p.provider.GetMagnitudesInto(p.magnitudes); err != nil {
		logger.Errorf("band energy: %v", err)
		return
	}
	clear(p.energy)
	clear(p.counts)
	for i, m := range p.magnitudes {
		if b := p.bandOf[i]; b >= 0 {
			p.energy[b] += m * m
			p.counts[b]++
		}
	}
	for b := range p.energy {
		if p.counts[b] > 0 {
			p.energy[b] = math.Min(1, math.Sqrt(p.energy[b]/float64(p.counts[b]))*energyScale)
		}
	}

	if p.transport == nil {
		return
	}
	// Transports may hold the message, so each send gets its own map.
	bands := make(map[string]float64, len(p.bands))
	for b, band := range p.bands {
		bands[band.Name] = p.energy[b]
	}
	msg := transport.BandEnergyMessage{Type: transport.TypeBandEnergy, Bands: bands}
	if err := p.transport.Send(msg); err != nil {
		logger.Warnf("band energy: send: %v", err)
	}
}

// Energies returns the band energies computed by the last Process, in band order.
func (p *BandEnergyProcessor) Energies() []float64 {
	return append([]float64(nil), p.energy...)
}

// Bands returns the configured bands.
func (p *BandEnergyProcessor) Bands() []FrequencyBand {
	return p.bands
}
