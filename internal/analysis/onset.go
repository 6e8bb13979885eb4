// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"sync"
	"time"

	"spectro/internal/pcm"
	"spectro/internal/transport"
)

// Defaults for NewOnsetDetector.
const (
	DefaultOnsetThreshold = 0.1
	DefaultOnsetRatio     = 1.5
	DefaultOnsetCooldown  = 100 * time.Millisecond
)

// OnsetDetector flags sudden rises in loudness of the played stream, such as
// drum hits, by comparing the RMS of each chunk with the previous one.
type OnsetDetector struct {
	mu        sync.Mutex
	transport transport.Transport
	format    pcm.Format
	threshold float64
	ratio     float64
	cooldown  int // samples

	lastEnergy float64
	sinceOnset int
	onsets     int
	scratch    []float64
}

// NewOnsetDetector reports an onset when a chunk's RMS exceeds threshold and
// has grown by more than ratio over the previous chunk. Onsets closer than
// cooldown to the previous one are suppressed.
func NewOnsetDetector(t transport.Transport, format pcm.Format, threshold, ratio float64, cooldown time.Duration) (*OnsetDetector, error) {
	if t == nil {
		return nil, errors.New("analysis: onset detector needs a transport")
	}
	if format.BitsPerSample != 16 {
		return nil, errors.New("analysis: onset detector only reads 16-bit PCM")
	}
	if threshold <= 0 || ratio <= 1 {
		return nil, errors.New("analysis: onset threshold must be positive and ratio above 1")
	}
	cd := int(cooldown.Seconds() * float64(format.SampleRate))
	logger.Debugf("onset detector: threshold %.2f, ratio %.2f, cooldown %d samples", threshold, ratio, cd)
	return &OnsetDetector{
		transport:  t,
		format:     format,
		threshold:  threshold,
		ratio:      ratio,
		cooldown:   cd,
		sinceOnset: cd,
	}, nil
}

// Process measures one chunk of PCM16 audio and sends an OnsetMessage when
// it starts an onset.
func (d *OnsetDetector) Process(chunk []byte) {
	d.mu.Lock()
	n := len(chunk) / 2
	if cap(d.scratch) < n {
		d.scratch = make([]float64, n)
	}
	samples := d.scratch[:n]
	pcm.Int16sToFloat(samples, chunk)
	energy := rms(samples)

	onset := energy > d.threshold &&
		(d.lastEnergy == 0 || energy/d.lastEnergy > d.ratio) &&
		d.sinceOnset >= d.cooldown
	d.lastEnergy = energy
	d.sinceOnset += n / d.format.Channels
	if onset {
		d.sinceOnset = 0
		d.onsets++
	}
	d.mu.Unlock()

	if !onset {
		return
	}
	msg := transport.OnsetMessage{Type: transport.TypeOnset, Energy: energy}
	if err := d.transport.Send(msg); err != nil {
		logger.Errorf("onset detector: sending onset: %v", err)
	}
}

// Onsets returns the number of onsets detected since the last Reset.
func (d *OnsetDetector) Onsets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onsets
}

// Reset forgets the previous chunk so the next loud chunk counts as an onset.
func (d *OnsetDetector) Reset() {
	d.mu.Lock()
	d.lastEnergy = 0
	d.sinceOnset = d.cooldown
	d.onsets = 0
	d.mu.Unlock()
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
