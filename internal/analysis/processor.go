// SPDX-License-Identifier: MIT

// Package analysis runs live spectrum analysis on the PCM the player writes to
// the output device.
package analysis

// AudioProcessor consumes PCM chunks as they are written to the device. It
// satisfies player.Tap, so Process runs on the playback goroutine and should
// not block or allocate.
type AudioProcessor interface {
	Process(chunk []byte)
}

// ClosableProcessor combines AudioProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	AudioProcessor
	Close() error
}

// FFTResultProvider exposes the latest spectrum of an FFT processor. Band
// energy and the UDP publisher read through it.
type FFTResultProvider interface {
	GetMagnitudes() []float64                // Thread-safe copy of the latest magnitude spectrum.
	GetMagnitudesInto(dest []float64) error  // Allocation-free variant of GetMagnitudes.
	GetFrequencyForBin(binIndex int) float64 // Center frequency (Hz) of a bin.
	GetFFTSize() int
	GetSampleRate() float64
}

// Chain fans every chunk out to procs in order.
type Chain []AudioProcessor

func (c Chain) Process(chunk []byte) {
	for _, p := range c {
		p.Process(chunk)
	}
}

// Close closes every processor in the chain that can be closed and returns
// the first error.
func (c Chain) Close() error {
	var first error
	for _, p := range c {
		if cp, ok := p.(ClosableProcessor); ok {
			if err := cp.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

var _ ClosableProcessor = Chain(nil)
