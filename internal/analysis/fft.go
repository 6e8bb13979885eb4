// SPDX-License-Identifier: MIT
package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	applog "spectro/internal/log"
	"spectro/internal/pcm"
	"spectro/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var (
	ErrInvalidFFTSize = errors.New("analysis: fft size must be a power of two")
	ErrLengthMismatch = errors.New("analysis: destination length does not match magnitude count")
)

var logger = applog.Named("analysis")

// WindowFunc selects the window applied before each transform.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = [...]string{"bartletthann", "blackman", "blackmannuttall", "hann", "hamming", "lanczos", "nuttall"}

func (w WindowFunc) String() string {
	if int(w) < len(windowNames) {
		return windowNames[w]
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	history   []float64    // Last fftSize mono samples, oldest first.
	input     []float64    // Windowed copy of history.
	fftOutput []complex128 // FFT complex results.
	magnitude []float64    // Latest magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Guards the buffers above.
}

// FFTProcessor keeps a sliding window over the PCM written to the device and
// recomputes the magnitude spectrum after every chunk. Chunks are signed
// 16-bit little-endian PCM in the configured format; channels are averaged.
type FFTProcessor struct {
	fftCalculator *fourier.FFT
	fftSize       int
	format        pcm.Format
	workspace     fftWorkspace
}

var _ ClosableProcessor = (*FFTProcessor)(nil)
var _ FFTResultProvider = (*FFTProcessor)(nil)

// NewFFTProcessor returns a processor with fftSize points for PCM in format f.
func NewFFTProcessor(fftSize int, f pcm.Format, windowType WindowFunc) (*FFTProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFFTSize, fftSize)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	windowCoeffs := make([]float64, fftSize)
	applyWindow(windowCoeffs, windowType)
	magnitudeSize := fftSize/2 + 1

	logger.Infof("FFT processor: size %d, %s, window %v", fftSize, f, windowType)

	return &FFTProcessor{
		fftCalculator: fourier.NewFFT(fftSize),
		fftSize:       fftSize,
		format:        f,
		workspace: fftWorkspace{
			history:   make([]float64, fftSize),
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    windowCoeffs,
		},
	}, nil
}

// Process implements AudioProcessor.
func (p *FFTProcessor) Process(chunk []byte) {
	frameBytes := p.format.FrameBytes()
	frames := len(chunk) / frameBytes
	if frames == 0 {
		return
	}
	ws := &p.workspace
	ws.mu.Lock()
	defer ws.mu.Unlock()

	// Only the newest fftSize frames of a large chunk matter.
	skip := max(0, frames-p.fftSize)
	chunk = chunk[skip*frameBytes:]
	frames -= skip

	copy(ws.history, ws.history[frames:])
	tail := ws.history[p.fftSize-frames:]
	channels := p.format.Channels
	norm := 1 / (32768.0 * float64(channels))
	for i := range tail {
		var sum float64
		for ch := range channels {
			off := i*frameBytes + 2*ch
			sum += float64(int16(binary.LittleEndian.Uint16(chunk[off:])))
		}
		tail[i] = sum * norm
	}

	for i, s := range ws.history {
		ws.input[i] = s * ws.window[i]
	}
	p.fftCalculator.Coefficients(ws.fftOutput, ws.input)
	for i, c := range ws.fftOutput {
		ws.magnitude[i] = cmplx.Abs(c)
	}
}

// Reset clears the sample history and the published spectrum, e.g. after a seek.
func (p *FFTProcessor) Reset() {
	ws := &p.workspace
	ws.mu.Lock()
	clear(ws.history)
	clear(ws.magnitude)
	ws.mu.Unlock()
}

// GetMagnitudes returns a copy of the latest magnitudes. It allocates; use
// GetMagnitudesInto on hot paths.
func (p *FFTProcessor) GetMagnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()
	return append([]float64(nil), p.workspace.magnitude...)
}

// GetMagnitudesInto copies the latest magnitudes into dest, which must hold
// exactly fftSize/2+1 values.
func (p *FFTProcessor) GetMagnitudesInto(dest []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()
	if len(dest) != len(p.workspace.magnitude) {
		return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(dest), len(p.workspace.magnitude))
	}
	copy(dest, p.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the center frequency (Hz) of binIndex, or 0 when
// the bin is out of range.
func (p *FFTProcessor) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(p.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * p.GetSampleRate() / float64(p.fftSize)
}

func (p *FFTProcessor) GetFFTSize() int { return p.fftSize }

func (p *FFTProcessor) GetSampleRate() float64 { return float64(p.format.SampleRate) }

// Close is a no-op; the processor holds no external resources.
func (p *FFTProcessor) Close() error {
	logger.Debugf("FFT processor closed")
	return nil
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc. Unknown
// names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "hanning" {
		return Hann, nil
	}
	for i, w := range windowNames {
		if w == n {
			return WindowFunc(i), nil
		}
	}
	return Hann, fmt.Errorf("analysis: unknown window function %q", name)
}

// applyWindow fills coeffs with the selected window. Unknown types fall back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// gonum windows scale the slice in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		logger.Warnf("unknown window function %d, using hann", windowType)
		window.Hann(coeffs)
	}
}
