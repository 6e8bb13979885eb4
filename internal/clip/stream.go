// SPDX-License-Identifier: MIT
package clip

import (
	"errors"
	"fmt"
	"io"

	"spectro/internal/pcm"

	"gonum.org/v1/gonum/dsp/fourier"
)

var ErrStreamClosed = errors.New("clip: audio stream closed")

// Audio returns the clip resynthesised as 16-bit little-endian mono PCM,
// starting at startSample. Each hop-sized segment is rebuilt from the two
// frames that overlap it while holding the read lock, so the stream reflects
// edits committed before the segment is reached and never a partial one.
func (c *Clip) Audio(startSample int) (io.ReadCloser, error) {
	if startSample < 0 {
		return nil, fmt.Errorf("clip: start sample %d is negative", startSample)
	}
	n := c.frameSize
	s := &audioStream{
		c:      c,
		fft:    fourier.NewFFT(n),
		coeffs: make([]complex128, n/2+1),
		seqA:   make([]float64, n),
		seqB:   make([]float64, n),
		seg:    make([]float64, c.hop),
		raw:    make([]byte, c.hop*2),
		next:   startSample / c.hop,
		skip:   startSample % c.hop,
	}
	if startSample >= c.sampleCount {
		s.next = len(c.frames)
	}
	return s, nil
}

type audioStream struct {
	c      *Clip
	fft    *fourier.FFT
	coeffs []complex128
	seqA   []float64
	seqB   []float64
	seg    []float64

	raw  []byte
	out  []byte // Encoded samples not yet returned, a tail of raw.
	next int    // Next segment to synthesise.
	skip int    // Samples to drop from the next segment.

	closed bool
}

func (s *audioStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	n := 0
	for n < len(p) {
		if len(s.out) == 0 {
			if !s.fill() {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
		}
		k := copy(p[n:], s.out)
		s.out = s.out[k:]
		n += k
	}
	return n, nil
}

func (s *audioStream) Close() error {
	s.closed = true
	s.out = nil
	return nil
}

// fill synthesises the next segment into out. It reports false at the end
// of the clip.
func (s *audioStream) fill() bool {
	c := s.c
	hop := c.hop
	start := s.next * hop
	if start >= c.sampleCount || s.next+1 >= len(c.frames) {
		return false
	}

	c.mu.RLock()
	c.frames[s.next].coefficients(s.coeffs)
	s.fft.Sequence(s.seqA, s.coeffs)
	c.frames[s.next+1].coefficients(s.coeffs)
	s.fft.Sequence(s.seqB, s.coeffs)
	c.mu.RUnlock()

	norm := 1 / float64(c.frameSize)
	for j := range s.seg {
		s.seg[j] = (c.window.At(hop+j)*s.seqA[hop+j] + c.window.At(j)*s.seqB[j]) * norm
	}

	seg := s.seg[s.skip:min(hop, c.sampleCount-start)]
	s.skip = 0
	s.next++

	s.out = s.raw[:len(seg)*2]
	pcm.PutInt16s(s.out, seg)
	return true
}
