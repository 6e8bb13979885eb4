// SPDX-License-Identifier: MIT

// Package pcm holds the sample format shared by the clip synthesiser, the
// output lines and the analysis tap, plus conversions between float samples
// and signed 16-bit little-endian PCM.
package pcm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Format describes an interleaved signed little-endian PCM stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Mono16 returns the format produced by clip audio streams.
func Mono16(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16}
}

// FrameBytes is the size in bytes of one sample frame (all channels).
func (f Format) FrameBytes() int {
	return f.Channels * f.BitsPerSample / 8
}

// BytesPerSecond returns the data rate of the stream.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameBytes()
}

// Validate reports formats the output lines cannot handle.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("pcm: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("pcm: channel count must be positive, got %d", f.Channels)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("pcm: only 16-bit samples are supported, got %d", f.BitsPerSample)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// ToInt16 converts a float sample in [-1,1] to int16, clipping out-of-range values.
func ToInt16(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return math.MinInt16
	}
	return int16(math.Round(v * 32767))
}

// PutInt16s encodes samples as little-endian int16 into dst, which must hold
// 2*len(samples) bytes. It returns the number of bytes written.
func PutInt16s(dst []byte, samples []float64) int {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(ToInt16(s)))
	}
	return 2 * len(samples)
}

// Int16sToFloat decodes little-endian int16 samples from src into dst and
// returns the number of samples decoded. A trailing odd byte is ignored.
func Int16sToFloat(dst []float64, src []byte) int {
	n := min(len(src)/2, len(dst))
	for i := range n {
		dst[i] = float64(int16(binary.LittleEndian.Uint16(src[2*i:]))) / 32768.0
	}
	return n
}
