// SPDX-License-Identifier: MIT

// Package decode turns sound files into the mono float samples a clip is
// built from. Decoders are looked up by file extension.
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"spectro/internal/log"
)

var ErrUnsupportedFormat = errors.New("decode: unsupported format")

var logger = log.Named("decode")

// Audio is a decoded file mixed down to one channel.
type Audio struct {
	Samples    []float64 // In [-1,1].
	SampleRate int
	Channels   int // Channel count of the source before mixing.
}

// Duration returns the length of the audio in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Decoder reads one encoded stream to the end.
type Decoder interface {
	Decode(r io.Reader) (*Audio, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.Reader) (*Audio, error)

func (f DecoderFunc) Decode(r io.Reader) (*Audio, error) { return f(r) }

// Registry maps lower-case file extensions, without the dot, to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// Register adds or replaces the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Get returns the decoder registered for ext.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Formats returns the registered extensions.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		out = append(out, ext)
	}
	return out
}

// DecodeFile decodes the file at path with the decoder for its extension.
func (r *Registry) DecodeFile(path string) (*Audio, error) {
	ext := filepath.Ext(path)
	d, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %s: %w", filepath.Base(path), err)
	}
	logger.Debugf("%s: %d samples at %d Hz from %d channel(s)",
		filepath.Base(path), len(a.Samples), a.SampleRate, a.Channels)
	return a, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Default knows every format this package can decode.
var Default = func() *Registry {
	r := NewRegistry()
	r.Register("wav", DecoderFunc(decodeWAV))
	r.Register("wave", DecoderFunc(decodeWAV))
	r.Register("mp3", DecoderFunc(decodeMP3))
	r.Register("ogg", DecoderFunc(decodeOgg))
	r.Register("oga", DecoderFunc(decodeOgg))
	r.Register("flac", DecoderFunc(decodeFLAC))
	return r
}()

// DecodeFile decodes path with the Default registry.
func DecodeFile(path string) (*Audio, error) {
	return Default.DecodeFile(path)
}

// mixDown averages interleaved frames of channels samples into dst, scaling
// each value by scale. It returns the number of frames written.
func mixDown[T int | int32 | float32](dst []float64, src []T, channels int, scale float64) int {
	frames := min(len(src)/channels, len(dst))
	norm := scale / float64(channels)
	for i := range frames {
		var sum float64
		for _, v := range src[i*channels : (i+1)*channels] {
			sum += float64(v)
		}
		dst[i] = clamp(sum * norm)
	}
	return frames
}

func clamp(v float64) float64 {
	return max(-1, min(1, v))
}
