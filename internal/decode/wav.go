// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

var errInvalidWAV = errors.New("not a valid wav file")

func decodeWAV(r io.Reader) (*Audio, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, errInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading pcm: %w", err)
	}
	channels := int(dec.NumChans)
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", errInvalidWAV, channels)
	}
	bits := int(dec.BitDepth)
	if bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", errInvalidWAV, bits)
	}

	out := make([]float64, len(buf.Data)/channels)
	scale := 1.0
	if bits > 8 {
		scale = 1 / float64(int64(1)<<(bits-1))
	} else {
		// 8-bit wav is unsigned; go-audio leaves the offset in place.
		for i, v := range buf.Data {
			buf.Data[i] = v - 128
		}
		scale = 1.0 / 128
	}
	mixDown(out, buf.Data, channels, scale)
	return &Audio{Samples: out, SampleRate: int(dec.SampleRate), Channels: channels}, nil
}
