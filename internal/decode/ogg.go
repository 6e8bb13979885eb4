// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
)

func decodeOgg(r io.Reader) (*Audio, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading vorbis stream: %w", err)
	}
	if format.Channels <= 0 {
		return nil, fmt.Errorf("vorbis stream has %d channels", format.Channels)
	}
	out := make([]float64, len(data)/format.Channels)
	mixDown(out, data, format.Channels, 1)
	return &Audio{Samples: out, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}
