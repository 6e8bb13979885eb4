// SPDX-License-Identifier: MIT
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

func decodeFLAC(r io.Reader) (*Audio, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("opening flac stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)
	if channels <= 0 || bps <= 0 || bps > 32 {
		return nil, fmt.Errorf("flac stream has %d channels of %d bits", channels, bps)
	}
	scale := 1 / float64(int64(1)<<(bps-1))

	out := make([]float64, 0, info.NSamples)
	var interleaved []int32
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing flac frame: %w", err)
		}

		n := frame.Subframes[0].NSamples
		interleaved = interleaved[:0]
		for i := range n {
			for ch := range channels {
				interleaved = append(interleaved, frame.Subframes[ch].Samples[i])
			}
		}
		start := len(out)
		out = append(out, make([]float64, n)...)
		mixDown(out[start:], interleaved, channels, scale)
	}
	return &Audio{Samples: out, SampleRate: int(info.SampleRate), Channels: channels}, nil
}
