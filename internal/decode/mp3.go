// SPDX-License-Identifier: MIT
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo.
const mp3Channels = 2

func decodeMP3(r io.Reader) (*Audio, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening mp3 stream: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading mp3 stream: %w", err)
	}

	pcm16 := make([]int, len(raw)/2)
	for i := range pcm16 {
		pcm16[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	out := make([]float64, len(pcm16)/mp3Channels)
	mixDown(out, pcm16, mp3Channels, 1.0/32768)
	return &Audio{Samples: out, SampleRate: dec.SampleRate(), Channels: mp3Channels}, nil
}
