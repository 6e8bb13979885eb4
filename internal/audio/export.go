// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"spectro/internal/pcm"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// AudioSource is anything that can render itself as 16-bit mono PCM.
// *clip.Clip implements it.
type AudioSource interface {
	Audio(startSample int) (io.ReadCloser, error)
	Format() pcm.Format
}

const exportChunkBytes = 16 * 1024

// Export writes the rendered audio of src to w as a 16-bit PCM WAV file.
func Export(w io.WriteSeeker, src AudioSource) error {
	f := src.Format()
	if err := f.Validate(); err != nil {
		return err
	}
	rc, err := src.Audio(0)
	if err != nil {
		return err
	}
	defer rc.Close()

	enc := wav.NewEncoder(w, f.SampleRate, f.BitsPerSample, f.Channels, 1)
	raw := make([]byte, exportChunkBytes)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:           make([]int, exportChunkBytes/2),
		SourceBitDepth: f.BitsPerSample,
	}
	samples := make([]float64, exportChunkBytes/2)

	for {
		n, rerr := io.ReadFull(rc, raw)
		if n > 0 {
			k := pcm.Int16sToFloat(samples, raw[:n])
			buf.Data = buf.Data[:k]
			for i, s := range samples[:k] {
				buf.Data[i] = int(s * 32768)
			}
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("audio: writing wav: %w", err)
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("audio: rendering: %w", rerr)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalising wav: %w", err)
	}
	return nil
}

// ExportFile writes src to a WAV file at path.
func ExportFile(path string, src AudioSource) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Export(file, src); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
