// SPDX-License-Identifier: MIT

// Package audio provides output lines for playback, output device listing
// and WAV export of a clip.
//
// A Line models a buffered output device: PCM is written into a device
// buffer that drains at the sample rate, the device can be paused without
// losing queued data, and a frame counter reports how much has actually
// been played.
package audio

import (
	"errors"
	"fmt"

	"spectro/internal/config"
	"spectro/internal/pcm"
)

var (
	ErrLineClosed  = errors.New("audio: line closed")
	ErrLineNotOpen = errors.New("audio: line not open")
)

// Line is an output device accepting 16-bit PCM.
type Line interface {
	Open(f pcm.Format) error
	Start() error
	// Stop pauses output without discarding queued data.
	Stop() error
	// Flush discards queued data that has not been played.
	Flush() error
	// Available returns how many bytes can be written without blocking.
	Available() int
	Write(p []byte) (int, error)
	// Running reports whether the device is started and still has queued
	// data to play.
	Running() bool
	// FramePosition returns the number of frames played since Open.
	FramePosition() int64
	// BufferSize returns the device buffer size in bytes.
	BufferSize() int
	Close() error
}

// NewLine returns an unopened line for the configured backend.
func NewLine(cfg config.AudioConfig) (Line, error) {
	switch cfg.Backend {
	case config.BackendPortAudio:
		return NewPortAudioLine(cfg.OutputDevice, cfg.BufferFrames), nil
	case config.BackendOto:
		return NewOtoLine(cfg.BufferFrames), nil
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", cfg.Backend)
	}
}
