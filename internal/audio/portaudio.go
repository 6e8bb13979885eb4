// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	applog "spectro/internal/log"
	"spectro/internal/pcm"

	"github.com/gordonklaus/portaudio"
)

var logger = applog.Named("audio")

// outputStream is the part of *portaudio.Stream the line drives. Write
// sends the buffer the stream was opened with.
type outputStream interface {
	Start() error
	Stop() error
	Abort() error
	Close() error
	Write() error
	AvailableToWrite() (int, error)
}

// PortAudioLine writes to a blocking PortAudio output stream. Writes are
// staged until a whole device buffer is filled. The caller must have called
// Initialize.
type PortAudioLine struct {
	deviceID     int
	bufferFrames int

	mu       sync.Mutex
	stream   outputStream
	format   pcm.Format
	out      []int16 // Device buffer handed to the stream on every write.
	staged   int     // Samples of out already filled.
	capacity int     // Largest writable frame count seen, the device queue size.
	written  int64   // Frames of audio handed to the device, padding excluded.
	padding  int64   // Silent frames queued behind the last written audio.
	last     int64
	started  bool
}

// NewPortAudioLine returns a line for the output device deviceID, or the
// default output device when deviceID is config.MinDeviceID.
func NewPortAudioLine(deviceID, bufferFrames int) *PortAudioLine {
	return &PortAudioLine{deviceID: deviceID, bufferFrames: bufferFrames}
}

func (l *PortAudioLine) Open(f pcm.Format) error {
	if err := f.Validate(); err != nil {
		return err
	}
	dev, err := OutputDevice(l.deviceID)
	if err != nil {
		return err
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = f.Channels
	params.SampleRate = float64(f.SampleRate)
	params.FramesPerBuffer = l.bufferFrames

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = make([]int16, l.bufferFrames*f.Channels)
	stream, err := portaudio.OpenStream(params, &l.out)
	if err != nil {
		return fmt.Errorf("audio: opening output stream on %q: %w", dev.Name, err)
	}
	l.stream = stream
	l.format = f
	return nil
}

func (l *PortAudioLine) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return ErrLineNotOpen
	}
	if l.started {
		return nil
	}
	if err := l.stream.Start(); err != nil {
		return fmt.Errorf("audio: starting stream: %w", err)
	}
	// The queue is empty after a start, so everything is writable.
	if n, err := l.stream.AvailableToWrite(); err == nil {
		l.capacity = max(l.capacity, n)
	}
	l.started = true
	return nil
}

// Stop halts the stream after the buffers already handed to the device have
// played; staged samples are kept.
func (l *PortAudioLine) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return ErrLineNotOpen
	}
	if !l.started {
		return nil
	}
	l.started = false
	if err := l.stream.Stop(); err != nil {
		return fmt.Errorf("audio: stopping stream: %w", err)
	}
	l.last = max(l.last, l.written)
	return nil
}

// Flush aborts the stream, dropping queued buffers, and discards staged
// samples. The line is left stopped.
func (l *PortAudioLine) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return ErrLineNotOpen
	}
	l.staged = 0
	l.padding = 0
	if !l.started {
		return nil
	}
	l.started = false
	if err := l.stream.Abort(); err != nil {
		return fmt.Errorf("audio: aborting stream: %w", err)
	}
	l.written = l.last
	return nil
}

func (l *PortAudioLine) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return 0
	}
	frames := len(l.out) / l.format.Channels
	if l.started {
		if n, err := l.stream.AvailableToWrite(); err == nil {
			l.capacity = max(l.capacity, n)
			frames = n
		}
	}
	free := frames*l.format.Channels - l.staged
	return max(0, free*2)
}

// Write converts p to samples and hands every filled device buffer to the
// stream, blocking while the device is full. A trailing partial buffer is
// staged for the next call.
func (l *PortAudioLine) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return 0, ErrLineNotOpen
	}
	n := 0
	for n+1 < len(p) {
		l.out[l.staged] = int16(binary.LittleEndian.Uint16(p[n:]))
		l.staged++
		n += 2
		if l.staged == len(l.out) {
			if err := l.stream.Write(); err != nil {
				return n, fmt.Errorf("audio: writing stream: %w", err)
			}
			l.written += int64(len(l.out) / l.format.Channels)
			l.staged = 0
		}
	}
	return n, nil
}

// Running reports whether the device still has audio to play. A staged
// partial buffer is padded with silence and handed to the device first, so
// the tail of the stream is heard before the line goes idle.
func (l *PortAudioLine) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return false
	}
	if l.staged > 0 {
		if err := l.writeTailLocked(); err != nil {
			logger.Warnf("portaudio: writing final buffer: %v", err)
		}
	}
	return l.queuedLocked() > 0
}

func (l *PortAudioLine) writeTailLocked() error {
	ch := l.format.Channels
	clear(l.out[l.staged:])
	audio := int64(l.staged / ch)
	l.staged = 0
	if err := l.stream.Write(); err != nil {
		return err
	}
	l.written += audio
	l.padding = int64(len(l.out)/ch) - audio
	return nil
}

// queuedLocked returns the frames of real audio still waiting on the device.
func (l *PortAudioLine) queuedLocked() int64 {
	if !l.started {
		return 0
	}
	n, err := l.stream.AvailableToWrite()
	if err != nil {
		return 0
	}
	l.capacity = max(l.capacity, n)
	return max(0, int64(l.capacity-n)-l.padding)
}

func (l *PortAudioLine) FramePosition() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return 0
	}
	l.last = max(l.last, l.written-l.queuedLocked())
	return l.last
}

func (l *PortAudioLine) BufferSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.out) * 2
}

func (l *PortAudioLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stream == nil {
		return nil
	}
	var err error
	if l.started {
		err = l.stream.Abort()
		l.started = false
	}
	if cerr := l.stream.Close(); err == nil {
		err = cerr
	}
	l.stream = nil
	return err
}
