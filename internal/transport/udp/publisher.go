// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"spectro/internal/analysis"
)

// DefaultInterval is used when NewUDPPublisher gets a non-positive interval.
const DefaultInterval = 16 * time.Millisecond

// headerSize is the fixed part of a packet before the magnitudes.
const headerSize = 4 + 8 + 8 + 2

var ErrShortPacket = errors.New("udp: packet too short")

// Packet is one decoded datagram.
//
// Wire layout, big endian:
//
//	| sequence uint32 | timestamp int64 (ns) | playhead int64 (sample) | count uint16 | magnitudes count*float32 |
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Playhead   int64
	Magnitudes []float32
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrShortPacket
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:])),
		Playhead:  int64(binary.BigEndian.Uint64(b[12:])),
	}
	count := int(binary.BigEndian.Uint16(b[20:]))
	if len(b) < headerSize+4*count {
		return Packet{}, fmt.Errorf("%w: %d magnitudes need %d bytes, got %d",
			ErrShortPacket, count, headerSize+4*count, len(b))
	}
	p.Magnitudes = make([]float32, count)
	if err := binary.Read(bytes.NewReader(b[headerSize:]), binary.BigEndian, p.Magnitudes); err != nil {
		return Packet{}, err
	}
	return p, nil
}

// UDPPublisher periodically packs the latest FFT magnitudes and the playhead
// into a Packet and sends it. It runs its own goroutine between Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	fftProc  analysis.FFTResultProvider
	playhead func() int
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Reused on every tick.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher reading from fftProc. playhead may be
// nil, in which case packets carry playhead 0.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, fftProc analysis.FFTResultProvider, playhead func() int) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("udp: publisher needs a sender")
	}
	if fftProc == nil {
		return nil, errors.New("udp: publisher needs an FFT result provider")
	}
	if interval <= 0 {
		interval = DefaultInterval
		logger.Warnf("invalid publish interval, using %s", interval)
	}
	if playhead == nil {
		playhead = func() int { return 0 }
	}
	bins := fftProc.GetFFTSize()/2 + 1
	logger.Infof("publisher: interval %s, %d bins", interval, bins)

	return &UDPPublisher{
		sender:       sender,
		fftProc:      fftProc,
		playhead:     playhead,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: bytes.NewBuffer(make([]byte, 0, headerSize+4*bins)),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("publisher already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the publishing goroutine and waits for it. It is safe to call
// more than once.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Debugf("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.fftProc.GetMagnitudesInto(p.magBuffer); err != nil {
		logger.Errorf("reading magnitudes: %v", err)
		return
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	buf := p.packetBuffer
	buf.Reset()
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:], p.sequenceNum)
	binary.BigEndian.PutUint64(hdr[4:], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(hdr[12:], uint64(p.playhead()))
	binary.BigEndian.PutUint16(hdr[20:], uint16(len(p.f32Buffer)))
	buf.Write(hdr[:])
	if err := binary.Write(buf, binary.BigEndian, p.f32Buffer); err != nil {
		logger.Errorf("packing magnitudes: %v", err)
		return
	}

	// The sender logs its own failures.
	if err := p.sender.Send(buf.Bytes()); err == nil {
		logger.Debugf("sent packet %d (%d bytes)", p.sequenceNum, buf.Len())
	}
}

// Close stops the publisher. The sender is left open.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
