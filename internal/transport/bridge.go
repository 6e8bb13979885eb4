// SPDX-License-Identifier: MIT
package transport

import (
	"sync"

	"spectro/internal/clip"
	applog "spectro/internal/log"
	"spectro/internal/pcm"
	"spectro/internal/player"
)

// PlaybackEvents is the subscription surface of *player.Player.
type PlaybackEvents interface {
	OnStateChanged(fn func(player.State)) (unsubscribe func())
	OnPositionUpdated(fn func(int)) (unsubscribe func())
	Format() pcm.Format
}

// RegionEvents is the subscription surface of *clip.Clip.
type RegionEvents interface {
	OnRegionChanged(fn func(clip.Region)) (unsubscribe func())
}

// Bridge forwards player and clip notifications to a Transport as messages.
// Handlers run on the publishing goroutine, so the transport's Send must not
// block.
type Bridge struct {
	t   Transport
	log *applog.Logger

	mu     sync.Mutex
	unsubs []func()
}

func NewBridge(t Transport) *Bridge {
	return &Bridge{t: t, log: applog.Named("bridge")}
}

// AttachPlayer forwards state changes and position updates from p.
func (b *Bridge) AttachPlayer(p PlaybackEvents) {
	f := p.Format()
	samplesPerSecond := float64(f.SampleRate * f.Channels)
	b.add(p.OnStateChanged(func(s player.State) {
		b.send(StateMessage{Type: TypeState, State: s.String()})
	}))
	b.add(p.OnPositionUpdated(func(sample int) {
		msg := PositionMessage{Type: TypePosition, Sample: sample}
		if samplesPerSecond > 0 {
			msg.Seconds = float64(sample) / samplesPerSecond
		}
		b.send(msg)
	}))
}

// AttachClip forwards region-changed notifications from c.
func (b *Bridge) AttachClip(c RegionEvents) {
	b.add(c.OnRegionChanged(func(r clip.Region) {
		b.send(RegionMessage{Type: TypeRegion, Frame: r.Frame, Frames: r.Frames, Bin: r.Bin, Bins: r.Bins})
	}))
}

func (b *Bridge) add(unsub func()) {
	b.mu.Lock()
	b.unsubs = append(b.unsubs, unsub)
	b.mu.Unlock()
}

func (b *Bridge) send(msg any) {
	if err := b.t.Send(msg); err != nil {
		b.log.Warnf("send %T: %v", msg, err)
	}
}

// Close removes every subscription. The transport is left open.
func (b *Bridge) Close() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}
