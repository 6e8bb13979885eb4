// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"spectro/internal/analysis"
	"spectro/internal/audio"
	"spectro/internal/clip"
	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/player"
	"spectro/internal/tool"
	"spectro/internal/transport"
	"spectro/internal/transport/udp"
	"spectro/internal/tui"

	"github.com/spf13/cobra"
)

// liveFFTSize is the window of the analysis tap, independent of the clip's
// frame size.
const liveFFTSize = 2048

func (a *app) newPlayCmd() *cobra.Command {
	var headless bool
	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play and edit a sound file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.loadClip(args[0])
			if err != nil {
				return err
			}
			return a.play(args[0], c, headless)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false,
		"Play once without the interactive UI; stops at the end or on interrupt")
	return cmd
}

// playback holds everything that lives for one play session.
type playback struct {
	player    *player.Player
	tap       analysis.Chain
	fft       *analysis.FFTProcessor
	transport transport.Multi
	bridge    *transport.Bridge
	publisher *udp.UDPPublisher
	sender    *udp.UDPSender
}

func (a *app) play(path string, c *clip.Clip, headless bool) error {
	if a.cfg.Audio.Backend == config.BackendPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer func() {
			if err := audio.Terminate(); err != nil {
				applog.Warnf("%v", err)
			}
		}()
	}

	pb, err := a.startPlayback(c)
	if err != nil {
		return err
	}
	defer pb.close()

	if headless {
		return a.playHeadless(pb.player)
	}

	if a.opts.logFile == "" {
		// Log lines would tear the alternate screen.
		applog.SetOutput(io.Discard)
	}
	flip, scale, threshold, brush := a.newTools()
	model := tui.NewPlayerModel(filepath.Base(path), pb.player, c, tool.NewSession(c), tui.Tools{
		Flip:      flip,
		Scale:     scale,
		Threshold: threshold,
		Brush:     brush,
	})
	return tui.RunPlayer(model)
}

func (a *app) startPlayback(c *clip.Clip) (*playback, error) {
	pb := &playback{}
	ok := false
	defer func() {
		if !ok {
			pb.close()
		}
	}()

	pb.transport = transport.Multi{transport.NewLoggingTransport()}
	tc := a.cfg.Transport
	if tc.WSEnabled {
		ws, err := transport.NewWebSocketTransport(tc.WSAddr)
		if err != nil {
			return nil, fmt.Errorf("starting websocket transport: %w", err)
		}
		pb.transport = append(pb.transport, ws)
	}

	fft, err := analysis.NewFFTProcessor(liveFFTSize, c.Format(), analysis.Hann)
	if err != nil {
		return nil, err
	}
	bands, err := analysis.NewBandEnergyProcessor(pb.transport, fft, nil)
	if err != nil {
		return nil, err
	}
	onsets, err := analysis.NewOnsetDetector(pb.transport, c.Format(),
		analysis.DefaultOnsetThreshold, analysis.DefaultOnsetRatio, analysis.DefaultOnsetCooldown)
	if err != nil {
		return nil, err
	}
	pb.fft = fft
	pb.tap = analysis.Chain{fft, bands, onsets}

	line, err := audio.NewLine(a.cfg.Audio)
	if err != nil {
		return nil, err
	}
	pc := a.cfg.Player
	p, err := player.New(c, line, player.Options{
		MaxChunkBytes: pc.MaxChunkBytes,
		DrainPoll:     pc.DrainPoll,
		IdlePoll:      pc.IdlePoll,
		Tap:           pb.tap,
	})
	if err != nil {
		return nil, err
	}
	pb.player = p

	pb.bridge = transport.NewBridge(pb.transport)
	pb.bridge.AttachPlayer(p)
	pb.bridge.AttachClip(c)
	// A finished run starts over from silence.
	p.OnStateChanged(func(s player.State) {
		if s == player.Stopped {
			fft.Reset()
			onsets.Reset()
		}
	})

	if tc.UDPEnabled {
		sender, err := udp.NewUDPSender(tc.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		pb.sender = sender
		pub, err := udp.NewUDPPublisher(tc.UDPSendInterval, sender, fft, p.Position)
		if err != nil {
			return nil, err
		}
		pb.publisher = pub
		pub.Start()
	}

	ok = true
	return pb, nil
}

// close tears the session down in reverse order of construction.
func (pb *playback) close() {
	if pb.publisher != nil {
		pb.publisher.Close()
	}
	if pb.sender != nil {
		pb.sender.Close()
	}
	if pb.player != nil {
		pb.player.Terminate()
		<-pb.player.Done()
	}
	if pb.bridge != nil {
		pb.bridge.Close()
	}
	if pb.tap != nil {
		pb.tap.Close()
	}
	if pb.transport != nil {
		pb.transport.Close()
	}
}

// playHeadless plays from the start and returns when playback drains back to
// Stopped, fails, or the process is interrupted.
func (a *app) playHeadless(p *player.Player) error {
	finished := make(chan struct{}, 1)
	unsubscribe := p.OnStateChanged(func(s player.State) {
		if s == player.Stopped {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	if err := p.Start(); err != nil {
		return err
	}
	applog.Infof("playing %s", p.Format())

	select {
	case <-finished:
		applog.Infof("playback finished")
	case <-interrupt:
		applog.Infof("interrupted")
	case <-p.Done():
		return p.Err()
	}
	return nil
}
