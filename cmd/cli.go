// SPDX-License-Identifier: MIT

// Package cmd wires the command line: configuration, logging and the play,
// edit, info and list subcommands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/pkg/build"

	"github.com/spf13/cobra"
)

// options are the global flags shared by every subcommand.
type options struct {
	configPath string
	verbose    bool
	backend    string
	frameSize  int
	window     string
	logFile    string
}

// app carries the resolved configuration into the subcommands.
type app struct {
	opts    options
	cfg     *config.Config
	info    build.Info
	out     io.Writer
	logSink io.Closer
}

// Execute runs the CLI with args (without the program name).
func Execute(info build.Info, args []string) error {
	rootCmd := newRootCmd(info, os.Stdout)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCmd(info build.Info, out io.Writer) *cobra.Command {
	a := &app{info: info, out: out}

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Spectral audio editor: edit a sound as a time/frequency grid and play it back",
		Version:       info.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logSink != nil {
				return a.logSink.Close()
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: ./spectro.yaml if present)")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false,
		"Show debug output")
	flags.StringVarP(&a.opts.backend, "backend", "b", "",
		"Output backend: portaudio or oto (overrides audio.backend)")
	flags.IntVarP(&a.opts.frameSize, "frame-size", "f", 0,
		"Analysis frame size in samples, a power of two (overrides clip.frame_size)")
	flags.StringVarP(&a.opts.window, "window", "w", "",
		"Analysis window: vorbis or sqrt-hann (overrides clip.window)")
	flags.StringVar(&a.opts.logFile, "log-file", "",
		"Append log output to this file")

	rootCmd.AddCommand(
		a.newPlayCmd(),
		a.newEditCmd(),
		a.newInfoCmd(),
		a.newListCmd(),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.opts.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Audio.Backend = strings.ToLower(a.opts.backend)
	}
	if flags.Changed("frame-size") {
		cfg.Clip.FrameSize = a.opts.frameSize
	}
	if flags.Changed("window") {
		cfg.Clip.Window = a.opts.window
	}
	if a.opts.verbose || cfg.Debug {
		cfg.LogLevel = "debug"
	}
	cfg.Version = a.info.Version
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := applog.ParseLevel(cfg.LogLevel)
	applog.SetLevel(level)
	if a.opts.logFile != "" {
		f, err := os.OpenFile(a.opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		applog.SetOutput(f)
		a.logSink = f
	}
	a.cfg = cfg
	applog.Debugf("%s %s, backend %s, frame size %d", a.info.Name, a.info, cfg.Audio.Backend, cfg.Clip.FrameSize)
	return nil
}
