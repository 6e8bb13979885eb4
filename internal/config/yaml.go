// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "spectro/internal/log"
	"spectro/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("spectro.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"spectro.yaml", "config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	switch c.Audio.Backend {
	case BackendPortAudio, BackendOto:
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q must be %q or %q", c.Audio.Backend, BackendPortAudio, BackendOto))
	}
	if c.Audio.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.output_device must be >= %d", MinDeviceID))
	}
	if c.Audio.BufferFrames <= 0 || c.Audio.BufferFrames > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.buffer_frames must be in 1..%d", MaxBufferFrames))
	}

	if !bitint.IsPowerOfTwo(c.Clip.FrameSize) || c.Clip.FrameSize < MinFrameSize || c.Clip.FrameSize > MaxFrameSize {
		errs = append(errs, fmt.Errorf("clip.frame_size %d must be a power of two in %d..%d", c.Clip.FrameSize, MinFrameSize, MaxFrameSize))
	}
	switch strings.ToLower(c.Clip.Window) {
	case "vorbis", "sqrt-hann":
	default:
		errs = append(errs, fmt.Errorf("clip.window %q is not supported", c.Clip.Window))
	}

	if c.Player.MaxChunkBytes < 2 {
		errs = append(errs, errors.New("player.max_chunk_bytes must hold at least one sample"))
	}
	if c.Player.DrainPoll <= 0 {
		errs = append(errs, errors.New("player.drain_poll must be positive"))
	}
	if c.Player.IdlePoll <= 0 {
		errs = append(errs, errors.New("player.idle_poll must be positive"))
	}

	if c.Tools.BrushRadius < 1 || c.Tools.BrushRadius > MaxBrushRadius {
		errs = append(errs, fmt.Errorf("tools.brush_radius must be in 1..%d", MaxBrushRadius))
	}
	if c.Tools.ThresholdMax <= 0 {
		errs = append(errs, errors.New("tools.threshold_max must be positive"))
	}
	if c.Tools.ThresholdCurve < 1 {
		errs = append(errs, errors.New("tools.threshold_curve must be >= 1"))
	}

	if c.Transport.WSEnabled && c.Transport.WSAddr == "" {
		errs = append(errs, errors.New("transport.ws_addr must be set when websocket is enabled"))
	}
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies SPECTRO_* environment variables on top of the
// loaded configuration. Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRO_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("configuration: overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("configuration: ignoring SPECTRO_DEBUG=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("configuration: overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("SPECTRO_BACKEND"); ok {
		c.Audio.Backend = strings.ToLower(val)
		applog.Debugf("configuration: overriding audio.backend from env: %s", val)
	}
	if val, ok := os.LookupEnv("SPECTRO_WS_ADDR"); ok {
		c.Transport.WSEnabled = true
		c.Transport.WSAddr = val
		applog.Debugf("configuration: overriding transport.ws_addr from env: %s", val)
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: overriding transport.udp_enabled from env: %v", bVal)
		} else {
			applog.Warnf("configuration: ignoring SPECTRO_UDP_ENABLED=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("SPECTRO_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: overriding transport.udp_send_interval from env: %s", dur)
		} else {
			applog.Warnf("configuration: ignoring SPECTRO_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}
