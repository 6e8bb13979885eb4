// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the editor and playback engine.
const (
	DefaultLogLevel = "info"

	// Output device defaults
	DefaultBackend      = BackendPortAudio
	DefaultOutputDevice = MinDeviceID // System default device
	DefaultBufferFrames = 2048        // Device buffer, in frames

	// Spectral analysis defaults
	DefaultFrameSize = 1024     // Samples per analysis window (power of 2)
	DefaultWindow    = "vorbis" // Power-complementary window

	// Player timing; see player.Options
	DefaultMaxChunkBytes = 4096
	DefaultDrainPoll     = 30 * time.Millisecond
	DefaultIdlePoll      = 10 * time.Second

	// Tool defaults
	DefaultBrushRadius    = 5
	DefaultThresholdMax   = 10.0
	DefaultThresholdCurve = 3.0

	// Transport defaults
	DefaultWSAddr          = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond // ~30Hz

	// Limits
	MinDeviceID     = -1 // -1 represents the system default device
	MinFrameSize    = 16
	MaxFrameSize    = 65536
	MaxBufferFrames = 8192
	MaxBrushRadius  = 20
)

// Output backends understood by audio.NewLine.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Clip      ClipConfig      `yaml:"clip"`
	Player    PlayerConfig    `yaml:"player"`
	Tools     ToolsConfig     `yaml:"tools"`
	Transport TransportConfig `yaml:"transport"`

	// Version is injected by the CLI from the build metadata; it is never
	// read from the file.
	Version string `yaml:"-"`
}

// AudioConfig holds settings related to the audio output device.
type AudioConfig struct {
	Backend      string `yaml:"backend"`       // "portaudio" or "oto".
	OutputDevice int    `yaml:"output_device"` // PortAudio device index (-1 for default).
	BufferFrames int    `yaml:"buffer_frames"` // Device buffer size in frames.
}

// ClipConfig controls how a sound file is turned into a spectral clip.
type ClipConfig struct {
	FrameSize int    `yaml:"frame_size"` // Analysis window length, power of two.
	Window    string `yaml:"window"`     // "vorbis" or "sqrt-hann".
}

// PlayerConfig tunes the playback goroutine.
type PlayerConfig struct {
	MaxChunkBytes int           `yaml:"max_chunk_bytes"` // Upper bound of a single device write.
	DrainPoll     time.Duration `yaml:"drain_poll"`      // Poll interval while draining after EOF.
	IdlePoll      time.Duration `yaml:"idle_poll"`       // Park interval while stopped.
}

// ToolsConfig holds defaults for the region editing tools.
type ToolsConfig struct {
	BrushRadius    int     `yaml:"brush_radius"`
	ThresholdMax   float64 `yaml:"threshold_max"`
	ThresholdCurve float64 `yaml:"threshold_curve"`
}

// TransportConfig holds settings related to publishing playback and edit
// events to external consumers.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`
	WSAddr           string        `yaml:"ws_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:      DefaultBackend,
			OutputDevice: DefaultOutputDevice,
			BufferFrames: DefaultBufferFrames,
		},
		Clip: ClipConfig{
			FrameSize: DefaultFrameSize,
			Window:    DefaultWindow,
		},
		Player: PlayerConfig{
			MaxChunkBytes: DefaultMaxChunkBytes,
			DrainPoll:     DefaultDrainPoll,
			IdlePoll:      DefaultIdlePoll,
		},
		Tools: ToolsConfig{
			BrushRadius:    DefaultBrushRadius,
			ThresholdMax:   DefaultThresholdMax,
			ThresholdCurve: DefaultThresholdCurve,
		},
		Transport: TransportConfig{
			WSAddr:           DefaultWSAddr,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}
