// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"spectro/internal/config"

	"github.com/gordonklaus/portaudio"
)

func mockDevices(t *testing.T, infos []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return infos, err }
}

func TestOutputDevicesFiltersInputs(t *testing.T) {
	mockDevices(t, []*portaudio.DeviceInfo{
		{Name: "mic", MaxInputChannels: 2},
		{Name: "speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000, HostApi: &portaudio.HostApiInfo{Name: "Core Audio"}},
		{Name: "interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
	}, nil)

	devices, err := OutputDevices()
	if err != nil {
		t.Fatalf("OutputDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].ID != 1 || devices[0].HostAPI != "Core Audio" {
		t.Errorf("first device = %+v", devices[0])
	}
	if devices[1].ID != 2 || devices[1].MaxOutputChannels != 8 {
		t.Errorf("second device = %+v", devices[1])
	}

	var buf bytes.Buffer
	WriteDevices(&buf, devices)
	if !strings.Contains(buf.String(), "[1] speakers") || !strings.Contains(buf.String(), "96000 Hz") {
		t.Errorf("unexpected listing:\n%s", buf.String())
	}
}

func TestOutputDevicesError(t *testing.T) {
	mockDevices(t, nil, fmt.Errorf("mock error"))
	if _, err := OutputDevices(); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDeviceByID(t *testing.T) {
	mockDevices(t, []*portaudio.DeviceInfo{
		{Name: "mic", MaxInputChannels: 2},
		{Name: "speakers", MaxOutputChannels: 2},
	}, nil)

	tests := []struct {
		id      int
		want    string
		wantErr string
	}{
		{1, "speakers", ""},
		{0, "", "no output channels"},
		{5, "", "invalid device ID"},
	}
	for _, tt := range tests {
		dev, err := OutputDevice(tt.id)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("OutputDevice(%d) error = %v, want %q", tt.id, err, tt.wantErr)
			}
			continue
		}
		if err != nil || dev.Name != tt.want {
			t.Errorf("OutputDevice(%d) = %v, %v; want %s", tt.id, dev, err, tt.want)
		}
	}
}

func TestNewLine(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{config.BackendPortAudio, "*audio.PortAudioLine"},
		{config.BackendOto, "*audio.OtoLine"},
		{"alsa", ""},
	}
	for _, tt := range tests {
		line, err := NewLine(config.AudioConfig{Backend: tt.backend, BufferFrames: 512})
		if tt.want == "" {
			if err == nil {
				t.Errorf("NewLine(%q) should fail", tt.backend)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewLine(%q): %v", tt.backend, err)
		}
		if got := fmt.Sprintf("%T", line); got != tt.want {
			t.Errorf("NewLine(%q) = %s, want %s", tt.backend, got, tt.want)
		}
	}
}

func TestUnopenedLinesFail(t *testing.T) {
	for _, line := range []Line{NewPortAudioLine(-1, 256), NewOtoLine(256)} {
		if err := line.Start(); err == nil {
			t.Errorf("%T.Start before Open should fail", line)
		}
		if _, err := line.Write([]byte{0, 0}); err == nil {
			t.Errorf("%T.Write before Open should fail", line)
		}
		if line.Running() || line.FramePosition() != 0 {
			t.Errorf("%T reports activity before Open", line)
		}
		if err := line.Close(); err != nil {
			t.Errorf("%T.Close before Open = %v", line, err)
		}
	}
}
