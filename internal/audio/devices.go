// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"spectro/internal/config"

	"github.com/gordonklaus/portaudio"
)

// Device describes a PortAudio output device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxOutputChannels int
	DefaultSampleRate float64
	Default           bool
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any PortAudio operations and paired with a Terminate() call.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paDevicesFunc is swapped out in tests.
var paDevicesFunc = portaudio.Devices

// OutputDevice retrieves the output device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default output device.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		return portaudio.DefaultOutputDevice()
	}

	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) has no output channels", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// OutputDevices returns every device with at least one output channel. IDs
// are PortAudio device indexes, usable as audio.output_device.
func OutputDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	var defName string
	if def, err := portaudio.DefaultOutputDevice(); err == nil {
		defName = def.Name
	}

	var devices []Device
	for i, info := range infos {
		if info.MaxOutputChannels == 0 {
			continue
		}
		d := Device{
			ID:                i,
			Name:              info.Name,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Default:           info.Name == defName,
		}
		if info.HostApi != nil {
			d.HostAPI = info.HostApi.Name
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// WriteDevices prints devices to w, one entry per device.
func WriteDevices(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\nAvailable Output Devices\n\n")
	for _, d := range devices {
		marker := ""
		if d.Default {
			marker = " (default)"
		}
		fmt.Fprintf(w, "[%d] %s%s\n", d.ID, d.Name, marker)
		fmt.Fprintf(w, "    Host API: %s, Output channels: %d\n", d.HostAPI, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintln(w)
	}
}
