// SPDX-License-Identifier: MIT

// Package tui holds the bubbletea front ends: the interactive player and
// editor, and the output device picker.
package tui

import (
	"fmt"
	"strings"

	"spectro/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

var (
	upKey     = key.NewBinding(key.WithKeys("up", "k"))
	downKey   = key.NewBinding(key.WithKeys("down", "j"))
	enterKey  = key.NewBinding(key.WithKeys("enter"))
	detailKey = key.NewBinding(key.WithKeys("i"))
	escKey    = key.NewBinding(key.WithKeys("esc"))
	quitKey   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
)

// DeviceListModel lists output devices and lets the user pick one.
type DeviceListModel struct {
	fetch         func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	chosen        int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a picker over the devices returned by fetch.
func NewDeviceListModel(fetch func() ([]audio.Device, error)) DeviceListModel {
	return DeviceListModel{fetch: fetch, chosen: -1, activeScreen: ListScreen}
}

func (m DeviceListModel) Init() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.render()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.Default {
				m.selectedIndex = i
			}
		}
		m.render()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, upKey):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, downKey):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, detailKey):
				if len(m.devices) > 0 {
					m.activeScreen = DetailScreen
				}
			case key.Matches(msg, enterKey):
				if len(m.devices) > 0 {
					m.chosen = m.devices[m.selectedIndex].ID
					return m, tea.Quit
				}
			}
		case DetailScreen:
			if key.Matches(msg, escKey) {
				m.activeScreen = ListScreen
			}
		}
		m.render()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DeviceListModel) render() {
	if !m.ready {
		return
	}
	if m.activeScreen == DetailScreen {
		m.viewport.SetContent(m.renderDeviceDetail())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Output Devices")
		help = infoStyle.Render("↑/↓: Navigate • i: Details • Enter: Choose • q: Quit")
	} else {
		title = titleStyle.Render("Device Details")
		help = infoStyle.Render("Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No output devices found."
	}
	var sb strings.Builder
	for i, d := range m.devices {
		marker := ""
		if d.Default {
			marker = " (default)"
		}
		line := fmt.Sprintf("[%d] %s%s\n", d.ID, d.Name, marker)
		if i == m.selectedIndex {
			line = highlightStyle.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceDetail() string {
	d := m.devices[m.selectedIndex]
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device:              %s\n", d.Name)
	fmt.Fprintf(&sb, "ID:                  %d\n", d.ID)
	fmt.Fprintf(&sb, "Host API:            %s\n", d.HostAPI)
	fmt.Fprintf(&sb, "Output channels:     %d\n", d.MaxOutputChannels)
	fmt.Fprintf(&sb, "Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
	return sb.String()
}

// Chosen returns the ID of the device picked with Enter, or false if the
// user quit without choosing.
func (m DeviceListModel) Chosen() (int, bool) {
	return m.chosen, m.chosen >= 0
}

// PickOutputDevice runs the picker and returns the chosen device ID.
func PickOutputDevice(fetch func() ([]audio.Device, error)) (int, bool, error) {
	final, err := tea.NewProgram(NewDeviceListModel(fetch), tea.WithAltScreen()).Run()
	if err != nil {
		return 0, false, err
	}
	id, ok := final.(DeviceListModel).Chosen()
	return id, ok, nil
}
