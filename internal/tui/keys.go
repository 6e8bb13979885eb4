// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type playerKeyMap struct {
	PlayPause     key.Binding
	Back          key.Binding
	Forward       key.Binding
	Rewind        key.Binding
	Undo          key.Binding
	Redo          key.Binding
	SelectSecond  key.Binding
	SelectAll     key.Binding
	FlipVertical  key.Binding
	FlipHoriz     key.Binding
	ScaleUp       key.Binding
	ScaleDown     key.Binding
	Threshold     key.Binding
	ThresholdUp   key.Binding
	ThresholdDown key.Binding
	Paint         key.Binding
	Colors        key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultPlayerKeys() playerKeyMap {
	return playerKeyMap{
		PlayPause:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/stop")),
		Back:          key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "back 1s")),
		Forward:       key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "forward 1s")),
		Rewind:        key.NewBinding(key.WithKeys("0", "home"), key.WithHelp("0", "to start")),
		Undo:          key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Redo:          key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redo")),
		SelectSecond:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "select 1s at playhead")),
		SelectAll:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		FlipVertical:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "flip vertical")),
		FlipHoriz:     key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "flip horizontal")),
		ScaleUp:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		ScaleDown:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "quieter")),
		Threshold:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "threshold upper/lower")),
		ThresholdUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "raise threshold")),
		ThresholdDown: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "lower threshold")),
		Paint:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paint at playhead")),
		Colors:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "rainbow/gray spectrum")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k playerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Back, k.Forward, k.Undo, k.Redo, k.Help, k.Quit}
}

func (k playerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Back, k.Forward, k.Rewind},
		{k.Undo, k.Redo, k.SelectSecond, k.SelectAll},
		{k.FlipVertical, k.FlipHoriz, k.ScaleUp, k.ScaleDown},
		{k.Threshold, k.ThresholdUp, k.ThresholdDown, k.Paint},
		{k.Colors, k.Help, k.Quit},
	}
}
