// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"spectro/internal/clip"
	"spectro/internal/player"
	"spectro/internal/surface"
	"spectro/internal/tool"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 50 * time.Millisecond
	scaleStep       = 1.25
	thresholdStep   = 10
	barWidth        = 48
	spectrumWidth   = 48
)

// spectrumBars are the glyphs of the spectrum strip, quietest first.
var spectrumBars = []rune("▁▂▃▄▅▆▇█")

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E05050")).Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
)

// Playback is the part of *player.Player the front end drives.
type Playback interface {
	Start() error
	Stop() error
	Seek(sample int) error
	Terminate()
	State() player.State
	Position() int
	Err() error
	Done() <-chan struct{}
}

// Tools groups the editing tools bound to keys.
type Tools struct {
	Flip      *tool.FlipTool
	Scale     *tool.ScaleTool
	Threshold *tool.ThresholdTool
	Brush     *tool.PaintbrushTool
}

type tickMsg time.Time

// PlayerModel is the interactive player and editor.
type PlayerModel struct {
	title   string
	pb      Playback
	clip    *clip.Clip
	session *tool.Session
	tools   Tools
	keys    playerKeyMap
	help    help.Model
	model   *surface.ClipModel
	energy  surface.Range
	gray    bool

	state    player.State
	position int
	status   string
	err      error
	quitting bool
}

// NewPlayerModel builds the model. The whole clip starts out selected.
func NewPlayerModel(title string, pb Playback, c *clip.Clip, session *tool.Session, tools Tools) PlayerModel {
	session.SelectRegion(c.Bounds())
	m := PlayerModel{
		title:   title,
		pb:      pb,
		clip:    c,
		session: session,
		tools:   tools,
		keys:    defaultPlayerKeys(),
		help:    help.New(),
		model:   surface.NewClipModel(c, 0, true),
		state:   pb.State(),
		status:  "ready",
	}
	m.rescale()
	return m
}

// rescale fits the spectrum colours to the clip's current energy range.
func (m *PlayerModel) rescale() {
	m.energy = surface.EnergyRange(m.model, true)
}

// colorizer returns the spectrum colour scheme in use.
func (m PlayerModel) colorizer() surface.ValueColorizer {
	if m.gray {
		return surface.Gray{Range: m.energy}
	}
	return surface.Rainbow{Range: m.energy}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m PlayerModel) Init() tea.Cmd {
	return tick()
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		if m.state == player.Terminated {
			if err := m.pb.Err(); err != nil {
				m.err = err
			}
			return m, tea.Quit
		}
		return m, tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.pb.Terminate()
			m.quitting = true
			return m, tea.Quit
		}
		m.handleKey(msg)
		m.refresh()
	}
	return m, nil
}

func (m *PlayerModel) refresh() {
	m.state = m.pb.State()
	m.position = m.pb.Position()
}

func (m *PlayerModel) handleKey(msg tea.KeyMsg) {
	secs := m.clip.SampleRate()
	var err error
	switch {
	case key.Matches(msg, m.keys.PlayPause):
		if m.pb.State().Active() {
			err = m.pb.Stop()
		} else {
			err = m.pb.Start()
		}
	case key.Matches(msg, m.keys.Back):
		err = m.pb.Seek(max(0, m.pb.Position()-secs))
	case key.Matches(msg, m.keys.Forward):
		err = m.pb.Seek(min(m.clip.SampleCount(), m.pb.Position()+secs))
	case key.Matches(msg, m.keys.Rewind):
		err = m.pb.Seek(0)
	case key.Matches(msg, m.keys.Undo):
		err = m.report(m.clip.Undo())
	case key.Matches(msg, m.keys.Redo):
		err = m.report(m.clip.Redo())
	case key.Matches(msg, m.keys.SelectSecond):
		first := m.clip.FrameAtSample(m.pb.Position())
		last := m.clip.FrameAtSample(min(m.clip.SampleCount(), m.pb.Position()+secs))
		m.session.SelectRegion(clip.Region{Frame: first, Frames: last - first + 1, Bins: m.clip.FrameWidth()})
		m.status = "selected " + m.session.Region().String()
	case key.Matches(msg, m.keys.SelectAll):
		m.session.SelectRegion(m.clip.Bounds())
		m.status = "selected " + m.session.Region().String()
	case key.Matches(msg, m.keys.FlipVertical):
		err = m.use(m.tools.Flip, "flipped vertically", m.tools.Flip.FlipVertical)
	case key.Matches(msg, m.keys.FlipHoriz):
		err = m.use(m.tools.Flip, "flipped horizontally", m.tools.Flip.FlipHorizontal)
	case key.Matches(msg, m.keys.ScaleUp), key.Matches(msg, m.keys.ScaleDown):
		f := m.tools.Scale.Factor() * scaleStep
		if key.Matches(msg, m.keys.ScaleDown) {
			f = m.tools.Scale.Factor() / scaleStep
		}
		err = m.use(m.tools.Scale, fmt.Sprintf("scale %.2f", f), func() error { return m.tools.Scale.Scale(f) })
	case key.Matches(msg, m.keys.Threshold):
		th := m.tools.Threshold
		err = m.use(th, "", func() error { return th.SetUpper(!th.Upper()) })
		m.status = m.thresholdStatus()
	case key.Matches(msg, m.keys.ThresholdUp), key.Matches(msg, m.keys.ThresholdDown):
		th := m.tools.Threshold
		pos := th.Position() + thresholdStep
		if key.Matches(msg, m.keys.ThresholdDown) {
			pos = th.Position() - thresholdStep
		}
		pos = max(0, min(tool.SliderResolution, pos))
		err = m.use(th, "", func() error { return th.SetPosition(pos) })
		m.status = m.thresholdStatus()
	case key.Matches(msg, m.keys.Paint):
		err = m.paint()
	case key.Matches(msg, m.keys.Colors):
		m.gray = !m.gray
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	if err != nil {
		m.status = err.Error()
	}
}

// use makes t the session's tool and runs fn with it. Switching tools
// discards the previous tool's snapshot; reusing the active one keeps it.
func (m *PlayerModel) use(t tool.Tool, status string, fn func() error) error {
	m.activate(t)
	if err := fn(); err != nil {
		return err
	}
	m.rescale()
	if status != "" {
		m.status = status
	}
	return nil
}

func (m *PlayerModel) activate(t tool.Tool) {
	if m.session.Tool() != t {
		m.session.SetTool(t)
	}
}

func (m *PlayerModel) report(label string, err error) error {
	switch {
	case errors.Is(err, clip.ErrNothingToUndo), errors.Is(err, clip.ErrNothingToRedo):
		m.status = err.Error()
		return nil
	case err != nil:
		return err
	}
	m.rescale()
	m.status = "restored: " + label
	return nil
}

// paint dabs the brush at the playhead frame, centred on the selected bins.
func (m *PlayerModel) paint() error {
	b := m.tools.Brush
	m.activate(b)
	r := m.session.Region()
	bin := m.clip.FrameWidth() / 2
	if !r.Empty() {
		bin = r.Bin + r.Bins/2
	}
	frame := m.clip.FrameAtSample(m.pb.Position())
	if err := b.Press(frame, bin); err != nil {
		return err
	}
	if err := b.Release(); err != nil {
		return err
	}
	m.rescale()
	m.status = fmt.Sprintf("painted frame %d, bin %d", frame, bin)
	return nil
}

func (m *PlayerModel) thresholdStatus() string {
	th := m.tools.Threshold
	dir := "below"
	if th.Upper() {
		dir = "above"
	}
	return fmt.Sprintf("threshold: silencing %s %.3f", dir, th.Threshold())
}

func (m PlayerModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	total := max(1, m.clip.SampleCount())
	filled := min(barWidth, m.position*barWidth/total)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	rate := float64(m.clip.SampleRate())
	fmt.Fprintf(&sb, "%s  %s / %s  [%s]\n\n",
		barStyle.Render(bar),
		formatSeconds(float64(m.position)/rate),
		formatSeconds(float64(total)/rate),
		m.state)

	sb.WriteString(m.spectrumLine())
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "region: %s\n", m.session.Region())
	if m.err != nil {
		sb.WriteString(errorStyle.Render("error: " + m.err.Error()))
	} else {
		sb.WriteString(statusStyle.Render(m.status))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// spectrumLevels folds the playhead frame into at most spectrumWidth
// columns, each holding the loudest bin it covers.
func (m PlayerModel) spectrumLevels() []float64 {
	width := m.model.FrameWidth()
	if width == 0 || m.model.FrameCount() == 0 {
		return nil
	}
	frame := m.clip.FrameAtSample(m.position)
	cols := min(spectrumWidth, width)
	levels := make([]float64, cols)
	for c := range levels {
		lo, hi := c*width/cols, (c+1)*width/cols
		for b := lo; b < hi; b++ {
			levels[c] = max(levels[c], m.model.EnergyAt(frame, b))
		}
	}
	return levels
}

// spectrumLine draws the playhead frame as bars coloured by energy.
func (m PlayerModel) spectrumLine() string {
	var sb strings.Builder
	top := len(spectrumBars) - 1
	colors := m.colorizer()
	for _, v := range m.spectrumLevels() {
		glyph := spectrumBars[int(m.energy.Normalize(v)*float64(top)+0.5)]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(colors.ColorFor(v))))
		sb.WriteString(style.Render(string(glyph)))
	}
	return sb.String()
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Err returns the playback error that ended the program, if any.
func (m PlayerModel) Err() error { return m.err }

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second)).Round(100 * time.Millisecond)
	return fmt.Sprintf("%d:%04.1f", int(d.Minutes()), d.Seconds()-60*float64(int(d.Minutes())))
}

// RunPlayer runs the player UI until the user quits or playback fails.
func RunPlayer(m PlayerModel) error {
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if pm, ok := final.(PlayerModel); ok {
		return pm.Err()
	}
	return nil
}
