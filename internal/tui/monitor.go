// SPDX-License-Identifier: MIT

// Package tui holds the terminal front ends: a live strip monitor that
// doubles as a strip driver and status transport, and a device picker.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"clapper/internal/animation"
	"clapper/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MonitorFrameInterval caps the monitor redraw rate.
const MonitorFrameInterval = 33 * time.Millisecond

const pixelGlyph = "█"

var (
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	firedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
	quietStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8A33C"))
)

type monitorKeys struct {
	Quit key.Binding
}

var defaultMonitorKeys = monitorKeys{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Messages fed into the program from the pipeline goroutines.
type (
	frameMsg []byte // RGB, owned by the model
	eventMsg struct{ ev any }
)

// monitorModel is the Bubble Tea model behind Monitor.
type monitorModel struct {
	title    string
	keys     monitorKeys
	rgb      []byte
	state    transport.StateEvent
	last     *transport.DetectionEvent
	fired    int
	dropped  int
	width    int
	quitting bool
}

func newMonitorModel(title string, pixels int) monitorModel {
	return monitorModel{
		title: title,
		keys:  defaultMonitorKeys,
		rgb:   make([]byte, 3*pixels),
	}
}

func (m monitorModel) Init() tea.Cmd {
	return nil
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case frameMsg:
		m.rgb = msg

	case eventMsg:
		switch ev := msg.ev.(type) {
		case transport.DetectionEvent:
			m.last = &ev
			if ev.Published {
				m.fired++
			} else {
				m.dropped++
			}
		case transport.StateEvent:
			m.state = ev
		}
	}
	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderStrip())
	sb.WriteString("\n\n")

	if m.state.On {
		sb.WriteString(highlightStyle.Render(fmt.Sprintf("State: %s (%d)", m.state.Name, m.state.Pattern)))
	} else {
		sb.WriteString(offStyle.Render("State: off"))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderLast())
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Published: %d  Suppressed: %d", m.fired, m.dropped)))
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render(m.keys.Quit.Help().Key + ": " + m.keys.Quit.Help().Desc))
	return sb.String()
}

// renderStrip draws one glyph per pixel, wrapped to the terminal width.
func (m monitorModel) renderStrip() string {
	var sb strings.Builder
	for i := 0; i+2 < len(m.rgb); i += 3 {
		if m.width > 0 && i > 0 && (i/3)%m.width == 0 {
			sb.WriteByte('\n')
		}
		r, g, b := m.rgb[i], m.rgb[i+1], m.rgb[i+2]
		color := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
		sb.WriteString(lipgloss.NewStyle().Foreground(color).Render(pixelGlyph))
	}
	return sb.String()
}

func (m monitorModel) renderLast() string {
	if m.last == nil {
		return offStyle.Render("Last event: none")
	}
	ev := m.last
	line := fmt.Sprintf("Last event: %s at %s", ev.Event, ev.Time.Format("15:04:05.000"))
	if ev.Ratio > 0 {
		line += fmt.Sprintf(" (ratio %.2f, delta %.3fs)", ev.Ratio, ev.Delta)
	}
	if ev.Dominant > 0 {
		line += fmt.Sprintf(" ~%.0f Hz", ev.Dominant)
	}
	if !ev.Published {
		return quietStyle.Render(line + " not published: " + ev.Reason)
	}
	return firedStyle.Render(line)
}

// Monitor is a terminal preview of the strip. It implements both
// animation.Strip and transport.Transport so the pipeline can feed it
// frames and status events like any other driver.
type Monitor struct {
	program *tea.Program

	mu            sync.Mutex
	frameInterval time.Duration
	lastFrame     time.Time
	started       bool
	closed        bool
}

// NewMonitor builds the program. Options are passed to tea.NewProgram,
// which lets tests run without a terminal.
func NewMonitor(ctx context.Context, title string, pixels int, opts ...tea.ProgramOption) *Monitor {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	return &Monitor{
		program:       tea.NewProgram(newMonitorModel(title, pixels), opts...),
		frameInterval: MonitorFrameInterval,
	}
}

// Run blocks until the user quits or the context ends.
func (m *Monitor) Run() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	_, err := m.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Open implements animation.Strip.
func (m *Monitor) Open() error {
	return nil
}

// Push implements animation.Strip.
func (m *Monitor) Push(f *animation.Frame) error {
	m.mu.Lock()
	now := time.Now()
	if m.closed || now.Sub(m.lastFrame) < m.frameInterval {
		m.mu.Unlock()
		return nil
	}
	m.lastFrame = now
	m.mu.Unlock()

	m.program.Send(frameMsg(f.AppendRGB(make([]byte, 0, 3*f.Len()))))
	return nil
}

// Send implements transport.Transport.
func (m *Monitor) Send(event any) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		m.program.Send(eventMsg{ev: event})
	}
	return nil
}

// Close stops the program. Safe to call more than once.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		if m.started {
			m.program.Quit()
		}
	}
	return nil
}

var (
	_ animation.Strip     = (*Monitor)(nil)
	_ transport.Transport = (*Monitor)(nil)
)
