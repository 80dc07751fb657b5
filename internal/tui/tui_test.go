// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"clapper/internal/animation"
	"clapper/internal/device"
	"clapper/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestMonitorModel(t *testing.T) {
	var m tea.Model = newMonitorModel("clapper", 2)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	view := m.View()
	assert.Contains(t, view, "State: off")
	assert.Contains(t, view, "Last event: none")

	m, _ = m.Update(frameMsg{255, 0, 0, 0, 0, 255})
	assert.Equal(t, []byte{255, 0, 0, 0, 0, 255}, m.(monitorModel).rgb)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m, _ = m.Update(eventMsg{transport.DetectionEvent{Event: "on", Time: now, Published: true, Ratio: 20, Delta: 0.2}})
	m, _ = m.Update(eventMsg{transport.DetectionEvent{Event: "on", Time: now, Reason: transport.ReasonCooldown}})
	m, _ = m.Update(eventMsg{transport.StateEvent{On: true, Pattern: 0, Name: "rainbow"}})

	view = m.View()
	assert.Contains(t, view, "State: rainbow (0)")
	assert.Contains(t, view, "not published: cooldown")
	assert.Contains(t, view, "Published: 1  Suppressed: 1")

	m, cmd := m.Update(keyMsg("q"))
	assert.True(t, isQuit(t, cmd))
	assert.Empty(t, m.View())
}

func TestMonitorStripWraps(t *testing.T) {
	m := newMonitorModel("clapper", 5)
	m.width = 2
	assert.Len(t, splitLines(m.renderStrip()), 3)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func TestMonitorProgram(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon := NewMonitor(ctx, "clapper", 3, tea.WithInput(nil), tea.WithOutput(io.Discard))

	done := make(chan error, 1)
	go func() { done <- mon.Run() }()

	f := animation.NewFrame(3, animation.GRB)
	f.Fill(animation.Color{R: 9})
	require.NoError(t, mon.Push(f))
	require.NoError(t, mon.Send(transport.StateEvent{On: true, Name: "solid", Pattern: 1}))
	require.NoError(t, mon.Close())
	require.NoError(t, mon.Close(), "close is idempotent")
	require.NoError(t, mon.Push(f), "push after close is a no-op")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mon := NewMonitor(ctx, "clapper", 1, tea.WithInput(nil), tea.WithOutput(io.Discard))

	done := make(chan error, 1)
	go func() { done <- mon.Run() }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

var testDevices = []device.Device{
	{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
	{ID: 2, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 48000},
}

func TestDevicePicker(t *testing.T) {
	model := NewDeviceListModel(func() ([]device.Device, error) { return testDevices, nil })

	msg := model.Init()()
	devs, ok := msg.(devicesMsg)
	require.True(t, ok)
	require.Len(t, devs.devices, 2, "output-only devices are hidden")

	var m tea.Model = model
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m, _ = m.Update(devs)
	assert.Contains(t, m.View(), "Built-in Mic")
	assert.NotContains(t, m.View(), "Speakers")

	m, _ = m.Update(keyMsg("down"))
	m, _ = m.Update(keyMsg("down")) // clamped at the last device
	m, _ = m.Update(keyMsg("enter"))
	assert.Contains(t, m.View(), "Configure Device: USB Interface")

	m, _ = m.Update(keyMsg("esc"))
	assert.Contains(t, m.View(), "Input Devices")
	m, _ = m.Update(keyMsg("enter"))

	m, _ = m.Update(keyMsg("down"))
	m, cmd := m.Update(keyMsg("enter"))
	assert.True(t, isQuit(t, cmd))

	sel := m.(DeviceListModel).Selection()
	require.NotNil(t, sel)
	assert.Equal(t, Selection{DeviceID: 2, Name: "USB Interface", SampleRate: 8000}, *sel)
	assert.Contains(t, sel.YAML(), "device: 2 # USB Interface")
	assert.Contains(t, sel.YAML(), "sample_rate: 8000")
}

func TestDevicePickerQuitAndError(t *testing.T) {
	var m tea.Model = NewDeviceListModel(func() ([]device.Device, error) { return nil, nil })
	m, cmd := m.Update(keyMsg("q"))
	assert.True(t, isQuit(t, cmd))
	assert.Nil(t, m.(DeviceListModel).Selection())

	boom := errors.New("no host API")
	model := NewDeviceListModel(func() ([]device.Device, error) { return nil, boom })
	m, _ = model.Update(model.Init()())
	assert.Contains(t, m.View(), "no host API")
	_, cmd = m.Update(keyMsg("x"))
	assert.True(t, isQuit(t, cmd))
}

func TestMonitorCloseBeforeRun(t *testing.T) {
	mon := NewMonitor(context.Background(), "clapper", 1, tea.WithInput(nil), tea.WithOutput(io.Discard))
	require.NoError(t, mon.Close())
	assert.NoError(t, mon.Run(), "a closed monitor never starts")
}
