package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	engine "github.com/koscakluka/vox-core/core"
	"github.com/muesli/reflow/wordwrap"
)

type transcriptMsg engine.Entry

type engineErrMsg struct{ err error }

type connectedMsg struct{}

type captureToggledMsg struct{ capturing bool }

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	partialStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type model struct {
	engine *engine.Engine
	events chan tea.Msg

	viewport viewport.Model
	input    textinput.Model

	entries   []engine.Entry
	capturing bool
	lastErr   error

	width  int
	height int
	ready  bool
}

func newModel(voice *engine.Engine, events chan tea.Msg) model {
	input := textinput.New()
	input.Placeholder = "type a message, tab toggles the microphone"
	input.Focus()

	return model{
		engine: voice,
		events: events,
		input:  input,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.connect(), m.waitForEvent(), textinput.Blink)
}

// waitForEvent pumps one engine callback into the update loop and re-arms
// itself from Update.
func (m model) waitForEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func (m model) connect() tea.Cmd {
	return func() tea.Msg {
		if err := m.engine.Connect(context.Background()); err != nil {
			return engineErrMsg{err}
		}
		return connectedMsg{}
	}
}

func (m model) toggleCapture() tea.Cmd {
	return func() tea.Msg {
		if m.capturing {
			if err := m.engine.StopCapture(); err != nil {
				return engineErrMsg{err}
			}
			return captureToggledMsg{capturing: false}
		}
		if err := m.engine.StartCapture(context.Background()); err != nil {
			return engineErrMsg{err}
		}
		return captureToggledMsg{capturing: true}
	}
}

func (m model) sendText(text string) tea.Cmd {
	return func() tea.Msg {
		if err := m.engine.SendText(text); err != nil {
			return engineErrMsg{err}
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-3)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 3
		}
		m.viewport.SetContent(m.renderEntries())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			_ = m.engine.Disconnect()
			return m, tea.Quit
		case "tab":
			return m, m.toggleCapture()
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				break
			}
			m.input.Reset()
			m.entries = append(m.entries, engine.Entry{
				Role:  engine.EntryRoleUser,
				Text:  text,
				Final: true,
			})
			m.refreshViewport()
			return m, m.sendText(text)
		}

	case connectedMsg:
		m.lastErr = nil

	case captureToggledMsg:
		m.capturing = msg.capturing

	case transcriptMsg:
		m.applyTranscript(engine.Entry(msg))
		m.refreshViewport()
		cmds = append(cmds, m.waitForEvent())

	case engineErrMsg:
		m.lastErr = msg.err
		cmds = append(cmds, m.waitForEvent())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// applyTranscript folds a callback entry into the local log the same way the
// engine folds deltas: partials extend the open entry for the role, finals
// replace and close it.
func (m *model) applyTranscript(entry engine.Entry) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Role != entry.Role || m.entries[i].Final {
			continue
		}
		if entry.Final {
			m.entries[i] = entry
		} else {
			m.entries[i].Text += entry.Text
		}
		return
	}
	m.entries = append(m.entries, entry)
}

func (m *model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

func (m model) renderEntries() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var builder strings.Builder
	for _, entry := range m.entries {
		label := userStyle.Render("you")
		if entry.Role == engine.EntryRoleAssistant {
			label = assistantStyle.Render("assistant")
		}

		text := entry.Text
		if !entry.Final {
			text = partialStyle.Render(text + "…")
		}
		builder.WriteString(wordwrap.String(fmt.Sprintf("%s: %s", label, text), width))
		builder.WriteString("\n")
	}
	return builder.String()
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	status := fmt.Sprintf("session: %s", m.engine.State())
	if m.capturing {
		status += " | mic: live"
	} else {
		status += " | mic: muted"
	}
	if m.lastErr != nil {
		status += " | " + errorStyle.Render(m.lastErr.Error())
	}

	return fmt.Sprintf("%s\n%s\n%s",
		m.viewport.View(),
		statusStyle.Width(m.width).Render(status),
		m.input.View(),
	)
}
