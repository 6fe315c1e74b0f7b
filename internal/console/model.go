// Package console is a terminal supervisor client for the hub: it follows
// the live transcript feed and highlights alerts.
package console

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/callpulse/hub/internal/event"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxEntries = 500

// Source produces hub messages for the model. *WSClient satisfies it.
type Source interface {
	Listen(ctx context.Context) tea.Cmd
	ReadLoop(ctx context.Context) tea.Cmd
}

// Model is the root Bubble Tea model.
type Model struct {
	src    Source
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int
	feed   viewport.Model
	ready  bool

	entries    []event.Event
	alertsOnly bool

	// Totals since start; Clear does not reset them.
	alerts   int
	emotions map[string]int
	agents   map[string]struct{}

	connected bool
}

func New(src Source) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		src:      src,
		ctx:      ctx,
		cancel:   cancel,
		keys:     DefaultKeyMap(),
		emotions: make(map[string]int),
		agents:   make(map[string]struct{}),
	}
}

// Init starts the hub connection.
func (m Model) Init() tea.Cmd {
	return m.src.Listen(m.ctx)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := max(msg.Height-4, 1)
		if !m.ready {
			m.feed = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.feed.Width = msg.Width
			m.feed.Height = h
		}
		m.refresh(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConnectedMsg:
		m.connected = true
		return m, m.src.ReadLoop(m.ctx)

	case DisconnectedMsg:
		m.connected = false
		return m, m.src.Listen(m.ctx)

	case EventMsg:
		m.add(msg.Event)
		return m, m.src.ReadLoop(m.ctx)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.AlertsOnly):
		m.alertsOnly = !m.alertsOnly
		m.refresh(true)
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		m.refresh(true)
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.feed.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

func (m *Model) add(e event.Event) {
	m.entries = append(m.entries, e)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}

	m.agents[e.AgentID] = struct{}{}
	if e.Type == event.TypeAlert {
		m.alerts++
	} else {
		m.emotions[e.Emotion]++
	}

	m.refresh(m.feed.AtBottom())
}

// refresh re-renders the feed; follow keeps the newest line in view.
func (m *Model) refresh(follow bool) {
	if !m.ready {
		return
	}
	m.feed.SetContent(strings.Join(m.visibleLines(), "\n"))
	if follow {
		m.feed.GotoBottom()
	}
}

func (m Model) visibleLines() []string {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if m.alertsOnly && e.Type != event.TypeAlert {
			continue
		}
		lines = append(lines, renderEvent(e))
	}
	if len(lines) == 0 {
		lines = append(lines, StyleDimmed.Render("  Waiting for transcripts..."))
	}
	return lines
}

func renderEvent(e event.Event) string {
	ts := time.UnixMilli(e.TS).Format("15:04:05")
	emotion := lipgloss.NewStyle().Foreground(EmotionColor(e.Emotion)).
		Render(fmt.Sprintf("%-8s %.2f", e.Emotion, e.Score))

	prefix := "  "
	if e.Type == event.TypeAlert {
		prefix = StyleAlert.Render("ALERT") + " "
	}
	return prefix + StyleDimmed.Render(ts) + " " + StyleAgent.Render(e.AgentID) + "  " + emotion + "  " + e.Text
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if !m.connected {
		box := lipgloss.NewStyle().
			Padding(1, 4).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(ColorDanger).
			Render(StyleHeader.Render("DISCONNECTED") + "\n" + StyleDimmed.Render("Reconnecting to hub..."))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	sections := []string{
		m.statusLine(),
		m.feed.View(),
		StyleDimmed.Render("  j/k:scroll  G:follow  a:alerts only  c:clear  q:quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	conn := lipgloss.NewStyle().Foreground(ColorHealthy).Render("● Connected")

	alerts := fmt.Sprintf("%d alerts", m.alerts)
	if m.alerts > 0 {
		alerts = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true).Render(alerts)
	}

	labels := make([]string, 0, len(m.emotions))
	for label := range m.emotions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, lipgloss.NewStyle().Foreground(EmotionColor(label)).
			Render(fmt.Sprintf("%s:%d", label, m.emotions[label])))
	}

	mode := ""
	if m.alertsOnly {
		mode = StyleHeader.Render("  [alerts only]")
	}

	return fmt.Sprintf("%s  %d agents  %s  %s%s", conn, len(m.agents), alerts, strings.Join(parts, " "), mode)
}
