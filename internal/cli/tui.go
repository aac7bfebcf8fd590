package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/live"
)

// Status styles
var (
	statusLabelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	statusBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// watchSession is the part of a live session the status view needs.
type watchSession interface {
	Snapshot() live.Snapshot
	Events() <-chan live.Event
	Update(ctx context.Context, fn func(*document.Document) error) error
}

// =============================================================================
// WatchModel - Live session status
// =============================================================================

type eventMsg live.Event

type layoutMsg struct {
	layout string
	err    error
}

// WatchModel is the bubbletea model for `watch --tui`. It redraws on every
// session revision; l cycles the layout engine.
type WatchModel struct {
	session watchSession
	layouts []string
	current int
	snap    live.Snapshot
	events  int
	notice  string
	now     func() time.Time
}

// NewWatchModel creates a status model. layouts are the engines l cycles
// through; current is the active one.
func NewWatchModel(s watchSession, layouts []string, current string) WatchModel {
	m := WatchModel{
		session: s,
		layouts: layouts,
		snap:    s.Snapshot(),
		now:     time.Now,
	}
	for i, l := range layouts {
		if l == current {
			m.current = i
		}
	}
	return m
}

func (m WatchModel) Init() tea.Cmd {
	return waitForEvent(m.session.Events())
}

func waitForEvent(ch <-chan live.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "l":
			if len(m.layouts) < 2 {
				return m, nil
			}
			m.current = (m.current + 1) % len(m.layouts)
			return m, m.setLayout(m.layouts[m.current])
		}
	case eventMsg:
		m.events++
		m.snap = m.session.Snapshot()
		if msg.Reopened {
			m.notice = "reloaded from disk"
		}
		return m, waitForEvent(m.session.Events())
	case layoutMsg:
		if msg.err != nil {
			m.notice = errors.UserMessage(msg.err)
		} else {
			m.notice = "layout " + msg.layout
		}
		m.snap = m.session.Snapshot()
	}
	return m, nil
}

func (m WatchModel) setLayout(name string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		err := s.Update(context.Background(), func(d *document.Document) error {
			return d.SetRenderArgument(document.ArgLayout, name)
		})
		return layoutMsg{layout: name, err: err}
	}
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("livedot watch"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("l cycle layout  q quit"))
	b.WriteString("\n\n")

	var rows strings.Builder
	row := func(label, value string) {
		rows.WriteString(statusLabelStyle.Render(label))
		rows.WriteString(value)
		rows.WriteString("\n")
	}
	row("file", StyleValue.Render(m.snap.Path))
	row("format", m.snap.Format)
	if len(m.layouts) > 0 {
		row("layout", StyleHighlight.Render(m.layouts[m.current]))
	}
	row("state", m.snap.State.String())
	row("revision", fmt.Sprintf("%d", m.snap.Revision))
	row("output", fmt.Sprintf("%d bytes", len(m.snap.Output)))
	if !m.snap.Updated.IsZero() {
		row("updated", formatAge(m.now().Sub(m.snap.Updated)))
	}
	if m.snap.Err != nil {
		row("error", StyleError.Render(errors.UserMessage(m.snap.Err)))
	} else {
		row("status", StyleSuccess.Render(iconSuccess+" up to date"))
	}
	b.WriteString(statusBoxStyle.Render(strings.TrimSuffix(rows.String(), "\n")))

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("  " + m.notice))
	}
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
