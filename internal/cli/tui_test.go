package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/livedot/pkg/document"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/live"
)

// stubWatchSession records layout changes instead of applying them.
type stubWatchSession struct {
	snap    live.Snapshot
	events  chan live.Event
	updates int
	fail    error
}

func (s *stubWatchSession) Snapshot() live.Snapshot   { return s.snap }
func (s *stubWatchSession) Events() <-chan live.Event { return s.events }
func (s *stubWatchSession) Update(_ context.Context, fn func(*document.Document) error) error {
	if s.fail != nil {
		return s.fail
	}
	s.updates++
	return nil
}

func newStubWatchSession() *stubWatchSession {
	return &stubWatchSession{
		snap:   live.Snapshot{Path: "graph.dot", Format: "svg"},
		events: make(chan live.Event, 1),
	}
}

func TestWatchModelEvent(t *testing.T) {
	s := newStubWatchSession()
	m := NewWatchModel(s, []string{"dot", "neato"}, "neato")

	s.snap.Revision = 3
	s.snap.Output = []byte("svg")
	s.snap.Updated = time.Now()
	next, cmd := m.Update(eventMsg{Revision: 3, Reopened: true})
	if cmd == nil {
		t.Error("model should keep waiting for events")
	}

	view := next.View()
	for _, want := range []string{"graph.dot", "neato", "3", "up to date", "reloaded from disk"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestWatchModelShowsError(t *testing.T) {
	s := newStubWatchSession()
	s.snap.Err = errors.New(errors.ErrCodeParse, "syntax error in line 3")
	m := NewWatchModel(s, nil, "")

	if view := m.View(); !strings.Contains(view, "syntax error in line 3") {
		t.Errorf("view lacks the error:\n%s", view)
	}
}

func TestWatchModelCyclesLayout(t *testing.T) {
	s := newStubWatchSession()
	m := NewWatchModel(s, []string{"dot", "neato", "fdp"}, "neato")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if cmd == nil {
		t.Fatal("l should return a command")
	}
	msg := cmd()
	lm, ok := msg.(layoutMsg)
	if !ok || lm.layout != "fdp" || lm.err != nil {
		t.Fatalf("command result = %#v", msg)
	}
	if s.updates != 1 {
		t.Errorf("session updates = %d, want 1", s.updates)
	}

	next, _ = next.Update(lm)
	if view := next.View(); !strings.Contains(view, "layout fdp") {
		t.Errorf("view lacks the notice:\n%s", view)
	}

	// Wraps around.
	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if lm := cmd().(layoutMsg); lm.layout != "dot" {
		t.Errorf("layout after wrap = %q, want dot", lm.layout)
	}
}

func TestWatchModelLayoutError(t *testing.T) {
	s := newStubWatchSession()
	s.fail = errors.New(errors.ErrCodeLayout, "unknown layout engine")
	m := NewWatchModel(s, []string{"dot", "neato"}, "dot")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	next, _ := m.Update(cmd())
	if view := next.View(); !strings.Contains(view, "unknown layout engine") {
		t.Errorf("view lacks the error notice:\n%s", view)
	}
}

func TestWatchModelQuit(t *testing.T) {
	m := NewWatchModel(newStubWatchSession(), nil, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{100 * time.Millisecond, "just now"},
		{5 * time.Second, "5s ago"},
		{3 * time.Minute, "3m ago"},
		{2 * time.Hour, "2h ago"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
