package cli

import (
	"strings"
	"testing"
	"time"

	"pathwatch/internal/core/ports"
	"pathwatch/internal/core/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

func sendEvent(t *testing.T, m model, id uint64, path string, flags ports.EventFlags) model {
	t.Helper()
	updated, _ := m.Update(eventMsg{event: watcher.Translate(id, path, flags), at: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)})
	state, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model type, got %T", updated)
	}
	return state
}

func TestModel_EventsNewestFirstAndCapped(t *testing.T) {
	m := initialModel("test", 2)

	m = sendEvent(t, m, 1, "/notes/a", ports.FlagItemCreated)
	m = sendEvent(t, m, 2, "/notes/b", ports.FlagItemModified)
	m = sendEvent(t, m, 3, "/notes/c", ports.FlagItemRemoved)

	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.rows))
	}
	if m.rows[0][0] != "3" || m.rows[1][0] != "2" {
		t.Fatalf("expected newest first, got %v", m.rows)
	}
	if m.rows[0][2] != "removed" {
		t.Fatalf("expected kind column, got %q", m.rows[0][2])
	}
	if m.total != 3 || m.counts[watcher.KindCreated] != 1 {
		t.Fatalf("unexpected counters: total=%d counts=%v", m.total, m.counts)
	}
}

func TestModel_PauseAndClear(t *testing.T) {
	m := initialModel("test", 10)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = updated.(model)
	if !m.paused {
		t.Fatal("expected paused after p")
	}

	m = sendEvent(t, m, 1, "/notes/a", ports.FlagItemCreated)
	if len(m.rows) != 0 {
		t.Fatalf("paused view must not add rows, got %d", len(m.rows))
	}
	if m.total != 1 {
		t.Fatalf("paused view still counts events, got %d", m.total)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m = updated.(model)
	m = sendEvent(t, m, 2, "/notes/b", ports.FlagItemCreated)
	if len(m.rows) != 1 {
		t.Fatalf("expected 1 row after resume, got %d", len(m.rows))
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m = updated.(model)
	if len(m.rows) != 0 {
		t.Fatalf("expected rows cleared, got %d", len(m.rows))
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := initialModel("test", 10)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestModel_ViewShowsCounts(t *testing.T) {
	m := initialModel("pathwatch: /notes", 10)
	if !strings.Contains(m.View(), "No changes yet") {
		t.Fatal("expected empty state in view")
	}

	m = sendEvent(t, m, 1, "/notes/a", ports.FlagItemRenamed)
	view := m.View()
	if !strings.Contains(view, "renamed 1") {
		t.Fatalf("expected renamed count in view, got:\n%s", view)
	}
	if !strings.Contains(view, "pathwatch: /notes") {
		t.Fatal("expected title in view")
	}
}
