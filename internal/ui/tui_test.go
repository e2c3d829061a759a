package ui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/edit"
	"github.com/planweave/planweave/internal/plan"
)

// testModel writes a two-task plan to a temp dir and loads a model over
// it. Task b depends on a and starts the day a ends.
func testModel(t *testing.T) *ganttModel {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")

	file := &plan.File{
		SchemaVersion: 1,
		Project:       &plan.Project{Name: "demo"},
		Tasks: []plan.Task{
			{
				ID:    "a",
				Name:  "Design",
				Start: plan.NewDate(2024, time.February, 10),
				End:   plan.NewDate(2024, time.February, 14),
			},
			{
				ID:    "b",
				Name:  "Build",
				Start: plan.NewDate(2024, time.February, 14),
				End:   plan.NewDate(2024, time.February, 16),
				Deps:  []string{"a"},
			},
		},
	}
	if err := file.Save(path); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		PlanFile:    path,
		Zoom:        config.DefaultZoom,
		ProjectRoot: dir,
	}
	m := newGanttModel(cfg, nil)
	if m.loadErr != nil {
		t.Fatalf("load failed: %v", m.loadErr)
	}
	return m
}

// column converts a chart cell offset to the terminal column a mouse
// event would carry for it.
func column(m *ganttModel, offset int) int {
	return offset + labelWidth - m.scrollX
}

func press(m *ganttModel, x, y int) {
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func motion(m *ganttModel, x, y int) {
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion})
}

func release(m *ganttModel, x, y int) {
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
}

func key(m *ganttModel, s string) {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	m.Update(msg)
}

func TestVisibleWindowFromTasks(t *testing.T) {
	m := testModel(t)

	// Window opens a week before the earliest predecessor-free start
	// and three weeks after the latest end.
	if got := m.rng.Min.String(); got != "2024-02-03" {
		t.Errorf("window min = %s, want 2024-02-03", got)
	}
	if got := m.rng.Max.String(); got != "2024-03-08" {
		t.Errorf("window max = %s, want 2024-03-08", got)
	}
	if m.scale.DayWidth != 2 {
		t.Errorf("DayWidth = %d, want 2 at medium zoom", m.scale.DayWidth)
	}
}

func TestHitTestZones(t *testing.T) {
	m := testModel(t)
	a := m.file.Tasks[0]

	barStart := m.scale.DateToOffset(a.Start)
	barEnd := m.scale.DateToOffset(a.End) + m.scale.DayWidth - 1

	tests := []struct {
		name     string
		offset   int
		wantMode edit.Mode
		wantHit  bool
	}{
		{name: "left edge resizes start", offset: barStart, wantMode: edit.ModeResizeStart, wantHit: true},
		{name: "right edge resizes end", offset: barEnd, wantMode: edit.ModeResizeEnd, wantHit: true},
		{name: "interior moves", offset: (barStart + barEnd) / 2, wantMode: edit.ModeMove, wantHit: true},
		{name: "left of bar misses", offset: barStart - 1, wantHit: false},
		{name: "right of bar misses", offset: barEnd + 1, wantHit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, hit := m.hitTest(&a, column(m, tt.offset))
			if hit != tt.wantHit {
				t.Fatalf("hit = %v, want %v", hit, tt.wantHit)
			}
			if hit && mode != tt.wantMode {
				t.Errorf("mode = %v, want %v", mode, tt.wantMode)
			}
		})
	}
}

func TestMouseDragMovesTask(t *testing.T) {
	m := testModel(t)
	a := m.file.Tasks[0]

	grab := m.scale.DateToOffset(a.Start) + 2 // interior of the bar
	press(m, column(m, grab), headerRows)
	if !m.session.Active() {
		t.Fatal("press on bar did not start an edit")
	}

	// Two cells right at medium zoom is one day, twice over.
	motion(m, column(m, grab+2), headerRows)
	motion(m, column(m, grab+4), headerRows)
	release(m, column(m, grab+4), headerRows)

	got := m.file.GetTask("a")
	if got.Start.String() != "2024-02-12" || got.End.String() != "2024-02-16" {
		t.Errorf("a = %s..%s, want 2024-02-12..2024-02-16", got.Start, got.End)
	}
	if m.session.Active() {
		t.Error("session still active after release")
	}
	if !m.dirty {
		t.Error("model not marked dirty after drag")
	}
	// b now starts before a's new end.
	if !m.violations["b"] {
		t.Errorf("violations = %v, want b flagged", m.violations)
	}
}

func TestMouseDragResizeStart(t *testing.T) {
	m := testModel(t)
	a := m.file.Tasks[0]

	grab := m.scale.DateToOffset(a.Start)
	press(m, column(m, grab), headerRows)
	motion(m, column(m, grab-4), headerRows)
	release(m, column(m, grab-4), headerRows)

	got := m.file.GetTask("a")
	if got.Start.String() != "2024-02-08" {
		t.Errorf("Start = %s, want 2024-02-08", got.Start)
	}
	if got.End.String() != "2024-02-14" {
		t.Errorf("End = %s, want unchanged 2024-02-14", got.End)
	}
}

func TestMousePressOffChartIgnored(t *testing.T) {
	m := testModel(t)

	// Header row and the empty row below the tasks.
	press(m, column(m, 10), 0)
	press(m, column(m, 10), headerRows+len(m.file.Tasks))
	if m.session.Active() {
		t.Error("press outside task rows started an edit")
	}

	// On a task row but off the bar: selection moves, no edit.
	press(m, column(m, m.scale.DateToOffset(m.rng.Min)), headerRows+1)
	if m.session.Active() {
		t.Error("press off the bar started an edit")
	}
	if m.selected != 1 {
		t.Errorf("selected = %d, want 1", m.selected)
	}
}

func TestZoomKeysRebuildScale(t *testing.T) {
	m := testModel(t)

	key(m, "+")
	if m.scale.DayWidth != 4 {
		t.Errorf("DayWidth after zoom in = %d, want 4", m.scale.DayWidth)
	}
	key(m, "-")
	key(m, "-")
	if m.scale.DayWidth != 1 {
		t.Errorf("DayWidth after zoom out twice = %d, want 1", m.scale.DayWidth)
	}
	// Already at the coarsest level.
	key(m, "-")
	if m.scale.DayWidth != 1 {
		t.Errorf("DayWidth = %d, want 1 (floor)", m.scale.DayWidth)
	}
}

func TestScrollKeys(t *testing.T) {
	m := testModel(t)

	key(m, "l")
	key(m, "l")
	if m.scrollX != 2*m.scale.DayWidth {
		t.Errorf("scrollX = %d, want %d", m.scrollX, 2*m.scale.DayWidth)
	}
	key(m, "h")
	key(m, "h")
	key(m, "h")
	if m.scrollX != 0 {
		t.Errorf("scrollX = %d, want 0 (floor)", m.scrollX)
	}
}

func TestAutoScheduleKey(t *testing.T) {
	m := testModel(t)

	// Create an overlap first, then let auto-schedule fix it.
	m.file.UpdateTask("b", func(tk *plan.Task) {
		tk.Start = plan.NewDate(2024, time.February, 11)
		tk.End = plan.NewDate(2024, time.February, 13)
	})
	m.violations = map[string]bool{"b": true}

	key(m, "a")

	b := m.file.GetTask("b")
	if b.Start.String() != "2024-02-14" || b.End.String() != "2024-02-16" {
		t.Errorf("b = %s..%s, want 2024-02-14..2024-02-16", b.Start, b.End)
	}
	if len(m.violations) != 0 {
		t.Errorf("violations after auto-schedule = %v, want none", m.violations)
	}
	if !m.dirty {
		t.Error("auto-schedule that moved a task did not mark dirty")
	}
}

func TestLinkModeTogglesDependency(t *testing.T) {
	m := testModel(t)

	// Link a -> b removes the existing dependency, then adds it back.
	m.selected = 0
	key(m, "L")
	if m.linkFrom != "a" {
		t.Fatalf("linkFrom = %q, want a", m.linkFrom)
	}
	key(m, "j")
	key(m, "enter")

	if deps := m.file.GetTask("b").Deps; len(deps) != 0 {
		t.Errorf("b.Deps = %v, want empty after toggle", deps)
	}
	if m.linkFrom != "" {
		t.Error("link mode still armed after enter")
	}

	m.selected = 0
	key(m, "L")
	key(m, "j")
	key(m, "enter")
	if deps := m.file.GetTask("b").Deps; len(deps) != 1 || deps[0] != "a" {
		t.Errorf("b.Deps = %v, want [a]", deps)
	}
}

func TestLinkModeEscCancels(t *testing.T) {
	m := testModel(t)

	key(m, "L")
	key(m, "esc")
	if m.linkFrom != "" {
		t.Error("esc did not clear link mode")
	}
	if deps := m.file.GetTask("b").Deps; len(deps) != 1 {
		t.Errorf("b.Deps = %v, want unchanged", deps)
	}
}

func TestSaveAndReload(t *testing.T) {
	m := testModel(t)

	m.file.UpdateTask("a", func(tk *plan.Task) {
		tk.Start = plan.NewDate(2024, time.February, 11)
		tk.End = plan.NewDate(2024, time.February, 15)
	})
	m.dirty = true

	key(m, "s")
	if m.dirty {
		t.Error("save did not clear dirty")
	}

	key(m, "r")
	a := m.file.GetTask("a")
	if a.Start.String() != "2024-02-11" || a.End.String() != "2024-02-15" {
		t.Errorf("reloaded a = %s..%s, want saved dates", a.Start, a.End)
	}
}

func TestViewRenders(t *testing.T) {
	m := testModel(t)
	m.width = 100
	m.height = 30

	out := m.View()
	if out == "" {
		t.Fatal("empty view")
	}
	for _, want := range []string{"Design", "Build"} {
		if !containsPlain(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

// containsPlain reports whether s contains sub, ignoring ANSI escape
// sequences lipgloss may interleave.
func containsPlain(s, sub string) bool {
	var b []rune
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b = append(b, r)
		}
	}
	plain := string(b)
	for i := 0; i+len(sub) <= len(plain); i++ {
		if plain[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
