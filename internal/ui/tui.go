// Package ui provides the interactive terminal Gantt view.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/edit"
	"github.com/planweave/planweave/internal/graph"
	"github.com/planweave/planweave/internal/logging"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/schedule"
	"github.com/planweave/planweave/internal/timeline"
)

// Label column width to the left of the chart.
const labelWidth = 20

// Header rows above the first task row.
const headerRows = 3

// RunTUI starts the interactive editor on the configured plan file.
func RunTUI(ctx context.Context, cfg *config.Config) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	audit, err := logging.NewSessionLogger(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		return err
	}
	defer audit.Close()

	model := newGanttModel(cfg, audit)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(*ganttModel); ok && m.loadErr != nil {
		return m.loadErr
	}
	return nil
}

type ganttModel struct {
	cfg   *config.Config
	audit *logging.SessionLogger

	file    *plan.File
	loadErr error
	dirty   bool

	zoom    timeline.Zoom
	scale   timeline.Scale
	rng     timeline.Range
	session *edit.Session

	violations map[string]bool

	selected int
	scrollX  int
	width    int
	height   int

	linkFrom string // pending link source id; "" when link mode is off
	status   string
	showHelp bool
}

func newGanttModel(cfg *config.Config, audit *logging.SessionLogger) *ganttModel {
	m := &ganttModel{
		cfg:   cfg,
		audit: audit,
		zoom:  cfg.ZoomLevel(),
	}
	m.reload()
	return m
}

func (m *ganttModel) Init() tea.Cmd {
	return nil
}

// reload reads the plan file and rebuilds every derived value.
func (m *ganttModel) reload() {
	file, err := plan.Load(m.cfg.PlanPath())
	if err != nil {
		m.loadErr = err
		m.file = nil
		return
	}
	m.loadErr = nil
	m.file = file
	m.dirty = false
	if m.selected >= len(file.Tasks) {
		m.selected = len(file.Tasks) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.rebuild()
	m.audit.Log(logging.Event{Type: "load", Detail: m.cfg.PlanPath()})
}

// rebuild recomputes the window, scale, session, and violation set from
// the current task list. Cheap enough to run after every change.
func (m *ganttModel) rebuild() {
	if m.file == nil {
		return
	}
	m.rng = timeline.VisibleRange(m.file.Tasks, plan.Today())
	m.scale = timeline.Scale{Origin: m.rng.Min, DayWidth: m.zoom.DayWidth()}
	m.session = edit.NewSession(m.scale, m.rng)
	m.violations = graph.Violations(m.file.Tasks)
}

func (m *ganttModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	case tea.MouseMsg:
		return m.updateMouse(msg)
	}
	return m, nil
}

func (m *ganttModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "r":
		m.reload()
	case "s":
		m.save()
	case "a":
		m.autoSchedule()
	case "+", "=":
		m.setZoom(m.zoom.In())
	case "-":
		m.setZoom(m.zoom.Out())
	case "h", "left":
		m.scrollX -= m.scale.DayWidth
		if m.scrollX < 0 {
			m.scrollX = 0
		}
	case "l", "right":
		m.scrollX += m.scale.DayWidth
	case "j", "down":
		if m.file != nil && m.selected < len(m.file.Tasks)-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "L":
		m.toggleLinkMode()
	case "enter":
		if m.linkFrom != "" {
			m.linkTo(m.selectedID())
		}
	case "esc":
		m.linkFrom = ""
		m.status = ""
	}
	return m, nil
}

func (m *ganttModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.file == nil {
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		row, ok := m.rowAt(msg.Y)
		if !ok {
			return m, nil
		}
		m.selected = row
		if m.linkFrom != "" {
			m.linkTo(m.file.Tasks[row].ID)
			return m, nil
		}
		task := m.file.Tasks[row]
		mode, hit := m.hitTest(&task, msg.X)
		if !hit {
			return m, nil
		}
		m.session.Begin(task, mode, m.pointerX(msg.X))

	case tea.MouseActionMotion:
		if !m.session.Active() {
			return m, nil
		}
		if updated, ok := m.session.Update(m.pointerX(msg.X)); ok {
			m.applyEdit(updated)
		}

	case tea.MouseActionRelease:
		// Release always commits the last computed position.
		if id, ok := m.session.End(); ok {
			if t := m.file.GetTask(id); t != nil {
				m.audit.Log(logging.Event{
					Type:   "edit",
					TaskID: id,
					To:     fmt.Sprintf("%s..%s", t.Start, t.End),
				})
			}
			m.violations = graph.Violations(m.file.Tasks)
			m.dirty = true
		}
	}
	return m, nil
}

// pointerX converts a terminal column to a chart cell offset.
func (m *ganttModel) pointerX(x int) int {
	return x - labelWidth + m.scrollX
}

// rowAt converts a terminal line to a task index.
func (m *ganttModel) rowAt(y int) (int, bool) {
	row := y - headerRows
	if m.file == nil || row < 0 || row >= len(m.file.Tasks) {
		return 0, false
	}
	return row, true
}

// hitTest decides which part of the bar a press grabbed: within one
// cell of either end resizes, anywhere else on the bar moves.
func (m *ganttModel) hitTest(t *plan.Task, x int) (edit.Mode, bool) {
	px := m.pointerX(x)
	barStart := m.scale.DateToOffset(t.Start)
	barEnd := m.scale.DateToOffset(t.End) + m.scale.DayWidth - 1
	if px < barStart || px > barEnd {
		return edit.ModeMove, false
	}
	if px-barStart < 1 {
		return edit.ModeResizeStart, true
	}
	if barEnd-px < 1 {
		return edit.ModeResizeEnd, true
	}
	return edit.ModeMove, true
}

// applyEdit replaces the edited task's dates in the working list. The
// violation set refreshes on commit, not per motion event.
func (m *ganttModel) applyEdit(updated plan.Task) {
	m.file.UpdateTask(updated.ID, func(t *plan.Task) {
		t.Start = updated.Start
		t.End = updated.End
	})
}

func (m *ganttModel) setZoom(z timeline.Zoom) {
	if m.session != nil && m.session.Active() {
		return
	}
	m.zoom = z
	m.rebuild()
}

func (m *ganttModel) selectedID() string {
	if m.file == nil || m.selected < 0 || m.selected >= len(m.file.Tasks) {
		return ""
	}
	return m.file.Tasks[m.selected].ID
}

func (m *ganttModel) toggleLinkMode() {
	if m.linkFrom != "" {
		m.linkFrom = ""
		m.status = ""
		return
	}
	id := m.selectedID()
	if id == "" {
		return
	}
	m.linkFrom = id
	m.status = fmt.Sprintf("link from %s: select a successor and press enter (esc cancels)", id)
}

func (m *ganttModel) linkTo(toID string) {
	if toID == "" || toID == m.linkFrom {
		return
	}
	if m.file.ToggleDep(m.linkFrom, toID) {
		m.audit.Log(logging.Event{Type: "link", TaskID: toID, Detail: "toggle " + m.linkFrom + " -> " + toID})
		m.violations = graph.Violations(m.file.Tasks)
		m.dirty = true
		m.status = fmt.Sprintf("toggled %s -> %s", m.linkFrom, toID)
	}
	m.linkFrom = ""
}

func (m *ganttModel) autoSchedule() {
	if m.file == nil || (m.session != nil && m.session.Active()) {
		return
	}
	updated, moved := schedule.AutoSchedule(m.file.Tasks, m.rng)
	m.file.Tasks = updated
	if len(moved) > 0 {
		m.dirty = true
	}
	m.violations = graph.Violations(m.file.Tasks)
	m.audit.Log(logging.Event{Type: "auto_schedule", Detail: fmt.Sprintf("%d task(s) moved", len(moved))})
	m.status = fmt.Sprintf("auto-schedule moved %d task(s)", len(moved))
}

func (m *ganttModel) save() {
	if m.file == nil {
		return
	}
	if err := m.file.Save(m.cfg.PlanPath()); err != nil {
		m.status = "save failed: " + err.Error()
		return
	}
	m.dirty = false
	m.audit.Log(logging.Event{Type: "save", Detail: m.cfg.PlanPath()})
	m.status = "saved " + m.cfg.PlanPath()
}

// IsTTY returns true if the writer is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, _ := f.Stat()
	return (info.Mode() & os.ModeCharDevice) != 0
}
