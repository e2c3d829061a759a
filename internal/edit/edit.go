// Package edit reduces continuous pointer motion to discrete date
// changes for a single task.
package edit

import (
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/timeline"
)

// Mode is what part of the bar the pointer grabbed.
type Mode int

const (
	ModeMove Mode = iota
	ModeResizeStart
	ModeResizeEnd
)

func (m Mode) String() string {
	switch m {
	case ModeResizeStart:
		return "resize-start"
	case ModeResizeEnd:
		return "resize-end"
	}
	return "move"
}

// Session is the Idle/Editing automaton for one drag. At most one task
// is being edited at a time. All date derivation is anchored to the
// snapshot taken by Begin, never to intermediate results, so repeated
// Update calls cannot accumulate rounding drift.
type Session struct {
	scale timeline.Scale
	rng   timeline.Range

	active  bool
	task    plan.Task // snapshot at Begin
	mode    Mode
	anchorX int
}

// NewSession creates an idle session over the given scale and window.
func NewSession(scale timeline.Scale, rng timeline.Range) *Session {
	return &Session{scale: scale, rng: rng}
}

// Active reports whether a drag is in progress.
func (s *Session) Active() bool {
	return s.active
}

// TaskID returns the id of the task being edited, or "" when idle.
func (s *Session) TaskID() string {
	if !s.active {
		return ""
	}
	return s.task.ID
}

// Mode returns the current edit mode; meaningful only while active.
func (s *Session) Mode() Mode {
	return s.mode
}

// Begin enters the editing state, snapshotting the task's dates and the
// pointer position as the anchor.
func (s *Session) Begin(task plan.Task, mode Mode, pointerX int) {
	s.active = true
	s.task = task
	s.mode = mode
	s.anchorX = pointerX
}

// Update recomputes the task's dates from the pointer position. The
// whole derivation runs from the Begin snapshot each call, so dropped
// or repeated motion events cannot change the final result. Returns the
// updated task record and true, or a zero task and false when idle.
func (s *Session) Update(pointerX int) (plan.Task, bool) {
	if !s.active {
		return plan.Task{}, false
	}

	ddays := s.scale.DaysForOffset(pointerX - s.anchorX)
	updated := s.task

	switch s.mode {
	case ModeMove:
		span := s.task.Start.DaysUntil(s.task.End)
		updated.Start = s.task.Start.AddDays(ddays)
		updated.End = updated.Start.AddDays(span)
		// Each end clamps independently; a move truncated at a window
		// boundary may shorten the bar.
		updated.Start = s.rng.Clamp(updated.Start)
		updated.End = s.rng.Clamp(updated.End)

	case ModeResizeStart:
		updated.Start = s.task.Start.AddDays(ddays)
		if !updated.Start.Before(s.task.End) {
			// Minimum 1-day span: the moving edge stops short of the
			// fixed edge.
			updated.Start = s.task.End.AddDays(-1)
		}
		updated.Start = s.rng.Clamp(updated.Start)

	case ModeResizeEnd:
		updated.End = s.task.End.AddDays(ddays)
		if !updated.End.After(s.task.Start) {
			updated.End = s.task.Start.AddDays(1)
		}
		updated.End = s.rng.Clamp(updated.End)
	}

	return updated, true
}

// End leaves the editing state unconditionally and returns the edited
// task's id. Releasing the pointer always commits the last computed
// position; there is no cancel path.
func (s *Session) End() (string, bool) {
	if !s.active {
		return "", false
	}
	id := s.task.ID
	s.active = false
	s.task = plan.Task{}
	return id, true
}
