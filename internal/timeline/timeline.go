// Package timeline maps calendar days onto a one-dimensional cell axis.
package timeline

import (
	"fmt"
	"math"

	"github.com/planweave/planweave/internal/plan"
)

// Zoom selects how many cells represent one calendar day.
type Zoom string

const (
	ZoomCoarse Zoom = "coarse"
	ZoomMedium Zoom = "medium"
	ZoomFine   Zoom = "fine"
)

// DayWidth returns the cell width of one day at this zoom level.
func (z Zoom) DayWidth() int {
	switch z {
	case ZoomCoarse:
		return 1
	case ZoomFine:
		return 4
	default:
		return 2
	}
}

// ParseZoom parses a zoom level name.
func ParseZoom(s string) (Zoom, error) {
	switch Zoom(s) {
	case ZoomCoarse, ZoomMedium, ZoomFine:
		return Zoom(s), nil
	}
	return "", fmt.Errorf("unknown zoom %q, must be one of: coarse, medium, fine", s)
}

// In returns the next zoom level toward fine, or z if already finest.
func (z Zoom) In() Zoom {
	switch z {
	case ZoomCoarse:
		return ZoomMedium
	case ZoomMedium:
		return ZoomFine
	}
	return z
}

// Out returns the next zoom level toward coarse, or z if already coarsest.
func (z Zoom) Out() Zoom {
	switch z {
	case ZoomFine:
		return ZoomMedium
	case ZoomMedium:
		return ZoomCoarse
	}
	return z
}

// Scale is the invertible mapping between dates and cell offsets.
// Origin sits at offset 0; DayWidth must be positive.
type Scale struct {
	Origin   plan.Date
	DayWidth int
}

// DateToOffset converts a date to its cell offset. Exact: day counts
// are integers, so no rounding occurs in this direction.
func (s Scale) DateToOffset(d plan.Date) int {
	return s.Origin.DaysUntil(d) * s.DayWidth
}

// OffsetToDate converts a cell offset back to a date, rounding to the
// nearest whole day. Sub-day positions collapsing to day boundaries is
// what makes drags snap.
func (s Scale) OffsetToDate(px int) plan.Date {
	return s.Origin.AddDays(roundDays(px, s.DayWidth))
}

// DaysForOffset converts a cell displacement to a whole-day
// displacement, rounding to nearest.
func (s Scale) DaysForOffset(px int) int {
	return roundDays(px, s.DayWidth)
}

func roundDays(px, dayWidth int) int {
	return int(math.Round(float64(px) / float64(dayWidth)))
}

// ClampDate forces d into [min, max].
func ClampDate(d, min, max plan.Date) plan.Date {
	if d.Before(min) {
		return min
	}
	if d.After(max) {
		return max
	}
	return d
}

// Visible window margins around the task list, in days.
const (
	LookBackDays   = 7
	LookAheadDays  = 21
	EmptyRangeDays = 30
)

// Range is the visible date window, inclusive on both ends.
type Range struct {
	Min plan.Date
	Max plan.Date
}

// Clamp forces d into the range.
func (r Range) Clamp(d plan.Date) plan.Date {
	return ClampDate(d, r.Min, r.Max)
}

// Contains reports whether d lies within the range.
func (r Range) Contains(d plan.Date) bool {
	return !d.Before(r.Min) && !d.After(r.Max)
}

// Days returns the number of days spanned by the range, inclusive.
func (r Range) Days() int {
	return r.Min.DaysUntil(r.Max) + 1
}

// VisibleRange derives the window from the task list: the earliest
// start among predecessor-free tasks minus the look-back margin, to the
// latest end plus the look-ahead margin. If every task has predecessors
// the earliest start overall anchors the left edge. An empty list
// yields [today, today+EmptyRangeDays].
func VisibleRange(tasks []plan.Task, today plan.Date) Range {
	if len(tasks) == 0 {
		return Range{Min: today, Max: today.AddDays(EmptyRangeDays)}
	}

	known := make(map[string]bool, len(tasks))
	for i := range tasks {
		known[tasks[i].ID] = true
	}

	var minStart, minFreeStart, maxEnd plan.Date
	for i := range tasks {
		t := &tasks[i]
		if minStart.IsZero() || t.Start.Before(minStart) {
			minStart = t.Start
		}
		if maxEnd.IsZero() || t.End.After(maxEnd) {
			maxEnd = t.End
		}
		free := true
		for _, dep := range t.Deps {
			if known[dep] {
				free = false
				break
			}
		}
		if free && (minFreeStart.IsZero() || t.Start.Before(minFreeStart)) {
			minFreeStart = t.Start
		}
	}
	if minFreeStart.IsZero() {
		minFreeStart = minStart
	}

	return Range{
		Min: minFreeStart.AddDays(-LookBackDays),
		Max: maxEnd.AddDays(LookAheadDays),
	}
}
