// Package schedule pushes successors past their predecessors' finish
// dates.
package schedule

import (
	"github.com/planweave/planweave/internal/graph"
	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/timeline"
)

// AutoSchedule walks tasks in topological order and shifts every task
// whose start precedes the latest end among its resolvable predecessors
// forward to that end, preserving its duration and clamping to the
// visible window. Successors see their predecessors' updated dates, so
// one pass settles an acyclic graph; running it again changes nothing.
//
// On a cyclic graph the walk falls back to list order and still applies
// the per-task rule, with no whole-graph guarantee. Tasks with no
// resolvable predecessors are never moved.
//
// The input is not mutated; the returned list replaces it atomically.
// The second result lists the ids of tasks that moved, in walk order.
func AutoSchedule(tasks []plan.Task, rng timeline.Range) ([]plan.Task, []string) {
	work := make([]plan.Task, len(tasks))
	copy(work, tasks)

	index := make(map[string]int, len(work))
	for i := range work {
		index[work[i].ID] = i
	}

	order, _ := graph.TopoOrder(tasks)

	var moved []string
	for _, i := range order {
		t := &work[i]

		var latest plan.Date
		for _, dep := range t.Deps {
			j, ok := index[dep]
			if !ok || j == i {
				continue
			}
			if latest.IsZero() || work[j].End.After(latest) {
				latest = work[j].End
			}
		}
		if latest.IsZero() || !latest.After(t.Start) {
			continue
		}

		span := t.Start.DaysUntil(t.End)
		newStart := latest
		newEnd := newStart.AddDays(span)
		t.Start = rng.Clamp(newStart)
		t.End = rng.Clamp(newEnd)
		moved = append(moved, t.ID)
	}

	return work, moved
}
