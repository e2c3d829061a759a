// Package graph analyzes the predecessor relation between tasks.
//
// Malformed graphs never produce errors: dangling dep ids are inert and
// cycles degrade to a defined fallback.
package graph

import (
	"github.com/planweave/planweave/internal/plan"
)

// adjacency holds index-based edges for a task list. Dep ids that match
// no task are dropped; duplicate deps collapse to a single edge.
type adjacency struct {
	succ  [][]int
	indeg []int
}

func build(tasks []plan.Task) adjacency {
	index := make(map[string]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
	}

	adj := adjacency{
		succ:  make([][]int, len(tasks)),
		indeg: make([]int, len(tasks)),
	}
	for i := range tasks {
		seen := make(map[int]bool, len(tasks[i].Deps))
		for _, dep := range tasks[i].Deps {
			from, ok := index[dep]
			if !ok || from == i || seen[from] {
				continue
			}
			seen[from] = true
			adj.succ[from] = append(adj.succ[from], i)
			adj.indeg[i]++
		}
	}
	return adj
}

// TopoOrder returns indices into tasks in topological order (Kahn's
// algorithm, FIFO, ties broken by list position). If the graph has a
// cycle no full ordering exists; the original list order is returned
// with ok == false, meaning "ordering unavailable", not a corrected
// order.
func TopoOrder(tasks []plan.Task) (order []int, ok bool) {
	adj := build(tasks)

	queue := make([]int, 0, len(tasks))
	indeg := adj.indeg
	for i := range tasks {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}

	order = make([]int, 0, len(tasks))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		for _, v := range adj.succ[u] {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if len(order) != len(tasks) {
		order = order[:0]
		for i := range tasks {
			order = append(order, i)
		}
		return order, false
	}
	return order, true
}

// Violations returns the set of task ids whose start is strictly before
// the latest end among their resolvable predecessors. Tasks with no
// resolvable predecessors are never violated. This is a reporting
// signal only; nothing is corrected here.
func Violations(tasks []plan.Task) map[string]bool {
	byID := make(map[string]*plan.Task, len(tasks))
	for i := range tasks {
		byID[tasks[i].ID] = &tasks[i]
	}

	violated := make(map[string]bool)
	for i := range tasks {
		t := &tasks[i]
		var latest plan.Date
		for _, dep := range t.Deps {
			pred, ok := byID[dep]
			if !ok || pred.ID == t.ID {
				continue
			}
			if latest.IsZero() || pred.End.After(latest) {
				latest = pred.End
			}
		}
		if !latest.IsZero() && t.Start.Before(latest) {
			violated[t.ID] = true
		}
	}
	return violated
}
