// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package scheduler selects the next eligible task from the dependency graph
// and validates planned graphs before they enter the run.
package scheduler

import (
	"fmt"

	"github.com/gammazero/toposort"

	"refactorbot/internal/model"
)

// NextEligible returns the first pending task whose dependencies are all
// completed, respecting original insertion order as the tie-break.
// Returns nil when no task is eligible, which the run loop must distinguish
// from "all tasks terminal" (see Stuck).
func NextEligible(tasks []model.Task) *model.Task {
	completed := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Status == model.StatusCompleted {
			completed[t.ID] = true
		}
	}

	for i := range tasks {
		t := &tasks[i]
		if t.Status != model.StatusPending {
			continue
		}
		eligible := true
		for _, dep := range t.Dependencies {
			if !completed[dep] {
				eligible = false
				break
			}
		}
		if eligible {
			return t
		}
	}
	return nil
}

// AllTerminal reports whether every task has reached a final status.
func AllTerminal(tasks []model.Task) bool {
	for _, t := range tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// Stuck reports whether pending tasks remain but none is eligible: a
// dependency stuck on Failed, a reference to an unknown id, or a cycle that
// escaped plan validation. The run loop aborts on this rather than spinning.
func Stuck(tasks []model.Task) bool {
	hasPending := false
	for _, t := range tasks {
		if t.Status == model.StatusPending || t.Status == model.StatusInProgress {
			hasPending = true
			break
		}
	}
	return hasPending && NextEligible(tasks) == nil
}

// ValidatePlan checks a freshly planned task list: ids unique, dependencies
// resolvable, no self-dependency, and the dependency graph acyclic (Kahn's
// algorithm via toposort, as the DAG executor does).
func ValidatePlan(tasks []model.Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("plan contains no tasks")
	}

	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("plan contains a task with an empty id")
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate task id %q", t.ID)
		}
		ids[t.ID] = true
	}

	edges := make([]toposort.Edge, 0)
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if dep == t.ID {
				return fmt.Errorf("task %q depends on itself", t.ID)
			}
			if !ids[dep] {
				return fmt.Errorf("task %q depends on unknown task %q", t.ID, dep)
			}
			edges = append(edges, toposort.Edge{dep, t.ID})
		}
	}

	if len(edges) == 0 {
		return nil
	}
	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("cycle detected in task graph: %w", err)
	}
	return nil
}
