// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package state holds the mutable run record threaded through every pipeline
// stage. Stages never write fields directly; they return an Update that the
// run loop merges, which keeps the accumulator contract in one place.
package state

import (
	"fmt"

	"refactorbot/internal/model"
)

const (
	// MinRetries and MaxRetriesLimit bound the per-task retry budget.
	// Out-of-range values are clamped, not rejected, so a run can always start.
	MinRetries      = 1
	MaxRetriesLimit = 10
)

// StageError is a structured entry in the errors accumulator.
type StageError struct {
	TaskID string // empty for run-level errors
	Stage  string // "index", "plan", "execute", "audit", "validate", "decide"
	Reason string
}

func (e StageError) String() string {
	if e.TaskID == "" {
		return fmt.Sprintf("[%s] %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("[%s] task %s: %s", e.Stage, e.TaskID, e.Reason)
}

// RunState is the single mutable record for one pipeline invocation.
// It is owned by the run loop; no stage retains a reference past its call.
type RunState struct {
	// Inputs, fixed at construction.
	Directive  string
	RepoPath   string
	MaxRetries int

	// Indexing and planning.
	RepoIndex        *model.RepoIndex
	Tasks            []model.Task
	CurrentTaskIndex int

	// Accumulators. Append-only: prior entries are never mutated or reordered.
	Diffs  []model.FileDiff
	Errors []StageError

	// Last-write-wins snapshots for the current task.
	AuditReport *model.AuditReport
	TestReport  *model.TestReport

	// Retry cycles consumed per task id. Incremented only by the recovery engine.
	RetryCounts map[string]int
}

// New creates the initial state for a run, clamping maxRetries to the
// supported range.
func New(directive, repoPath string, maxRetries int) *RunState {
	if maxRetries < MinRetries {
		maxRetries = MinRetries
	}
	if maxRetries > MaxRetriesLimit {
		maxRetries = MaxRetriesLimit
	}
	return &RunState{
		Directive:        directive,
		RepoPath:         repoPath,
		MaxRetries:       maxRetries,
		CurrentTaskIndex: -1,
		RetryCounts:      make(map[string]int),
	}
}

// CurrentTask returns the task at CurrentTaskIndex, or nil when the index is
// out of bounds.
func (s *RunState) CurrentTask() *model.Task {
	if s.CurrentTaskIndex < 0 || s.CurrentTaskIndex >= len(s.Tasks) {
		return nil
	}
	return &s.Tasks[s.CurrentTaskIndex]
}
