// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package state

import "refactorbot/internal/model"

// Update is a partial state delta returned by a stage. Fields left at their
// zero value are not applied; accumulator fields are always concatenated in
// call order.
type Update struct {
	RepoIndex *model.RepoIndex

	// Tasks replaces the task list when SetTasks is true. The flag keeps an
	// intentional empty list distinguishable from "no change".
	SetTasks bool
	Tasks    []model.Task

	// SetCurrentIndex guards CurrentTaskIndex the same way (index 0 is valid).
	SetCurrentIndex  bool
	CurrentTaskIndex int

	// Accumulator deltas. A stage that ran must supply these, possibly empty.
	Diffs  []model.FileDiff
	Errors []StageError

	AuditReport *model.AuditReport
	TestReport  *model.TestReport

	RetryCounts map[string]int
}

// Apply merges an update into the state. Accumulators only grow; snapshot
// fields are last-write-wins.
func (s *RunState) Apply(u Update) {
	if u.RepoIndex != nil {
		s.RepoIndex = u.RepoIndex
	}
	if u.SetTasks {
		s.Tasks = u.Tasks
	}
	if u.SetCurrentIndex {
		s.CurrentTaskIndex = u.CurrentTaskIndex
	}

	s.Diffs = append(s.Diffs, u.Diffs...)
	s.Errors = append(s.Errors, u.Errors...)

	if u.AuditReport != nil {
		s.AuditReport = u.AuditReport
	}
	if u.TestReport != nil {
		s.TestReport = u.TestReport
	}
	for id, n := range u.RetryCounts {
		s.RetryCounts[id] = n
	}
}
