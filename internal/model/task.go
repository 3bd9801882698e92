// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package model defines the task graph entities and collaborator result types
// shared across the pipeline.
package model

// TaskStatus is the lifecycle state of a task in the pipeline.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusSkipped    TaskStatus = "skipped"
)

// Terminal reports whether the status is a final state for a task.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Task is a single planned change with dependencies on other tasks.
// Status is mutated only by the run loop, never by collaborators.
type Task struct {
	ID            string
	Description   string
	AffectedFiles []string
	Dependencies  []string
	Status        TaskStatus
	// Feedback holds retry notes appended by the recovery engine and is
	// passed verbatim to the executor on re-execution.
	Feedback []string
}

// FindTaskIndex returns the index of the task with the given id, or -1.
func FindTaskIndex(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
