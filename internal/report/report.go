// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package report summarizes a finished run for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"refactorbot/internal/model"
	"refactorbot/internal/state"
)

// Outcome classifies how the run ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeAborted Outcome = "aborted"
	OutcomeFatal   Outcome = "fatal"
)

// Exit codes by outcome.
const (
	ExitSuccess = 0
	ExitAborted = 1
	ExitFatal   = 2
)

// TaskSummary is one row of the final task table.
type TaskSummary struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Retries int    `json:"retries"`
	Diffs   int    `json:"diffs"`
}

// Report is the run summary artifact.
type Report struct {
	Directive string        `json:"directive"`
	RepoPath  string        `json:"repo_path"`
	Outcome   Outcome       `json:"outcome"`
	Tasks     []TaskSummary `json:"tasks"`
	DiffCount int           `json:"diff_count"`
	Errors    []string      `json:"errors"`
}

// FromState builds the report from a finished run state.
func FromState(s *state.RunState) *Report {
	r := &Report{
		Directive: s.Directive,
		RepoPath:  s.RepoPath,
		Outcome:   classify(s),
		DiffCount: len(s.Diffs),
	}
	for _, t := range s.Tasks {
		r.Tasks = append(r.Tasks, TaskSummary{
			ID:      t.ID,
			Status:  string(t.Status),
			Retries: s.RetryCounts[t.ID],
			Diffs:   len(model.DiffsForTask(s.Diffs, t.ID)),
		})
	}
	for _, e := range s.Errors {
		r.Errors = append(r.Errors, e.String())
	}
	return r
}

func classify(s *state.RunState) Outcome {
	if s.RepoIndex == nil || len(s.Tasks) == 0 {
		return OutcomeFatal
	}
	for _, t := range s.Tasks {
		if t.Status != model.StatusCompleted && t.Status != model.StatusSkipped {
			return OutcomeAborted
		}
	}
	return OutcomeSuccess
}

// ExitCode maps the outcome to the process exit code.
func (r *Report) ExitCode() int {
	switch r.Outcome {
	case OutcomeSuccess:
		return ExitSuccess
	case OutcomeAborted:
		return ExitAborted
	default:
		return ExitFatal
	}
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

// Text renders the report for terminal output.
func (r *Report) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s\n", r.Outcome)
	fmt.Fprintf(&sb, "Directive: %s\n", r.Directive)
	fmt.Fprintf(&sb, "Diffs produced: %d\n\n", r.DiffCount)

	if len(r.Tasks) > 0 {
		sb.WriteString("Tasks:\n")
		for _, t := range r.Tasks {
			fmt.Fprintf(&sb, "  %-12s %-12s retries=%d diffs=%d\n", t.ID, t.Status, t.Retries, t.Diffs)
		}
	}
	if len(r.Errors) > 0 {
		sb.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  " + e + "\n")
		}
	}
	return sb.String()
}
