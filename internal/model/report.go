// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package model

import "time"

// FindingSeverity classifies an audit finding.
type FindingSeverity string

const (
	SeverityError   FindingSeverity = "error"
	SeverityWarning FindingSeverity = "warning"
	SeverityInfo    FindingSeverity = "info"
)

// AuditFinding is a single issue raised by the auditor against a diff.
type AuditFinding struct {
	FindingID   string
	FilePath    string
	FindingType string // "orphaned_import" | "oversized_diff" | "target_containment"
	Severity    FindingSeverity
	Description string
	Evidence    string
}

// AuditReport is the auditor's verdict over one task's diffs.
// Passed is true only when no error-severity findings were raised.
type AuditReport struct {
	Passed       bool
	Findings     []AuditFinding
	DiffsAudited int
	ErrorCount   int
	WarningCount int
	AuditedAt    time.Time
}

// TestRunResult captures one invocation of a test runner.
type TestRunResult struct {
	Runner   string // "go_test" | "npm_test" | "custom" | "none"
	ExitCode int
	Stdout   string
	Stderr   string
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// TestReport is the validator's verdict over the accumulated diffs.
type TestReport struct {
	Passed          bool
	Run             TestRunResult
	RunnerAvailable bool
	TestedAt        time.Time
}

// PassRate returns passed/(passed+failed) for the report's run.
// Zero tests ran means no evidence of regression, which counts as 1.0.
func (r TestReport) PassRate() float64 {
	total := r.Run.Passed + r.Run.Failed
	if total == 0 {
		return 1.0
	}
	return float64(r.Run.Passed) / float64(total)
}
