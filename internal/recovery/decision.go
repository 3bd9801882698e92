// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package recovery implements the per-task accept/retry/abort state machine
// and the nodes that apply its verdicts to the run state.
package recovery

import (
	"fmt"

	"refactorbot/internal/scheduler"
	"refactorbot/internal/state"
)

// Decision is the closed set of outcomes the post-validate router can
// produce. The topology compiler requires an edge per member.
type Decision string

const (
	DecisionApply Decision = "apply"
	DecisionRetry Decision = "retry"
	DecisionSkip  Decision = "skip"
	DecisionAbort Decision = "abort"
)

// Decisions returns every routable decision. Skip is carried in the topology
// even though the default policy never emits it; policy extensions do.
func Decisions() []Decision {
	return []Decision{DecisionApply, DecisionRetry, DecisionSkip, DecisionAbort}
}

// Next is the closed outcome set of the post-apply/skip router.
type Next string

const (
	NextContinue Next = "continue"
	NextDone     Next = "done"
	// NextStuck means pending tasks remain but none is eligible. Routed to
	// abort so a broken dependency chain cannot spin the loop.
	NextStuck Next = "stuck"
)

// Nexts returns every routable scheduler outcome.
func Nexts() []Next {
	return []Next{NextContinue, NextDone, NextStuck}
}

// DefaultAbortThreshold is the pass-rate floor below which a run aborts
// without consuming retry budget. Overridable through configuration.
const DefaultAbortThreshold = 0.85

// Engine decides the fate of each decision cycle.
type Engine struct {
	abortThreshold float64
}

// NewEngine creates a decision engine with the given pass-rate abort
// threshold. Non-positive values fall back to the default.
func NewEngine(abortThreshold float64) *Engine {
	if abortThreshold <= 0 {
		abortThreshold = DefaultAbortThreshold
	}
	return &Engine{abortThreshold: abortThreshold}
}

// Decide evaluates the audit and test snapshots for the current task.
// Rule order matters: a severe regression aborts even with budget left.
func (e *Engine) Decide(s *state.RunState) Decision {
	task := s.CurrentTask()
	if task == nil {
		// Planning produced nothing or the index desynced; retrying in place
		// would loop forever.
		return DecisionAbort
	}

	auditPassed := s.AuditReport != nil && s.AuditReport.Passed

	passRate := 1.0
	if s.TestReport != nil {
		passRate = s.TestReport.PassRate()
	}

	if auditPassed && passRate >= e.abortThreshold {
		return DecisionApply
	}
	if passRate < e.abortThreshold {
		return DecisionAbort
	}
	if s.RetryCounts[task.ID] < s.MaxRetries {
		return DecisionRetry
	}
	return DecisionAbort
}

// NextOrStuck routes after apply/skip: continue with the next eligible task,
// finish when everything is terminal, or flag a stuck graph.
func NextOrStuck(s *state.RunState) Next {
	if scheduler.NextEligible(s.Tasks) != nil {
		return NextContinue
	}
	if scheduler.Stuck(s.Tasks) {
		return NextStuck
	}
	return NextDone
}

func passRateSummary(s *state.RunState) string {
	if s.TestReport == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", s.TestReport.PassRate()*100)
}

func auditSummary(s *state.RunState) string {
	if s.AuditReport == nil {
		return "n/a"
	}
	return fmt.Sprintf("passed=%t, errors=%d", s.AuditReport.Passed, s.AuditReport.ErrorCount)
}
