// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package recovery

import (
	"context"
	"fmt"

	"refactorbot/internal/model"
	"refactorbot/internal/state"
)

// ApplyNode marks the current task completed.
func ApplyNode(ctx context.Context, s *state.RunState) state.Update {
	return setCurrentStatus(s, model.StatusCompleted)
}

// SkipNode marks the current task skipped. Not reachable through the default
// decision policy, but the edge is wired so policy extensions can use it.
func SkipNode(ctx context.Context, s *state.RunState) state.Update {
	return setCurrentStatus(s, model.StatusSkipped)
}

// RetryNode increments the retry count for the current task, resets it to
// pending, and appends failure detail as feedback for the next execution.
func RetryNode(ctx context.Context, s *state.RunState) state.Update {
	task := s.CurrentTask()
	if task == nil {
		return state.Update{
			Errors: []state.StageError{{
				Stage:  "decide",
				Reason: "retry requested with no current task",
			}},
		}
	}

	counts := map[string]int{task.ID: s.RetryCounts[task.ID] + 1}
	attempt := counts[task.ID]

	tasks := cloneTasks(s.Tasks)
	t := &tasks[s.CurrentTaskIndex]
	t.Status = model.StatusPending

	var notes []state.StageError
	if s.AuditReport != nil {
		note := fmt.Sprintf("retry attempt %d: audit passed=%t, %d error findings",
			attempt, s.AuditReport.Passed, s.AuditReport.ErrorCount)
		t.Feedback = append(t.Feedback, note)
		notes = append(notes, state.StageError{TaskID: task.ID, Stage: "decide", Reason: note})
	}
	if s.TestReport != nil {
		note := fmt.Sprintf("retry attempt %d: test pass rate %s (%d passed, %d failed)",
			attempt, passRateSummary(s), s.TestReport.Run.Passed, s.TestReport.Run.Failed)
		t.Feedback = append(t.Feedback, note)
		notes = append(notes, state.StageError{TaskID: task.ID, Stage: "decide", Reason: note})
	}

	return state.Update{
		SetTasks:    true,
		Tasks:       tasks,
		RetryCounts: counts,
		Errors:      notes,
	}
}

// AbortNode writes the diagnostic abort entry. State as of the abort is
// preserved unchanged; no further stages run.
func AbortNode(ctx context.Context, s *state.RunState) state.Update {
	taskID := "unknown"
	retries := 0
	if task := s.CurrentTask(); task != nil {
		taskID = task.ID
		retries = s.RetryCounts[task.ID]
	}

	reason := fmt.Sprintf(
		"run aborted on task %s. Retries used: %d/%d. Test pass rate: %s. Audit: %s.",
		taskID, retries, s.MaxRetries, passRateSummary(s), auditSummary(s))

	return state.Update{
		Errors: []state.StageError{{TaskID: taskID, Stage: "decide", Reason: reason}},
	}
}

// StuckAbortNode writes the diagnostic for a graph with pending tasks none of
// which can ever become eligible.
func StuckAbortNode(ctx context.Context, s *state.RunState) state.Update {
	pending := 0
	for _, t := range s.Tasks {
		if t.Status == model.StatusPending {
			pending++
		}
	}
	return state.Update{
		Errors: []state.StageError{{
			Stage: "decide",
			Reason: fmt.Sprintf(
				"no eligible task: %d pending tasks blocked by failed, missing, or cyclic dependencies", pending),
		}},
	}
}

func setCurrentStatus(s *state.RunState, status model.TaskStatus) state.Update {
	if s.CurrentTask() == nil {
		return state.Update{}
	}
	tasks := cloneTasks(s.Tasks)
	tasks[s.CurrentTaskIndex].Status = status
	return state.Update{SetTasks: true, Tasks: tasks}
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
