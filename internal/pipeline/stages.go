// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"refactorbot/internal/graph"
	"refactorbot/internal/model"
	"refactorbot/internal/scheduler"
	"refactorbot/internal/state"
)

// DefaultStageTimeout bounds a single collaborator call when the
// configuration does not say otherwise.
const DefaultStageTimeout = 5 * time.Minute

// Pipeline holds the injected collaborators and per-call timeout. Each stage
// method has the graph.NodeFunc signature and returns a state delta; nothing
// is thrown past a stage boundary.
type Pipeline struct {
	collabs Collaborators
	timeout time.Duration
	logger  graph.Logger
}

// New creates a pipeline. A non-positive timeout falls back to the default.
func New(collabs Collaborators, timeout time.Duration, logger graph.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	return &Pipeline{collabs: collabs, timeout: timeout, logger: logger}
}

// call runs a collaborator invocation under the pipeline timeout. The call
// runs on its own goroutine so a collaborator that ignores its context still
// cannot stall the run loop.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		ch <- result{val, err}
	}()

	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("collaborator call timed out: %w", ctx.Err())
	}
}

// IndexNode indexes the repository once per run. Failure is fatal: no task
// can be planned without an index.
func (p *Pipeline) IndexNode(ctx context.Context, s *state.RunState) state.Update {
	idx, err := call(ctx, p.timeout, func(ctx context.Context) (*model.RepoIndex, error) {
		return p.collabs.Indexer.Index(ctx, s.RepoPath)
	})
	if err != nil {
		p.logger.Errorf("index stage failed: %v", err)
		return state.Update{
			Errors: []state.StageError{{Stage: "index", Reason: err.Error()}},
		}
	}

	p.logger.Infof("indexed %d files under %s", len(idx.Files), s.RepoPath)
	return state.Update{RepoIndex: idx}
}

// PlanNode decomposes the directive into the task graph. The plan is
// rejected when it is empty, structurally invalid, or references targets the
// index does not know about.
func (p *Pipeline) PlanNode(ctx context.Context, s *state.RunState) state.Update {
	tasks, err := call(ctx, p.timeout, func(ctx context.Context) ([]model.Task, error) {
		return p.collabs.Planner.Plan(ctx, s.Directive, s.RepoIndex)
	})
	if err == nil {
		err = scheduler.ValidatePlan(tasks)
	}
	if err == nil {
		err = p.checkTargets(tasks, s.RepoIndex)
	}
	if err != nil {
		p.logger.Errorf("plan stage failed: %v", err)
		return state.Update{
			SetTasks: true,
			Errors:   []state.StageError{{Stage: "plan", Reason: err.Error()}},
		}
	}

	for i := range tasks {
		if tasks[i].Status == "" {
			tasks[i].Status = model.StatusPending
		}
	}
	p.logger.Infof("planned %d tasks", len(tasks))
	return state.Update{SetTasks: true, Tasks: tasks}
}

func (p *Pipeline) checkTargets(tasks []model.Task, idx *model.RepoIndex) error {
	var missing []string
	for _, t := range tasks {
		for _, f := range t.AffectedFiles {
			if !idx.HasFile(f) {
				missing = append(missing, fmt.Sprintf("%s (task %s)", f, t.ID))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("plan references files absent from the index: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExecuteNode runs the executor for the next eligible task. The diffs
// accumulator is always written, empty on failure, so the merge contract
// holds on every path.
func (p *Pipeline) ExecuteNode(ctx context.Context, s *state.RunState) state.Update {
	task := scheduler.NextEligible(s.Tasks)
	if task == nil {
		return state.Update{
			SetCurrentIndex:  true,
			CurrentTaskIndex: -1,
			Diffs:            []model.FileDiff{},
			Errors:           []state.StageError{{Stage: "execute", Reason: "no eligible pending task found"}},
		}
	}

	idx := model.FindTaskIndex(s.Tasks, task.ID)
	tasks := make([]model.Task, len(s.Tasks))
	copy(tasks, s.Tasks)
	tasks[idx].Status = model.StatusInProgress

	diffs, err := call(ctx, p.timeout, func(ctx context.Context) ([]model.FileDiff, error) {
		return p.collabs.Executor.Execute(ctx, tasks[idx], s.RepoIndex, tasks[idx].Feedback)
	})
	if err != nil {
		p.logger.Warnf("execute stage failed for task %s: %v", task.ID, err)
		tasks[idx].Status = model.StatusFailed
		return state.Update{
			SetTasks:         true,
			Tasks:            tasks,
			SetCurrentIndex:  true,
			CurrentTaskIndex: idx,
			Diffs:            []model.FileDiff{},
			Errors:           []state.StageError{{TaskID: task.ID, Stage: "execute", Reason: err.Error()}},
		}
	}
	if diffs == nil {
		diffs = []model.FileDiff{}
	}
	for i := range diffs {
		diffs[i].TaskID = task.ID
	}

	p.logger.Infof("task %s produced %d diffs", task.ID, len(diffs))
	return state.Update{
		SetTasks:         true,
		Tasks:            tasks,
		SetCurrentIndex:  true,
		CurrentTaskIndex: idx,
		Diffs:            diffs,
	}
}

// AuditNode audits the current task's diffs. A collaborator failure becomes
// a synthesized failing report so the decision engine always has something
// to inspect.
func (p *Pipeline) AuditNode(ctx context.Context, s *state.RunState) state.Update {
	taskDiffs := s.Diffs
	taskID := ""
	if task := s.CurrentTask(); task != nil {
		taskID = task.ID
		taskDiffs = model.DiffsForTask(s.Diffs, task.ID)
	}

	report, err := call(ctx, p.timeout, func(ctx context.Context) (*model.AuditReport, error) {
		return p.collabs.Auditor.Audit(ctx, taskDiffs, s.RepoIndex)
	})
	if err != nil || report == nil {
		reason := "auditor returned no report"
		if err != nil {
			reason = err.Error()
		}
		p.logger.Warnf("audit stage failed for task %s: %s", taskID, reason)
		return state.Update{
			AuditReport: &model.AuditReport{
				Passed:       false,
				DiffsAudited: len(taskDiffs),
				ErrorCount:   1,
				AuditedAt:    time.Now(),
			},
			Errors: []state.StageError{{TaskID: taskID, Stage: "audit", Reason: reason}},
		}
	}

	return state.Update{AuditReport: report}
}

// ValidateNode runs the validator over the accumulated diffs, again
// synthesizing a conservative failing report on collaborator failure.
func (p *Pipeline) ValidateNode(ctx context.Context, s *state.RunState) state.Update {
	taskID := ""
	if task := s.CurrentTask(); task != nil {
		taskID = task.ID
	}

	report, err := call(ctx, p.timeout, func(ctx context.Context) (*model.TestReport, error) {
		return p.collabs.Validator.Validate(ctx, s.RepoPath, s.Diffs)
	})
	if err != nil || report == nil {
		reason := "validator returned no report"
		if err != nil {
			reason = err.Error()
		}
		p.logger.Warnf("validate stage failed for task %s: %s", taskID, reason)
		return state.Update{
			TestReport: &model.TestReport{
				Passed: false,
				Run: model.TestRunResult{
					Runner:   "none",
					ExitCode: 1,
					Stderr:   reason,
					Failed:   1,
				},
				RunnerAvailable: false,
				TestedAt:        time.Now(),
			},
			Errors: []state.StageError{{TaskID: taskID, Stage: "validate", Reason: reason}},
		}
	}

	return state.Update{TestReport: report}
}
