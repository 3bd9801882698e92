package recovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refactorbot/internal/model"
	"refactorbot/internal/state"
)

func cycleState(t *testing.T, auditPassed bool, passed, failed, retries, maxRetries int) *state.RunState {
	t.Helper()
	s := state.New("d", "/repo", maxRetries)
	s.Tasks = []model.Task{{ID: "t1", Status: model.StatusInProgress}}
	s.CurrentTaskIndex = 0
	s.RetryCounts["t1"] = retries
	s.AuditReport = &model.AuditReport{Passed: auditPassed}
	s.TestReport = &model.TestReport{
		Passed: failed == 0,
		Run:    model.TestRunResult{Passed: passed, Failed: failed},
	}
	return s
}

func TestDecideApply(t *testing.T) {
	engine := NewEngine(0.85)

	s := cycleState(t, true, 10, 0, 0, 3)
	assert.Equal(t, DecisionApply, engine.Decide(s))

	// Pass rate exactly at the threshold still applies when audit passed.
	s = cycleState(t, true, 17, 3, 0, 3) // 0.85
	assert.Equal(t, DecisionApply, engine.Decide(s))
}

func TestDecideZeroTestsCountsAsPass(t *testing.T) {
	engine := NewEngine(0.85)

	s := cycleState(t, true, 0, 0, 0, 3)
	assert.Equal(t, DecisionApply, engine.Decide(s), "no tests means no evidence of regression")
}

func TestDecideSevereRegressionAbortsDespiteBudget(t *testing.T) {
	engine := NewEngine(0.85)

	s := cycleState(t, true, 8, 2, 0, 3) // 0.80, retries untouched
	assert.Equal(t, DecisionAbort, engine.Decide(s))
}

func TestDecideRetryWithinBudget(t *testing.T) {
	engine := NewEngine(0.85)

	// Audit failed but tests are healthy: retry while budget remains.
	s := cycleState(t, false, 10, 0, 0, 3)
	assert.Equal(t, DecisionRetry, engine.Decide(s))

	s = cycleState(t, false, 10, 0, 2, 3)
	assert.Equal(t, DecisionRetry, engine.Decide(s))
}

func TestDecideBudgetExhaustedAborts(t *testing.T) {
	engine := NewEngine(0.85)

	s := cycleState(t, false, 10, 0, 3, 3)
	assert.Equal(t, DecisionAbort, engine.Decide(s))
}

func TestDecideNoCurrentTaskAborts(t *testing.T) {
	engine := NewEngine(0.85)

	s := state.New("d", "/repo", 3)
	s.CurrentTaskIndex = -1
	assert.Equal(t, DecisionAbort, engine.Decide(s))
}

func TestDecideConfigurableThreshold(t *testing.T) {
	engine := NewEngine(0.5)

	s := cycleState(t, true, 6, 4, 0, 3) // 0.60 passes a 0.5 threshold
	assert.Equal(t, DecisionApply, engine.Decide(s))

	strict := NewEngine(0.99)
	assert.Equal(t, DecisionAbort, strict.Decide(s))
}

func TestNewEngineDefaultsThreshold(t *testing.T) {
	engine := NewEngine(0)
	assert.Equal(t, DefaultAbortThreshold, engine.abortThreshold)
}

func TestNextOrStuck(t *testing.T) {
	s := state.New("d", "/repo", 3)

	s.Tasks = []model.Task{
		{ID: "a", Status: model.StatusCompleted},
		{ID: "b", Status: model.StatusPending, Dependencies: []string{"a"}},
	}
	assert.Equal(t, NextContinue, NextOrStuck(s))

	s.Tasks = []model.Task{
		{ID: "a", Status: model.StatusCompleted},
		{ID: "b", Status: model.StatusSkipped},
	}
	assert.Equal(t, NextDone, NextOrStuck(s))

	s.Tasks = []model.Task{
		{ID: "a", Status: model.StatusFailed},
		{ID: "b", Status: model.StatusPending, Dependencies: []string{"a"}},
	}
	assert.Equal(t, NextStuck, NextOrStuck(s))
}

func TestApplyNodeMarksCompleted(t *testing.T) {
	s := state.New("d", "/repo", 3)
	s.Tasks = []model.Task{{ID: "t1", Status: model.StatusInProgress}}
	s.CurrentTaskIndex = 0

	s.Apply(ApplyNode(context.Background(), s))
	assert.Equal(t, model.StatusCompleted, s.Tasks[0].Status)
}

func TestSkipNodeMarksSkipped(t *testing.T) {
	s := state.New("d", "/repo", 3)
	s.Tasks = []model.Task{{ID: "t1", Status: model.StatusInProgress}}
	s.CurrentTaskIndex = 0

	s.Apply(SkipNode(context.Background(), s))
	assert.Equal(t, model.StatusSkipped, s.Tasks[0].Status)
}

func TestRetryNodeIncrementsAndResets(t *testing.T) {
	s := cycleState(t, false, 9, 1, 0, 3)
	s.Tasks[0].Status = model.StatusInProgress

	s.Apply(RetryNode(context.Background(), s))

	assert.Equal(t, 1, s.RetryCounts["t1"])
	assert.Equal(t, model.StatusPending, s.Tasks[0].Status)
	require.NotEmpty(t, s.Tasks[0].Feedback, "retry must leave feedback for the next execution")
	assert.NotEmpty(t, s.Errors)

	s.Apply(RetryNode(context.Background(), s))
	assert.Equal(t, 2, s.RetryCounts["t1"])
}

func TestRetryNodeWithoutCurrentTask(t *testing.T) {
	s := state.New("d", "/repo", 3)
	s.CurrentTaskIndex = -1

	s.Apply(RetryNode(context.Background(), s))
	require.Len(t, s.Errors, 1)
	assert.Contains(t, s.Errors[0].Reason, "no current task")
}

func TestAbortNodeDiagnostic(t *testing.T) {
	s := cycleState(t, false, 4, 6, 2, 3)

	s.Apply(AbortNode(context.Background(), s))

	require.NotEmpty(t, s.Errors)
	last := s.Errors[len(s.Errors)-1]
	assert.Contains(t, last.Reason, "aborted on task t1")
	assert.Contains(t, last.Reason, "2/3")
	assert.Contains(t, last.Reason, "40%")
}

func TestStuckAbortNodeDiagnostic(t *testing.T) {
	s := state.New("d", "/repo", 3)
	s.Tasks = []model.Task{
		{ID: "a", Status: model.StatusFailed},
		{ID: "b", Status: model.StatusPending, Dependencies: []string{"a"}},
		{ID: "c", Status: model.StatusPending, Dependencies: []string{"ghost"}},
	}

	s.Apply(StuckAbortNode(context.Background(), s))

	require.Len(t, s.Errors, 1)
	assert.Contains(t, s.Errors[0].Reason, "no eligible task")
	assert.Contains(t, s.Errors[0].Reason, "2 pending")
}

func TestDecisionsCoverClosedSet(t *testing.T) {
	assert.ElementsMatch(t,
		[]Decision{DecisionApply, DecisionRetry, DecisionSkip, DecisionAbort},
		Decisions())
	assert.ElementsMatch(t,
		[]Next{NextContinue, NextDone, NextStuck},
		Nexts())
}
