package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refactorbot/internal/state"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

func noop(ctx context.Context, s *state.RunState) state.Update {
	return state.Update{}
}

func TestCompileRequiresEntry(t *testing.T) {
	_, err := NewBuilder().AddNode("a", noop).Compile()
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Error(), "no entry node")
}

func TestCompileRejectsUnregisteredEntry(t *testing.T) {
	_, err := NewBuilder().SetEntry("ghost").Compile()
	require.Error(t, err)
}

func TestCompileRejectsDanglingEdgeTarget(t *testing.T) {
	_, err := NewBuilder().
		AddNode("a", noop).
		SetEntry("a").
		AddEdge("a", "ghost").
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestCompileRejectsUnroutedOutcome(t *testing.T) {
	router := func(s *state.RunState) string { return "x" }
	_, err := NewBuilder().
		AddNode("a", noop).
		SetEntry("a").
		AddConditionalEdges("a", router, []string{"x", "y"}, map[string]string{
			"x": End,
			// "y" has no edge
		}).
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `outcome "y" has no edge`)
}

func TestCompileRejectsUndeclaredEdgeKey(t *testing.T) {
	router := func(s *state.RunState) string { return "x" }
	_, err := NewBuilder().
		AddNode("a", noop).
		SetEntry("a").
		AddConditionalEdges("a", router, []string{"x"}, map[string]string{
			"x": End,
			"z": End, // not declared
		}).
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a declared router outcome")
}

func TestCompileRejectsUnreachableNode(t *testing.T) {
	_, err := NewBuilder().
		AddNode("a", noop).
		AddNode("island", noop).
		SetEntry("a").
		AddEdge("a", End).
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestCompileRejectsDoubleEdges(t *testing.T) {
	router := func(s *state.RunState) string { return "x" }
	_, err := NewBuilder().
		AddNode("a", noop).
		AddNode("b", noop).
		SetEntry("a").
		AddEdge("a", "b").
		AddConditionalEdges("a", router, []string{"x"}, map[string]string{"x": "b"}).
		AddEdge("b", End).
		Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both an unconditional and a conditional edge")
}

func TestRunnerExecutesLinearGraph(t *testing.T) {
	var order []string
	record := func(name string) NodeFunc {
		return func(ctx context.Context, s *state.RunState) state.Update {
			order = append(order, name)
			return state.Update{}
		}
	}

	g, err := NewBuilder().
		AddNode("a", record("a")).
		AddNode("b", record("b")).
		AddNode("c", record("c")).
		SetEntry("a").
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", End).
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	err = NewRunner(g, nopLogger{}).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRunnerAppliesUpdates(t *testing.T) {
	write := func(ctx context.Context, s *state.RunState) state.Update {
		return state.Update{Errors: []state.StageError{{Stage: "a", Reason: "note"}}}
	}

	g, err := NewBuilder().
		AddNode("a", write).
		SetEntry("a").
		AddEdge("a", End).
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	require.NoError(t, NewRunner(g, nopLogger{}).Run(context.Background(), s))
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "note", s.Errors[0].Reason)
}

func TestRunnerFollowsRouter(t *testing.T) {
	calls := 0
	count := func(ctx context.Context, s *state.RunState) state.Update {
		calls++
		return state.Update{}
	}
	router := func(s *state.RunState) string {
		if calls < 3 {
			return "again"
		}
		return "done"
	}

	g, err := NewBuilder().
		AddNode("loop", count).
		SetEntry("loop").
		AddConditionalEdges("loop", router, []string{"again", "done"}, map[string]string{
			"again": "loop",
			"done":  End,
		}).
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	require.NoError(t, NewRunner(g, nopLogger{}).Run(context.Background(), s))
	assert.Equal(t, 3, calls)
}

func TestRunnerRejectsUndeclaredRouterOutcome(t *testing.T) {
	router := func(s *state.RunState) string { return "surprise" }

	g, err := NewBuilder().
		AddNode("a", noop).
		SetEntry("a").
		AddConditionalEdges("a", router, []string{"x"}, map[string]string{"x": End}).
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	err = NewRunner(g, nopLogger{}).Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared outcome")
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := NewBuilder().
		AddNode("a", noop).
		SetEntry("a").
		AddEdge("a", End).
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	err = NewRunner(g, nopLogger{}).Run(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	require.NotEmpty(t, s.Errors)
}

func TestRunnerTerminatesRunawayLoop(t *testing.T) {
	router := func(s *state.RunState) string { return "again" }

	g, err := NewBuilder().
		AddNode("loop", noop).
		SetEntry("loop").
		AddConditionalEdges("loop", router, []string{"again"}, map[string]string{
			"again": "loop",
		}).
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	err = NewRunner(g, nopLogger{}).Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not terminate")
	require.NotEmpty(t, s.Errors)
	assert.Contains(t, s.Errors[len(s.Errors)-1].Reason, "step bound")
}

func TestRunnerNodeWithoutEdgeEndsRun(t *testing.T) {
	g, err := NewBuilder().
		AddNode("a", noop).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	s := state.New("d", "/repo", 3)
	assert.NoError(t, NewRunner(g, nopLogger{}).Run(context.Background(), s))
}

func TestBuildErrorMessage(t *testing.T) {
	err := &BuildError{Node: "n", Reason: "r"}
	assert.Equal(t, `graph build: node "n": r`, err.Error())
	assert.Equal(t, "graph build: r", (&BuildError{Reason: "r"}).Error())
}
