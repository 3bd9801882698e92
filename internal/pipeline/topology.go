// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package pipeline

import (
	"refactorbot/internal/graph"
	"refactorbot/internal/recovery"
	"refactorbot/internal/state"
)

// Node names in the compiled topology.
const (
	NodeIndex      = "index"
	NodePlan       = "plan"
	NodeExecute    = "execute"
	NodeAudit      = "audit"
	NodeValidate   = "validate"
	NodeApply      = "apply"
	NodeRetry      = "retry"
	NodeSkip       = "skip"
	NodeAbort      = "abort"
	NodeAbortStuck = "abort_stuck"
)

// Startup router outcomes. Index and plan failures are fatal to the run.
const (
	outcomeOK    = "ok"
	outcomeFatal = "fatal"
)

// BuildTopology assembles the full run graph:
//
//	index -> plan -> (execute -> audit -> validate -> decide) cycling back
//	through apply/retry until every task is terminal or the run aborts.
//
// Compilation fails on any unrouted decision outcome or unreachable node.
func BuildTopology(p *Pipeline, engine *recovery.Engine) (*graph.Graph, error) {
	b := graph.NewBuilder()

	b.AddNode(NodeIndex, p.IndexNode)
	b.AddNode(NodePlan, p.PlanNode)
	b.AddNode(NodeExecute, p.ExecuteNode)
	b.AddNode(NodeAudit, p.AuditNode)
	b.AddNode(NodeValidate, p.ValidateNode)
	b.AddNode(NodeApply, recovery.ApplyNode)
	b.AddNode(NodeRetry, recovery.RetryNode)
	b.AddNode(NodeSkip, recovery.SkipNode)
	b.AddNode(NodeAbort, recovery.AbortNode)
	b.AddNode(NodeAbortStuck, recovery.StuckAbortNode)

	b.SetEntry(NodeIndex)

	b.AddConditionalEdges(NodeIndex, indexOutcome,
		[]string{outcomeOK, outcomeFatal},
		map[string]string{outcomeOK: NodePlan, outcomeFatal: graph.End})

	b.AddConditionalEdges(NodePlan, planOutcome,
		[]string{outcomeOK, outcomeFatal},
		map[string]string{outcomeOK: NodeExecute, outcomeFatal: graph.End})

	b.AddEdge(NodeExecute, NodeAudit)
	b.AddEdge(NodeAudit, NodeValidate)

	b.AddConditionalEdges(NodeValidate, decideRouter(engine),
		decisionOutcomes(),
		map[string]string{
			string(recovery.DecisionApply): NodeApply,
			string(recovery.DecisionRetry): NodeRetry,
			string(recovery.DecisionSkip):  NodeSkip,
			string(recovery.DecisionAbort): NodeAbort,
		})

	nextEdges := map[string]string{
		string(recovery.NextContinue): NodeExecute,
		string(recovery.NextDone):     graph.End,
		string(recovery.NextStuck):    NodeAbortStuck,
	}
	b.AddConditionalEdges(NodeApply, nextRouter, nextOutcomes(), nextEdges)
	b.AddConditionalEdges(NodeSkip, nextRouter, nextOutcomes(), nextEdges)

	b.AddEdge(NodeRetry, NodeExecute)
	b.AddEdge(NodeAbort, graph.End)
	b.AddEdge(NodeAbortStuck, graph.End)

	return b.Compile()
}

func indexOutcome(s *state.RunState) string {
	if s.RepoIndex == nil {
		return outcomeFatal
	}
	return outcomeOK
}

func planOutcome(s *state.RunState) string {
	if len(s.Tasks) == 0 {
		return outcomeFatal
	}
	return outcomeOK
}

func decideRouter(engine *recovery.Engine) graph.RouterFunc {
	return func(s *state.RunState) string {
		return string(engine.Decide(s))
	}
}

func nextRouter(s *state.RunState) string {
	return string(recovery.NextOrStuck(s))
}

func decisionOutcomes() []string {
	ds := recovery.Decisions()
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return out
}

func nextOutcomes() []string {
	ns := recovery.Nexts()
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = string(n)
	}
	return out
}
