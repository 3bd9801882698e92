// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package graph

import (
	"context"
	"fmt"

	"refactorbot/internal/state"
)

// stepsPerTask bounds how many graph steps one decision cycle can take
// (execute, audit, validate, decide target, router hop). Used to size the
// runaway guard; a healthy run never gets near it.
const stepsPerTask = 8

// Runner executes a compiled graph against a run state until it reaches End
// or the step bound trips.
type Runner struct {
	graph  *Graph
	logger Logger
}

// NewRunner creates a runner for a compiled graph.
func NewRunner(g *Graph, logger Logger) *Runner {
	return &Runner{graph: g, logger: logger}
}

// Run drives the state through the graph. It returns an error only for
// cancellation, a router contract violation, or a tripped step bound;
// pipeline-level failures are recorded in the state instead.
func (r *Runner) Run(ctx context.Context, s *state.RunState) error {
	current := r.graph.entry
	step := 0

	for current != End {
		if err := ctx.Err(); err != nil {
			s.Errors = append(s.Errors, state.StageError{
				Stage:  "run",
				Reason: fmt.Sprintf("run cancelled at node %s: %v", current, err),
			})
			return fmt.Errorf("run cancelled: %w", err)
		}

		if step >= r.maxSteps(s) {
			s.Errors = append(s.Errors, state.StageError{
				Stage:  "run",
				Reason: fmt.Sprintf("step bound exceeded at node %s after %d steps", current, step),
			})
			return fmt.Errorf("graph did not terminate within %d steps", step)
		}
		step++

		node := r.graph.nodes[current]
		r.logger.Debugf("graph step %d: node %s", step, current)
		update := node(ctx, s)
		s.Apply(update)

		next, err := r.nextNode(current, s)
		if err != nil {
			return err
		}
		current = next
	}

	r.logger.Infof("graph run complete after %d steps", step)
	return nil
}

func (r *Runner) nextNode(current string, s *state.RunState) (string, error) {
	if c, ok := r.graph.conditionals[current]; ok {
		outcome := c.router(s)
		target, ok := c.edges[outcome]
		if !ok {
			// Compile guarantees coverage of the declared set, so this is a
			// router returning an undeclared value.
			return "", fmt.Errorf("node %q router returned undeclared outcome %q", current, outcome)
		}
		r.logger.Debugf("node %s routed %q -> %s", current, outcome, target)
		return target, nil
	}
	if to, ok := r.graph.edges[current]; ok {
		return to, nil
	}
	// A node with no outgoing edge ends the run.
	return End, nil
}

// maxSteps derives the runaway bound from the live task count and retry
// budget. The constant floor covers index/plan before any tasks exist.
func (r *Runner) maxSteps(s *state.RunState) int {
	base := 16
	perTask := stepsPerTask * (s.MaxRetries + 1)
	return base + perTask*max(len(s.Tasks), 1)
}
