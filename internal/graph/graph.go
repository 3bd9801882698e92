// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package graph compiles pipeline nodes and routers into an executable
// topology. Wiring mistakes (an unrouted outcome, an unreachable node) are
// build-time errors so a run can never hit a missing edge at runtime.
package graph

import (
	"context"
	"fmt"

	"refactorbot/internal/state"
)

// End is the reserved edge target that terminates the run.
const End = "__end__"

// NodeFunc executes one stage against the run state and returns the delta to
// merge. Nodes must not retain the state pointer past the call.
type NodeFunc func(ctx context.Context, s *state.RunState) state.Update

// RouterFunc inspects the state after a node ran and names the outcome used
// to pick the next edge. It must only return values from its declared set.
type RouterFunc func(s *state.RunState) string

// BuildError reports invalid topology wiring detected at compile time.
type BuildError struct {
	Node   string
	Reason string
}

func (e *BuildError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("graph build: %s", e.Reason)
	}
	return fmt.Sprintf("graph build: node %q: %s", e.Node, e.Reason)
}

// Logger is the minimal logging surface the runner needs.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type conditional struct {
	router   RouterFunc
	outcomes []string          // closed set the router may return
	edges    map[string]string // outcome -> target node (or End)
}

// Builder accumulates nodes and edges before compilation.
type Builder struct {
	entry        string
	nodes        map[string]NodeFunc
	edges        map[string]string
	conditionals map[string]*conditional
}

// NewBuilder creates an empty topology builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:        make(map[string]NodeFunc),
		edges:        make(map[string]string),
		conditionals: make(map[string]*conditional),
	}
}

// AddNode registers a named stage.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	b.nodes[name] = fn
	return b
}

// SetEntry names the node the run starts from.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// AddEdge wires an unconditional transition from one node to the next.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.edges[from] = to
	return b
}

// AddConditionalEdges attaches a router to a node. The outcomes slice is the
// closed set of values the router may return; edges must cover it exactly.
func (b *Builder) AddConditionalEdges(from string, router RouterFunc, outcomes []string, edges map[string]string) *Builder {
	b.conditionals[from] = &conditional{router: router, outcomes: outcomes, edges: edges}
	return b
}

// Compile validates the wiring and returns the executable graph.
func (b *Builder) Compile() (*Graph, error) {
	if b.entry == "" {
		return nil, &BuildError{Reason: "no entry node set"}
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, &BuildError{Node: b.entry, Reason: "entry node not registered"}
	}

	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, &BuildError{Node: from, Reason: "edge from unregistered node"}
		}
		if to != End {
			if _, ok := b.nodes[to]; !ok {
				return nil, &BuildError{Node: from, Reason: fmt.Sprintf("edge target %q not registered", to)}
			}
		}
	}

	for from, c := range b.conditionals {
		if _, ok := b.nodes[from]; !ok {
			return nil, &BuildError{Node: from, Reason: "conditional edges from unregistered node"}
		}
		if _, dup := b.edges[from]; dup {
			return nil, &BuildError{Node: from, Reason: "node has both an unconditional and a conditional edge"}
		}
		declared := make(map[string]bool, len(c.outcomes))
		for _, o := range c.outcomes {
			declared[o] = true
			target, ok := c.edges[o]
			if !ok {
				return nil, &BuildError{Node: from, Reason: fmt.Sprintf("router outcome %q has no edge", o)}
			}
			if target != End {
				if _, ok := b.nodes[target]; !ok {
					return nil, &BuildError{Node: from, Reason: fmt.Sprintf("outcome %q targets unregistered node %q", o, target)}
				}
			}
		}
		for o := range c.edges {
			if !declared[o] {
				return nil, &BuildError{Node: from, Reason: fmt.Sprintf("edge keyed by %q is not a declared router outcome", o)}
			}
		}
	}

	// Every registered node must be reachable from the entry.
	reachable := map[string]bool{b.entry: true}
	queue := []string{b.entry}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		var targets []string
		if to, ok := b.edges[cur]; ok {
			targets = append(targets, to)
		}
		if c, ok := b.conditionals[cur]; ok {
			for _, to := range c.edges {
				targets = append(targets, to)
			}
		}
		for _, to := range targets {
			if to == End || reachable[to] {
				continue
			}
			reachable[to] = true
			queue = append(queue, to)
		}
	}
	for name := range b.nodes {
		if !reachable[name] {
			return nil, &BuildError{Node: name, Reason: "unreachable from entry"}
		}
	}

	return &Graph{
		entry:        b.entry,
		nodes:        b.nodes,
		edges:        b.edges,
		conditionals: b.conditionals,
	}, nil
}

// Graph is a compiled topology ready to run.
type Graph struct {
	entry        string
	nodes        map[string]NodeFunc
	edges        map[string]string
	conditionals map[string]*conditional
}

// Entry returns the name of the entry node.
func (g *Graph) Entry() string {
	return g.entry
}
