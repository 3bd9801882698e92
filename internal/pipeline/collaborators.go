// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package pipeline wires the five processing stages around injected
// collaborator interfaces and assembles them into the run topology.
package pipeline

import (
	"context"

	"refactorbot/internal/model"
)

// Indexer builds the repository snapshot consumed by later stages.
type Indexer interface {
	Index(ctx context.Context, repoPath string) (*model.RepoIndex, error)
}

// Planner decomposes the directive into an ordered task list. Dependencies
// must reference only ids present in the returned list.
type Planner interface {
	Plan(ctx context.Context, directive string, idx *model.RepoIndex) ([]model.Task, error)
}

// Executor produces diffs for one task. Feedback carries retry notes from
// earlier failed attempts.
type Executor interface {
	Execute(ctx context.Context, task model.Task, idx *model.RepoIndex, feedback []string) ([]model.FileDiff, error)
}

// Auditor inspects the current task's diffs for consistency problems.
type Auditor interface {
	Audit(ctx context.Context, diffs []model.FileDiff, idx *model.RepoIndex) (*model.AuditReport, error)
}

// Validator runs the repository's tests against the accumulated diffs.
type Validator interface {
	Validate(ctx context.Context, repoPath string, diffs []model.FileDiff) (*model.TestReport, error)
}

// Collaborators bundles the injected stage dependencies. Any implementation
// satisfying the interfaces works; tests substitute deterministic stubs.
type Collaborators struct {
	Indexer   Indexer
	Planner   Planner
	Executor  Executor
	Auditor   Auditor
	Validator Validator
}
