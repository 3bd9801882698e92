// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"refactorbot/internal/model"
)

const maxDirectiveLength = 2000

// Planner decomposes a directive into a task graph via the prompt client.
type Planner struct {
	client PromptClient
}

// NewPlanner creates a planner backed by the given prompt client.
func NewPlanner(client PromptClient) *Planner {
	return &Planner{client: client}
}

type plannedTask struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Files        []string `json:"files"`
	Dependencies []string `json:"dependencies"`
}

// ValidateDirective rejects directives the planner should never see. Called
// by the CLI before a run starts.
func ValidateDirective(directive string) error {
	trimmed := strings.TrimSpace(directive)
	if trimmed == "" {
		return fmt.Errorf("directive cannot be empty or whitespace-only")
	}
	if len(directive) > maxDirectiveLength {
		return fmt.Errorf("directive exceeds %d characters", maxDirectiveLength)
	}
	return nil
}

// Plan sends the directive plus index summary and parses the returned task
// list. Returns an error on empty plans; graph-level validation is the
// pipeline's job.
func (p *Planner) Plan(ctx context.Context, directive string, idx *model.RepoIndex) ([]model.Task, error) {
	prompt := buildPlanPrompt(directive, idx)

	raw, err := p.client.Prompt(ctx, "plan: "+truncate(directive, 60), prompt)
	if err != nil {
		return nil, fmt.Errorf("planner prompt failed: %w", err)
	}

	var planned []plannedTask
	if err := json.Unmarshal([]byte(extractJSON(raw)), &planned); err != nil {
		return nil, fmt.Errorf("failed to parse plan response: %w", err)
	}
	if len(planned) == 0 {
		return nil, fmt.Errorf("planner returned no tasks")
	}

	tasks := make([]model.Task, 0, len(planned))
	for _, pt := range planned {
		tasks = append(tasks, model.Task{
			ID:            pt.ID,
			Description:   pt.Description,
			AffectedFiles: pt.Files,
			Dependencies:  pt.Dependencies,
			Status:        model.StatusPending,
		})
	}
	return tasks, nil
}

func buildPlanPrompt(directive string, idx *model.RepoIndex) string {
	var sb strings.Builder
	sb.WriteString("Decompose the following refactoring directive into an ordered list of tasks.\n")
	sb.WriteString("Respond with a JSON array of objects with fields: id, description, files, dependencies.\n")
	sb.WriteString("Dependencies must reference ids from the same list. Files must exist in the repository.\n\n")
	sb.WriteString("Directive: " + directive + "\n\nRepository files:\n")
	for _, f := range idx.Files {
		sb.WriteString("- " + f.RelativePath + " (" + f.Language + ")\n")
	}
	return sb.String()
}

// extractJSON strips markdown fencing so responses like ```json ... ``` still
// parse.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
