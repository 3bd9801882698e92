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

// Executor turns one task into file diffs via the prompt client.
type Executor struct {
	client PromptClient
}

// NewExecutor creates an executor backed by the given prompt client.
func NewExecutor(client PromptClient) *Executor {
	return &Executor{client: client}
}

type producedDiff struct {
	FilePath        string `json:"file_path"`
	OriginalContent string `json:"original_content"`
	ModifiedContent string `json:"modified_content"`
	DiffText        string `json:"diff_text"`
}

// Execute sends the task, its file contents, and any retry feedback, then
// parses the returned diffs. The pipeline stamps TaskID on each diff.
func (e *Executor) Execute(ctx context.Context, task model.Task, idx *model.RepoIndex, feedback []string) ([]model.FileDiff, error) {
	prompt := buildExecutePrompt(task, idx, feedback)

	raw, err := e.client.Prompt(ctx, "execute: "+task.ID, prompt)
	if err != nil {
		return nil, fmt.Errorf("executor prompt failed for task %s: %w", task.ID, err)
	}

	var produced []producedDiff
	if err := json.Unmarshal([]byte(extractJSON(raw)), &produced); err != nil {
		return nil, fmt.Errorf("failed to parse executor response for task %s: %w", task.ID, err)
	}

	diffs := make([]model.FileDiff, 0, len(produced))
	for _, d := range produced {
		diffs = append(diffs, model.FileDiff{
			FilePath:        d.FilePath,
			OriginalContent: d.OriginalContent,
			ModifiedContent: d.ModifiedContent,
			DiffText:        d.DiffText,
			TaskID:          task.ID,
		})
	}
	return diffs, nil
}

func buildExecutePrompt(task model.Task, idx *model.RepoIndex, feedback []string) string {
	var sb strings.Builder
	sb.WriteString("Apply the following change and respond with a JSON array of diffs\n")
	sb.WriteString("(fields: file_path, original_content, modified_content, diff_text).\n\n")
	sb.WriteString("Task " + task.ID + ": " + task.Description + "\n")

	if len(task.AffectedFiles) > 0 {
		sb.WriteString("\nAffected files:\n")
		for _, f := range task.AffectedFiles {
			sb.WriteString("- " + f + "\n")
			if info, ok := idx.File(f); ok {
				sb.WriteString(fmt.Sprintf("  (%s, %d bytes)\n", info.Language, info.SizeBytes))
			}
		}
	}

	if len(feedback) > 0 {
		sb.WriteString("\nThe previous attempt failed. Feedback:\n")
		for _, note := range feedback {
			sb.WriteString("- " + note + "\n")
		}
	}
	return sb.String()
}
