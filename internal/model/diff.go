// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package model

// FileDiff is a unified diff for a single file, tagged with the task that
// produced it.
type FileDiff struct {
	FilePath        string // Relative path from repo root
	OriginalContent string
	ModifiedContent string
	DiffText        string // Unified diff output (git-compatible)
	TaskID          string // Which task generated this diff
}

// DiffsForTask filters diffs down to those produced by the given task.
func DiffsForTask(diffs []FileDiff, taskID string) []FileDiff {
	out := make([]FileDiff, 0, len(diffs))
	for _, d := range diffs {
		if d.TaskID == taskID {
			out = append(out, d)
		}
	}
	return out
}
