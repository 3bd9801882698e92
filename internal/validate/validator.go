// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package validate implements the test validation collaborator: it stages
// the accumulated diffs into a scratch copy of the repository, runs the test
// suite there, and reports the pass rate.
package validate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfield/script"

	"refactorbot/internal/model"
)

// CommandRunner executes a shell command against a repo checkout and returns
// the exit code and combined output. The sandbox package provides the Docker
// implementation; the default runs locally through bitfield/script.
type CommandRunner interface {
	Run(ctx context.Context, repoPath, command string) (int, string, error)
}

// Validator runs the repository's tests against accumulated diffs.
type Validator struct {
	testCommand string // empty means detect per repo
	runner      CommandRunner
}

// Option configures a Validator.
type Option func(*Validator)

// WithCommand pins the test command instead of detecting one.
func WithCommand(cmd string) Option {
	return func(v *Validator) { v.testCommand = cmd }
}

// WithRunner substitutes the command runner (e.g. the Docker sandbox).
func WithRunner(r CommandRunner) Option {
	return func(v *Validator) { v.runner = r }
}

// New creates a validator. By default it detects the test runner and runs it
// locally.
func New(opts ...Option) *Validator {
	v := &Validator{runner: localRunner{}}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate copies the repo to a scratch directory, applies the diffs, and
// runs the detected test command there. A repo with no detectable runner
// reports pass without evidence rather than failing the run.
func (v *Validator) Validate(ctx context.Context, repoPath string, diffs []model.FileDiff) (*model.TestReport, error) {
	runner, command := v.resolveCommand(repoPath)
	if command == "" {
		return &model.TestReport{
			Passed:          true,
			Run:             model.TestRunResult{Runner: "none"},
			RunnerAvailable: false,
			TestedAt:        time.Now(),
		}, nil
	}

	scratch, err := stageDiffs(repoPath, diffs)
	if err != nil {
		return nil, fmt.Errorf("failed to stage diffs: %w", err)
	}
	defer os.RemoveAll(scratch)

	start := time.Now()
	exitCode, output, err := v.runner.Run(ctx, scratch, command)
	if err != nil {
		return nil, fmt.Errorf("test command failed to run: %w", err)
	}

	run := parseOutput(runner, output)
	run.Runner = runner
	run.ExitCode = exitCode
	run.Stdout = output
	run.Duration = time.Since(start)

	return &model.TestReport{
		Passed:          exitCode == 0,
		Run:             run,
		RunnerAvailable: true,
		TestedAt:        time.Now(),
	}, nil
}

func (v *Validator) resolveCommand(repoPath string) (runner, command string) {
	if v.testCommand != "" {
		return "custom", v.testCommand
	}
	if _, err := os.Stat(filepath.Join(repoPath, "go.mod")); err == nil {
		// -v is required: the parser counts per-test "--- PASS:" markers,
		// which go test only prints in verbose mode.
		return "go_test", "go test -v ./..."
	}
	if _, err := os.Stat(filepath.Join(repoPath, "package.json")); err == nil {
		// -- --run keeps vitest to a single run instead of watch mode.
		return "npm_test", "npm test --silent -- --run"
	}
	return "", ""
}

// stageDiffs copies the repository into a temp directory and overwrites each
// diffed file with its modified content. The working checkout is never
// touched by validation.
func stageDiffs(repoPath string, diffs []model.FileDiff) (string, error) {
	scratch, err := os.MkdirTemp("", "refactorbot-validate-")
	if err != nil {
		return "", err
	}

	err = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(scratch, rel), 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(scratch, rel), data, 0o644)
	})
	if err != nil {
		os.RemoveAll(scratch)
		return "", err
	}

	for _, diff := range diffs {
		target := filepath.Join(scratch, filepath.FromSlash(diff.FilePath))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			os.RemoveAll(scratch)
			return "", err
		}
		if err := os.WriteFile(target, []byte(diff.ModifiedContent), 0o644); err != nil {
			os.RemoveAll(scratch)
			return "", err
		}
	}
	return scratch, nil
}

// localRunner executes commands on the host through bitfield/script.
type localRunner struct{}

func (localRunner) Run(ctx context.Context, repoPath, command string) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return -1, "", err
	}
	p := script.Exec("sh -c " + shellQuote("cd "+repoPath+" && "+command))
	output, _ := p.String()
	return p.ExitStatus(), output, nil
}

// shellQuote single-quotes s for sh -c, escaping any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
