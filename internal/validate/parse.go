// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package validate

import (
	"regexp"
	"strconv"
	"strings"

	"refactorbot/internal/model"
)

var (
	// go test verbose output
	goPassPattern = regexp.MustCompile(`(?m)^--- PASS:`)
	goFailPattern = regexp.MustCompile(`(?m)^--- FAIL:`)
	goSkipPattern = regexp.MustCompile(`(?m)^--- SKIP:`)

	// vitest / jest summary lines, e.g. "Tests  2 failed | 14 passed (16)"
	// or "Tests: 1 failed, 5 passed, 6 total"
	jsCountPattern = regexp.MustCompile(`(\d+)\s+(passed|failed|skipped)`)
)

// parseOutput extracts pass/fail counts from raw runner output. Counts stay
// zero when the output carries no recognizable summary; the pass rate then
// falls back to the exit code via TestReport.Passed.
func parseOutput(runner, output string) model.TestRunResult {
	var run model.TestRunResult

	switch runner {
	case "go_test":
		run.Passed = len(goPassPattern.FindAllString(output, -1))
		run.Failed = len(goFailPattern.FindAllString(output, -1))
		run.Skipped = len(goSkipPattern.FindAllString(output, -1))
	case "npm_test", "custom":
		for _, m := range jsCountPattern.FindAllStringSubmatch(output, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			switch strings.ToLower(m[2]) {
			case "passed":
				run.Passed = n
			case "failed":
				run.Failed = n
			case "skipped":
				run.Skipped = n
			}
		}
	}
	return run
}
