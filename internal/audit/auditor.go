// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package audit implements the consistency auditing collaborator: rule
// checks over a task's diffs, with error-severity findings failing the audit.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"refactorbot/internal/model"
)

// oversizedDiffLines is the changed-line count above which a diff draws a
// warning finding.
const oversizedDiffLines = 400

// Auditor checks diffs for structural problems before they are accepted.
type Auditor struct{}

// New creates an auditor.
func New() *Auditor {
	return &Auditor{}
}

// Audit runs every rule over the diffs and aggregates the findings.
// Passed is true only when no error-severity finding was raised.
func (a *Auditor) Audit(ctx context.Context, diffs []model.FileDiff, idx *model.RepoIndex) (*model.AuditReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []model.AuditFinding
	seq := 0
	add := func(f model.AuditFinding) {
		seq++
		f.FindingID = fmt.Sprintf("AF-%03d", seq)
		findings = append(findings, f)
	}

	for _, d := range diffs {
		checkTargetContainment(d, idx, add)
		checkOrphanedImports(d, add)
		checkOversized(d, add)
	}

	report := &model.AuditReport{
		Findings:     findings,
		DiffsAudited: len(diffs),
		AuditedAt:    time.Now(),
	}
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityError:
			report.ErrorCount++
		case model.SeverityWarning:
			report.WarningCount++
		}
	}
	report.Passed = report.ErrorCount == 0
	return report, nil
}

// checkTargetContainment flags diffs against files the index has never seen.
// New files are allowed only when the diff carries no original content.
func checkTargetContainment(d model.FileDiff, idx *model.RepoIndex, add func(model.AuditFinding)) {
	if idx == nil || idx.HasFile(d.FilePath) {
		return
	}
	if d.OriginalContent == "" {
		return
	}
	add(model.AuditFinding{
		FilePath:    d.FilePath,
		FindingType: "target_containment",
		Severity:    model.SeverityError,
		Description: "diff modifies a file absent from the repository index",
	})
}

// checkOrphanedImports flags imports that survived into the modified content
// although the imported symbol's last use was removed. Heuristic: an import
// line present after the change whose module name no longer appears anywhere
// else in the file.
func checkOrphanedImports(d model.FileDiff, add func(model.AuditFinding)) {
	for _, line := range strings.Split(d.ModifiedContent, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "import ") {
			continue
		}
		name := importedName(trimmed)
		if name == "" {
			continue
		}
		rest := strings.Replace(d.ModifiedContent, line, "", 1)
		if !strings.Contains(rest, name) {
			add(model.AuditFinding{
				FilePath:    d.FilePath,
				FindingType: "orphaned_import",
				Severity:    model.SeverityError,
				Description: fmt.Sprintf("import %q is no longer referenced", name),
				Evidence:    trimmed,
			})
		}
	}
}

func checkOversized(d model.FileDiff, add func(model.AuditFinding)) {
	changed := 0
	for _, line := range strings.Split(d.DiffText, "\n") {
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			changed++
		}
	}
	if changed > oversizedDiffLines {
		add(model.AuditFinding{
			FilePath:    d.FilePath,
			FindingType: "oversized_diff",
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("diff changes %d lines, above the %d line review limit", changed, oversizedDiffLines),
		})
	}
}

// importedName extracts the bound name from a JS/TS-style default import or
// a Go-style quoted import.
func importedName(line string) string {
	if i := strings.Index(line, "\""); i >= 0 {
		rest := line[i+1:]
		if j := strings.Index(rest, "\""); j >= 0 {
			path := rest[:j]
			if k := strings.LastIndex(path, "/"); k >= 0 {
				return path[k+1:]
			}
			return path
		}
	}
	fields := strings.Fields(line)
	if len(fields) >= 2 && fields[0] == "import" && fields[1] != "{" {
		return strings.TrimSuffix(fields[1], ",")
	}
	return ""
}
