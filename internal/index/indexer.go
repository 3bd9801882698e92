// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package index implements the repository indexing collaborator: a
// filesystem walk that records per-file metadata for target lookups.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"refactorbot/internal/model"
)

// defaultExcludes are directory names skipped during the walk.
var defaultExcludes = []string{
	".git", "node_modules", "dist", "build", "vendor", ".next", "coverage",
}

var languageByExt = map[string]string{
	".go":  "go",
	".js":  "javascript",
	".jsx": "jsx",
	".ts":  "typescript",
	".tsx": "tsx",
	".py":  "python",
}

// importPattern matches JS/TS import sources and Go single-line imports.
// Good enough for target lookups; full parsing is out of scope here.
var importPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:[^"']*from\s+)?["']([^"']+)["']|^\s*import\s+"([^"]+)"`)

// Indexer walks a repository and produces a RepoIndex.
type Indexer struct {
	excludes map[string]bool
}

// New creates an indexer. Extra exclude directory names are added to the
// defaults.
func New(extraExcludes ...string) *Indexer {
	ex := make(map[string]bool, len(defaultExcludes)+len(extraExcludes))
	for _, e := range defaultExcludes {
		ex[e] = true
	}
	for _, e := range extraExcludes {
		ex[e] = true
	}
	return &Indexer{excludes: ex}
}

// Index walks repoPath and returns the repository snapshot.
func (ix *Indexer) Index(ctx context.Context, repoPath string) (*model.RepoIndex, error) {
	info, err := os.Stat(repoPath)
	if err != nil {
		return nil, fmt.Errorf("repository path not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path %s is not a directory", repoPath)
	}

	var files []model.FileInfo
	err = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if ix.excludes[d.Name()] && path != repoPath {
				return filepath.SkipDir
			}
			return nil
		}

		lang, ok := languageByExt[filepath.Ext(path)]
		if !ok {
			return nil
		}

		fi, err := ix.indexFile(repoPath, path, lang)
		if err != nil {
			// A single unreadable file does not fail the whole index.
			return nil
		}
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	return model.NewRepoIndex(repoPath, files), nil
}

func (ix *Indexer) indexFile(repoPath, path, lang string) (model.FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FileInfo{}, err
	}

	rel, err := filepath.Rel(repoPath, path)
	if err != nil {
		return model.FileInfo{}, err
	}

	sum := sha256.Sum256(data)

	return model.FileInfo{
		FilePath:     path,
		RelativePath: filepath.ToSlash(rel),
		Language:     lang,
		Hash:         hex.EncodeToString(sum[:]),
		Imports:      extractImports(string(data)),
		SizeBytes:    int64(len(data)),
	}, nil
}

func extractImports(src string) []string {
	var out []string
	for _, m := range importPattern.FindAllStringSubmatch(src, -1) {
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				out = append(out, g)
			}
		}
	}
	return out
}
