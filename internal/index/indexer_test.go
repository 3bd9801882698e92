package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexMissingPathFails(t *testing.T) {
	_, err := New().Index(context.Background(), "/does/not/exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestIndexFileNotDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New().Index(context.Background(), file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestIndexCollectsSourceFiles(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "main.go", "package main\n")
	writeFile(t, repo, "web/app.tsx", "export const App = () => null\n")
	writeFile(t, repo, "README.md", "# docs\n") // not a source file
	writeFile(t, repo, "node_modules/dep/index.js", "module.exports = 1\n")
	writeFile(t, repo, ".git/config", "[core]\n")

	idx, err := New().Index(context.Background(), repo)
	require.NoError(t, err)

	assert.Equal(t, repo, idx.RepoPath)
	require.Len(t, idx.Files, 2)
	assert.True(t, idx.HasFile("main.go"))
	assert.True(t, idx.HasFile("web/app.tsx"))
	assert.False(t, idx.HasFile("README.md"))
	assert.False(t, idx.HasFile("node_modules/dep/index.js"))
}

func TestIndexFileMetadata(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "pkg/util.go", "package util\n")

	idx, err := New().Index(context.Background(), repo)
	require.NoError(t, err)

	info, ok := idx.File("pkg/util.go")
	require.True(t, ok)
	assert.Equal(t, "go", info.Language)
	assert.Len(t, info.Hash, 64, "sha256 hex digest")
	assert.Equal(t, int64(len("package util\n")), info.SizeBytes)
}

func TestIndexExtraExcludes(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "src/a.ts", "export {}\n")
	writeFile(t, repo, "generated/gen.ts", "export {}\n")

	idx, err := New("generated").Index(context.Background(), repo)
	require.NoError(t, err)

	assert.True(t, idx.HasFile("src/a.ts"))
	assert.False(t, idx.HasFile("generated/gen.ts"))
}

func TestIndexExtractsImports(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "app.ts", "import React from \"react\"\nimport { x } from \"./util\"\n")

	idx, err := New().Index(context.Background(), repo)
	require.NoError(t, err)

	info, ok := idx.File("app.ts")
	require.True(t, ok)
	assert.Contains(t, info.Imports, "react")
	assert.Contains(t, info.Imports, "./util")
}

func TestIndexHonorsCancelledContext(t *testing.T) {
	repo := t.TempDir()
	writeFile(t, repo, "main.go", "package main\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Index(ctx, repo)
	assert.Error(t, err)
}
