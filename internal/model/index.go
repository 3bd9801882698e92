// Copyright (c) 2025 Refactorbot Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package model

// FileInfo is per-file metadata collected by the indexer.
type FileInfo struct {
	FilePath     string // Absolute path
	RelativePath string // Relative to repo root
	Language     string // "go", "typescript", "javascript", ...
	Hash         string // SHA256 of file content
	Imports      []string
	SizeBytes    int64
}

// RepoIndex is the repository snapshot later stages consult for target
// lookups and context.
type RepoIndex struct {
	RepoPath string
	Files    []FileInfo

	byRelPath map[string]int
}

// NewRepoIndex builds an index with the relative-path lookup populated.
func NewRepoIndex(repoPath string, files []FileInfo) *RepoIndex {
	idx := &RepoIndex{RepoPath: repoPath, Files: files}
	idx.byRelPath = make(map[string]int, len(files))
	for i, f := range files {
		idx.byRelPath[f.RelativePath] = i
	}
	return idx
}

// HasFile reports whether the given repo-relative path is indexed.
func (idx *RepoIndex) HasFile(relPath string) bool {
	_, ok := idx.byRelPath[relPath]
	return ok
}

// File returns the indexed metadata for a repo-relative path.
func (idx *RepoIndex) File(relPath string) (FileInfo, bool) {
	i, ok := idx.byRelPath[relPath]
	if !ok {
		return FileInfo{}, false
	}
	return idx.Files[i], true
}
