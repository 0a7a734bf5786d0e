// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gitrepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[workspace]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := worktree.Add("Cargo.toml"); err != nil {
		t.Fatal(err)
	}
	_, err = worktree.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestOpenHeadHash(t *testing.T) {
	dir := setupRepo(t)
	repo, err := Open(t.Context(), dir)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := HeadHash(t.Context(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(hash) != 40 {
		t.Errorf("HeadHash = %q, want a 40-character hash", hash)
	}
}

func TestOpenNotARepository(t *testing.T) {
	if _, err := Open(t.Context(), t.TempDir()); err == nil {
		t.Error("expected an error for a directory with no repository")
	}
}

func TestIsClean(t *testing.T) {
	dir := setupRepo(t)
	repo, err := Open(t.Context(), dir)
	if err != nil {
		t.Fatal(err)
	}
	clean, err := IsClean(t.Context(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if !clean {
		t.Error("fresh commit should leave a clean tree")
	}
	if err := os.WriteFile(filepath.Join(dir, "dirty.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	clean, err = IsClean(t.Context(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if clean {
		t.Error("untracked file should dirty the tree")
	}
}
