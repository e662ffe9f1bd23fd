// Package gittest builds throwaway repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a non-bare repository in a temporary directory.
type Repo struct {
	t    testing.TB
	Dir  string
	Repo *gogit.Repository

	clock time.Time
}

// Init creates a repository whose default branch is "master".
func Init(t testing.TB) *Repo {
	return InitWithBranch(t, "master")
}

// InitWithBranch creates a repository whose first commit lands on branch.
func InitWithBranch(t testing.TB, branch string) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	if err != nil {
		t.Fatalf("Failed to initialize git repo: %v", err)
	}

	return &Repo{
		t:     t,
		Dir:   dir,
		Repo:  repo,
		clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Write creates or overwrites a file in the worktree.
func (r *Repo) Write(name, content string) {
	r.t.Helper()
	r.WriteBytes(name, []byte(content))
}

// WriteBytes creates or overwrites a file with raw content.
func (r *Repo) WriteBytes(name string, content []byte) {
	r.t.Helper()

	p := filepath.Join(r.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		r.t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		r.t.Fatalf("Failed to write file: %v", err)
	}
}

// Remove deletes a file from the worktree.
func (r *Repo) Remove(name string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.Dir, filepath.FromSlash(name))); err != nil {
		r.t.Fatalf("Failed to remove file: %v", err)
	}
}

// Commit stages every change in the worktree and commits it. Each commit is
// one minute after the previous one so history order is deterministic.
func (r *Repo) Commit(message string) plumbing.Hash {
	r.t.Helper()

	w, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}
	if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		r.t.Fatalf("Failed to add files: %v", err)
	}

	r.clock = r.clock.Add(time.Minute)
	sig := &object.Signature{Name: "Test Author", Email: "test@example.com", When: r.clock}
	hash, err := w.Commit(message, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash
}

// CommitFiles writes files and commits them in one step.
func (r *Repo) CommitFiles(message string, files map[string]string) plumbing.Hash {
	r.t.Helper()
	for name, content := range files {
		r.Write(name, content)
	}
	return r.Commit(message)
}

// Linear creates n commits, each adding file<i>.txt with i+1 lines.
func (r *Repo) Linear(n int) []plumbing.Hash {
	r.t.Helper()

	hashes := make([]plumbing.Hash, 0, n)
	for i := 1; i <= n; i++ {
		content := strings.Repeat("line\n", i+1)
		hashes = append(hashes, r.CommitFiles("commit "+strconv.Itoa(i), map[string]string{
			"file" + strconv.Itoa(i) + ".txt": content,
		}))
	}
	return hashes
}

// Detach checks out hash with a detached HEAD.
func (r *Repo) Detach(hash plumbing.Hash) {
	r.t.Helper()

	w, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}
	if err := w.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		r.t.Fatalf("Failed to checkout %s: %v", hash, err)
	}
}

// Head returns the commit HEAD points to.
func (r *Repo) Head() plumbing.Hash {
	r.t.Helper()

	ref, err := r.Repo.Head()
	if err != nil {
		r.t.Fatalf("Failed to resolve HEAD: %v", err)
	}
	return ref.Hash()
}
