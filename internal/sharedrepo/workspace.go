package sharedrepo

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"

	"github.com/masmgr/commitrounds/internal/git"
)

// Workspace is a handle-bound view of a clone. Each call takes the clone lock,
// so reads are ordered with checkouts issued by other callers.
type Workspace struct {
	m         *Manager
	h         *Handle
	extractor *git.Extractor
}

// Workspace returns a view of h that extracts deltas with extractor.
func (m *Manager) Workspace(h *Handle, extractor *git.Extractor) *Workspace {
	return &Workspace{m: m, h: h, extractor: extractor}
}

// Handle returns the clone handle the workspace is bound to.
func (w *Workspace) Handle() *Handle {
	return w.h
}

// History resolves the clone's authoritative history.
func (w *Workspace) History(ctx context.Context) (git.History, error) {
	var history git.History
	err := w.withRepo(ctx, func(repo *gogit.Repository) error {
		var err error
		history, err = w.m.history.FullHistory(ctx, repo)
		return err
	})
	return history, err
}

// Delta returns the changes introduced by the commit at index.
func (w *Workspace) Delta(ctx context.Context, index int) (git.CommitDelta, error) {
	var delta git.CommitDelta
	err := w.withRepo(ctx, func(repo *gogit.Repository) error {
		history, err := w.m.history.FullHistory(ctx, repo)
		if err != nil {
			return fmt.Errorf("resolve history: %w", err)
		}
		delta, err = w.extractor.Delta(ctx, repo, history, index)
		return err
	})
	return delta, err
}

// Checkout puts the working tree at the commit with the given index.
func (w *Workspace) Checkout(ctx context.Context, index int) (git.Commit, error) {
	return w.m.CheckoutSnapshot(ctx, w.h, index)
}

func (w *Workspace) withRepo(ctx context.Context, fn func(*gogit.Repository) error) error {
	lk, err := w.m.lock(ctx, w.h.Dir)
	if err != nil {
		return fmt.Errorf("lock %s: %w", w.h.Key, err)
	}
	defer w.m.release(lk)

	repo, err := gogit.PlainOpen(w.h.Dir)
	if err != nil {
		return fmt.Errorf("open clone %s: %w", w.h.Dir, err)
	}
	return fn(repo)
}
