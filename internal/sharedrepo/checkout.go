package sharedrepo

import (
	"context"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/git"
)

// CheckoutSnapshot puts the clone's working tree at the commit with the given
// 1-based index of the authoritative history. Uncommitted changes are
// discarded first and HEAD ends up detached; no branch is created, moved or
// deleted.
func (m *Manager) CheckoutSnapshot(ctx context.Context, h *Handle, index int) (git.Commit, error) {
	lk, err := m.lock(ctx, h.Dir)
	if err != nil {
		return git.Commit{}, fmt.Errorf("lock %s: %w", h.Key, err)
	}
	defer m.release(lk)

	commit, err := m.checkoutLocked(ctx, h, index)
	if err != nil {
		return git.Commit{}, err
	}
	m.remember(h.Key, h.URL, h.Dir, time.Time{})
	m.touch(h.Dir)
	return commit, nil
}

func (m *Manager) checkoutLocked(ctx context.Context, h *Handle, index int) (git.Commit, error) {
	repo, err := gogit.PlainOpen(h.Dir)
	if err != nil {
		return git.Commit{}, fmt.Errorf("open clone %s: %w", h.Dir, err)
	}

	history, err := m.history.FullHistory(ctx, repo)
	if err != nil {
		return git.Commit{}, fmt.Errorf("resolve history: %w", err)
	}
	commit, err := history.At(index)
	if err != nil {
		return git.Commit{}, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return git.Commit{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := discardChanges(wt); err != nil {
		return git.Commit{}, err
	}

	if err := m.checkoutVerified(repo, wt, plumbing.NewHash(commit.Hash)); err != nil {
		return git.Commit{}, err
	}

	m.logger.Debug("checked out snapshot",
		zap.String("key", h.Key.String()),
		zap.Int("index", index),
		zap.String("commit", commit.ShortHash()))
	return commit, nil
}

// checkoutVerified checks out target and confirms HEAD names it. A failed
// attempt is followed by a recovery checkout of the default branch tip
// before the next attempt.
func (m *Manager) checkoutVerified(repo *gogit.Repository, wt *gogit.Worktree, target plumbing.Hash) error {
	var lastErr error
	for attempt := 1; attempt <= m.opts.MaxCheckoutAttempts; attempt++ {
		lastErr = m.checkout(wt, target)
		if lastErr == nil {
			lastErr = verifyHead(repo, target)
		}
		if lastErr == nil {
			if attempt == 1 {
				m.metrics.Checkouts.WithLabelValues(outcomeOK).Inc()
			} else {
				m.metrics.Checkouts.WithLabelValues(outcomeRecovered).Inc()
			}
			return nil
		}

		m.logger.Warn("checkout attempt failed",
			zap.Int("attempt", attempt),
			zap.String("target", target.String()),
			zap.Error(lastErr))
		if attempt < m.opts.MaxCheckoutAttempts {
			m.recoverHead(repo, wt)
		}
	}

	m.metrics.Checkouts.WithLabelValues(outcomeFailed).Inc()
	return fmt.Errorf("%w: %s: %v", ErrCheckoutVerificationFailed, target, lastErr)
}

// recoverHead returns the working tree to a known state: the default branch
// tip, with local changes discarded.
func (m *Manager) recoverHead(repo *gogit.Repository, wt *gogit.Worktree) {
	tip, _, err := defaultBranchTip(repo)
	if err != nil {
		m.logger.Debug("recover head: no default branch", zap.Error(err))
		return
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: tip, Force: true}); err != nil {
		m.logger.Debug("recover head: checkout failed", zap.Error(err))
	}
	if err := discardChanges(wt); err != nil {
		m.logger.Debug("recover head: clean failed", zap.Error(err))
	}
}

func verifyHead(repo *gogit.Repository, target plumbing.Hash) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("read HEAD: %w", err)
	}
	if head.Hash() != target {
		return fmt.Errorf("HEAD is %s", head.Hash())
	}
	return nil
}

func detachedCheckout(wt *gogit.Worktree, hash plumbing.Hash) error {
	return wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true})
}

// discardChanges reverts tracked changes and removes untracked files.
func discardChanges(wt *gogit.Worktree) error {
	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("reset worktree: %w", err)
	}
	if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("clean worktree: %w", err)
	}
	return nil
}
