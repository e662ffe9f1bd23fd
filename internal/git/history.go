package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// Tier names the strategy that produced a history.
type Tier string

const (
	TierOriginMain   Tier = "origin/main"
	TierOriginMaster Tier = "origin/master"
	TierMain         Tier = "main"
	TierMaster       Tier = "master"
	TierAllRefs      Tier = "all-refs"
	TierHead         Tier = "head"
)

// DefaultTiers is the resolution order: the remote default branch first so a
// detached checkout never shortens the history, local branches next, then the
// union of every ref, and finally whatever HEAD reaches.
var DefaultTiers = []Tier{
	TierOriginMain,
	TierOriginMaster,
	TierMain,
	TierMaster,
	TierAllRefs,
	TierHead,
}

// ErrEmptyHistory is returned when no tier yields a single commit.
var ErrEmptyHistory = errors.New("repository has no commits")

// History is the linearized, oldest-first commit list of a repository.
type History struct {
	Commits []Commit
	Tier    Tier
	// Degraded is set when only HEAD could be walked; commits on other
	// branches may be missing.
	Degraded bool
}

// Len returns the number of commits.
func (h History) Len() int {
	return len(h.Commits)
}

// At returns the commit with the given 1-based index.
func (h History) At(index int) (Commit, error) {
	if err := CheckIndex(index, len(h.Commits)); err != nil {
		return Commit{}, err
	}
	return h.Commits[index-1], nil
}

// HistoryProvider resolves the authoritative history of a repository.
type HistoryProvider struct {
	tiers  []Tier
	logger *zap.Logger
}

// NewHistoryProvider creates a provider using DefaultTiers.
func NewHistoryProvider(logger *zap.Logger) *HistoryProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryProvider{tiers: DefaultTiers, logger: logger}
}

// FullHistory walks the tiers in order and returns the first non-empty
// history. Falling back to HEAD is reported through History.Degraded and a
// warning, never as an error.
func (p *HistoryProvider) FullHistory(ctx context.Context, repo *gogit.Repository) (History, error) {
	var lastErr error
	for _, tier := range p.tiers {
		if err := ctx.Err(); err != nil {
			return History{}, err
		}

		commits, err := p.walk(repo, tier)
		if err != nil {
			lastErr = err
			p.logger.Debug("history tier unavailable", zap.String("tier", string(tier)), zap.Error(err))
			continue
		}
		if len(commits) == 0 {
			continue
		}

		h := History{Commits: commits, Tier: tier, Degraded: tier == TierHead}
		switch tier {
		case TierHead:
			p.logger.Warn("history resolution degraded: only HEAD reachable commits are used",
				zap.Int("commits", len(commits)))
		case TierAllRefs:
			p.logger.Info("history resolved from all refs", zap.Int("commits", len(commits)))
		default:
			p.logger.Debug("history resolved", zap.String("tier", string(tier)), zap.Int("commits", len(commits)))
		}
		return h, nil
	}

	if lastErr != nil {
		return History{}, fmt.Errorf("%w: %v", ErrEmptyHistory, lastErr)
	}
	return History{}, ErrEmptyHistory
}

func (p *HistoryProvider) walk(repo *gogit.Repository, tier Tier) ([]Commit, error) {
	opts := &gogit.LogOptions{Order: gogit.LogOrderCommitterTime}

	switch tier {
	case TierAllRefs:
		opts.All = true
	case TierHead:
		ref, err := repo.Head()
		if err != nil {
			return nil, err
		}
		opts.From = ref.Hash()
	default:
		hash, err := repo.ResolveRevision(plumbing.Revision(tier))
		if err != nil {
			return nil, err
		}
		opts.From = *hash
	}

	iter, err := repo.Log(opts)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var newestFirst []*object.Commit
	if err := iter.ForEach(func(c *object.Commit) error {
		newestFirst = append(newestFirst, c)
		return nil
	}); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		c := newestFirst[i]
		commits = append(commits, Commit{
			Index:   len(commits) + 1,
			Hash:    c.Hash.String(),
			Message: c.Message,
			Author:  AuthorInfo{Name: c.Author.Name, Email: c.Author.Email},
			When:    c.Committer.When,
		})
	}
	return commits, nil
}
