// Package sharedrepo lets many callers clone, snapshot and diff the same
// remote repository without corrupting each other's checkout.
//
// Every remote URL maps to one clone directory under the manager's base
// directory. All mutations and reads of a clone happen under a file lock
// next to that directory, so goroutines and separate processes sharing the
// base directory are serialized per clone.
package sharedrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/filelock"
	"github.com/masmgr/commitrounds/internal/git"
	"github.com/masmgr/commitrounds/internal/repokey"
)

// DefaultMaxCheckoutAttempts is the number of checkout attempts before a
// snapshot fails verification.
const DefaultMaxCheckoutAttempts = 2

// Options configures a Manager.
type Options struct {
	BaseDir             string
	LockTimeout         time.Duration
	PollInterval        time.Duration
	MaxCheckoutAttempts int
	Logger              *zap.Logger
	Registerer          prometheus.Registerer
}

// Clone is the registry record of a clone used by this process.
type Clone struct {
	Key      repokey.Key
	URL      string
	Dir      string
	ClonedAt time.Time
	LastUsed time.Time
}

// Handle binds a caller to a clone directory. It stays valid for as long as
// the clone exists; operations on it take the clone lock themselves.
type Handle struct {
	Key repokey.Key
	URL string
	Dir string
}

// Manager owns the clones under one base directory.
type Manager struct {
	opts    Options
	logger  *zap.Logger
	metrics *Metrics
	history *git.HistoryProvider

	mu       sync.Mutex
	registry map[repokey.Key]*Clone

	// seams for tests
	clone    func(ctx context.Context, dir, url string) error
	checkout func(wt *gogit.Worktree, hash plumbing.Hash) error
	now      func() time.Time
}

// New creates a manager rooted at opts.BaseDir, creating the directory if
// needed.
func New(opts Options) (*Manager, error) {
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Join(os.TempDir(), "commitrounds")
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = filelock.DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = filelock.DefaultPollInterval
	}
	if opts.MaxCheckoutAttempts <= 0 {
		opts.MaxCheckoutAttempts = DefaultMaxCheckoutAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		metrics:  NewMetrics(opts.Registerer),
		history:  git.NewHistoryProvider(opts.Logger),
		registry: make(map[repokey.Key]*Clone),
		clone:    plainClone,
		checkout: detachedCheckout,
		now:      time.Now,
	}, nil
}

// BaseDir returns the directory holding every clone.
func (m *Manager) BaseDir() string {
	return m.opts.BaseDir
}

// Metrics returns the manager's metric set.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// Registry returns a copy of the clones this manager has handed out.
func (m *Manager) Registry() []Clone {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Clone, 0, len(m.registry))
	for _, c := range m.registry {
		out = append(out, *c)
	}
	return out
}

// lock acquires the clone lock for dir and records the wait time.
func (m *Manager) lock(ctx context.Context, dir string) (*filelock.Handle, error) {
	start := m.now()
	h, err := filelock.Acquire(ctx, dir, filelock.Options{
		Timeout:      m.opts.LockTimeout,
		PollInterval: m.opts.PollInterval,
	})
	m.metrics.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (m *Manager) release(h *filelock.Handle) {
	if err := h.Release(); err != nil {
		m.logger.Warn("release clone lock", zap.String("lock", h.Path()), zap.Error(err))
	}
}

// GetOrClone returns a handle to the shared clone of url, cloning it when no
// valid clone exists. An existing clone whose origin differs from url, or
// that cannot be opened, is deleted and cloned again. With updateToLatest
// the clone is fetched, cleaned and checked out at the default branch tip.
func (m *Manager) GetOrClone(ctx context.Context, url string, updateToLatest bool) (*Handle, error) {
	key := repokey.Derive(url)
	dir := filepath.Join(m.opts.BaseDir, key.DirName())

	lk, err := m.lock(ctx, dir)
	if err != nil {
		m.metrics.CloneRequests.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	defer m.release(lk)

	log := m.logger.With(zap.String("key", key.String()), zap.String("url", url))

	repo, stale, err := m.openExisting(dir, url)
	if err != nil {
		m.metrics.CloneRequests.WithLabelValues(outcomeFailed).Inc()
		return nil, err
	}

	outcome := outcomeReused
	var clonedAt time.Time
	switch {
	case repo != nil:
		log.Debug("reusing shared clone", zap.String("dir", dir))
		if updateToLatest {
			if err := m.syncToLatest(ctx, repo, log); err != nil {
				m.metrics.CloneRequests.WithLabelValues(outcomeFailed).Inc()
				return nil, err
			}
		}
	default:
		outcome = outcomeCloned
		if stale {
			outcome = outcomeRecloned
		}
		if err := m.cloneFresh(ctx, dir, url, log); err != nil {
			m.metrics.CloneRequests.WithLabelValues(outcomeFailed).Inc()
			return nil, err
		}
		clonedAt = m.now()
	}

	m.metrics.CloneRequests.WithLabelValues(outcome).Inc()
	m.remember(key, url, dir, clonedAt)
	m.touch(dir)

	return &Handle{Key: key, URL: url, Dir: dir}, nil
}

// openExisting returns the clone at dir when it is a valid repository whose
// origin serves url. stale reports that a directory existed but had to be
// removed.
func (m *Manager) openExisting(dir, url string) (repo *gogit.Repository, stale bool, err error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}

	repo, reason := openMatching(dir, url)
	if repo != nil {
		return repo, false, nil
	}

	m.logger.Warn("discarding shared clone", zap.String("dir", dir), zap.String("reason", reason))
	if err := os.RemoveAll(dir); err != nil {
		return nil, true, fmt.Errorf("remove stale clone %s: %w", dir, err)
	}
	return nil, true, nil
}

func openMatching(dir, url string) (*gogit.Repository, string) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, "corrupted: " + err.Error()
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return nil, "no origin remote"
	}
	urls := remote.Config().URLs
	if len(urls) == 0 || !remoteMatches(urls[0], url) {
		return nil, "remote mismatch"
	}
	return repo, ""
}

// cloneFresh clones url into dir, retrying once over HTTPS when an SSH clone
// fails with a transport signature.
func (m *Manager) cloneFresh(ctx context.Context, dir, url string, log *zap.Logger) error {
	candidates := cloneCandidates(url)

	var lastErr error
	for i, candidate := range candidates {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("%w: clear %s: %v", ErrCloneFailed, dir, err)
		}

		err := m.clone(ctx, dir, candidate)
		if err == nil {
			if i > 0 {
				log.Info("cloned over https fallback", zap.String("https_url", candidate))
			} else {
				log.Info("cloned shared repository", zap.String("dir", dir))
			}
			return nil
		}

		lastErr = err
		if ctx.Err() != nil || !retryOverHTTPS(err) {
			break
		}
		log.Warn("ssh clone failed, retrying over https", zap.Error(err))
	}

	_ = os.RemoveAll(dir)
	return fmt.Errorf("%w: %s: %v", ErrCloneFailed, url, lastErr)
}

func plainClone(ctx context.Context, dir, url string) error {
	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{URL: url})
	return err
}

// syncToLatest fetches origin, discards local changes and checks out the
// default branch tip. A failed fetch keeps the clone at its current state.
func (m *Manager) syncToLatest(ctx context.Context, repo *gogit.Repository, log *zap.Logger) error {
	err := repo.FetchContext(ctx, &gogit.FetchOptions{RemoteName: "origin", Force: true})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("fetch failed, using existing clone", zap.Error(err))
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := discardChanges(wt); err != nil {
		return err
	}

	tip, branch, err := defaultBranchTip(repo)
	if err != nil {
		return err
	}
	if err := m.checkoutVerified(repo, wt, tip); err != nil {
		return err
	}
	log.Debug("updated shared clone", zap.String("branch", branch), zap.String("commit", tip.String()))
	return nil
}

// defaultBranchNames is the resolution order for the default branch tip.
var defaultBranchNames = []string{"origin/main", "origin/master", "main", "master"}

func defaultBranchTip(repo *gogit.Repository) (plumbing.Hash, string, error) {
	for _, name := range defaultBranchNames {
		hash, err := repo.ResolveRevision(plumbing.Revision(name))
		if err == nil {
			return *hash, name, nil
		}
	}
	ref, err := repo.Head()
	if err != nil {
		return plumbing.ZeroHash, "", fmt.Errorf("resolve default branch: %w", err)
	}
	return ref.Hash(), "HEAD", nil
}

func (m *Manager) remember(key repokey.Key, url, dir string, clonedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.registry[key]
	if !ok {
		c = &Clone{Key: key, Dir: dir, ClonedAt: clonedAt}
		m.registry[key] = c
	}
	if !clonedAt.IsZero() {
		c.ClonedAt = clonedAt
	}
	c.URL = url
	c.LastUsed = now
}

func (m *Manager) forget(key repokey.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registry, key)
}

func (m *Manager) registeredURL(key repokey.Key) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.registry[key]; ok {
		return c.URL
	}
	return ""
}

// touch bumps the clone directory's mtime; the sweep measures age from it so
// usage by other processes counts too.
func (m *Manager) touch(dir string) {
	now := m.now()
	if err := os.Chtimes(dir, now, now); err != nil {
		m.logger.Debug("touch clone", zap.String("dir", dir), zap.Error(err))
	}
}
