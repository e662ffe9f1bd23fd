package sharedrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/filelock"
	"github.com/masmgr/commitrounds/internal/repokey"
)

// CloneInfo describes a clone directory found under the base directory.
type CloneInfo struct {
	Key       repokey.Key
	Dir       string
	URL       string // empty when the origin cannot be read
	SizeBytes int64
	ModTime   time.Time
	Age       time.Duration
}

// Clones lists the clone directories under the base directory, including
// those created by other processes. It does not take clone locks, so sizes
// of clones being modified are approximate.
func (m *Manager) Clones() ([]CloneInfo, error) {
	entries, err := os.ReadDir(m.opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("read base directory: %w", err)
	}

	now := m.now()
	var out []CloneInfo
	for _, e := range entries {
		if !e.IsDir() || !repokey.IsKeyDir(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}

		dir := filepath.Join(m.opts.BaseDir, e.Name())
		key := repokey.Key(strings.TrimPrefix(e.Name(), repokey.DirPrefix))
		url := m.registeredURL(key)
		if url == "" {
			url = originURL(dir)
		}

		out = append(out, CloneInfo{
			Key:       key,
			Dir:       dir,
			URL:       url,
			SizeBytes: dirSize(dir),
			ModTime:   fi.ModTime(),
			Age:       now.Sub(fi.ModTime()),
		})
	}
	return out, nil
}

// Sweep deletes clones not used for longer than maxAge and returns their
// directories. A clone whose lock is busy is skipped.
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	clones, err := m.Clones()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, c := range clones {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if c.Age <= maxAge {
			continue
		}

		ok, err := m.sweepOne(ctx, c, maxAge)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, c.Dir)
		}
	}
	return removed, nil
}

func (m *Manager) sweepOne(ctx context.Context, c CloneInfo, maxAge time.Duration) (bool, error) {
	lk, err := filelock.Acquire(ctx, c.Dir, filelock.Options{
		Timeout:      m.opts.PollInterval,
		PollInterval: m.opts.PollInterval,
	})
	if errors.Is(err, filelock.ErrTimeout) {
		m.logger.Info("skipping busy clone", zap.String("dir", c.Dir))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", c.Key, err)
	}
	defer m.release(lk)

	// Another process may have used the clone since it was listed.
	fi, err := os.Stat(c.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if m.now().Sub(fi.ModTime()) <= maxAge {
		return false, nil
	}

	if err := os.RemoveAll(c.Dir); err != nil {
		return false, fmt.Errorf("remove %s: %w", c.Dir, err)
	}
	m.forget(c.Key)
	m.metrics.Swept.Inc()
	m.logger.Info("swept shared clone",
		zap.String("dir", c.Dir),
		zap.String("url", c.URL),
		zap.Duration("age", c.Age))
	return true, nil
}

func originURL(dir string) string {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 {
		return ""
	}
	return remote.Config().URLs[0]
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
