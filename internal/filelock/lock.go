// Package filelock provides a cross-process mutual exclusion primitive keyed
// by a filesystem path.
//
// The lock lives in a marker file next to the protected path (path + ".lock").
// Where the platform offers an advisory lock (flock on unix, LockFileEx on
// windows) the marker is locked natively; otherwise the marker's existence is
// the lock. Waiting is done by polling at a fixed interval so both flavours
// behave the same way under contention.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds how long Acquire waits for a busy lock.
	DefaultTimeout = 30 * time.Second
	// DefaultPollInterval is the retry interval while the lock is busy.
	DefaultPollInterval = 100 * time.Millisecond

	markerSuffix = ".lock"
)

// ErrTimeout is returned when the lock could not be obtained in time.
var ErrTimeout = errors.New("lock timeout")

var (
	errBusy        = errors.New("lock busy")
	errUnsupported = errors.New("native file locking unsupported")
)

// lockFile takes the native lock on an open marker, returning errBusy when
// another holder has it and errUnsupported when the filesystem cannot lock.
var lockFile = nativeLock

// Options configures Acquire.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Handle is a held lock. Release it exactly once; extra calls are no-ops.
type Handle struct {
	marker string
	file   *os.File // nil when the marker-existence fallback is in use

	mu       sync.Mutex
	released bool
}

// MarkerPath returns the marker file used to lock path.
func MarkerPath(path string) string {
	return path + markerSuffix
}

// Acquire blocks until the lock for path is held, ctx is done, or the timeout
// elapses. A timeout yields an error wrapping ErrTimeout.
func Acquire(ctx context.Context, path string, opts Options) (*Handle, error) {
	opts = opts.withDefaults()
	marker := MarkerPath(path)

	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	deadline := time.Now().Add(opts.Timeout)
	for {
		h, err := tryAcquire(marker)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, errBusy) {
			return nil, fmt.Errorf("acquire %s: %w", marker, err)
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s held longer than %s", ErrTimeout, marker, opts.Timeout)
		}

		timer := time.NewTimer(opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func tryAcquire(marker string) (*Handle, error) {
	f, created, err := openMarker(marker)
	if err != nil {
		return nil, err
	}

	if err := lockFile(f); err != nil {
		if !errors.Is(err, errUnsupported) {
			f.Close()
			return nil, err
		}
		// Without a native lock whoever created the marker holds it.
		if !created {
			f.Close()
			return nil, errBusy
		}
		writeOwner(f)
		f.Close()
		return &Handle{marker: marker}, nil
	}

	// A releaser unlinks the marker before unlocking it; if we locked an
	// unlinked inode, somebody else may already own a fresh marker.
	if !stillLinked(f, marker) {
		_ = unlockFile(f)
		f.Close()
		return nil, errBusy
	}

	writeOwner(f)
	return &Handle{marker: marker, file: f}, nil
}

// openMarker opens the marker, creating it exclusively when absent. created
// reports whether this call made the file.
func openMarker(marker string) (f *os.File, created bool, err error) {
	f, err = os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, false, err
	}

	f, err = os.OpenFile(marker, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		// Released between the two opens.
		return nil, false, errBusy
	}
	if err != nil {
		return nil, false, err
	}
	return f, false, nil
}

func stillLinked(f *os.File, marker string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(marker)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

func writeOwner(f *os.File) {
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
}

// Path returns the marker file path.
func (h *Handle) Path() string {
	return h.marker
}

// Native reports whether the platform lock is in use rather than the
// marker-existence fallback.
func (h *Handle) Native() bool {
	return h.file != nil
}

// Release removes the marker and drops the lock. It is safe to call more than
// once and on a nil handle.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	// Unlink first so that waiters that opened this inode notice it is gone.
	// On windows the removal fails while other processes keep the file open;
	// the marker then simply stays behind unlocked.
	rmErr := os.Remove(h.marker)
	if errors.Is(rmErr, fs.ErrNotExist) {
		rmErr = nil
	}

	if h.file == nil {
		return rmErr
	}
	unlockErr := unlockFile(h.file)
	closeErr := h.file.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", h.marker, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", h.marker, closeErr)
	}
	if rmErr != nil && !nativeKeepsMarker {
		return fmt.Errorf("remove %s: %w", h.marker, rmErr)
	}
	return nil
}
