package indexstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WorkspaceLock is a cross-process advisory lock guarding exclusive
// operations (rebuild, snapshot restore, init) against concurrent
// mutation of the same data directory. Works on Unix and Windows.
type WorkspaceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWorkspaceLock returns a lock rooted at <dataDir>/.lock.
func NewWorkspaceLock(dataDir string) *WorkspaceLock {
	path := filepath.Join(dataDir, ".lock")
	return &WorkspaceLock{path: path, flock: flock.New(path)}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *WorkspaceLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns
// false, nil if another process already holds it.
func (l *WorkspaceLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when the
// lock was never acquired.
func (l *WorkspaceLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file's path.
func (l *WorkspaceLock) Path() string { return l.path }
