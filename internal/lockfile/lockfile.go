// Package lockfile guards a sync run with an advisory file lock, so two
// kpsync invocations never write the same databases at once.
//
// The lock is an explicit resource handle: callers acquire it before the
// executor runs and release it on every exit path, typically with defer.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is a held (or released) run lock.
type Lock struct {
	fl   *flock.Flock
	held bool
}

// Acquire try-locks the file at path, creating parent directories as
// needed. It does not block: if another process holds the lock, Acquire
// fails immediately with an error naming the path.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another kpsync run holds the lock at %s", path)
	}

	return &Lock{fl: fl, held: true}, nil
}

// Held reports whether the lock is currently held.
func (l *Lock) Held() bool {
	return l != nil && l.held
}

// Release unlocks. Safe to call more than once and on failure paths.
func (l *Lock) Release() error {
	if l == nil || !l.held {
		return nil
	}
	l.held = false
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
