// Package output owns the bundle's output directory. A build writes into a
// sibling staging directory while holding an exclusive lock, and only a
// successful build promotes the staging directory to its final name. A
// failed build removes the staging directory and leaves any previous
// output untouched.
package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	cp "github.com/otiai10/copy"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/ctxlog"
)

const (
	maxLockRetries = 50
	lockRetryDelay = 10 * time.Millisecond
)

// Stage is an in-progress output directory.
type Stage struct {
	// Final is the directory the bundle is promoted to.
	Final string
	// Dir is the staging directory builds write into.
	Dir  string
	lock *flock.Flock
	done bool
}

// Open locks final and creates a fresh staging directory next to it. The
// lock file is final + ".lock" so it survives the rename on promotion, and
// it is never deleted.
func Open(ctx context.Context, final string) (*Stage, error) {
	logger := ctxlog.Stage(ctx, "output")
	final, err := filepath.Abs(final)
	if err != nil {
		return nil, fmt.Errorf("resolving output path: %w", err)
	}
	parent := filepath.Dir(final)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating output root %s: %w", parent, err)
	}

	lock := flock.New(final + ".lock")
	locked := false
	for i := 0; i < maxLockRetries; i++ {
		locked, err = lock.TryLock()
		if err != nil {
			return nil, errors.Join(&builderr.OutputLockedError{Path: final}, err)
		}
		if locked {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	if !locked {
		return nil, &builderr.OutputLockedError{Path: final}
	}

	dir, err := os.MkdirTemp(parent, "."+filepath.Base(final)+".staging-*")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	logger.Debug("Output locked and staging directory created.", "final", final, "staging", dir)

	return &Stage{Final: final, Dir: dir, lock: lock}, nil
}

// Commit replaces Final with the staging directory. Rename is tried first;
// when the file system refuses, the tree is copied instead. A single-file
// archive left by an earlier build is removed.
func (s *Stage) Commit(ctx context.Context) error {
	logger := ctxlog.Stage(ctx, "output")
	if s.done {
		return fmt.Errorf("stage for %s already closed", s.Final)
	}

	if err := os.RemoveAll(s.Final); err != nil {
		return fmt.Errorf("removing previous output %s: %w", s.Final, err)
	}
	if err := os.RemoveAll(ArchivePath(s.Final)); err != nil {
		return fmt.Errorf("removing previous archive %s: %w", ArchivePath(s.Final), err)
	}
	if err := os.Rename(s.Dir, s.Final); err != nil {
		logger.Debug("Rename failed, copying staging tree instead.", "error", err)
		if err := cp.Copy(s.Dir, s.Final); err != nil {
			return fmt.Errorf("promoting staging directory to %s: %w", s.Final, err)
		}
	}
	logger.Debug("Staging directory promoted.", "final", s.Final)
	return s.release()
}

// Discard removes the staging directory without touching Final. It is safe
// to call after Commit; it then does nothing.
func (s *Stage) Discard() error {
	if s.done {
		return nil
	}
	return s.release()
}

// release removes the staging directory and unlocks. The lock file stays on
// disk: removing it would let a waiting build and a fresh one lock
// different inodes at the same path.
func (s *Stage) release() error {
	s.done = true
	rmErr := os.RemoveAll(s.Dir)
	unlockErr := s.lock.Unlock()
	return errors.Join(rmErr, unlockErr)
}
