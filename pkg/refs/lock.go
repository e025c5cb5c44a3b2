package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	lockSuffix      = ".lock"
	lockRetryDelay  = 5 * time.Millisecond
	defaultLockWait = 2 * time.Second
)

// refLock is an exclusively created <ref>.lock file. The new content is
// written into the lock file and renamed over the ref, so readers observe
// either the old or the new content and never a partial write.
type refLock struct {
	path string
	f    *os.File
}

func (s *Store) acquireLock(refPath string) (*refLock, error) {
	lockPath := refPath + lockSuffix
	deadline := time.Now().Add(s.lockWait)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return &refLock{path: lockPath, f: f}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		if time.Now().After(deadline) {
			s.log.Warn("ref lock held past timeout", zap.String("lock", lockPath))
			return nil, fmt.Errorf("%w: timeout waiting for %q", ErrLocked, lockPath)
		}
		time.Sleep(lockRetryDelay)
	}
}

// commit writes content into the lock file and renames it over target.
func (l *refLock) commit(target, content string) error {
	if _, err := l.f.WriteString(content); err != nil {
		l.release()
		return fmt.Errorf("write: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		l.release()
		return fmt.Errorf("sync: %w", err)
	}
	err := l.f.Close()
	l.f = nil
	if err != nil {
		l.release()
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(l.path, target); err != nil {
		l.release()
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// release drops the lock without touching the ref.
func (l *refLock) release() {
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	_ = os.Remove(l.path)
}
