package refs

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/object"
)

// MaxSymbolicHops bounds the length of a symbolic chain.
const MaxSymbolicHops = 32

// Well-known top-level refs. They live beside refs/ rather than under it and
// are always considered by Iter.
const (
	HEAD      = "HEAD"
	MergeHead = "MERGE_HEAD"
)

var seedRefs = []string{HEAD, MergeHead}

// Store reads and writes refs stored as one file per ref under a repository
// directory: HEAD, MERGE_HEAD and refs/**.
//
// Writes to different refs are independent. Concurrent writes to the same ref
// are serialized by a lock file, and the last writer wins.
type Store struct {
	root     string
	log      *zap.Logger
	lockWait time.Duration
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLockTimeout sets how long a write waits for another writer's lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockWait = d }
}

func NewStore(root string, opts ...Option) *Store {
	s := &Store{root: root, log: zap.NewNop(), lockWait: defaultLockWait}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateName checks that name is a relative, slash separated ref path that
// stays inside the repository directory.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "\\\x00\n\r") || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." || strings.HasSuffix(part, lockSuffix) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Get returns the value of the named ref. With deref, symbolic refs are
// followed until a direct or absent value is reached. Without deref, a
// symbolic ref is returned as is. A ref with no file is Absent, not an error.
func (s *Store) Get(name string, deref bool) (Value, error) {
	_, v, err := s.resolve(name, deref)
	return v, err
}

// Update writes v to the named ref. With deref, an existing symbolic chain
// starting at name is followed and the ref at its end is written instead.
func (s *Store) Update(name string, v Value, deref bool) error {
	content, err := encode(v)
	if err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("update ref: %w", err)
	}

	terminal, _, err := s.resolve(name, deref)
	if err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}

	refPath := s.path(terminal)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", terminal, object.StorageError("update ref", err))
	}
	lock, err := s.acquireLock(refPath)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return fmt.Errorf("update ref %q: %w", terminal, err)
		}
		return fmt.Errorf("update ref %q: lock: %w", terminal, object.StorageError("update ref", err))
	}
	if err := lock.commit(refPath, content+"\n"); err != nil {
		return fmt.Errorf("update ref %q: %w", terminal, object.StorageError("update ref", err))
	}

	s.log.Debug("updated ref", zap.String("ref", name), zap.String("terminal", terminal), zap.Stringer("value", v))
	return nil
}

// Delete removes the named ref, following an existing symbolic chain first
// when deref is set. It fails with ErrRefNotFound if there is nothing to remove.
func (s *Store) Delete(name string, deref bool) error {
	terminal, _, err := s.resolve(name, deref)
	if err != nil {
		return fmt.Errorf("delete ref %q: %w", name, err)
	}

	refPath := s.path(terminal)
	info, err := os.Stat(refPath)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete ref %q: %w", terminal, ErrRefNotFound)
		}
		return fmt.Errorf("delete ref %q: %w", terminal, object.StorageError("delete ref", err))
	}

	lock, err := s.acquireLock(refPath)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			return fmt.Errorf("delete ref %q: %w", terminal, err)
		}
		return fmt.Errorf("delete ref %q: lock: %w", terminal, object.StorageError("delete ref", err))
	}
	defer lock.release()

	if err := os.Remove(refPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete ref %q: %w", terminal, ErrRefNotFound)
		}
		return fmt.Errorf("delete ref %q: %w", terminal, object.StorageError("delete ref", err))
	}

	s.log.Debug("deleted ref", zap.String("ref", name), zap.String("terminal", terminal))
	return nil
}

// Iter enumerates HEAD, MERGE_HEAD and every ref under refs/ whose name
// starts with prefix, resolving each with Get(name, deref). Absent refs are
// skipped. Every call re-reads the repository directory.
//
// A ref that fails to resolve is yielded with its error and iteration
// continues; a failure to walk the directory ends the sequence.
func (s *Store) Iter(prefix string, deref bool) iter.Seq2[Ref, error] {
	return func(yield func(Ref, error) bool) {
		visit := func(name string) bool {
			if !strings.HasPrefix(name, prefix) {
				return true
			}
			_, v, err := s.resolve(name, deref)
			if err != nil {
				return yield(Ref{Name: name}, err)
			}
			if v.IsAbsent() {
				return true
			}
			return yield(Ref{Name: name, Value: v}, nil)
		}

		for _, name := range seedRefs {
			if !visit(name) {
				return
			}
		}

		stopped := false
		refsDir := s.path("refs")
		err := filepath.WalkDir(refsDir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if path == refsDir && errors.Is(walkErr, fs.ErrNotExist) {
					return filepath.SkipAll
				}
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if strings.HasSuffix(name, lockSuffix) {
				s.log.Debug("skipping lock file", zap.String("path", name))
				return nil
			}
			if !visit(name) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Ref{}, fmt.Errorf("iter refs: %w", object.StorageError("walk refs", err)))
		}
	}
}

// List collects Iter into a slice, stopping at the first error.
func (s *Store) List(prefix string, deref bool) ([]Ref, error) {
	var refs []Ref
	for ref, err := range s.Iter(prefix, deref) {
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// resolve walks from name through symbolic refs and returns the name at which
// the walk stopped together with the value stored there. Without deref the
// walk stops at name.
func (s *Store) resolve(name string, deref bool) (string, Value, error) {
	if err := ValidateName(name); err != nil {
		return "", Value{}, err
	}

	chain := []string{name}
	seen := map[string]bool{name: true}
	cur := name
	for {
		v, err := s.read(cur)
		if err != nil {
			return "", Value{}, err
		}
		if !deref || !v.IsSymbolic() {
			return cur, v, nil
		}

		target := v.Target()
		if err := ValidateName(target); err != nil {
			return "", Value{}, fmt.Errorf("ref %q: %w: bad symbolic target: %v", cur, ErrCorruptRef, err)
		}
		chain = append(chain, target)
		if seen[target] || len(chain) > MaxSymbolicHops+1 {
			return "", Value{}, &CycleError{Chain: chain}
		}
		seen[target] = true
		cur = target
	}
}

// read returns the value stored at exactly name. A missing file or a
// directory reads as Absent.
func (s *Store) read(name string) (Value, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Absent(), nil
		}
		if info, statErr := os.Stat(s.path(name)); statErr == nil && info.IsDir() {
			return Absent(), nil
		}
		return Value{}, fmt.Errorf("read ref %q: %w", name, object.StorageError("read ref", err))
	}
	return Parse(string(data)), nil
}

func encode(v Value) (string, error) {
	switch v.Kind() {
	case KindDirect:
		if v.payload == "" {
			return "", ErrEmptyValue
		}
		if _, err := object.ParseHash(v.payload); err != nil {
			return "", err
		}
	case KindSymbolic:
		if v.payload == "" {
			return "", ErrEmptyValue
		}
		if err := ValidateName(v.payload); err != nil {
			return "", err
		}
	default:
		return "", ErrEmptyValue
	}
	return v.String(), nil
}
