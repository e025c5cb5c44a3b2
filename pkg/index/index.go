// Package index persists the staging area: a mapping from repository-relative
// paths to object hashes, loaded, mutated and written back as a unit.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/object"
)

var (
	ErrIndexBusy    = errors.New("index transaction already open")
	ErrTxDone       = errors.New("index transaction already finished")
	ErrInvalidEntry = errors.New("invalid index entry")
	ErrCorruptIndex = errors.New("corrupt index")
)

// File is the on-disk index. At most one transaction per File may be open
// at a time. Separate processes writing the same index file are not
// coordinated: the last Commit wins.
type File struct {
	path string
	log  *zap.Logger
	busy atomic.Bool
}

type Option func(*File)

func WithLogger(log *zap.Logger) Option {
	return func(f *File) {
		if log != nil {
			f.log = log
		}
	}
}

// New returns the index stored at path. Nothing is read until Begin or Read.
func New(path string, opts ...Option) *File {
	f := &File{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *File) Path() string { return f.path }

// Read returns a snapshot of the persisted index. A missing file reads as an
// empty index.
func (f *File) Read() (map[string]object.Hash, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]object.Hash), nil
		}
		return nil, fmt.Errorf("read index: %w", object.StorageError("read index", err))
	}
	entries := make(map[string]object.Hash)
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("read index: %w: %v", ErrCorruptIndex, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("read index: %w: not a JSON object", ErrCorruptIndex)
	}
	return entries, nil
}

// Begin loads the index and opens a transaction on it. Changes made through
// the returned Tx are persisted only by Commit.
func (f *File) Begin() (*Tx, error) {
	if !f.busy.CompareAndSwap(false, true) {
		return nil, ErrIndexBusy
	}
	entries, err := f.Read()
	if err != nil {
		f.busy.Store(false)
		return nil, err
	}
	return &Tx{file: f, entries: entries}, nil
}

// Update runs fn inside a transaction. The index is written back only when fn
// returns nil; if fn fails or panics the persisted index is left as it was.
func (f *File) Update(fn func(tx *Tx) error) error {
	tx, err := f.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// write replaces the index file with entries via temp file + rename.
func (f *File) write(entries map[string]object.Hash) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("write index: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: %w", object.StorageError("index tmpfile", err))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", object.StorageError("index write", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", object.StorageError("index close", err))
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: %w", object.StorageError("index rename", err))
	}

	f.log.Debug("wrote index", zap.String("path", f.path), zap.Int("entries", len(entries)))
	return nil
}

// Tx is an open index transaction. It is not safe for concurrent use.
type Tx struct {
	file    *File
	entries map[string]object.Hash
	done    bool
}

// Get returns the hash staged for path.
func (tx *Tx) Get(path string) (object.Hash, bool) {
	h, ok := tx.entries[path]
	return h, ok
}

// Set stages h for path.
func (tx *Tx) Set(path string, h object.Hash) error {
	if tx.done {
		return ErrTxDone
	}
	if err := validatePath(path); err != nil {
		return err
	}
	if !h.Valid() {
		return fmt.Errorf("%w: %q: bad hash %q", ErrInvalidEntry, path, h)
	}
	tx.entries[path] = h
	return nil
}

// Delete unstages path and reports whether it was present.
func (tx *Tx) Delete(path string) bool {
	if tx.done {
		return false
	}
	_, ok := tx.entries[path]
	delete(tx.entries, path)
	return ok
}

func (tx *Tx) Len() int { return len(tx.entries) }

// Paths returns the staged paths in lexical order.
func (tx *Tx) Paths() []string {
	return slices.Sorted(maps.Keys(tx.entries))
}

// Entries returns a copy of the staged mapping.
func (tx *Tx) Entries() map[string]object.Hash {
	return maps.Clone(tx.entries)
}

// Commit persists the transaction's mapping, fully replacing the previous
// index, and closes the transaction.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	defer tx.file.busy.Store(false)
	return tx.file.write(tx.entries)
}

// Discard closes the transaction without writing. It is a no-op after Commit.
func (tx *Tx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.file.busy.Store(false)
}

func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidEntry)
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: path %q is not repository-relative", ErrInvalidEntry, p)
	}
	return nil
}
