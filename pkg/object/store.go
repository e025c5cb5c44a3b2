package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of decoded objects kept in memory by a Store.
const DefaultCacheSize = 256

// Store is a content-addressed object store with a flat layout:
// objects/<oid>. Each file holds the raw envelope "type\0content".
//
// Objects are immutable, so a Store is safe for concurrent use and
// concurrent writers of the same object only ever race to write identical
// bytes.
type Store struct {
	root  string
	cache *lru.Cache
	log   *zap.Logger
}

type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCacheSize sets the number of objects held in the read cache.
// A size of zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Store) {
		s.cache = nil
		if n > 0 {
			c, err := lru.New(n)
			if err != nil {
				panic(err)
			}
			s.cache = c
		}
	}
}

// NewStore creates a Store rooted at the given repository directory. The
// objects/ subdirectory must already exist before the first write.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{root: root, log: zap.NewNop()}
	WithCacheSize(DefaultCacheSize)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the objects directory.
func (s *Store) Dir() string {
	return filepath.Join(s.root, "objects")
}

// Path returns the filesystem path for a given hash.
func (s *Store) Path(h Hash) string {
	return filepath.Join(s.root, "objects", string(h))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if !h.Valid() {
		return false
	}
	info, err := os.Stat(s.Path(h))
	return err == nil && info.Mode().IsRegular()
}

// Write stores an object and returns its content hash. Writing an object
// that is already present is a no-op.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	if strings.IndexByte(string(objType), separator) >= 0 {
		return "", fmt.Errorf("object write: %w: %q", ErrInvalidType, objType)
	}
	h := HashObject(objType, data)

	if s.Has(h) {
		return h, nil
	}
	if err := s.checkDir("object write"); err != nil {
		return "", err
	}
	if err := s.writeFile(h, bytes.NewReader(Envelope(objType, data))); err != nil {
		return "", err
	}
	s.log.Debug("wrote object", zap.String("oid", string(h)), zap.String("type", string(objType)), zap.Int("size", len(data)))
	return h, nil
}

// Read retrieves an object by hash, returning its type and content.
// The content is not checked against the hash.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	raw, err := s.readRaw(h)
	if err != nil {
		return "", nil, err
	}
	objType, content, ok := splitEnvelope(raw)
	if !ok {
		return "", nil, fmt.Errorf("object read %s: %w: missing type separator", h, ErrCorruptObject)
	}
	return objType, bytes.Clone(content), nil
}

// Get returns the content of an object, failing with a *TypeMismatchError
// when expected is not AnyType and differs from the stored type.
func (s *Store) Get(h Hash, expected ObjectType) ([]byte, error) {
	objType, content, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if expected != AnyType && objType != expected {
		return nil, &TypeMismatchError{Hash: h, Expected: expected, Actual: objType}
	}
	return content, nil
}

// Open returns a reader over the raw stored bytes of an object.
func (s *Store) Open(h Hash) (io.ReadCloser, error) {
	if !h.Valid() {
		return nil, &InvalidHashError{Value: string(h)}
	}
	f, err := os.Open(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Hash: h}
		}
		return nil, StorageError("object open", err)
	}
	return f, nil
}

// Import writes raw envelope bytes under the given hash, replacing any
// existing file. The bytes are not verified.
func (s *Store) Import(h Hash, r io.Reader) error {
	if !h.Valid() {
		return &InvalidHashError{Value: string(h)}
	}
	if err := s.checkDir("object import"); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Remove(h)
	}
	return s.writeFile(h, r)
}

// Verify recomputes the digest of a stored object and compares it with h.
func (s *Store) Verify(h Hash) error {
	if !h.Valid() {
		return &InvalidHashError{Value: string(h)}
	}
	raw, err := os.ReadFile(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{Hash: h}
		}
		return StorageError("object verify", err)
	}
	if got := HashRaw(raw); got != h {
		return fmt.Errorf("object %s: %w: content hashes to %s", h, ErrCorruptObject, got)
	}
	if _, _, ok := splitEnvelope(raw); !ok {
		return fmt.Errorf("object %s: %w: missing type separator", h, ErrCorruptObject)
	}
	return nil
}

// List returns the hashes of all stored objects in lexical order.
func (s *Store) List() ([]Hash, error) {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		return nil, StorageError("object list", err)
	}
	hashes := make([]Hash, 0, len(entries))
	for _, ent := range entries {
		h := Hash(ent.Name())
		if ent.Type().IsRegular() && h.Valid() {
			hashes = append(hashes, h)
		}
	}
	return hashes, nil
}

func (s *Store) readRaw(h Hash) ([]byte, error) {
	if !h.Valid() {
		return nil, &InvalidHashError{Value: string(h)}
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(h); ok {
			return v.([]byte), nil
		}
	}
	raw, err := os.ReadFile(s.Path(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Hash: h}
		}
		return nil, StorageError(fmt.Sprintf("object read %s", h), err)
	}
	if s.cache != nil {
		s.cache.Add(h, raw)
	}
	return raw, nil
}

func (s *Store) checkDir(op string) error {
	info, err := os.Stat(s.Dir())
	if err != nil {
		return StorageError(op, err)
	}
	if !info.IsDir() {
		return StorageError(op, fmt.Errorf("%s is not a directory", s.Dir()))
	}
	return nil
}

// writeFile writes r to objects/<h> via temp file + rename, so readers never
// observe a partially written object.
func (s *Store) writeFile(h Hash, r io.Reader) error {
	tmp, err := os.CreateTemp(s.Dir(), ".tmp-*")
	if err != nil {
		return StorageError("object write tmpfile", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return StorageError("object write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return StorageError("object write close", err)
	}
	if err := os.Rename(tmpName, s.Path(h)); err != nil {
		os.Remove(tmpName)
		return StorageError("object write rename", err)
	}
	return nil
}
