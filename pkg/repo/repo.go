// Package repo ties the object store, ref store and index of one repository
// root together. Every operation works on an explicit *Repo; there is no
// process-wide current repository.
package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/index"
	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/refs"
)

// DirName is the name of the metadata directory inside a working root.
const DirName = ".got"

var (
	ErrNotARepository = errors.New("not a got repository")
	ErrAlreadyExists  = errors.New("repository already exists")
)

// Repo represents an opened repository.
type Repo struct {
	RootDir string        // working directory root
	GotDir  string        // .got/ directory
	Objects *object.Store // content-addressed object store
	Refs    *refs.Store   // HEAD, MERGE_HEAD and refs/**
	Index   *index.File   // staging area

	log  *zap.Logger
	opts options
}

type options struct {
	log           *zap.Logger
	cacheSize     int
	lockTimeout   time.Duration
	defaultBranch string
}

type Option func(*options)

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithCacheSize overrides the object cache size from the repository config.
// Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithLockTimeout sets how long ref writes wait for a competing writer.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithDefaultBranch sets the branch HEAD points at after Init.
func WithDefaultBranch(name string) Option {
	return func(o *options) { o.defaultBranch = name }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), cacheSize: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newRepo(rootDir, gotDir string, cfg *Config, o options) *Repo {
	cacheSize := o.cacheSize
	if cacheSize < 0 {
		cacheSize = object.DefaultCacheSize
		if cfg != nil && cfg.Core.CacheSize > 0 {
			cacheSize = cfg.Core.CacheSize
		}
	}
	log := o.log.With(zap.String("repo", gotDir))

	refOpts := []refs.Option{refs.WithLogger(log)}
	if o.lockTimeout > 0 {
		refOpts = append(refOpts, refs.WithLockTimeout(o.lockTimeout))
	}

	return &Repo{
		RootDir: rootDir,
		GotDir:  gotDir,
		Objects: object.NewStore(gotDir, object.WithCacheSize(cacheSize), object.WithLogger(log)),
		Refs:    refs.NewStore(gotDir, refOpts...),
		Index:   index.New(indexPath(gotDir), index.WithLogger(log)),
		log:     log,
		opts:    o,
	}
}

// Head returns the literal value of HEAD without following it.
func (r *Repo) Head() (refs.Value, error) {
	return r.Refs.Get(refs.HEAD, false)
}

// CurrentBranch returns the ref HEAD points at, or "" when HEAD is detached
// or missing.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	return head.Target(), nil
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. name as given (HEAD, MERGE_HEAD, refs/...).
//  2. refs/heads/<name>.
//  3. refs/tags/<name>.
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	candidates := []string{name}
	if !strings.HasPrefix(name, "refs/") && name != refs.HEAD && name != refs.MergeHead {
		candidates = append(candidates, "refs/heads/"+name, "refs/tags/"+name)
	}
	for _, c := range candidates {
		v, err := r.Refs.Get(c, true)
		if err != nil {
			return "", fmt.Errorf("resolve ref %q: %w", name, err)
		}
		if h := v.Hash(); h != "" {
			return h, nil
		}
	}
	return "", fmt.Errorf("resolve ref %q: %w", name, refs.ErrRefNotFound)
}
