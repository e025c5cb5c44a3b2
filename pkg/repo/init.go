package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/refs"
)

// DefaultBranch is the branch HEAD points at in a new repository.
const DefaultBranch = "main"

// Init creates a new repository at path. It creates the .got/ directory
// structure: HEAD, config.toml, objects/, refs/heads/ and refs/tags/.
// Returns ErrAlreadyExists if a .got/ directory is already present.
func Init(path string, opts ...Option) (*Repo, error) {
	o := buildOptions(opts)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	gotDir := filepath.Join(abs, DirName)

	if _, err := os.Stat(gotDir); err == nil {
		return nil, fmt.Errorf("init: %w at %s", ErrAlreadyExists, gotDir)
	}

	dirs := []string{
		filepath.Join(gotDir, "objects"),
		filepath.Join(gotDir, "refs", "heads"),
		filepath.Join(gotDir, "refs", "tags"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	branch := o.defaultBranch
	if branch == "" {
		branch = DefaultBranch
	}
	cfg := DefaultConfig()
	cfg.Core.DefaultBranch = branch
	if err := writeConfig(gotDir, cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	r := newRepo(abs, gotDir, cfg, o)
	if err := r.Refs.Update(refs.HEAD, refs.Symbolic("refs/heads/"+branch), false); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}
	r.log.Info("initialized repository", zap.String("branch", branch))
	return r, nil
}

// Open searches upward from path for a .got/ directory and opens the
// repository. Returns ErrNotARepository if no .got/ directory is found.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		if isRepoDir(filepath.Join(cur, DirName)) {
			return openAt(cur, buildOptions(opts))
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open %s: %w (or any parent up to /)", abs, ErrNotARepository)
		}
		cur = parent
	}
}

// OpenRoot opens the repository whose working root is exactly root, without
// searching parent directories.
func OpenRoot(root string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}
	if !isRepoDir(filepath.Join(abs, DirName)) {
		return nil, fmt.Errorf("open %s: %w", abs, ErrNotARepository)
	}
	return openAt(abs, buildOptions(opts))
}

func openAt(root string, o options) (*Repo, error) {
	gotDir := filepath.Join(root, DirName)
	cfg, err := readConfig(gotDir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", root, err)
	}
	return newRepo(root, gotDir, cfg, o), nil
}

func isRepoDir(gotDir string) bool {
	info, err := os.Stat(gotDir)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(gotDir, "objects"))
	return !errors.Is(err, fs.ErrNotExist)
}

func indexPath(gotDir string) string {
	return filepath.Join(gotDir, "index")
}
