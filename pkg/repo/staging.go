package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/index"
	"github.com/odvcencio/tinygot/pkg/object"
)

// StagedFile is one path recorded by Stage.
type StagedFile struct {
	Path string
	Hash object.Hash
}

// Stage stores the working-tree content of each path as a blob and records
// path -> blob in the index. All paths are staged in a single index
// transaction: if any path fails, the persisted index is left unchanged.
// Blobs written before the failure stay in the object store.
func (r *Repo) Stage(paths []string) ([]StagedFile, error) {
	staged := make([]StagedFile, 0, len(paths))
	err := r.Index.Update(func(tx *index.Tx) error {
		for _, p := range paths {
			rel, err := r.RelPath(p)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(r.RootDir, filepath.FromSlash(rel)))
			if err != nil {
				return fmt.Errorf("read %q: %w", rel, err)
			}
			h, err := r.Objects.Write(object.TypeBlob, content)
			if err != nil {
				return fmt.Errorf("write blob %q: %w", rel, err)
			}
			if err := tx.Set(rel, h); err != nil {
				return err
			}
			staged = append(staged, StagedFile{Path: rel, Hash: h})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	r.log.Debug("staged", zap.Int("count", len(staged)))
	return staged, nil
}

// Unstage removes paths from the index. Paths that are not staged are
// reported as an error and nothing is persisted.
func (r *Repo) Unstage(paths []string) error {
	err := r.Index.Update(func(tx *index.Tx) error {
		for _, p := range paths {
			rel, err := r.RelPath(p)
			if err != nil {
				return err
			}
			if !tx.Delete(rel) {
				return fmt.Errorf("%q is not staged", rel)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unstage: %w", err)
	}
	return nil
}

// RelPath converts p (absolute, or relative to the process working
// directory) into a slash-separated path relative to the working root.
// Paths that fall outside the root, or inside the metadata directory, are
// rejected.
func (r *Repo) RelPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", p, err)
		}
		abs = filepath.Join(cwd, p)
	}
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%q is outside repository %s", p, r.RootDir)
	}
	if rel == DirName || strings.HasPrefix(rel, DirName+"/") {
		return "", fmt.Errorf("%q is inside %s", p, DirName)
	}
	return rel, nil
}
