package repo

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/refs"
)

const (
	headsPrefix = "refs/heads/"
	tagsPrefix  = "refs/tags/"
)

// ErrRefExists is returned when creating a branch or tag that already exists.
var ErrRefExists = errors.New("ref already exists")

// CreateBranch writes refs/heads/<name> pointing at target. It fails if the
// branch already exists.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	if err := r.createRef(headsPrefix+name, target, false); err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// DeleteBranch removes refs/heads/<name>. The branch HEAD points at cannot
// be deleted.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == headsPrefix+name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}
	if err := r.Refs.Delete(headsPrefix+name, false); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	return nil
}

// ListBranches returns branch names (without refs/heads/) in sorted order.
func (r *Repo) ListBranches() ([]string, error) {
	names, err := r.listNames(headsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return names, nil
}

// CreateTag writes refs/tags/<name> pointing at target. Without force an
// existing tag is an error.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	if err := r.createRef(tagsPrefix+name, target, force); err != nil {
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return nil
}

// DeleteTag removes refs/tags/<name>.
func (r *Repo) DeleteTag(name string) error {
	if err := r.Refs.Delete(tagsPrefix+name, false); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// ListTags returns tag names (without refs/tags/) in sorted order.
func (r *Repo) ListTags() ([]string, error) {
	names, err := r.listNames(tagsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return names, nil
}

// createRef checks for an existing ref and then writes it. The check and
// the write are not atomic; two concurrent creators both succeed and the
// last one wins.
func (r *Repo) createRef(name string, target object.Hash, force bool) error {
	if !target.Valid() {
		return &object.InvalidHashError{Value: string(target)}
	}
	if !force {
		v, err := r.Refs.Get(name, false)
		if err != nil {
			return err
		}
		if !v.IsAbsent() {
			return ErrRefExists
		}
	}
	return r.Refs.Update(name, refs.Direct(target), false)
}

func (r *Repo) listNames(prefix string) ([]string, error) {
	list, err := r.Refs.List(prefix, false)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for _, ref := range list {
		names = append(names, strings.TrimPrefix(ref.Name, prefix))
	}
	slices.Sort(names)
	return names, nil
}
