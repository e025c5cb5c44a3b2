package repo

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/object"
	"github.com/odvcencio/tinygot/pkg/transfer"
)

// WithRemote opens a second repository and hands it to fn. remote is either
// the name of a configured remote or the working root of another repository.
// The remote handle is only valid inside fn; r itself is never redirected.
func (r *Repo) WithRemote(remote string, fn func(remote *Repo) error) error {
	root, err := r.remoteRoot(remote)
	if err != nil {
		return err
	}
	rem, err := OpenRoot(root, WithLogger(r.opts.log), WithCacheSize(0), WithLockTimeout(r.opts.lockTimeout))
	if err != nil {
		return fmt.Errorf("remote %q: %w", remote, err)
	}
	r.log.Debug("opened remote", zap.String("remote", rem.GotDir))
	defer r.log.Debug("released remote", zap.String("remote", rem.GotDir))
	return fn(rem)
}

// remoteRoot maps a configured remote name to its root; anything else is
// taken as a path.
func (r *Repo) remoteRoot(remote string) (string, error) {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return "", fmt.Errorf("remote is required")
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	if root, ok := cfg.Remotes[remote]; ok {
		return root, nil
	}
	return remote, nil
}

// FetchObjectIfMissing copies h from the remote's object store unless this
// repository already has it.
func (r *Repo) FetchObjectIfMissing(h object.Hash, remote string) error {
	return r.WithRemote(remote, func(rem *Repo) error {
		return transfer.FetchIfMissing(r.Objects, rem.Objects, h, transfer.WithLogger(r.log))
	})
}

// PushObject copies h into the remote's object store, overwriting any copy
// already there.
func (r *Repo) PushObject(h object.Hash, remote string) error {
	return r.WithRemote(remote, func(rem *Repo) error {
		return transfer.Push(r.Objects, rem.Objects, h, transfer.WithLogger(r.log))
	})
}

// FetchObjects fetches every object in hashes that is missing locally and
// returns how many were copied.
func (r *Repo) FetchObjects(ctx context.Context, remote string, hashes []object.Hash, opts ...transfer.Option) (int, error) {
	var n int
	err := r.WithRemote(remote, func(rem *Repo) error {
		var err error
		n, err = transfer.FetchAll(ctx, r.Objects, rem.Objects, hashes, append([]transfer.Option{transfer.WithLogger(r.log)}, opts...)...)
		return err
	})
	if n > 0 {
		r.log.Info("fetched objects", zap.String("remote", remote), zap.Int("count", n))
	}
	return n, err
}

// PushObjects pushes every object in hashes to the remote.
func (r *Repo) PushObjects(ctx context.Context, remote string, hashes []object.Hash, opts ...transfer.Option) (int, error) {
	var n int
	err := r.WithRemote(remote, func(rem *Repo) error {
		var err error
		n, err = transfer.PushAll(ctx, r.Objects, rem.Objects, hashes, append([]transfer.Option{transfer.WithLogger(r.log)}, opts...)...)
		return err
	})
	if n > 0 {
		r.log.Info("pushed objects", zap.String("remote", remote), zap.Int("count", n))
	}
	return n, err
}
