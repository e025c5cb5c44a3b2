// Package transfer copies objects between two object stores. Copies are
// byte-for-byte: an object's hash names its content, so the copy needs no
// re-encoding and overwriting an existing copy is harmless.
package transfer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/odvcencio/tinygot/pkg/object"
)

// DefaultConcurrency is the number of objects copied in parallel by FetchAll
// and PushAll.
const DefaultConcurrency = 8

type options struct {
	concurrency int
	log         *zap.Logger
}

type Option func(*options)

// WithConcurrency bounds the number of parallel copies.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{concurrency: DefaultConcurrency, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FetchIfMissing copies h from remote into local unless local already has it.
// It fails with object.ErrObjectNotFound when neither store has the object.
func FetchIfMissing(local, remote *object.Store, h object.Hash, opts ...Option) error {
	_, err := fetchIfMissing(local, remote, h, buildOptions(opts))
	return err
}

func fetchIfMissing(local, remote *object.Store, h object.Hash, o options) (bool, error) {
	if local.Has(h) {
		return false, nil
	}
	if err := copyObject(local, remote, h); err != nil {
		return false, fmt.Errorf("fetch object %s: %w", h, err)
	}
	o.log.Debug("fetched object", zap.String("oid", string(h)), zap.String("from", remote.Dir()))
	return true, nil
}

// Push copies h from local into remote, replacing any existing copy.
// It fails with object.ErrObjectNotFound when local lacks the object.
func Push(local, remote *object.Store, h object.Hash, opts ...Option) error {
	o := buildOptions(opts)
	if err := copyObject(remote, local, h); err != nil {
		return fmt.Errorf("push object %s: %w", h, err)
	}
	o.log.Debug("pushed object", zap.String("oid", string(h)), zap.String("to", remote.Dir()))
	return nil
}

// FetchAll fetches every missing object in hashes, copying up to the
// configured concurrency at once. It returns the number of objects copied.
// The first failure cancels the remaining copies.
func FetchAll(ctx context.Context, local, remote *object.Store, hashes []object.Hash, opts ...Option) (int, error) {
	o := buildOptions(opts)
	return forEach(ctx, hashes, o, func(h object.Hash) (bool, error) {
		return fetchIfMissing(local, remote, h, o)
	})
}

// PushAll pushes every object in hashes. It returns the number of objects
// copied.
func PushAll(ctx context.Context, local, remote *object.Store, hashes []object.Hash, opts ...Option) (int, error) {
	o := buildOptions(opts)
	return forEach(ctx, hashes, o, func(h object.Hash) (bool, error) {
		if err := copyObject(remote, local, h); err != nil {
			return false, fmt.Errorf("push object %s: %w", h, err)
		}
		o.log.Debug("pushed object", zap.String("oid", string(h)), zap.String("to", remote.Dir()))
		return true, nil
	})
}

func forEach(ctx context.Context, hashes []object.Hash, o options, fn func(object.Hash) (bool, error)) (int, error) {
	var copied atomic.Int64
	p := pool.New().WithMaxGoroutines(o.concurrency).WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, h := range dedupe(hashes) {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := fn(h)
			if err != nil {
				return err
			}
			if ok {
				copied.Add(1)
			}
			return nil
		})
	}
	err := p.Wait()
	return int(copied.Load()), err
}

func copyObject(dst, src *object.Store, h object.Hash) error {
	rc, err := src.Open(h)
	if err != nil {
		return err
	}
	defer rc.Close()
	return dst.Import(h, rc)
}

func dedupe(hashes []object.Hash) []object.Hash {
	seen := make(map[object.Hash]struct{}, len(hashes))
	out := make([]object.Hash, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
