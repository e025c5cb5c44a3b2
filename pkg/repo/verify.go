package repo

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/tinygot/pkg/object"
)

// VerifyReport summarizes a Verify run.
type VerifyReport struct {
	Checked      int
	Corrupt      []object.Hash // objects whose content does not hash to their name
	DanglingRefs []string      // refs resolving to a missing object
	BrokenRefs   []string      // refs that fail to resolve (cycles, bad targets)
}

// OK reports whether no problem was found.
func (v *VerifyReport) OK() bool {
	return len(v.Corrupt) == 0 && len(v.DanglingRefs) == 0 && len(v.BrokenRefs) == 0
}

// Verify rehashes every stored object and checks that every ref resolves to
// an object that exists. Storage failures abort the run; integrity problems
// are collected in the report.
func (r *Repo) Verify(ctx context.Context) (*VerifyReport, error) {
	hashes, err := r.Objects.List()
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{Checked: len(hashes)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, h := range hashes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := r.Objects.Verify(h)
			if errors.Is(err, object.ErrCorruptObject) {
				r.log.Warn("corrupt object", zap.String("oid", string(h)))
				mu.Lock()
				report.Corrupt = append(report.Corrupt, h)
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(report.Corrupt)

	for ref, err := range r.Refs.Iter("", true) {
		if err != nil {
			if ref.Name == "" {
				return nil, err
			}
			report.BrokenRefs = append(report.BrokenRefs, ref.Name)
			continue
		}
		if !r.Objects.Has(ref.Value.Hash()) {
			report.DanglingRefs = append(report.DanglingRefs, ref.Name)
		}
	}
	return report, nil
}
