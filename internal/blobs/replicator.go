// Package blobs merges screenshot and event trees of the legacy layout into
// tenant-namespaced targets.
package blobs

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
)

// Target receives files under a namespace ("group_<id>").
type Target interface {
	// Name identifies the target in reports.
	Name() string
	// Has reports whether rel already exists in ns with the given size.
	Has(ctx context.Context, ns, rel string, size int64) (bool, error)
	// Put copies the local file src to rel in ns.
	Put(ctx context.Context, ns, rel, src string) error
}

// Tree is one source directory replicated into one target.
type Tree struct {
	Kind   string
	Source string
	Target Target
}

// Replicator copies trees file by file. Existing files of the same size are
// left alone so repeated runs only copy what is new.
type Replicator struct {
	trees []Tree
	log   *slog.Logger
}

func NewReplicator(logger *slog.Logger, trees ...Tree) *Replicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replicator{trees: trees, log: logger}
}

// Replicate copies every tree. Per-file failures are collected as
// *reconcile.FilesystemError and do not stop the copy.
func (r *Replicator) Replicate(ctx context.Context, group models.TenantGroup) ([]reconcile.BlobReport, error) {
	var (
		reports []reconcile.BlobReport
		errs    []error
	)
	for _, t := range r.trees {
		rep, treeErrs := r.copyTree(ctx, group.Namespace(), t)
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		reports = append(reports, rep)
		errs = append(errs, treeErrs...)
	}
	return reports, errors.Join(errs...)
}

func (r *Replicator) copyTree(ctx context.Context, ns string, t Tree) (reconcile.BlobReport, []error) {
	rep := reconcile.BlobReport{Kind: t.Kind, Target: t.Target.Name()}
	var errs []error
	fail := func(path string, err error) {
		rep.Failed++
		errs = append(errs, &reconcile.FilesystemError{Path: path, Err: err})
		r.log.Warn("blob copy failed", "kind", t.Kind, "path", path, "error", err)
	}

	walkErr := filepath.WalkDir(t.Source, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == t.Source {
				return err
			}
			fail(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			fail(path, err)
			return nil
		}
		rel, err := filepath.Rel(t.Source, path)
		if err != nil {
			fail(path, err)
			return nil
		}

		exists, err := t.Target.Has(ctx, ns, rel, info.Size())
		if err != nil {
			fail(path, err)
			return nil
		}
		if exists {
			rep.Skipped++
			return nil
		}
		if err := t.Target.Put(ctx, ns, rel, path); err != nil {
			fail(path, err)
			return nil
		}
		rep.Copied++
		rep.Bytes += info.Size()
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
		fail(t.Source, walkErr)
	}
	return rep, errs
}
