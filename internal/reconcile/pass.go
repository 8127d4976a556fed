package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/your-org/fdsync/internal/models"
)

type outcome int

const (
	outcomeInserted outcome = iota
	// outcomeConflict: the key already exists in the destination.
	outcomeConflict
	// outcomeSkipped: the source row vanished or cannot be inserted.
	outcomeSkipped
)

// pass describes one entity type. K is an integer id or a link pair.
type pass[K comparable] struct {
	entity  models.Entity
	compare func(a, b K) int

	sourceKeys func(ctx context.Context) ([]K, error)
	destKeys   func(ctx context.Context) ([]K, error)
	remove     func(ctx context.Context, k K) error
	insert     func(ctx context.Context, k K) (outcome, error)

	// id maps a key to its sequence value; nil for entities without a sequence.
	id func(K) int64
	// appendOnly passes never delete destination rows.
	appendOnly bool
}

type passResult[K comparable] struct {
	report PassReport
	// present is the key set expected in the destination after the pass.
	present Set[K]
}

func runPass[K comparable](ctx context.Context, e *Engine, group models.TenantGroup, p pass[K]) (passResult[K], error) {
	start := time.Now()
	log := e.log.With("entity", p.entity)

	srcKeys, err := p.sourceKeys(ctx)
	if err != nil {
		return passResult[K]{}, queryError("enumerate source", p.entity, err)
	}
	dstKeys, err := p.destKeys(ctx)
	if err != nil {
		return passResult[K]{}, queryError("enumerate destination", p.entity, err)
	}
	src, dst := NewSet(srcKeys...), NewSet(dstKeys...)

	toInsert, toDelete := Diff(src, dst)
	if e.opts.Import {
		toInsert = NewSet(srcKeys...)
	}
	if e.opts.Import || p.appendOnly {
		toDelete = make(Set[K])
	}

	plan := Plan{
		Entity:   p.entity,
		Source:   src.Len(),
		Existing: dst.Len(),
		New:      toInsert.Len(),
		Obsolete: toDelete.Len(),
	}
	log.Info("pass planned",
		"source", plan.Source,
		"existing", plan.Existing,
		"new", plan.New,
		"obsolete", plan.Obsolete,
	)
	for _, o := range e.observers {
		o.PassPlanned(group, plan)
	}

	present := make(Set[K], dst.Len()+toInsert.Len())
	for k := range dst {
		if !toDelete.Has(k) {
			present.Add(k)
		}
	}

	report := PassReport{Plan: plan, DryRun: e.opts.DryRun}
	if e.opts.DryRun {
		for k := range toInsert {
			present.Add(k)
		}
		report.Duration = time.Since(start)
		log.Info("pass skipped, dry run")
		e.finishPass(group, report)
		return passResult[K]{report: report, present: present}, nil
	}

	var deleted atomic.Int64
	if err := each(ctx, e.opts.Workers, Sorted(toDelete, p.compare), func(ctx context.Context, k K) error {
		if err := p.remove(ctx, k); err != nil {
			return queryError("delete", p.entity, err)
		}
		deleted.Add(1)
		return nil
	}); err != nil {
		return passResult[K]{}, err
	}
	report.Deleted = int(deleted.Load())

	var (
		mu       sync.Mutex
		inserted = make(Set[K])
		counts   [3]int
	)
	if err := each(ctx, e.opts.Workers, Sorted(toInsert, p.compare), func(ctx context.Context, k K) error {
		out, err := p.insert(ctx, k)
		if err != nil {
			return queryError("insert", p.entity, err)
		}
		mu.Lock()
		defer mu.Unlock()
		counts[out]++
		if out == outcomeInserted {
			inserted.Add(k)
		}
		return nil
	}); err != nil {
		return passResult[K]{}, err
	}
	report.Inserted = counts[outcomeInserted]
	report.Conflicts = counts[outcomeConflict]
	report.Skipped = counts[outcomeSkipped]

	for k := range inserted {
		present.Add(k)
	}

	if p.id != nil && inserted.Len() > 0 {
		var max int64
		for k := range present {
			if v := p.id(k); v > max {
				max = v
			}
		}
		seq, err := e.dest.ResetSequence(ctx, p.entity, max+1)
		if err != nil {
			return passResult[K]{}, queryError("reset sequence", p.entity, err)
		}
		report.Sequence = seq
	}

	report.Duration = time.Since(start)
	log.Info("pass finished",
		"inserted", report.Inserted,
		"conflicts", report.Conflicts,
		"skipped", report.Skipped,
		"deleted", report.Deleted,
		"sequence", report.Sequence,
		"duration", report.Duration,
	)
	e.finishPass(group, report)
	return passResult[K]{report: report, present: present}, nil
}

// each runs fn for every key on a pool of workers goroutines. The
// first error cancels the remaining keys.
func each[K comparable](ctx context.Context, workers int, keys []K, fn func(context.Context, K) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, k := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, k)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) finishPass(group models.TenantGroup, r PassReport) {
	for _, o := range e.observers {
		o.PassFinished(group, r)
	}
}
