package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultGroupName is the tenant group a run targets when none is configured.
const DefaultGroupName = "default"

// Options control a run.
type Options struct {
	// GroupName is the destination tenant group to reconcile into.
	GroupName string
	// Workers bounds the per-row concurrency inside a pass.
	Workers int
	// DryRun enumerates and plans every pass without mutating the destination.
	DryRun bool
	// Import inserts every source row and never deletes (first-time import).
	Import bool
	// ScreenshotURLPrefix is the public base URL of replicated screenshots.
	ScreenshotURLPrefix string
	// RunID identifies the run in reports; generated when empty.
	RunID string
}

// Mode reports how the options treat the destination.
func (o Options) Mode() Mode {
	switch {
	case o.DryRun:
		return ModeDryRun
	case o.Import:
		return ModeImport
	default:
		return ModeSync
	}
}

// Engine runs the reconciliation state machine.
type Engine struct {
	source    Source
	dest      Destination
	blobs     BlobReplicator
	opts      Options
	log       *slog.Logger
	observers []Observer
}

func NewEngine(src Source, dst Destination, opts Options, logger *slog.Logger) *Engine {
	if opts.GroupName == "" {
		opts.GroupName = DefaultGroupName
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{source: src, dest: dst, opts: opts, log: logger}
}

// WithBlobs sets the replicator used by the ReplicateBlobs step.
func (e *Engine) WithBlobs(b BlobReplicator) *Engine {
	e.blobs = b
	return e
}

// Observe registers progress observers.
func (e *Engine) Observe(o ...Observer) *Engine {
	e.observers = append(e.observers, o...)
	return e
}

type step struct {
	state State
	run   func(ctx context.Context, sc *SyncContext, r *RunReport) error
}

func (e *Engine) steps() []step {
	return []step{
		{StateResolveTenantGroup, e.resolveTenantGroup},
		{StateSyncStreams, e.syncStreams},
		{StateSyncDescriptors, e.syncDescriptors},
		{StateSyncStreamLinks, e.syncStreamLinks},
		{StateSyncSpecialGroups, e.syncSpecialGroups},
		{StateSyncSpecialGroupLinks, e.syncSpecialGroupLinks},
		{StateSyncConfig, e.syncConfig},
		{StateSyncFaceLogs, e.syncFaceLogs},
		{StateReplicateBlobs, e.replicateBlobs},
	}
}

// Run executes every step in order and stops at the first error. The report
// is returned in both cases.
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		ID:        e.opts.RunID,
		Mode:      e.opts.Mode(),
		StartedAt: time.Now().UTC(),
	}
	sc := newSyncContext(e.source, e.dest)
	e.log.Info("sync run started", "run_id", report.ID, "mode", report.Mode, "group", e.opts.GroupName)

	for _, st := range e.steps() {
		report.State = st.state
		err := ctx.Err()
		if err == nil {
			err = st.run(ctx, sc, report)
		}
		if err != nil {
			report.FailedIn = st.state
			report.State = StateFailed
			report.Error = err.Error()
			report.FinishedAt = time.Now().UTC()
			e.log.Error("sync run failed", "run_id", report.ID, "state", st.state, "error", err)
			return report, fmt.Errorf("%s: %w", st.state, err)
		}
	}

	report.State = StateDone
	report.FinishedAt = time.Now().UTC()
	e.log.Info("sync run finished",
		"run_id", report.ID,
		"mutations", report.Mutations(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (e *Engine) resolveTenantGroup(ctx context.Context, sc *SyncContext, r *RunReport) error {
	g, found, err := sc.Dest.TenantGroupByName(ctx, e.opts.GroupName)
	if err != nil {
		return queryError("resolve tenant group", "", err)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrTenantGroupNotFound, e.opts.GroupName)
	}
	sc.Group = g
	r.Group = g
	e.log.Info("tenant group resolved", "group_id", g.ID, "name", g.Name)
	return nil
}
