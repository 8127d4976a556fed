// Package app wires stores, replicators and report sinks into runnable syncs.
// It is shared by the CLI commands and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/fdsync/internal/blobs"
	"github.com/your-org/fdsync/internal/config"
	"github.com/your-org/fdsync/internal/groups"
	"github.com/your-org/fdsync/internal/observability"
	"github.com/your-org/fdsync/internal/queue"
	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/internal/storage"
	"github.com/your-org/fdsync/pkg/dto"
)

type runFunc func(ctx context.Context, opts reconcile.Options) (*reconcile.RunReport, error)

// App holds the open stores of one process. At most one run is active at a time.
type App struct {
	cfg *config.Config
	log *slog.Logger

	source *storage.MySQLStore
	dest   *storage.PostgresStore
	minio  *storage.MinIOStore
	pub    *queue.Publisher
	blobs  *blobs.Replicator
	groups *groups.Service

	observers []reconcile.Observer
	finishers []func(*reconcile.RunReport)
	run       runFunc

	running atomic.Bool
	mu      sync.RWMutex
	last    *reconcile.RunReport
	wg      sync.WaitGroup
}

// Open connects to both stores and to the optional MinIO and NATS sinks.
// Store failures are returned as *reconcile.ConnectionError.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := newApp(cfg, logger)

	src, err := storage.NewMySQLStore(ctx, cfg.Source)
	if err != nil {
		return nil, &reconcile.ConnectionError{Store: "source", Err: err}
	}
	a.source = src

	dst, err := storage.NewPostgresStore(ctx, cfg.Destination)
	if err != nil {
		a.Close()
		return nil, &reconcile.ConnectionError{Store: "destination", Err: err}
	}
	a.dest = dst
	a.groups = groups.NewService(dst, a.log)

	if cfg.MinIO.Enabled() {
		m, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			a.Close()
			return nil, &reconcile.ConnectionError{Store: "minio", Err: err}
		}
		if err := m.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, &reconcile.ConnectionError{Store: "minio", Err: err}
		}
		a.minio = m
	}

	if trees := blobTrees(cfg, a.minio); len(trees) > 0 {
		a.blobs = blobs.NewReplicator(a.log, trees...)
	}

	if cfg.NATS.Enabled() {
		p, err := queue.NewPublisher(cfg.NATS)
		if err != nil {
			a.Close()
			return nil, &reconcile.ConnectionError{Store: "nats", Err: err}
		}
		a.pub = p
		if err := p.EnsureStream(ctx); err != nil {
			a.Close()
			return nil, &reconcile.ConnectionError{Store: "nats", Err: err}
		}
	}

	return a, nil
}

// OpenDestination connects to the destination only, for group administration.
func OpenDestination(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := newApp(cfg, logger)
	dst, err := storage.NewPostgresStore(ctx, cfg.Destination)
	if err != nil {
		return nil, &reconcile.ConnectionError{Store: "destination", Err: err}
	}
	a.dest = dst
	a.groups = groups.NewService(dst, a.log)
	return a, nil
}

func newApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:       cfg,
		log:       logger,
		observers: []reconcile.Observer{observability.PassMetrics{}},
	}
	a.run = a.runEngine
	return a
}

// blobTrees builds one tree per configured blob kind and target.
func blobTrees(cfg *config.Config, m *storage.MinIOStore) []blobs.Tree {
	var trees []blobs.Tree
	for _, kind := range []struct {
		name string
		bc   config.BlobConfig
	}{
		{"screenshots", cfg.Screenshots},
		{"events", cfg.Events},
	} {
		if !kind.bc.Enabled() {
			continue
		}
		if kind.bc.TargetPath != "" {
			trees = append(trees, blobs.Tree{
				Kind:   kind.name,
				Source: kind.bc.SourcePath,
				Target: blobs.FSTarget{Root: kind.bc.TargetPath},
			})
		}
		if m != nil {
			trees = append(trees, blobs.Tree{
				Kind:   kind.name,
				Source: kind.bc.SourcePath,
				Target: blobs.ObjectTarget{Store: m, Prefix: kind.name},
			})
		}
	}
	return trees
}

// Observe adds progress observers to subsequent runs.
func (a *App) Observe(o ...reconcile.Observer) {
	a.observers = append(a.observers, o...)
}

// OnRunFinished registers fn to receive every finished report.
func (a *App) OnRunFinished(fn func(*reconcile.RunReport)) {
	a.finishers = append(a.finishers, fn)
}

// Groups is the tenant group administration service.
func (a *App) Groups() *groups.Service { return a.groups }

// Publisher is the NATS publisher, nil when NATS is not configured.
func (a *App) Publisher() *queue.Publisher { return a.pub }

// Options builds run options from the configuration and a request.
func (a *App) Options(req dto.SyncRequest) reconcile.Options {
	workers := a.cfg.Sync.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}
	return reconcile.Options{
		GroupName:           a.cfg.Sync.Group,
		Workers:             workers,
		DryRun:              req.DryRun,
		Import:              req.Import,
		ScreenshotURLPrefix: a.cfg.Sync.ScreenshotURLPrefix,
	}
}

// Sync runs synchronously. It returns reconcile.ErrRunInProgress when
// another run is active.
func (a *App) Sync(ctx context.Context, opts reconcile.Options) (*reconcile.RunReport, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, reconcile.ErrRunInProgress
	}
	defer a.running.Store(false)
	return a.execute(ctx, opts)
}

// StartAsync starts a run in the background and returns its id. The run is
// bound to ctx, not to the caller's request.
func (a *App) StartAsync(ctx context.Context, opts reconcile.Options) (string, error) {
	if !a.running.CompareAndSwap(false, true) {
		return "", reconcile.ErrRunInProgress
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.running.Store(false)
		if _, err := a.execute(ctx, opts); err != nil {
			a.log.Error("background sync failed", "run_id", opts.RunID, "error", err)
		}
	}()
	return opts.RunID, nil
}

// Running reports whether a run is active.
func (a *App) Running() bool { return a.running.Load() }

// LastReport returns the report of the most recent finished run.
func (a *App) LastReport() (*reconcile.RunReport, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last, a.last != nil
}

func (a *App) execute(ctx context.Context, opts reconcile.Options) (*reconcile.RunReport, error) {
	if a.cfg.Sync.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Sync.Timeout)
		defer cancel()
	}

	report, err := a.run(ctx, opts)
	if report != nil {
		a.mu.Lock()
		a.last = report
		a.mu.Unlock()
		a.publish(report)
	}
	return report, err
}

func (a *App) runEngine(ctx context.Context, opts reconcile.Options) (*reconcile.RunReport, error) {
	eng := reconcile.NewEngine(a.source, a.dest, opts, a.log).Observe(a.observers...)
	if a.blobs != nil {
		eng.WithBlobs(a.blobs)
	}
	return eng.Run(ctx)
}

// publish delivers a finished report to metrics and NATS. Sink failures are
// logged only; they never change the outcome of the run.
func (a *App) publish(r *reconcile.RunReport) {
	observability.RecordRun(r)
	for _, fn := range a.finishers {
		fn(r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.pub != nil {
		if err := a.pub.PublishReport(ctx, r); err != nil {
			a.log.Warn("publish run report", "run_id", r.ID, "error", err)
		}
	}
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		if err := observability.Push(ctx, url, a.cfg.Metrics.Job, a.cfg.Sync.Group); err != nil {
			a.log.Warn("push metrics", "run_id", r.ID, "error", err)
		}
	}
}

// Ready pings every open dependency. The map holds "ok" or the error text.
func (a *App) Ready(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	if a.source != nil {
		check("mysql", a.source.Ping(ctx))
	}
	if a.dest != nil {
		check("postgres", a.dest.Ping(ctx))
	}
	if a.minio != nil {
		check("minio", a.minio.Ping(ctx))
	}
	if a.pub != nil {
		check("nats", a.pub.Ping())
	}
	return checks, healthy
}

// Close waits for a background run and releases every connection.
func (a *App) Close() error {
	a.wg.Wait()

	var errs []error
	if a.pub != nil {
		a.pub.Close()
	}
	if a.dest != nil {
		a.dest.Close()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
	}
	return errors.Join(errs...)
}
