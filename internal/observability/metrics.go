package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
)

var (
	RowsPlanned = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fdsync",
		Name:      "rows_planned",
		Help:      "Rows of the last plan per entity and kind (source, existing, new, obsolete)",
	}, []string{"group", "entity", "kind"})

	RowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fdsync",
		Name:      "rows_processed_total",
		Help:      "Rows handled by sync passes, by outcome",
	}, []string{"group", "entity", "outcome"})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fdsync",
		Name:      "pass_duration_seconds",
		Help:      "Duration of a sync pass",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"entity"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fdsync",
		Name:      "runs_total",
		Help:      "Sync runs by mode and final state",
	}, []string{"mode", "state"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fdsync",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last sync run finished",
	})

	BlobsCopied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fdsync",
		Name:      "blobs_copied_total",
		Help:      "Files replicated into tenant namespaces",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fdsync",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fdsync",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)

// PassMetrics records pass progress into the package collectors.
type PassMetrics struct{}

func (PassMetrics) PassPlanned(g models.TenantGroup, p reconcile.Plan) {
	e := p.Entity.String()
	RowsPlanned.WithLabelValues(g.Name, e, "source").Set(float64(p.Source))
	RowsPlanned.WithLabelValues(g.Name, e, "existing").Set(float64(p.Existing))
	RowsPlanned.WithLabelValues(g.Name, e, "new").Set(float64(p.New))
	RowsPlanned.WithLabelValues(g.Name, e, "obsolete").Set(float64(p.Obsolete))
}

func (PassMetrics) PassFinished(g models.TenantGroup, r reconcile.PassReport) {
	if r.DryRun {
		return
	}
	e := r.Entity.String()
	RowsProcessed.WithLabelValues(g.Name, e, "inserted").Add(float64(r.Inserted))
	RowsProcessed.WithLabelValues(g.Name, e, "conflict").Add(float64(r.Conflicts))
	RowsProcessed.WithLabelValues(g.Name, e, "skipped").Add(float64(r.Skipped))
	RowsProcessed.WithLabelValues(g.Name, e, "deleted").Add(float64(r.Deleted))
	PassDuration.WithLabelValues(e).Observe(r.Duration.Seconds())
}

// RecordRun counts a finished run.
func RecordRun(r *reconcile.RunReport) {
	Runs.WithLabelValues(string(r.Mode), r.State.String()).Inc()
	LastRunTimestamp.Set(float64(r.FinishedAt.Unix()))
	for _, b := range r.Blobs {
		BlobsCopied.WithLabelValues(b.Kind).Add(float64(b.Copied))
	}
}
