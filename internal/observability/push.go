package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the fdsync collectors to a Prometheus Pushgateway. CLI runs are
// too short-lived to be scraped.
func Push(ctx context.Context, url, job, group string) error {
	p := push.New(url, job).
		Collector(RowsPlanned).
		Collector(RowsProcessed).
		Collector(PassDuration).
		Collector(Runs).
		Collector(LastRunTimestamp).
		Collector(BlobsCopied).
		Grouping("group", group)
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
