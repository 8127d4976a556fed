// Package queue carries run reports and sync triggers over NATS JetStream.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/fdsync/internal/config"
	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/reconcile"
)

// Publisher owns the NATS connection shared by report publishing and the
// trigger consumer.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg config.NATSConfig
}

func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("fdsync"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Publisher{nc: nc, js: js, cfg: cfg}, nil
}

// StreamConfig is the JetStream stream holding reports and triggers.
func StreamConfig(cfg config.NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        cfg.Stream,
		Subjects:    []string{cfg.ReportSubject + ".>", cfg.TriggerSubject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxMsgs:     10000,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  time.Minute,
		Description: "fdsync run reports and sync triggers",
	}
}

// EnsureStream creates or updates the stream.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	sc := StreamConfig(p.cfg)

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, sc)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", sc.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", sc.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", sc.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

// ReportSubject is the subject a report for group is published on.
func ReportSubject(base string, group models.TenantGroup) string {
	return base + "." + group.Namespace()
}

// PublishReport publishes r on the group's report subject. The run id is
// used as the message id so redelivered publishes are deduplicated.
func (p *Publisher) PublishReport(ctx context.Context, r *reconcile.RunReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}

	subject := ReportSubject(p.cfg.ReportSubject, r.Group)
	if _, err := p.js.Publish(ctx, subject, payload, jetstream.WithMsgID(r.ID)); err != nil {
		return fmt.Errorf("publish run report: %w", err)
	}
	return nil
}

// Ping checks NATS connection health.
func (p *Publisher) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Publisher) Close() {
	p.nc.Drain()
}
