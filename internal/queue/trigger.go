package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/fdsync/internal/reconcile"
	"github.com/your-org/fdsync/pkg/dto"
)

// TriggerHandler starts a run for a trigger message.
type TriggerHandler func(ctx context.Context, req dto.SyncRequest) error

// busyDelay is how long a trigger waits for redelivery while a run is active.
const busyDelay = 30 * time.Second

// DecodeTrigger parses a trigger payload. An empty payload is a plain sync.
func DecodeTrigger(data []byte) (dto.SyncRequest, error) {
	var req dto.SyncRequest
	if len(data) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode trigger: %w", err)
	}
	if req.DryRun && req.Import {
		return req, errors.New("decode trigger: dry_run and import are exclusive")
	}
	return req, nil
}

// ConsumeTriggers starts a durable consumer on the trigger subject. Messages
// are handled one at a time. Undecodable messages are terminated; triggers
// arriving during a run are redelivered later.
func (p *Publisher) ConsumeTriggers(ctx context.Context, consumerName string, handler TriggerHandler) error {
	stream, err := p.js.Stream(ctx, p.cfg.Stream)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", p.cfg.Stream, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    10,
		FilterSubject: p.cfg.TriggerSubject,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}

			batch, err := cons.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch triggers error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				handleTrigger(ctx, msg, handler)
			}
		}
	}()

	slog.Info("trigger consumer started", "consumer", consumerName, "subject", p.cfg.TriggerSubject)
	return nil
}

func handleTrigger(ctx context.Context, msg jetstream.Msg, handler TriggerHandler) {
	req, err := DecodeTrigger(msg.Data())
	if err != nil {
		slog.Warn("drop trigger", "error", err, "subject", msg.Subject())
		_ = msg.Term()
		return
	}

	switch err := handler(ctx, req); {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, reconcile.ErrRunInProgress):
		slog.Info("run in progress, trigger deferred", "delay", busyDelay.String())
		_ = msg.NakWithDelay(busyDelay)
	default:
		slog.Error("process trigger error", "error", err, "subject", msg.Subject())
		_ = msg.Nak()
	}
}
