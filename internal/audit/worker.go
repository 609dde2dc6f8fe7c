package audit

import (
	"context"
	"log/slog"

	"consentd/internal/platform/metrics"
)

// Sink receives entries fanned out by the Worker. The Kafka publisher is
// the production sink; tests use a recording fake.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker drains the fanout inbox into a sink so downstream publishing
// stays off the request path.
type Worker struct {
	sink    Sink
	inbox   <-chan Entry
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(sink Sink, inbox <-chan Entry, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger, metrics: m}
}

// Run drains the inbox until the context is cancelled. Publish failures
// are counted and logged, never returned: the store write already
// succeeded, so losing a fanout copy must not take the service down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.metrics.AuditDropped.Inc()
				w.logger.WarnContext(ctx, "audit fanout publish failed",
					"entry_id", entry.ID,
					"action", entry.Action,
					"error", err,
				)
			}
		}
	}
}
