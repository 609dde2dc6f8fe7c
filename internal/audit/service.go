package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"consentd/internal/platform/metrics"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

// Service is the audit recorder. Every state-changing operation in the
// KBA and consent components appends through it; nothing reads entries
// back except the reporting path.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	inbox   chan Entry
	// strict makes Record propagate append failures to the caller.
	// Default is best-effort: availability of the primary path wins over
	// completeness of the trail.
	strict bool
}

type Option func(*Service)

// WithStrict makes audit failures abort the primary operation.
func WithStrict(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithFanout attaches an inbox channel drained by a Worker (e.g. the
// Kafka publisher). Sends never block the hot path.
func WithFanout(inbox chan Entry) Option {
	return func(s *Service) { s.inbox = inbox }
}

func NewService(store Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	svc := &Service{store: store, logger: logger, metrics: m}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Log stamps and appends an entry, returning the generated log ID.
func (s *Service) Log(ctx context.Context, entry Entry) (string, error) {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	s.fanout(entry)
	return entry.ID, nil
}

// Record applies the configured failure policy around Log. Callers on the
// KBA and consent paths use Record so an unavailable audit store cannot
// take down verification or consent toggling unless strict mode is on.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if _, err := s.Log(ctx, entry); err != nil {
		if s.strict {
			return err
		}
		s.metrics.AuditDropped.Inc()
		s.logger.WarnContext(ctx, "audit write failed, continuing",
			"action", entry.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}

// GetUserLogs returns the most recent entries for a user, newest first.
func (s *Service) GetUserLogs(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	entries, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

func (s *Service) fanout(entry Entry) {
	if s.inbox == nil {
		return
	}
	select {
	case s.inbox <- entry:
	default:
		s.metrics.AuditDropped.Inc()
	}
}
