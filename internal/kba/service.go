package kba

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"consentd/internal/audit"
	"consentd/internal/platform/metrics"
	"consentd/internal/roster"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/privacy"
	"consentd/pkg/requestcontext"
)

// minFieldsRequired is the floor below which a request is a client-input
// error rather than an identity-proofing failure.
const minFieldsRequired = 2

// matchesRequired is the 2-of-4 rule: at least two supplied facts must
// match the roster record.
const matchesRequired = 2

// Config carries the attempt-lockout policy.
type Config struct {
	MaxAttempts   int
	LockoutWindow time.Duration
}

// DefaultConfig matches the reference policy: three strikes, thirty
// minutes out.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, LockoutWindow: 30 * time.Minute}
}

// Service is the identity-proofing state machine.
type Service struct {
	roster   roster.Store
	attempts Store
	auditor  *audit.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	config   Config
	tracer   trace.Tracer
}

type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) { s.config = cfg }
}

func New(rosterStore roster.Store, attemptStore Store, auditor *audit.Service, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Service, error) {
	if rosterStore == nil {
		return nil, errors.New("roster store is required")
	}
	if attemptStore == nil {
		return nil, errors.New("attempt store is required")
	}
	if auditor == nil {
		return nil, errors.New("audit service is required")
	}

	svc := &Service{
		roster:   rosterStore,
		attempts: attemptStore,
		auditor:  auditor,
		logger:   logger,
		metrics:  m,
		config:   DefaultConfig(),
		tracer:   otel.Tracer("consentd/kba"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify runs one verification attempt for the claimed identifier.
//
// The lockout check runs before any field comparison and before any new
// attempt is recorded, so a locked-out caller learns nothing about field
// matches. An unknown identifier still records a failed attempt, keyed by
// the claimed string, to blunt enumeration.
func (s *Service) Verify(ctx context.Context, identifier string, fields ProvidedFields, origin string) (Result, error) {
	if identifier == "" {
		return Result{}, dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}

	ctx, span := s.tracer.Start(ctx, "kba.Verify",
		trace.WithAttributes(attribute.Int("kba.fields_checked", fields.Checked())))
	defer span.End()

	now := requestcontext.Now(ctx)

	record, err := s.loadAndExpire(ctx, identifier, now)
	if err != nil {
		return Result{}, err
	}

	if record != nil && record.IsLockedAt(now) {
		remaining := record.RemainingLockoutMinutes(now)
		s.metrics.ObserveVerification(string(StatusLocked))
		span.SetAttributes(attribute.String("kba.outcome", string(StatusLocked)))
		return Result{
			Status:           StatusLocked,
			Message:          fmt.Sprintf("Account temporarily locked. Try again in %d minutes.", remaining),
			RemainingMinutes: remaining,
			LockedUntil:      record.LockedUntil,
		}, nil
	}

	person, err := s.roster.Get(ctx, identifier)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up person")
	}
	if person == nil {
		// Unknown identifiers count against the lockout budget.
		if _, err := s.recordFailure(ctx, identifier, origin, now, 0, 0); err != nil {
			return Result{}, err
		}
		s.metrics.ObserveVerification(string(StatusNotFound))
		span.SetAttributes(attribute.String("kba.outcome", string(StatusNotFound)))
		return Result{
			Status:  StatusNotFound,
			Message: "Identity could not be verified.",
		}, nil
	}

	fieldsChecked := fields.Checked()
	if fieldsChecked < minFieldsRequired {
		// Client-input error: no attempt recorded, no audit entry.
		span.SetAttributes(attribute.String("kba.outcome", string(StatusInsufficientFields)))
		return Result{
			Status:        StatusInsufficientFields,
			Message:       fmt.Sprintf("At least %d fields are required for verification.", minFieldsRequired),
			FieldsChecked: fieldsChecked,
		}, nil
	}

	matches := fields.MatchesAgainst(person)
	span.SetAttributes(attribute.Int("kba.matches", matches))

	if matches >= matchesRequired {
		return s.succeed(ctx, identifier, person, origin, now, fieldsChecked, matches)
	}

	return s.fail(ctx, identifier, origin, now, fieldsChecked, matches)
}

// CheckLockout is the read-only pre-flight used before rendering a
// verification form. It applies the same lazy expiry clearing as Verify
// so the two entry points never diverge.
func (s *Service) CheckLockout(ctx context.Context, identifier string) (LockoutStatus, error) {
	if identifier == "" {
		return LockoutStatus{}, dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}

	now := requestcontext.Now(ctx)
	record, err := s.loadAndExpire(ctx, identifier, now)
	if err != nil {
		return LockoutStatus{}, err
	}
	if record == nil {
		return LockoutStatus{}, nil
	}

	status := LockoutStatus{Attempts: record.Count}
	if record.IsLockedAt(now) {
		status.Locked = true
		status.RemainingMinutes = record.RemainingLockoutMinutes(now)
		status.LockedUntil = record.LockedUntil
	}
	return status, nil
}

// Lookup returns the minimal profile for UI confirmation. Never exposes
// knowledge fields.
func (s *Service) Lookup(ctx context.Context, identifier string) (LookupResult, error) {
	if identifier == "" {
		return LookupResult{}, dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}

	person, err := s.roster.Get(ctx, identifier)
	if err != nil {
		return LookupResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up person")
	}
	if person == nil {
		return LookupResult{}, dErrors.New(dErrors.CodeNotFound, "person not found")
	}

	return LookupResult{
		MedicaidID:  person.MedicaidID,
		FirstName:   person.FirstName,
		LastName:    person.LastName,
		IsSynthetic: person.IsSynthetic,
	}, nil
}

// loadAndExpire reads the attempt record and lazily clears an elapsed
// lockout, persisting the reset so state never silently diverges between
// Verify and CheckLockout.
func (s *Service) loadAndExpire(ctx context.Context, identifier string, now time.Time) (*Attempt, error) {
	record, err := s.attempts.Get(ctx, identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get attempt record")
	}
	if record != nil && record.LockoutExpiredAt(now) {
		record.ClearLockout()
		if err := s.attempts.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear expired lockout")
		}
	}
	return record, nil
}

func (s *Service) succeed(ctx context.Context, identifier string, person *roster.Person, origin string, now time.Time, fieldsChecked, matches int) (Result, error) {
	success := now
	record := &Attempt{
		Identifier:    identifier,
		Count:         0,
		LockedUntil:   nil,
		LastAttemptAt: now,
		LastSuccessAt: &success,
		LastOrigin:    origin,
	}
	if err := s.attempts.Update(ctx, record); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset attempt record")
	}

	if err := s.recordAudit(ctx, identifier, audit.ActionKBAVerified, origin, fieldsChecked, matches); err != nil {
		return Result{}, err
	}

	s.metrics.ObserveVerification(string(StatusVerified))
	s.logger.InfoContext(ctx, "identity verified",
		"identifier", identifier,
		"fields_checked", fieldsChecked,
		"matches", matches,
		"origin", privacy.AnonymizeIP(origin),
	)

	return Result{
		Status:        StatusVerified,
		Message:       "Identity verified",
		FieldsChecked: fieldsChecked,
		Matches:       matches,
		Person: &Profile{
			MedicaidID: person.MedicaidID,
			FirstName:  person.FirstName,
			LastName:   person.LastName,
			Email:      person.Email,
			Phone:      person.Phone,
		},
	}, nil
}

func (s *Service) fail(ctx context.Context, identifier, origin string, now time.Time, fieldsChecked, matches int) (Result, error) {
	record, err := s.recordFailure(ctx, identifier, origin, now, fieldsChecked, matches)
	if err != nil {
		return Result{}, err
	}

	s.metrics.ObserveVerification(string(StatusFailed))

	result := Result{
		Status:        StatusFailed,
		FieldsChecked: fieldsChecked,
		Matches:       matches,
	}
	if record.IsLockedAt(now) {
		result.Message = fmt.Sprintf("Account locked for %d minutes.", int(s.config.LockoutWindow.Minutes()))
		result.LockedUntil = record.LockedUntil
		result.RemainingMinutes = record.RemainingLockoutMinutes(now)
	} else {
		remaining := s.config.MaxAttempts - record.Count
		result.Message = fmt.Sprintf("Incorrect information. %d attempts remaining.", remaining)
		result.RemainingAttempts = remaining
	}
	return result, nil
}

// recordFailure increments the counter, applies the lockout when the
// post-increment count reaches the maximum, and audits the failure.
func (s *Service) recordFailure(ctx context.Context, identifier, origin string, now time.Time, fieldsChecked, matches int) (*Attempt, error) {
	record, err := s.attempts.RecordFailure(ctx, identifier, origin, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attempt")
	}

	if record.Count >= s.config.MaxAttempts && !record.IsLockedAt(now) {
		lockedUntil := now.Add(s.config.LockoutWindow)
		record.LockedUntil = &lockedUntil
		if err := s.attempts.Update(ctx, record); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply lockout")
		}
		s.metrics.Lockouts.Inc()
		s.logger.WarnContext(ctx, "identifier locked out",
			"identifier", identifier,
			"attempts", record.Count,
			"locked_until", lockedUntil,
			"origin", privacy.AnonymizeIP(origin),
		)
	}

	if err := s.recordAudit(ctx, identifier, audit.ActionKBAFailed, origin, fieldsChecked, matches); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) recordAudit(ctx context.Context, identifier string, action audit.Action, origin string, fieldsChecked, matches int) error {
	entry, err := audit.NewEntry(identifier, action)
	if err != nil {
		return err
	}
	entry.Origin = origin
	entry.Metadata = map[string]any{
		"fields_checked": fieldsChecked,
		"matches":        matches,
	}
	return s.auditor.Record(ctx, entry)
}
