package consent

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"consentd/internal/audit"
	"consentd/internal/platform/metrics"
	"consentd/internal/provider"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

// Service is the consent registry. It joins the provider directory with
// stored pair records and applies the opt-out default for pairs the user
// has never touched.
type Service struct {
	store     Store
	providers provider.Store
	auditor   *audit.Service
	logger    *slog.Logger
	metrics   *metrics.Metrics
	// defaultConsented is the effective state for a pair with no stored
	// record. True in opt-out jurisdictions.
	defaultConsented bool
	tracer           trace.Tracer
}

type Option func(*Service)

// WithDefaultConsented sets the effective state for untouched pairs.
func WithDefaultConsented(consented bool) Option {
	return func(s *Service) { s.defaultConsented = consented }
}

func New(store Store, providers provider.Store, auditor *audit.Service, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("consent store is required")
	}
	if providers == nil {
		return nil, errors.New("provider store is required")
	}
	if auditor == nil {
		return nil, errors.New("audit service is required")
	}

	svc := &Service{
		store:            store,
		providers:        providers,
		auditor:          auditor,
		logger:           logger,
		metrics:          m,
		defaultConsented: true,
		tracer:           otel.Tracer("consentd/consent"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ListForUser returns one entry per active provider with the user's
// effective consent state. Providers the user never toggled report the
// configured default and IsDefault true.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]ProviderConsent, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}

	ctx, span := s.tracer.Start(ctx, "consent.ListForUser")
	defer span.End()

	active, err := s.providers.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list providers")
	}

	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	byProvider := make(map[string]Record, len(records))
	for _, r := range records {
		byProvider[r.ProviderID] = r
	}

	now := requestcontext.Now(ctx)
	out := make([]ProviderConsent, 0, len(active))
	for _, p := range active {
		entry := ProviderConsent{
			ID:        p.ID,
			Name:      p.Name,
			Address:   p.Address,
			Type:      string(p.Type),
			Consented: s.defaultConsented,
			IsDefault: true,
		}
		if record, ok := byProvider[p.ID]; ok {
			updated := record.UpdatedAt
			entry.Consented = record.Active(now)
			entry.IsDefault = false
			entry.ConsentID = record.ID
			entry.DataTypes = record.DataTypes
			entry.UpdatedAt = &updated
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	span.SetAttributes(attribute.Int("consent.providers", len(out)))
	return out, nil
}

// Toggle sets the consent state for one (user, provider) pair, creating
// the pair record on first touch and updating it afterwards. Returns the
// consent record ID.
func (s *Service) Toggle(ctx context.Context, userID, providerID string, consented bool, origin string) (string, error) {
	return s.toggle(ctx, userID, providerID, consented, nil, origin)
}

// ToggleWithDataTypes is Toggle with explicit data-type tags.
func (s *Service) ToggleWithDataTypes(ctx context.Context, userID, providerID string, consented bool, dataTypes []DataType, origin string) (string, error) {
	return s.toggle(ctx, userID, providerID, consented, dataTypes, origin)
}

func (s *Service) toggle(ctx context.Context, userID, providerID string, consented bool, dataTypes []DataType, origin string) (string, error) {
	if userID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if providerID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "provider id is required")
	}
	for _, dt := range dataTypes {
		if !dt.IsValid() {
			return "", dErrors.New(dErrors.CodeInvalidInput, "unknown data type: "+string(dt))
		}
	}

	ctx, span := s.tracer.Start(ctx, "consent.Toggle",
		trace.WithAttributes(attribute.Bool("consent.granted", consented)))
	defer span.End()

	p, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up provider")
	}
	if p == nil || !p.Active {
		return "", dErrors.New(dErrors.CodeNotFound, "provider not found")
	}

	now := requestcontext.Now(ctx)
	existing, err := s.store.GetByUserAndProvider(ctx, userID, providerID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up consent")
	}

	var consentID string
	if existing != nil {
		existing.Consented = consented
		if dataTypes != nil {
			existing.DataTypes = dataTypes
		}
		existing.UpdatedAt = now
		if err := s.store.Update(ctx, *existing); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent")
		}
		consentID = existing.ID
	} else {
		record, err := NewRecord(userID, providerID, consented, dataTypes)
		if err != nil {
			return "", err
		}
		record.ID = uuid.NewString()
		record.CreatedAt = now
		record.UpdatedAt = now
		if err := s.store.Create(ctx, record); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create consent")
		}
		consentID = record.ID
	}

	action := audit.ActionConsentRevoked
	if consented {
		action = audit.ActionConsentGranted
	}
	entry, err := audit.NewEntry(userID, action)
	if err != nil {
		return "", err
	}
	entry.ProviderID = providerID
	entry.Origin = origin
	entry.Metadata = map[string]any{"consent_id": consentID, "provider_name": p.Name}
	if err := s.auditor.Record(ctx, entry); err != nil {
		return "", err
	}

	s.metrics.ObserveToggle(consented)
	s.logger.InfoContext(ctx, "consent toggled",
		"user_id", userID,
		"provider_id", providerID,
		"consented", consented,
	)
	return consentID, nil
}

// GrantAll grants consent for every listed provider in order. No
// atomicity: a mid-list failure leaves earlier toggles applied and
// returns how many succeeded alongside the error.
func (s *Service) GrantAll(ctx context.Context, userID string, providerIDs []string, origin string) (int, error) {
	return s.toggleAll(ctx, userID, providerIDs, true, origin)
}

// RevokeAll revokes consent for every listed provider in order, with the
// same partial-failure behavior as GrantAll.
func (s *Service) RevokeAll(ctx context.Context, userID string, providerIDs []string, origin string) (int, error) {
	return s.toggleAll(ctx, userID, providerIDs, false, origin)
}

func (s *Service) toggleAll(ctx context.Context, userID string, providerIDs []string, consented bool, origin string) (int, error) {
	if len(providerIDs) == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "at least one provider id is required")
	}
	applied := 0
	for _, providerID := range providerIDs {
		if _, err := s.toggle(ctx, userID, providerID, consented, nil, origin); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
