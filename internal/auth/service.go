package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"consentd/internal/audit"
	"consentd/internal/jwttoken"
	"consentd/internal/notify"
	"consentd/internal/roster"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/email"
	"consentd/pkg/requestcontext"
	"consentd/pkg/security"
)

// tokenEntropyBytes is the random length of a verification token.
const tokenEntropyBytes = 32

// sessionLifetime bounds the bearer token issued on redemption.
const sessionLifetime = time.Hour

// Service runs the verification-link flow.
type Service struct {
	roster   roster.Store
	tokens   TokenStore
	jwt      *jwttoken.Service
	notifier notify.Notifier
	auditor  *audit.Service
	logger   *slog.Logger
	tokenTTL time.Duration
	baseURL  string
	tracer   trace.Tracer
}

type Option func(*Service)

// WithTokenTTL overrides the verification-link lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// WithBaseURL sets the public URL prefix for links.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = baseURL }
}

func New(rosterStore roster.Store, tokens TokenStore, jwtService *jwttoken.Service, notifier notify.Notifier, auditor *audit.Service, logger *slog.Logger, opts ...Option) (*Service, error) {
	if rosterStore == nil {
		return nil, errors.New("roster store is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if jwtService == nil {
		return nil, errors.New("jwt service is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if auditor == nil {
		return nil, errors.New("audit service is required")
	}

	svc := &Service{
		roster:   rosterStore,
		tokens:   tokens,
		jwt:      jwtService,
		notifier: notifier,
		auditor:  auditor,
		logger:   logger,
		tokenTTL: 15 * time.Minute,
		baseURL:  "http://localhost:8080",
		tracer:   otel.Tracer("consentd/auth"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SendVerificationLink mints a single-use token for the person on file
// and delivers the link to their email address. Only the SHA-256 digest
// of the token is stored.
func (s *Service) SendVerificationLink(ctx context.Context, medicaidID string) error {
	if medicaidID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}

	ctx, span := s.tracer.Start(ctx, "auth.SendVerificationLink")
	defer span.End()

	person, err := s.roster.Get(ctx, medicaidID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up person")
	}
	if person == nil {
		return dErrors.New(dErrors.CodeNotFound, "person not found")
	}
	if person.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "person has no email on file")
	}

	raw, err := security.GenerateToken(tokenEntropyBytes)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
	}

	now := requestcontext.Now(ctx)
	token := VerificationToken{
		Digest:     security.Digest(raw),
		UserID:     email.DeriveUserID(person.Email),
		MedicaidID: person.MedicaidID,
		Email:      person.Email,
		ExpiresAt:  now.Add(s.tokenTTL),
		CreatedAt:  now,
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token")
	}

	link := fmt.Sprintf("%s/verify?token=%s", s.baseURL, raw)
	first, last := person.FirstName, person.LastName
	if first == "" && last == "" {
		first, last = email.DeriveNameFromEmail(person.Email)
	}
	name := strings.TrimSpace(first + " " + last)
	if err := s.notifier.SendVerificationLink(ctx, person.Email, name, link); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send verification link")
	}

	s.logger.InfoContext(ctx, "verification link sent",
		"medicaid_id", person.MedicaidID,
		"expires_at", token.ExpiresAt,
	)
	return nil
}

// VerifyToken redeems a verification link. Tokens are single-use: the
// first redemption wins and every replay is rejected.
func (s *Service) VerifyToken(ctx context.Context, rawToken, origin string) (Session, error) {
	if rawToken == "" {
		return Session{}, dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}

	ctx, span := s.tracer.Start(ctx, "auth.VerifyToken")
	defer span.End()

	now := requestcontext.Now(ctx)
	digest := security.Digest(rawToken)

	token, err := s.tokens.Get(ctx, digest)
	if err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up token")
	}
	if token == nil {
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired verification link")
	}
	if token.Used() {
		s.logger.WarnContext(ctx, "verification token replay",
			"medicaid_id", token.MedicaidID,
			"used_at", token.UsedAt,
		)
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "verification link already used")
	}
	if token.ExpiredAt(now) {
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "verification link has expired")
	}

	if _, err := s.tokens.MarkUsed(ctx, digest, now); err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark token used")
	}

	accessToken, err := s.jwt.GenerateAccessToken(token.UserID, token.MedicaidID, sessionLifetime)
	if err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	entry, err := audit.NewEntry(token.UserID, audit.ActionLogin)
	if err != nil {
		return Session{}, err
	}
	entry.Origin = origin
	entry.Metadata = map[string]any{"medicaid_id": token.MedicaidID, "method": "verification_link"}
	if err := s.auditor.Record(ctx, entry); err != nil {
		return Session{}, err
	}

	s.logger.InfoContext(ctx, "verification link redeemed",
		"user_id", token.UserID,
		"medicaid_id", token.MedicaidID,
	)

	return Session{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(sessionLifetime.Seconds()),
		UserID:      token.UserID,
		MedicaidID:  token.MedicaidID,
		Email:       token.Email,
	}, nil
}

// Logout records the end of a session. Bearer tokens are stateless, so
// this is purely an audit event.
func (s *Service) Logout(ctx context.Context, userID, origin string) error {
	if userID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	entry, err := audit.NewEntry(userID, audit.ActionLogout)
	if err != nil {
		return err
	}
	entry.Origin = origin
	return s.auditor.Record(ctx, entry)
}
