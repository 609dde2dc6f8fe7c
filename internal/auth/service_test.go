package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"consentd/internal/audit"
	"consentd/internal/auth"
	"consentd/internal/jwttoken"
	"consentd/internal/notify"
	"consentd/internal/platform/metrics"
	"consentd/internal/roster"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

var linkPattern = regexp.MustCompile(`Verification link: (\S+)\?token=(\S+)`)

type AuthServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	service *auth.Service
	jwt     *jwttoken.Service
	auditor *audit.Service
	roster  roster.Store
	outbox  *bytes.Buffer
}

func (s *AuthServiceSuite) SetupTest() {
	s.now = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	rosterStore := roster.NewInMemoryStore()
	s.Require().NoError(roster.Seed(context.Background(), rosterStore))
	s.roster = rosterStore

	logger := slog.New(slog.DiscardHandler)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s.auditor = audit.NewService(audit.NewInMemoryStore(), logger, m)
	s.jwt = jwttoken.NewService("test-signing-key", "consentd", "consent-portal")
	s.outbox = &bytes.Buffer{}

	var err error
	s.service, err = auth.New(
		rosterStore,
		auth.NewInMemoryTokenStore(),
		s.jwt,
		notify.NewMockNotifierTo(s.outbox, logger),
		s.auditor,
		logger,
		auth.WithTokenTTL(15*time.Minute),
		auth.WithBaseURL("http://localhost:8080"),
	)
	s.Require().NoError(err)
}

// sendAndExtract sends a link for CO-DEMO-001 and pulls the raw token out
// of the mock notification.
func (s *AuthServiceSuite) sendAndExtract() string {
	s.outbox.Reset()
	s.Require().NoError(s.service.SendVerificationLink(s.ctx, "CO-DEMO-001"))
	match := linkPattern.FindStringSubmatch(s.outbox.String())
	s.Require().Len(match, 3, "mock notification should contain the link")
	return match[2]
}

func (s *AuthServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *AuthServiceSuite) TestSendAndRedeem() {
	raw := s.sendAndExtract()

	session, err := s.service.VerifyToken(s.ctx, raw, "203.0.113.10")
	s.Require().NoError(err)
	s.Equal("Bearer", session.TokenType)
	s.Equal("user-alice.demo", session.UserID)
	s.Equal("CO-DEMO-001", session.MedicaidID)
	s.Equal("alice.demo@test.local", session.Email)

	claims, err := s.jwt.Validate(session.AccessToken)
	s.Require().NoError(err)
	s.Equal("user-alice.demo", claims.UserID)
	s.Equal("CO-DEMO-001", claims.MedicaidID)
}

func (s *AuthServiceSuite) TestRedeemAuditsLogin() {
	raw := s.sendAndExtract()
	_, err := s.service.VerifyToken(s.ctx, raw, "203.0.113.10")
	s.Require().NoError(err)

	entries, err := s.auditor.GetUserLogs(s.ctx, "user-alice.demo", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionLogin, entries[0].Action)
	s.Equal("203.0.113.10", entries[0].Origin)
}

func (s *AuthServiceSuite) TestTokenIsSingleUse() {
	raw := s.sendAndExtract()

	_, err := s.service.VerifyToken(s.ctx, raw, "")
	s.Require().NoError(err)

	_, err = s.service.VerifyToken(s.ctx, raw, "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "already used")
}

func (s *AuthServiceSuite) TestTokenExpires() {
	raw := s.sendAndExtract()

	later := s.at(s.now.Add(16 * time.Minute))
	_, err := s.service.VerifyToken(later, raw, "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "expired")
}

func (s *AuthServiceSuite) TestUnknownToken() {
	_, err := s.service.VerifyToken(s.ctx, "bogus-token", "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestSendDerivesNameWhenRosterHasNone() {
	person, err := roster.NewPerson("CO-DEMO-099", "", "", "9999", "1990-01-01")
	s.Require().NoError(err)
	person.Email = "jordan.rivers@test.local"
	s.Require().NoError(s.roster.Put(context.Background(), person))

	s.outbox.Reset()
	s.Require().NoError(s.service.SendVerificationLink(s.ctx, "CO-DEMO-099"))
	s.Contains(s.outbox.String(), "jordan.rivers@test.local (Jordan Rivers)")
}

func (s *AuthServiceSuite) TestSendUnknownIdentifier() {
	err := s.service.SendVerificationLink(s.ctx, "CO-NOPE-999")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *AuthServiceSuite) TestLogoutAudits() {
	s.Require().NoError(s.service.Logout(s.ctx, "user-alice.demo", "203.0.113.10"))

	entries, err := s.auditor.GetUserLogs(s.ctx, "user-alice.demo", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionLogout, entries[0].Action)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}
