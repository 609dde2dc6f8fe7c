package kba_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"consentd/internal/audit"
	"consentd/internal/kba"
	"consentd/internal/platform/metrics"
	"consentd/internal/roster"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/requestcontext"
)

type KBAServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	service  *kba.Service
	attempts *kba.InMemoryStore
	auditLog *audit.InMemoryStore
	auditor  *audit.Service
}

func (s *KBAServiceSuite) SetupTest() {
	s.now = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.ctx = s.pin(s.now)

	rosterStore := roster.NewInMemoryStore()
	s.Require().NoError(roster.Seed(context.Background(), rosterStore))

	s.attempts = kba.NewInMemoryStore()
	s.auditLog = audit.NewInMemoryStore()

	logger := slog.New(slog.DiscardHandler)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s.auditor = audit.NewService(s.auditLog, logger, m)

	var err error
	s.service, err = kba.New(rosterStore, s.attempts, s.auditor, logger, m)
	s.Require().NoError(err)
}

func (s *KBAServiceSuite) pin(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *KBAServiceSuite) verify(fields kba.ProvidedFields) kba.Result {
	result, err := s.service.Verify(s.ctx, "CO-DEMO-001", fields, "203.0.113.10")
	s.Require().NoError(err)
	return result
}

func correctFields() kba.ProvidedFields {
	return kba.ProvidedFields{SSNLast4: "1234", DateOfBirth: "1985-03-15"}
}

func wrongFields() kba.ProvidedFields {
	return kba.ProvidedFields{SSNLast4: "0000", DateOfBirth: "2000-01-01"}
}

func (s *KBAServiceSuite) TestVerifyTwoMatchingFields() {
	result := s.verify(kba.ProvidedFields{DateOfBirth: "1985-03-15", Zip: "80202"})

	s.Equal(kba.StatusVerified, result.Status)
	s.Require().NotNil(result.Person)
	s.Equal("Alice", result.Person.FirstName)
	s.Equal("CO-DEMO-001", result.Person.MedicaidID)
	s.Equal(2, result.Matches)
}

func (s *KBAServiceSuite) TestVerifyStreetCaseInsensitive() {
	result := s.verify(kba.ProvidedFields{Street: "  123 DEMO street ", Zip: "80202"})

	s.Equal(kba.StatusVerified, result.Status)
}

func (s *KBAServiceSuite) TestVerifyOneMatchOfThreeFails() {
	result := s.verify(kba.ProvidedFields{SSNLast4: "1234", DateOfBirth: "1990-01-01", Zip: "99999"})

	s.Equal(kba.StatusFailed, result.Status)
	s.Equal(1, result.Matches)
	s.Equal("Incorrect information. 2 attempts remaining.", result.Message)
	s.Equal(2, result.RemainingAttempts)
}

func (s *KBAServiceSuite) TestInsufficientFieldsLeavesStateUntouched() {
	result := s.verify(kba.ProvidedFields{SSNLast4: "1234"})

	s.Equal(kba.StatusInsufficientFields, result.Status)

	record, err := s.attempts.Get(s.ctx, "CO-DEMO-001")
	s.Require().NoError(err)
	s.Nil(record, "no attempt recorded for a client-input error")

	entries, err := s.auditor.GetUserLogs(s.ctx, "CO-DEMO-001", 10)
	s.Require().NoError(err)
	s.Empty(entries, "no audit entry for a client-input error")
}

func (s *KBAServiceSuite) TestThirdFailureLocks() {
	s.verify(wrongFields())
	s.verify(wrongFields())
	result := s.verify(wrongFields())

	s.Equal(kba.StatusFailed, result.Status)
	s.Equal("Account locked for 30 minutes.", result.Message)
	s.Require().NotNil(result.LockedUntil)
	s.Equal(s.now.Add(30*time.Minute), *result.LockedUntil)
}

func (s *KBAServiceSuite) TestLockedRejectsCorrectFields() {
	for i := 0; i < 3; i++ {
		s.verify(wrongFields())
	}

	result := s.verify(correctFields())

	s.Equal(kba.StatusLocked, result.Status)
	s.Equal(30, result.RemainingMinutes)

	// Lockout check runs before field comparison, so no new attempt and
	// no audit entry was produced.
	entries, err := s.auditor.GetUserLogs(s.ctx, "CO-DEMO-001", 10)
	s.Require().NoError(err)
	s.Len(entries, 3)
}

func (s *KBAServiceSuite) TestLockoutExpiresLazily() {
	for i := 0; i < 3; i++ {
		s.verify(wrongFields())
	}

	s.ctx = s.pin(s.now.Add(31 * time.Minute))
	result := s.verify(correctFields())

	s.Equal(kba.StatusVerified, result.Status)
}

func (s *KBAServiceSuite) TestSuccessResetsCounter() {
	s.verify(wrongFields())
	s.verify(wrongFields())
	s.verify(correctFields())

	// A fresh budget after the success.
	result := s.verify(wrongFields())
	s.Equal(2, result.RemainingAttempts)

	record, err := s.attempts.Get(s.ctx, "CO-DEMO-001")
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal(1, record.Count)
	s.Require().NotNil(record.LastSuccessAt)
}

func (s *KBAServiceSuite) TestUnknownIdentifierRecordsAttempt() {
	result, err := s.service.Verify(s.ctx, "CO-NOPE-999", correctFields(), "203.0.113.10")
	s.Require().NoError(err)
	s.Equal(kba.StatusNotFound, result.Status)

	record, err := s.attempts.Get(s.ctx, "CO-NOPE-999")
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal(1, record.Count)
}

func (s *KBAServiceSuite) TestUnknownIdentifierLocksOut() {
	for i := 0; i < 3; i++ {
		_, err := s.service.Verify(s.ctx, "CO-NOPE-999", correctFields(), "")
		s.Require().NoError(err)
	}

	result, err := s.service.Verify(s.ctx, "CO-NOPE-999", correctFields(), "")
	s.Require().NoError(err)
	s.Equal(kba.StatusLocked, result.Status)
}

func (s *KBAServiceSuite) TestVerifyAuditEntries() {
	s.verify(wrongFields())
	s.verify(correctFields())

	entries, err := s.auditor.GetUserLogs(s.ctx, "CO-DEMO-001", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	actions := []audit.Action{entries[0].Action, entries[1].Action}
	s.Contains(actions, audit.ActionKBAVerified)
	s.Contains(actions, audit.ActionKBAFailed)
	for _, e := range entries {
		s.Contains(e.Metadata, "fields_checked")
		s.Contains(e.Metadata, "matches")
	}
}

func (s *KBAServiceSuite) TestVerifyEmptyIdentifier() {
	_, err := s.service.Verify(s.ctx, "", correctFields(), "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
}

func (s *KBAServiceSuite) TestCheckLockout() {
	status, err := s.service.CheckLockout(s.ctx, "CO-DEMO-001")
	s.Require().NoError(err)
	s.False(status.Locked)
	s.Zero(status.Attempts)

	for i := 0; i < 3; i++ {
		s.verify(wrongFields())
	}

	status, err = s.service.CheckLockout(s.ctx, "CO-DEMO-001")
	s.Require().NoError(err)
	s.True(status.Locked)
	s.Equal(30, status.RemainingMinutes)

	s.ctx = s.pin(s.now.Add(time.Hour))
	status, err = s.service.CheckLockout(s.ctx, "CO-DEMO-001")
	s.Require().NoError(err)
	s.False(status.Locked)
	s.Zero(status.Attempts, "expired lockout clears the counter")
}

func (s *KBAServiceSuite) TestLookup() {
	result, err := s.service.Lookup(s.ctx, "CO-DEMO-002")
	s.Require().NoError(err)
	s.Equal("Bob", result.FirstName)
	s.True(result.IsSynthetic)

	_, err = s.service.Lookup(s.ctx, "CO-NOPE-999")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *KBAServiceSuite) TestCustomPolicy() {
	logger := slog.New(slog.DiscardHandler)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	rosterStore := roster.NewInMemoryStore()
	s.Require().NoError(roster.Seed(context.Background(), rosterStore))

	svc, err := kba.New(rosterStore, kba.NewInMemoryStore(), s.auditor, logger, m,
		kba.WithConfig(kba.Config{MaxAttempts: 1, LockoutWindow: 5 * time.Minute}))
	s.Require().NoError(err)

	result, err := svc.Verify(s.ctx, "CO-DEMO-001", wrongFields(), "")
	s.Require().NoError(err)
	s.Equal("Account locked for 5 minutes.", result.Message)
}

func TestKBAServiceSuite(t *testing.T) {
	suite.Run(t, new(KBAServiceSuite))
}
