package audit_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/audit"
	"consentd/internal/platform/metrics"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
	// failures counts down: each Publish call fails while it is positive.
	failures int
}

func (s *recordingSink) Publish(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestWorkerDrainsInbox(t *testing.T) {
	sink := &recordingSink{}
	inbox := make(chan audit.Entry, 8)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	worker := audit.NewWorker(sink, inbox, slog.New(slog.DiscardHandler), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for i := 0; i < 3; i++ {
		entry, err := audit.NewEntry("user-alice", audit.ActionLogin)
		require.NoError(t, err)
		inbox <- entry
	}

	require.Eventually(t, func() bool { return sink.len() == 3 },
		time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerSurvivesPublishFailure(t *testing.T) {
	sink := &recordingSink{failures: 2}
	inbox := make(chan audit.Entry, 8)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	worker := audit.NewWorker(sink, inbox, slog.New(slog.DiscardHandler), m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	for i := 0; i < 4; i++ {
		entry, err := audit.NewEntry("user-alice", audit.ActionConsentRevoked)
		require.NoError(t, err)
		inbox <- entry
	}

	// The first two publishes fail; the worker keeps draining.
	require.Eventually(t, func() bool { return sink.len() == 2 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.AuditDropped))

	select {
	case err := <-done:
		t.Fatalf("worker exited early: %v", err)
	default:
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
