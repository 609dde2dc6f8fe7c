// Package notify delivers verification links to users. The mock
// implementation writes the link to the process log for local
// development; a real deployment injects an email or SMS sender.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Notifier sends a verification link to the given address.
type Notifier interface {
	SendVerificationLink(ctx context.Context, email, name, link string) error
}

// MockNotifier prints the link to stdout instead of sending anything.
// Development only.
type MockNotifier struct {
	out    io.Writer
	logger *slog.Logger
}

func NewMockNotifier(logger *slog.Logger) *MockNotifier {
	return &MockNotifier{out: os.Stdout, logger: logger}
}

// NewMockNotifierTo directs the banner to an arbitrary writer. Used in
// tests.
func NewMockNotifierTo(out io.Writer, logger *slog.Logger) *MockNotifier {
	return &MockNotifier{out: out, logger: logger}
}

func (n *MockNotifier) SendVerificationLink(ctx context.Context, email, name, link string) error {
	fmt.Fprintln(n.out, "============================================================")
	fmt.Fprintf(n.out, "  MOCK NOTIFICATION to %s (%s)\n", email, name)
	fmt.Fprintf(n.out, "  Verification link: %s\n", link)
	fmt.Fprintln(n.out, "============================================================")
	n.logger.InfoContext(ctx, "mock verification link sent", "email", email)
	return nil
}
