package email

import (
	"context"
	"log/slog"
	"net/mail"

	"github.com/lorrc/support-signals/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending alert emails.
// It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	from   string
	logger *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier sending from the given address.
func NewMockSMTPNotifier(from string, logger *slog.Logger) ports.Notifier {
	return &MockSMTPNotifier{
		from:   from,
		logger: logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification instead of sending an email.
// It runs in a separate goroutine and handles its own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	// 1. Validate the recipient address
	addr, err := mail.ParseAddress(params.Recipient)
	if err != nil {
		n.logger.ErrorContext(ctx, "invalid notification recipient",
			"recipient", params.Recipient,
			"alert_id", params.AlertID,
			"error", err,
		)
		return
	}

	// 2. Log the mock email
	n.logger.InfoContext(ctx, "mock email sent",
		"from", n.from,
		"to_email", addr.Address,
		"subject", params.Subject,
		"alert_id", params.AlertID,
	)
}
