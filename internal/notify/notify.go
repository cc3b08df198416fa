// Package notify is the outbound notification boundary. Delivery is
// fire-and-forget from the caller's perspective: failures are logged and
// never fail the primary operation.
package notify

import (
	"context"

	"identra.org/internal/obs"
)

// Notifier delivers account-lifecycle notifications.
type Notifier interface {
	VerificationRequested(ctx context.Context, email, token string) error
	PasswordResetRequested(ctx context.Context, email, token string) error
	PasswordChanged(ctx context.Context, email string) error
}

// LogNotifier writes notifications as structured log lines. It stands in for
// a real mail transport; swapping in one is a drop-in replacement.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) VerificationRequested(_ context.Context, email, token string) error {
	obs.Event("notify.verification_requested", map[string]any{
		"email": email,
		"token": token,
	})
	return nil
}

func (LogNotifier) PasswordResetRequested(_ context.Context, email, token string) error {
	obs.Event("notify.password_reset_requested", map[string]any{
		"email": email,
		"token": token,
	})
	return nil
}

func (LogNotifier) PasswordChanged(_ context.Context, email string) error {
	obs.Event("notify.password_changed", map[string]any{
		"email": email,
	})
	return nil
}
