package audit

import (
	"context"
	"testing"

	"identra.org/internal/auth"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("empty context: got %q", got)
	}

	ctx = WithRequestID(ctx, "req-7")
	if got := RequestIDFromContext(ctx); got != "req-7" {
		t.Fatalf("got %q, want req-7", got)
	}

	// Blank ids are not attached.
	if got := RequestIDFromContext(WithRequestID(context.Background(), "   ")); got != "" {
		t.Fatalf("blank id: got %q", got)
	}
}

func TestLogEventValidation(t *testing.T) {
	if err := LogEvent(context.Background(), "", nil); err == nil {
		t.Fatal("empty event name must be rejected")
	}
	if err := LogEvent(context.Background(), "identity.login", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	ctx := auth.ContextWithIdentity(WithRequestID(context.Background(), "req-7"), "id-1", "ada@example.com")
	if err := LogEvent(ctx, "identity.login", map[string]any{"provider": "local"}); err != nil {
		t.Fatalf("LogEvent with context: %v", err)
	}
}
