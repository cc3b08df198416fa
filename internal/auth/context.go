package auth

import (
	"context"
	"strings"
)

type ctxKey string

const (
	identityIDKey ctxKey = "auth_identity_id"
	emailKey      ctxKey = "auth_email"
)

// ContextWithIdentity stores the authenticated identity in the context.
func ContextWithIdentity(ctx context.Context, identityID, email string) context.Context {
	ctx = context.WithValue(ctx, identityIDKey, strings.TrimSpace(identityID))
	if email = strings.TrimSpace(email); email != "" {
		ctx = context.WithValue(ctx, emailKey, email)
	}
	return ctx
}

// IdentityIDFromContext extracts the authenticated identity id from context.
func IdentityIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// EmailFromContext returns the authenticated email stored in context.
func EmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
