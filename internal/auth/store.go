package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Identities(ctx context.Context) IdentityStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
	Sessions(ctx context.Context) SessionStore
}

// IdentityStore manages identity records. Email uniqueness is enforced here:
// Create returns ErrAlreadyExists for a duplicate email.
type IdentityStore interface {
	Create(ctx context.Context, identity *Identity) error
	Find(ctx context.Context, id string) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByProvider(ctx context.Context, provider Provider, providerID string) (*Identity, error)
	FindByVerificationToken(ctx context.Context, token string) (*Identity, error)
	FindByResetToken(ctx context.Context, token string) (*Identity, error)
	Update(ctx context.Context, identity *Identity) error
}

// RefreshTokenStore manages the refresh-token lifecycle. Revocation is a
// compare-and-set on the revoked flag: of two concurrent attempts against the
// same token, exactly one wins.
type RefreshTokenStore interface {
	Insert(ctx context.Context, token *RefreshToken) error
	// FindBySecret looks a token up by the sha256 hex digest of its secret.
	FindBySecret(ctx context.Context, secretHash string) (*RefreshToken, error)
	// Rotate atomically revokes the token identified by oldSecretHash,
	// linking it to next, and persists next. Returns ErrUnauthorized when
	// the old token was already revoked, so at most one rotation per secret
	// ever succeeds.
	Rotate(ctx context.Context, oldSecretHash string, next *RefreshToken) error
	// Revoke marks a single token revoked, optionally recording the id of
	// the token that replaced it. Returns ErrNotFound when no active token
	// matches.
	Revoke(ctx context.Context, secretHash, replacedBy string) error
	RevokeAllForIdentity(ctx context.Context, identityID string) error
	// PurgeExpired deletes tokens whose expiry precedes the cutoff.
	// Maintenance only; never called on the request path.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionStore manages login sessions.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Find(ctx context.Context, sessionID string) (*Session, error)
	// ListActiveByIdentity returns active sessions, most recent activity first.
	ListActiveByIdentity(ctx context.Context, identityID string) ([]*Session, error)
	Deactivate(ctx context.Context, sessionID string) error
	DeactivateAllForIdentity(ctx context.Context, identityID string) error
	TouchActivity(ctx context.Context, sessionID string, at time.Time) error
}
