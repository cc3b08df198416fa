package auth

import "time"

// Provider identifies how an identity authenticates.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Identity is a registered account, local or federated. Federated identities
// may carry no password hash at all.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	AvatarURL    string
	Provider     Provider
	ProviderID   string

	EmailVerified       bool
	VerificationToken   string
	VerificationExpires time.Time

	ResetToken   string
	ResetExpires time.Time

	Active      bool
	LastLoginAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View returns the identity without credential material, suitable for
// returning to clients.
func (i *Identity) View() IdentityView {
	return IdentityView{
		ID:            i.ID,
		Email:         i.Email,
		FirstName:     i.FirstName,
		LastName:      i.LastName,
		AvatarURL:     i.AvatarURL,
		Provider:      i.Provider,
		EmailVerified: i.EmailVerified,
		LastLoginAt:   i.LastLoginAt,
		CreatedAt:     i.CreatedAt,
	}
}

// IdentityView is the secret-free projection of an Identity.
type IdentityView struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Provider      Provider  `json:"provider"`
	EmailVerified bool      `json:"email_verified"`
	LastLoginAt   time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExternalIdentity is the already-verified result of an OAuth provider
// handshake; the handshake itself happens outside this package.
type ExternalIdentity struct {
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
	Provider   Provider
	ProviderID string
}

// ClientMeta is client information captured at issuance time.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// RefreshToken is a persisted refresh token. The opaque secret itself is
// never stored; SecretHash holds its sha256 hex digest.
type RefreshToken struct {
	ID         string
	IdentityID string
	SecretHash string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  time.Time
	ReplacedBy string
	UserAgent  string
	IP         string
}

// IsExpired reports whether the token's absolute expiry has passed.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsActive reports whether the token is usable: not revoked and not expired.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

// Session is one logical login instance (device/browser), independent of
// refresh-token rotation. Sessions are deactivated, never deleted.
type Session struct {
	ID             string    `json:"id"`
	IdentityID     string    `json:"-"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IP             string    `json:"ip,omitempty"`
	Device         string    `json:"device"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	ExpiresAt      time.Time `json:"expires_at"`
	Active         bool      `json:"active"`
	LastActivityAt time.Time `json:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsExpired reports whether the session's expiry has passed.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
