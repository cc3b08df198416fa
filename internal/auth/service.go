package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"identra.org/internal/ids"
	"identra.org/internal/notify"
	"identra.org/internal/obs"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultSessionTTL = 7 * 24 * time.Hour

	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
)

// Acknowledgment messages returned by operations that deliberately reveal
// nothing about account existence or prior state.
const (
	msgRegistered       = "Registration successful. Please check your email to verify your account."
	msgVerified         = "Email verified successfully"
	msgVerificationSent = "Verification email sent"
	msgResetRequested   = "If the email exists, a password reset link has been sent"
	msgPasswordReset    = "Password reset successful"
	msgLoggedOut        = "Logged out successfully"
)

// Service is the auth orchestrator: it coordinates credential verification,
// token issuance, session tracking, rotation, and mass revocation across the
// stores. All durable state lives in the Store; the Service itself holds only
// immutable configuration.
type Service struct {
	store    Store
	issuer   *Issuer
	notifier notify.Notifier
	now      func() time.Time

	workFactor    int
	refreshTTL    time.Duration
	sessionTTL    time.Duration
	replayCascade bool
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithWorkFactor sets the bcrypt work factor, validated to [10,15].
func WithWorkFactor(cost int) ServiceOption {
	return func(s *Service) error {
		if cost < MinWorkFactor || cost > MaxWorkFactor {
			return errors.New("auth: work factor out of range")
		}
		s.workFactor = cost
		return nil
	}
}

// WithRefreshTTL configures refresh-token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithSessionTTL configures session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithNotifier sets the outbound notification sink.
func WithNotifier(n notify.Notifier) ServiceOption {
	return func(s *Service) error {
		if n != nil {
			s.notifier = n
		}
		return nil
	}
}

// WithReplayCascade enables chain-wide revocation when a revoked refresh
// token is presented again: every outstanding token of the identity is
// revoked, on the assumption that the lineage has been stolen.
func WithReplayCascade(enabled bool) ServiceOption {
	return func(s *Service) error {
		s.replayCascade = enabled
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the orchestrator.
func NewService(store Store, issuer *Issuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: issuer is required")
	}
	svc := &Service{
		store:      store,
		issuer:     issuer,
		notifier:   notify.LogNotifier{},
		now:        time.Now,
		workFactor: DefaultWorkFactor,
		refreshTTL: defaultRefreshTTL,
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Profile holds the optional profile fields supplied at registration.
type Profile struct {
	FirstName string
	LastName  string
}

// RegisterResult acknowledges a pending-verification registration.
type RegisterResult struct {
	IdentityID string `json:"identity_id"`
	Message    string `json:"message"`
}

// LoginResult carries freshly issued credentials.
type LoginResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	Identity     IdentityView `json:"user"`
	ExpiresIn    int          `json:"expires_in"`
}

// RefreshResult carries the rotated credential pair.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Register creates a local identity in pending-verification state. No tokens
// or session are issued until the user logs in.
func (s *Service) Register(ctx context.Context, email, password string, profile Profile) (*RegisterResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	identities := s.store.Identities(ctx)
	if _, err := identities.FindByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password, s.workFactor)
	if err != nil {
		return nil, err
	}
	verification, err := NewOneTimeToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	identity := &Identity{
		ID:                  ids.New(),
		Email:               email,
		PasswordHash:        hash,
		FirstName:           strings.TrimSpace(profile.FirstName),
		LastName:            strings.TrimSpace(profile.LastName),
		Provider:            ProviderLocal,
		VerificationToken:   verification,
		VerificationExpires: now.Add(verificationTTL),
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := identities.Create(ctx, identity); err != nil {
		return nil, err
	}

	obs.CountRegistration()
	obs.Event("auth.registered", map[string]any{"email": email})
	s.notify(func() error { return s.notifier.VerificationRequested(ctx, email, verification) })

	return &RegisterResult{IdentityID: identity.ID, Message: msgRegistered}, nil
}

// Login verifies a local credential pair and issues tokens plus a session.
// Missing identity, wrong password, and deactivated account all surface as
// the same ErrUnauthorized to prevent user enumeration.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrUnauthorized
	}

	identity, err := s.store.Identities(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if identity.PasswordHash == "" {
		return nil, ErrUnauthorized
	}
	if err := VerifyPassword(identity.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}
	if !identity.Active {
		return nil, ErrUnauthorized
	}

	return s.issueFor(ctx, identity, meta)
}

// LoginExternal admits an identity already verified by an external provider.
// An existing identity is matched by email or by (provider, external id) and
// enriched in place; otherwise a new pre-verified identity is created.
func (s *Service) LoginExternal(ctx context.Context, ext ExternalIdentity, meta ClientMeta) (*LoginResult, error) {
	email := NormalizeEmail(ext.Email)
	if email == "" || ext.Provider == "" || ext.ProviderID == "" {
		return nil, ErrInvalidInput
	}

	identities := s.store.Identities(ctx)
	identity, err := identities.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		identity, err = identities.FindByProvider(ctx, ext.Provider, ext.ProviderID)
	}
	switch {
	case err == nil:
		if identity.AvatarURL == "" && ext.AvatarURL != "" {
			identity.AvatarURL = ext.AvatarURL
		}
		if !identity.EmailVerified && ext.Provider != ProviderLocal {
			identity.EmailVerified = true
		}
		identity.UpdatedAt = s.now().UTC()
		if err := identities.Update(ctx, identity); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNotFound):
		now := s.now().UTC()
		identity = &Identity{
			ID:            ids.New(),
			Email:         email,
			FirstName:     strings.TrimSpace(ext.FirstName),
			LastName:      strings.TrimSpace(ext.LastName),
			AvatarURL:     ext.AvatarURL,
			Provider:      ext.Provider,
			ProviderID:    ext.ProviderID,
			EmailVerified: true,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := identities.Create(ctx, identity); err != nil {
			return nil, err
		}
		obs.Event("auth.external_identity_created", map[string]any{
			"email":    email,
			"provider": string(ext.Provider),
		})
	default:
		return nil, err
	}

	if !identity.Active {
		return nil, ErrUnauthorized
	}
	return s.issueFor(ctx, identity, meta)
}

// Refresh exchanges an active refresh secret for a fresh token pair, rotating
// the refresh token atomically: of two concurrent exchanges of one secret, at
// most one succeeds. No new session is created; refresh happens within an
// existing session's lifetime.
func (s *Service) Refresh(ctx context.Context, refreshSecret string, meta ClientMeta) (*RefreshResult, error) {
	if refreshSecret == "" {
		return nil, ErrUnauthorized
	}
	tokens := s.store.RefreshTokens(ctx)
	secretHash := HashSecret(refreshSecret)

	record, err := tokens.FindBySecret(ctx, secretHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	now := s.now().UTC()
	if !record.IsActive(now) {
		if record.Revoked {
			obs.CountReplayRejected()
			if s.replayCascade {
				// Reuse of a rotated token means the lineage leaked; kill it all.
				if err := tokens.RevokeAllForIdentity(ctx, record.IdentityID); err != nil {
					return nil, err
				}
				obs.CountMassRevocation("replay_cascade")
				obs.Event("auth.replay_cascade", map[string]any{"identity_id": record.IdentityID})
			}
		}
		return nil, ErrUnauthorized
	}

	identity, err := s.store.Identities(ctx).Find(ctx, record.IdentityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !identity.Active {
		return nil, ErrUnauthorized
	}

	plain, next, err := s.newRefreshToken(identity.ID, meta, now)
	if err != nil {
		return nil, err
	}
	if err := tokens.Rotate(ctx, secretHash, next); err != nil {
		return nil, err
	}

	accessToken, _, err := s.issuer.AccessToken(identity)
	if err != nil {
		return nil, err
	}

	obs.CountRotation()
	return &RefreshResult{
		AccessToken:  accessToken,
		RefreshToken: plain,
		ExpiresIn:    s.expiresIn(),
	}, nil
}

// Logout revokes the supplied refresh token, if any, and deactivates every
// session of the identity. Revoking an already-revoked token is not an error;
// logout never fails for token-state reasons.
func (s *Service) Logout(ctx context.Context, identityID, refreshSecret string) (string, error) {
	if refreshSecret != "" {
		err := s.store.RefreshTokens(ctx).Revoke(ctx, HashSecret(refreshSecret), "")
		if err != nil && !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	if err := s.store.Sessions(ctx).DeactivateAllForIdentity(ctx, identityID); err != nil {
		return "", err
	}
	obs.CountMassRevocation("logout")
	obs.Event("auth.logged_out", map[string]any{"identity_id": identityID})
	return msgLoggedOut, nil
}

// VerifyEmail consumes a pending verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	identities := s.store.Identities(ctx)
	identity, err := identities.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if identity.VerificationExpires.IsZero() || s.now().UTC().After(identity.VerificationExpires) {
		return "", ErrInvalidToken
	}

	identity.EmailVerified = true
	identity.VerificationToken = ""
	identity.VerificationExpires = time.Time{}
	identity.UpdatedAt = s.now().UTC()
	if err := identities.Update(ctx, identity); err != nil {
		return "", err
	}
	obs.Event("auth.email_verified", map[string]any{"email": identity.Email})
	return msgVerified, nil
}

// ResendVerification regenerates the verification token for an unverified
// identity and re-sends the notification.
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	identities := s.store.Identities(ctx)
	identity, err := identities.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if identity.EmailVerified {
		return "", ErrInvalidToken
	}

	verification, err := NewOneTimeToken()
	if err != nil {
		return "", err
	}
	identity.VerificationToken = verification
	identity.VerificationExpires = s.now().UTC().Add(verificationTTL)
	identity.UpdatedAt = s.now().UTC()
	if err := identities.Update(ctx, identity); err != nil {
		return "", err
	}
	s.notify(func() error { return s.notifier.VerificationRequested(ctx, email, verification) })
	return msgVerificationSent, nil
}

// ForgotPassword starts a password reset. The acknowledgment is identical
// whether or not the email is registered; a notification goes out only when
// it is.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	identities := s.store.Identities(ctx)
	identity, err := identities.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return msgResetRequested, nil
		}
		return "", err
	}

	reset, err := NewOneTimeToken()
	if err != nil {
		return "", err
	}
	identity.ResetToken = reset
	identity.ResetExpires = s.now().UTC().Add(resetTTL)
	identity.UpdatedAt = s.now().UTC()
	if err := identities.Update(ctx, identity); err != nil {
		return "", err
	}
	obs.Event("auth.password_reset_requested", map[string]any{"email": email})
	s.notify(func() error { return s.notifier.PasswordResetRequested(ctx, email, reset) })
	return msgResetRequested, nil
}

// ResetPassword consumes a reset token, rehashes the password, and revokes
// every outstanding refresh token of the identity: a reset treats all prior
// credentials as compromised.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if token == "" || newPassword == "" {
		return "", ErrInvalidToken
	}
	identities := s.store.Identities(ctx)
	identity, err := identities.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if identity.ResetExpires.IsZero() || s.now().UTC().After(identity.ResetExpires) {
		return "", ErrInvalidToken
	}

	hash, err := HashPassword(newPassword, s.workFactor)
	if err != nil {
		return "", err
	}
	identity.PasswordHash = hash
	identity.ResetToken = ""
	identity.ResetExpires = time.Time{}
	identity.UpdatedAt = s.now().UTC()
	if err := identities.Update(ctx, identity); err != nil {
		return "", err
	}

	if err := s.store.RefreshTokens(ctx).RevokeAllForIdentity(ctx, identity.ID); err != nil {
		return "", err
	}
	obs.CountMassRevocation("password_reset")
	obs.Event("auth.password_reset", map[string]any{"email": identity.Email})
	s.notify(func() error { return s.notifier.PasswordChanged(ctx, identity.Email) })
	return msgPasswordReset, nil
}

// Profile returns the secret-free view of an identity.
func (s *Service) Profile(ctx context.Context, identityID string) (IdentityView, error) {
	identity, err := s.store.Identities(ctx).Find(ctx, identityID)
	if err != nil {
		return IdentityView{}, err
	}
	return identity.View(), nil
}

// ProfileUpdate carries the mutable profile fields; nil means leave as is.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	AvatarURL *string
}

// UpdateProfile applies a partial profile update.
func (s *Service) UpdateProfile(ctx context.Context, identityID string, update ProfileUpdate) (IdentityView, error) {
	identities := s.store.Identities(ctx)
	identity, err := identities.Find(ctx, identityID)
	if err != nil {
		return IdentityView{}, err
	}
	if update.FirstName != nil {
		identity.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		identity.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.AvatarURL != nil {
		identity.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	identity.UpdatedAt = s.now().UTC()
	if err := identities.Update(ctx, identity); err != nil {
		return IdentityView{}, err
	}
	return identity.View(), nil
}

// Sessions lists the identity's active sessions, most recent activity first.
func (s *Service) Sessions(ctx context.Context, identityID string) ([]*Session, error) {
	return s.store.Sessions(ctx).ListActiveByIdentity(ctx, identityID)
}

// RevokeSession deactivates one session, provided it belongs to the identity.
func (s *Service) RevokeSession(ctx context.Context, identityID, sessionID string) error {
	session, err := s.store.Sessions(ctx).Find(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.IdentityID != identityID {
		return ErrNotFound
	}
	return s.store.Sessions(ctx).Deactivate(ctx, sessionID)
}

// RevokeAllSessions deactivates every session of the identity.
func (s *Service) RevokeAllSessions(ctx context.Context, identityID string) error {
	return s.store.Sessions(ctx).DeactivateAllForIdentity(ctx, identityID)
}

// TouchSession refreshes a session's last-activity timestamp.
func (s *Service) TouchSession(ctx context.Context, sessionID string) error {
	return s.store.Sessions(ctx).TouchActivity(ctx, sessionID, s.now().UTC())
}

// PurgeExpiredTokens removes refresh tokens past their expiry. Periodic
// maintenance; never part of a request.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.store.RefreshTokens(ctx).PurgeExpired(ctx, s.now().UTC())
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(token string) (*AccessClaims, error) {
	return s.issuer.VerifyAccessToken(token)
}

// issueFor mints the access token, persists a refresh token, records a
// session, and stamps last-login. Used by both local and external login.
func (s *Service) issueFor(ctx context.Context, identity *Identity, meta ClientMeta) (*LoginResult, error) {
	now := s.now().UTC()

	accessToken, _, err := s.issuer.AccessToken(identity)
	if err != nil {
		return nil, err
	}

	plain, record, err := s.newRefreshToken(identity.ID, meta, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.RefreshTokens(ctx).Insert(ctx, record); err != nil {
		return nil, err
	}

	info := ClassifyUserAgent(meta.UserAgent)
	session := &Session{
		ID:             ids.NewSession(),
		IdentityID:     identity.ID,
		UserAgent:      meta.UserAgent,
		IP:             meta.IP,
		Device:         info.Device,
		Browser:        info.Browser,
		OS:             info.OS,
		ExpiresAt:      now.Add(s.sessionTTL),
		Active:         true,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := s.store.Sessions(ctx).Create(ctx, session); err != nil {
		return nil, err
	}

	identity.LastLoginAt = now
	identity.UpdatedAt = now
	if err := s.store.Identities(ctx).Update(ctx, identity); err != nil {
		return nil, err
	}

	obs.CountLogin(string(identity.Provider))
	obs.Event("auth.logged_in", map[string]any{
		"identity_id": identity.ID,
		"provider":    string(identity.Provider),
	})

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: plain,
		Identity:     identity.View(),
		ExpiresIn:    s.expiresIn(),
	}, nil
}

func (s *Service) newRefreshToken(identityID string, meta ClientMeta, now time.Time) (string, *RefreshToken, error) {
	plain, hash, err := NewRefreshSecret()
	if err != nil {
		return "", nil, err
	}
	return plain, &RefreshToken{
		ID:         ids.New(),
		IdentityID: identityID,
		SecretHash: hash,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.refreshTTL),
		UserAgent:  meta.UserAgent,
		IP:         meta.IP,
	}, nil
}

func (s *Service) expiresIn() int {
	return int(s.issuer.AccessTTL() / time.Second)
}

// notify runs a notification delivery, logging failure instead of surfacing it.
func (s *Service) notify(fn func() error) {
	if err := fn(); err != nil {
		obs.Event("notify.delivery_failed", map[string]any{"error": err.Error()})
	}
}

// NormalizeEmail lower-cases and trims an email address. One identity exists
// per normalized email.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
