package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL is the fallback applied when a TTL string does not parse.
	DefaultTTL = 900 * time.Second

	refreshSecretBytes = 64
	oneTimeTokenBytes  = 32
)

var ttlPattern = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseTTLStrict parses a duration string with a {d,h,m,s} unit suffix,
// e.g. "15m" or "7d". Used at configuration load, where a typo should be
// an error rather than a silent default.
func ParseTTLStrict(s string) (time.Duration, error) {
	m := ttlPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid ttl %q: want <number><d|h|m|s>", s)
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q: %w", s, err)
	}
	switch m[2] {
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	default:
		return time.Duration(value) * time.Second, nil
	}
}

// ParseTTL is the permissive variant used on the request path: an
// unrecognized string yields DefaultTTL instead of an error.
func ParseTTL(s string) time.Duration {
	d, err := ParseTTLStrict(s)
	if err != nil {
		return DefaultTTL
	}
	return d
}

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer mints signed access tokens and opaque refresh-token secrets.
// It is stateless; persistence of refresh tokens belongs to the caller.
type Issuer struct {
	signingSecret []byte
	issuer        string
	accessTTL     time.Duration
	now           func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithIssuerClock overrides the Issuer time source.
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// WithIssuerName overrides the iss claim.
func WithIssuerName(name string) IssuerOption {
	return func(i *Issuer) {
		if name = strings.TrimSpace(name); name != "" {
			i.issuer = name
		}
	}
}

// NewIssuer constructs an Issuer signing with HS256.
func NewIssuer(signingSecret string, accessTTL time.Duration, opts ...IssuerOption) (*Issuer, error) {
	if strings.TrimSpace(signingSecret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultTTL
	}
	iss := &Issuer{
		signingSecret: []byte(signingSecret),
		issuer:        "identra",
		accessTTL:     accessTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(iss)
	}
	return iss, nil
}

// AccessTTL returns the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// AccessToken signs a time-bounded token carrying the identity's id and email.
// Deterministic given its inputs and the clock; no side effects.
func (i *Issuer) AccessToken(identity *Identity) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// VerifyAccessToken checks signature, expiry and issuer, and returns the claims.
func (i *Issuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.signingSecret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshSecret generates an opaque refresh-token secret (512 bits of
// entropy, hex encoded) along with the digest under which it is persisted.
func NewRefreshSecret() (plain, hash string, err error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, HashSecret(plain), nil
}

// HashSecret returns the sha256 hex digest of an opaque secret.
func HashSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// NewOneTimeToken generates a single-use token for email verification or
// password reset.
func NewOneTimeToken() (string, error) {
	b := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
