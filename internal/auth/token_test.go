package auth

import (
	"errors"
	"testing"
	"time"
)

func TestParseTTLStrict(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"15m", 15 * time.Minute, true},
		{"7d", 7 * 24 * time.Hour, true},
		{"24h", 24 * time.Hour, true},
		{"900s", 900 * time.Second, true},
		{" 10m ", 10 * time.Minute, true},
		{"", 0, false},
		{"15", 0, false},
		{"m15", 0, false},
		{"15w", 0, false},
		{"1.5h", 0, false},
		{"-5m", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseTTLStrict(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseTTLStrict(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseTTLStrict(%q) should fail", tc.in)
		}
	}
}

func TestParseTTLFallsBack(t *testing.T) {
	if got := ParseTTL("garbage"); got != DefaultTTL {
		t.Fatalf("ParseTTL fallback = %v, want %v", got, DefaultTTL)
	}
	if got := ParseTTL("30m"); got != 30*time.Minute {
		t.Fatalf("ParseTTL(30m) = %v", got)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	clock := newTestClock()
	issuer, err := NewIssuer(testSigningSecret, 15*time.Minute, WithIssuerClock(clock.Now))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	identity := &Identity{ID: "id-1", Email: "ada@example.com"}

	token, exp, err := issuer.AccessToken(identity)
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if want := clock.Now().Add(15 * time.Minute); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}

	claims, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Subject != "id-1" || claims.Email != "ada@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	clock.Advance(16 * time.Minute)
	if _, err := issuer.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyAccessTokenRejectsForeignSignature(t *testing.T) {
	issuerA, _ := NewIssuer(testSigningSecret, time.Minute)
	issuerB, _ := NewIssuer("another-signing-secret-of-32-char", time.Minute)

	token, _, err := issuerA.AccessToken(&Identity{ID: "id-1", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if _, err := issuerB.VerifyAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: got %v, want ErrInvalidToken", err)
	}
	if _, err := issuerA.VerifyAccessToken("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: got %v, want ErrInvalidToken", err)
	}
	if _, err := issuerA.VerifyAccessToken(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: got %v, want ErrInvalidToken", err)
	}
}

func TestNewRefreshSecret(t *testing.T) {
	plain, hash, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}
	if len(plain) != refreshSecretBytes*2 {
		t.Fatalf("plain length = %d, want %d", len(plain), refreshSecretBytes*2)
	}
	if hash != HashSecret(plain) {
		t.Fatal("hash must be the digest of the plain secret")
	}
	if plain == hash {
		t.Fatal("plain secret must not equal its digest")
	}

	plain2, _, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}
	if plain == plain2 {
		t.Fatal("secrets must be unique")
	}
}

func TestNewOneTimeToken(t *testing.T) {
	a, err := NewOneTimeToken()
	if err != nil {
		t.Fatalf("NewOneTimeToken: %v", err)
	}
	b, err := NewOneTimeToken()
	if err != nil {
		t.Fatalf("NewOneTimeToken: %v", err)
	}
	if len(a) != oneTimeTokenBytes*2 || a == b {
		t.Fatalf("unexpected tokens: %q %q", a, b)
	}
}
