package httpapi

import (
	"net/http"
	"strings"

	"identra.org/internal/auth"
)

// publicPaths are reachable without a bearer token. Everything else under
// the mux requires a verified access token.
var publicPaths = map[string]bool{
	"/healthz":                     true,
	"/readyz":                      true,
	"/metrics":                     true,
	"/v1/auth/register":            true,
	"/v1/auth/login":               true,
	"/v1/auth/refresh":             true,
	"/v1/auth/verify-email":        true,
	"/v1/auth/resend-verification": true,
	"/v1/auth/forgot-password":     true,
	"/v1/auth/reset-password":      true,
	"/v1/auth/oauth/callback":      true,
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="identra"`)
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.auth.VerifyAccess(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		ctx := auth.ContextWithIdentity(r.Context(), claims.Subject, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
