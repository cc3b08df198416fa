package httpapi

import (
	"net/http"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/auth"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.auth.Register(r.Context(), req.Email, req.Password, auth.Profile{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.registered", map[string]any{
		"identity_id": result.IdentityID,
	})
	writeJSON(w, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.auth.Login(r.Context(), req.Email, req.Password, clientMeta(r))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.login", map[string]any{
		"identity_id": result.Identity.ID,
	})
	writeJSON(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.auth.Refresh(r.Context(), req.RefreshToken, clientMeta(r))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identityID, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	var req logoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	msg, err := a.auth.Logout(r.Context(), identityID, req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.logout", nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := a.auth.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (a *API) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := a.auth.ResendVerification(r.Context(), req.Email)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := a.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := a.auth.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.password_reset", nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// oauthCallbackRequest is the already-validated result of a provider
// handshake, posted by the OAuth front half.
type oauthCallbackRequest struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	AvatarURL  string `json:"avatar_url"`
}

func (a *API) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req oauthCallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	provider := auth.Provider(strings.ToLower(strings.TrimSpace(req.Provider)))
	if provider != auth.ProviderGoogle && provider != auth.ProviderGitHub {
		writeError(w, r, http.StatusBadRequest, "unsupported provider")
		return
	}
	result, err := a.auth.LoginExternal(r.Context(), auth.ExternalIdentity{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		AvatarURL:  req.AvatarURL,
		Provider:   provider,
		ProviderID: req.ProviderID,
	}, clientMeta(r))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "identity.login", map[string]any{
		"identity_id": result.Identity.ID,
		"provider":    string(provider),
	})
	writeJSON(w, http.StatusOK, result)
}
