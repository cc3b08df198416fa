package httpapi

import (
	"net/http"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/auth"
)

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identityID, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	switch r.Method {
	case http.MethodGet:
		view, err := a.auth.Profile(r.Context(), identityID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPatch:
		var req struct {
			FirstName *string `json:"first_name"`
			LastName  *string `json:"last_name"`
			AvatarURL *string `json:"avatar_url"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		view, err := a.auth.UpdateProfile(r.Context(), identityID, auth.ProfileUpdate{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.LogEvent(r.Context(), "identity.profile_updated", nil)
		writeJSON(w, http.StatusOK, view)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	identityID, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	switch r.Method {
	case http.MethodGet:
		sessions, err := a.auth.Sessions(r.Context(), identityID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions": sessions,
			"count":    len(sessions),
		})
	case http.MethodDelete:
		if err := a.auth.RevokeAllSessions(r.Context(), identityID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		audit.LogEvent(r.Context(), "sessions.revoked_all", nil)
		writeJSON(w, http.StatusOK, map[string]string{"message": "all sessions revoked"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleSessionResource(w http.ResponseWriter, r *http.Request) {
	identityID, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	sessionID := strings.TrimPrefix(r.URL.Path, "/v1/users/me/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.auth.RevokeSession(r.Context(), identityID, sessionID); err != nil {
		handleAuthError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "session.revoked", map[string]any{
		"session_id": sessionID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "session revoked"})
}
