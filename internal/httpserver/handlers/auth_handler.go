package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"oraclelab/internal/auth"
	"oraclelab/internal/models"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials, opens a session and returns its token.
func Login(st Store, signer *auth.Signer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u, err := st.FindUserByEmail(r.Context(), strings.ToLower(req.Email))
		if err != nil || !u.IsActive {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := signer.Sign(u.ID, u.RoleNames())
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}
		if err := st.CreateSession(r.Context(), models.Session{JTI: tok.JTI, UserID: u.ID, ExpiresAt: tok.ExpiresAt}); err != nil {
			lg.Errorw("create session", "user", u.ID, "error", err)
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}
		st.Audit(r.Context(), u.ID, "auth.login", nil)
		respondJSON(w, map[string]any{"token": tok.Raw, "expires_at": tok.ExpiresAt})
	}
}

// Logout revokes the session of the calling token.
func Logout(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.RevokeSession(r.Context(), auth.SessionID(r.Context())); err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		st.Audit(r.Context(), auth.Subject(r.Context()), "auth.logout", nil)
		w.WriteHeader(http.StatusNoContent)
	}
}

func Me(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.FindUser(r.Context(), auth.Subject(r.Context()))
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, map[string]any{
			"id": u.ID, "email": u.Email, "roles": u.RoleNames(), "is_active": u.IsActive,
		})
	}
}

// ChangePassword replaces the caller's password after checking the current
// one. Every session of the caller, this one included, is revoked.
func ChangePassword(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub := auth.Subject(r.Context())
		u, err := st.FindUser(r.Context(), sub)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Current); err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		hash, err := auth.HashPassword(req.New)
		if errors.Is(err, auth.ErrWeakPassword) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		if _, err := st.UpdateUser(r.Context(), sub, models.UserPatch{PasswordHash: &hash}); err != nil {
			lg.Errorw("change password", "user", sub, "error", err)
			http.Error(w, "update failed", http.StatusInternalServerError)
			return
		}
		if err := st.RevokeUserSessions(r.Context(), sub); err != nil {
			lg.Errorw("revoke sessions", "user", sub, "error", err)
		}
		st.Audit(r.Context(), sub, "auth.password", nil)
		w.WriteHeader(http.StatusNoContent)
	}
}
