package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"oraclelab/internal/auth"
	"oraclelab/internal/models"
)

func ListUsers(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := st.ListUsers(r.Context())
		if err != nil {
			lg.Errorw("list users", "error", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		respondJSON(w, users)
	}
}

// CreateUser adds an account; without explicit roles it becomes an operator.
func CreateUser(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string   `json:"email"`
			Password string   `json:"password"`
			Roles    []string `json:"roles"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			http.Error(w, "email/password required", http.StatusBadRequest)
			return
		}
		if len(req.Roles) == 0 {
			req.Roles = []string{models.RoleOperator}
		}
		hash, err := auth.HashPassword(req.Password)
		if errors.Is(err, auth.ErrWeakPassword) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		u, err := st.CreateUser(r.Context(), req.Email, hash, req.Roles)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		st.Audit(r.Context(), auth.Subject(r.Context()), "admin.user.create", map[string]any{"user_id": u.ID, "email": u.Email})
		lg.Infow("user created", "user", u.ID, "roles", u.RoleNames())
		respondCreated(w, map[string]any{"id": u.ID, "roles": u.RoleNames()})
	}
}

type updateUserReq struct {
	Email    *string  `json:"email"`
	IsActive *bool    `json:"is_active"`
	Password *string  `json:"password"`
	Roles    []string `json:"roles"`
}

// UpdateUser patches an account. Deactivating it or setting a new password
// revokes its open sessions.
func UpdateUser(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req updateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := st.FindUser(r.Context(), id); err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		patch := models.UserPatch{Email: req.Email, IsActive: req.IsActive, Roles: req.Roles}
		if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
			http.Error(w, "email must not be empty", http.StatusBadRequest)
			return
		}
		if req.Password != nil {
			hash, err := auth.HashPassword(*req.Password)
			if errors.Is(err, auth.ErrWeakPassword) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err != nil {
				http.Error(w, "hash error", http.StatusInternalServerError)
				return
			}
			patch.PasswordHash = &hash
		}
		u, err := st.UpdateUser(r.Context(), id, patch)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if patch.PasswordHash != nil || !u.IsActive {
			if err := st.RevokeUserSessions(r.Context(), id); err != nil {
				lg.Errorw("revoke sessions", "user", id, "error", err)
			}
		}
		st.Audit(r.Context(), auth.Subject(r.Context()), "admin.user.update", map[string]any{"user_id": id})
		respondJSON(w, map[string]any{"id": u.ID, "email": u.Email, "is_active": u.IsActive, "roles": u.RoleNames()})
	}
}

// DeleteUser removes an account. Administrators cannot delete themselves.
func DeleteUser(st Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sub := auth.Subject(r.Context())
		if id == sub {
			http.Error(w, "cannot delete own account", http.StatusBadRequest)
			return
		}
		if _, err := st.FindUser(r.Context(), id); err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := st.DeleteUser(r.Context(), id); err != nil {
			lg.Errorw("delete user", "user", id, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		st.Audit(r.Context(), sub, "admin.user.delete", map[string]any{"user_id": id})
		respondJSON(w, map[string]any{"deleted": true})
	}
}
