package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"oraclelab/internal/models"
)

// Store is the persistence the handlers need.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUser(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, roles []string) (models.User, error)
	UpdateUser(ctx context.Context, id string, p models.UserPatch) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
	CreateSession(ctx context.Context, s models.Session) error
	FindSession(ctx context.Context, jti string) (models.Session, error)
	RevokeSession(ctx context.Context, jti string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	RecordRun(ctx context.Context, run *models.AttackRun) error
	ListRuns(ctx context.Context, userID string, limit int) ([]models.AttackRun, error)
	Audit(ctx context.Context, userID, action string, meta map[string]any)
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
