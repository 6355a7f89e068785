package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"oraclelab/internal/models"
)

// SessionFinder looks up the session a token's jti names.
type SessionFinder interface {
	FindSession(ctx context.Context, jti string) (models.Session, error)
}

// JWTAuth admits requests bearing a valid token whose session is neither
// revoked nor expired.
func JWTAuth(signer *Signer, sessions SessionFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := signer.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			sess, err := sessions.FindSession(r.Context(), claims.JWTID)
			if err != nil || sess.UserID != claims.Subject {
				http.Error(w, "session not found", http.StatusUnauthorized)
				return
			}
			if !sess.Active(time.Now()) {
				http.Error(w, "session expired/revoked", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).HasRole(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
