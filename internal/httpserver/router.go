package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"oraclelab/internal/auth"
	"oraclelab/internal/httpserver/handlers"
	"oraclelab/internal/lab"
	"oraclelab/internal/models"
)

type Deps struct {
	Store         handlers.Store
	Labs          *lab.Registry
	Signer        *auth.Signer
	AttackWorkers int
	Log           *zap.SugaredLogger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(d.Store, d.Signer, d.Log))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(d.Signer, d.Store))
		protected.Get("/v1/me", handlers.Me(d.Store))
		protected.Post("/v1/auth/logout", handlers.Logout(d.Store))
		protected.Post("/v1/auth/password", handlers.ChangePassword(d.Store, d.Log))
		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(models.RoleAdministrator))
			admin.Get("/v1/admin/users", handlers.ListUsers(d.Store, d.Log))
			admin.Post("/v1/admin/users", handlers.CreateUser(d.Store, d.Log))
			admin.Patch("/v1/admin/users/{id}", handlers.UpdateUser(d.Store, d.Log))
			admin.Delete("/v1/admin/users/{id}", handlers.DeleteUser(d.Store, d.Log))
			admin.Get("/v1/admin/runs", handlers.AllRuns(d.Store, d.Log))
		})
		protected.Post("/v1/labs", handlers.CreateLab(d.Labs, d.Store, d.Log))
		protected.Get("/v1/labs", handlers.ListLabs(d.Labs))
		protected.Get("/v1/labs/{id}", handlers.GetLab(d.Labs))
		protected.Delete("/v1/labs/{id}", handlers.DeleteLab(d.Labs, d.Store))
		protected.Post("/v1/labs/{id}/query", handlers.QueryLab(d.Labs))
		protected.Post("/v1/labs/{id}/attack", handlers.RunAttack(d.Labs, d.Store, d.AttackWorkers, d.Log))
		protected.Get("/v1/runs", handlers.MyRuns(d.Store, d.Log))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
