package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"oraclelab/internal/auth"
	"oraclelab/internal/config"
	"oraclelab/internal/httpserver"
	"oraclelab/internal/lab"
	"oraclelab/internal/logger"
	"oraclelab/internal/store"
)

func main() {
	cfg, err := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()
	if err != nil {
		lg.Fatalw("config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		lg.Fatalw("config", "error", err)
	}

	st, err := store.Open(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatalw("db setup failed", "error", err)
	}
	if cfg.AdminPassword != "" {
		if err := st.SeedAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			lg.Fatalw("seed admin failed", "error", err)
		}
	} else {
		lg.Warnw("ADMIN_PASSWORD empty, not seeding an administrator")
	}

	router := httpserver.NewRouter(httpserver.Deps{
		Store:         st,
		Labs:          lab.NewRegistry(lg),
		Signer:        auth.NewSigner(cfg.JWTSecret, cfg.JWTExpiresIn),
		AttackWorkers: cfg.AttackWorkers,
		Log:           lg,
	})
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatalw("server failed", "error", err)
	}
}
