// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	HTTPPort      string
	LogLevel      string
	JWTSecret     string
	JWTExpiresIn  time.Duration
	AttackWorkers int
	AdminEmail    string
	AdminPassword string
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Values already set in the environment win over .env.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		HTTPPort:      getenv("HTTP_PORT", "8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiresIn:  24 * time.Hour,
		AttackWorkers: 4,
		AdminEmail:    strings.ToLower(getenv("ADMIN_EMAIL", "admin@oraclelab.local")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if s := os.Getenv("JWT_EXPIRES_IN"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("JWT_EXPIRES_IN: invalid duration %q", s)
		}
		cfg.JWTExpiresIn = d
	}
	if s := os.Getenv("ATTACK_WORKERS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("ATTACK_WORKERS: want a positive integer, got %q", s)
		}
		cfg.AttackWorkers = n
	}
	return cfg, nil
}

// Validate reports settings the API server cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
