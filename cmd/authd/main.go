package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kortix-auth-service/internal/config"
	"github.com/kortix-auth-service/internal/identity"
	"github.com/kortix-auth-service/internal/server"
	"github.com/kortix-auth-service/internal/store"
)

const migrationsDir = "migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogging(cfg)

	if err := store.Migrate(cfg.DatabaseURL, migrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("database is unreachable")
	}

	verifier := buildVerifier(cfg)

	srv := server.New(cfg, store.NewPostgres(pool), verifier, log.Logger)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// buildVerifier prefers local HS256 verification; the remote session
// validation call is the fallback when no shared secret is configured.
func buildVerifier(cfg *config.Config) identity.TokenVerifier {
	if cfg.JWTSecret != "" {
		return identity.NewJWTVerifier(cfg.JWTSecret)
	}
	return identity.NewHTTPVerifier(cfg.IdentityURL, cfg.IdentityServiceKey, cfg.IdentityTimeout)
}
