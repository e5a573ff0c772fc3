package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user-auth-service/internal/audit"
	auditrepo "user-auth-service/internal/audit/repository"
	"user-auth-service/internal/auth"
	"user-auth-service/internal/config"
	"user-auth-service/internal/db"
	"user-auth-service/internal/observability"
	revocationrepo "user-auth-service/internal/revocation/repository"
	"user-auth-service/internal/security"
	"user-auth-service/internal/server"
	"user-auth-service/internal/session/registry"
	sessionrepo "user-auth-service/internal/session/repository"
	userrepo "user-auth-service/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "development" {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET is not set")
		os.Exit(1)
	}
	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	sessions := registry.New(sessionrepo.NewPostgresRepository(pool), cfg.MaxSessionsPerUser, nil, nil)
	svc := auth.NewService(
		userrepo.NewPostgresRepository(pool),
		sessions,
		revocationrepo.NewPostgresLedger(pool),
		security.NewHasher(cfg.BcryptCost),
		security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL()),
		audit.NewLogger(auditrepo.NewPostgresRepository(pool), log),
		log,
		nil,
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewServer(svc, log, observability.NewMetrics()).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "err", err)
	}
	log.Info("http server stopped")
}
