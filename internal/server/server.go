// Package server exposes the authentication service over HTTP JSON.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"user-auth-service/internal/auth"
	"user-auth-service/internal/observability"
)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	auth    *auth.Service
	log     *slog.Logger
	metrics *observability.Metrics
}

// NewServer wires the handlers to the auth service. A nil logger falls back
// to slog.Default; nil metrics gets a fresh instance.
func NewServer(authSvc *auth.Service, log *slog.Logger, metrics *observability.Metrics) *Server {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Server{auth: authSvc, log: log, metrics: metrics}
}

// Router builds the route table with the metrics middleware applied.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/verify", s.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/validation-rules", s.handleValidationRules).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}
