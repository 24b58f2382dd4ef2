// Package web exposes the intake API, job status polling and artifact
// downloads over HTTP.
package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"quote-orchestrator/internal/infra/storage"
	"quote-orchestrator/internal/usecase"
)

const tenantHeader = "X-Tenant-ID"

type Server struct {
	orch      usecase.QuoteOrchestrator
	artifacts storage.Reader
	apiKey    string
	validate  *validator.Validate
	log       *zerolog.Logger
}

func NewServer(orch usecase.QuoteOrchestrator, artifacts storage.Reader, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{
		orch:      orch,
		artifacts: artifacts,
		apiKey:    apiKey,
		validate:  validator.New(),
		log:       logger,
	}
}

// Router builds the route tree. Artifact downloads stay outside the API key
// guard: the URLs are shared with end customers in quote emails.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/artifacts/{tenant}/*", s.handleArtifact)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(s.authMiddleware)
		api.Post("/quotes", s.handleQuoteCreate)
		api.Get("/jobs/{jobID}", s.handleJobStatus)
	})
	return r
}

// authMiddleware provides simple Bearer token authentication for the intake
// API. A missing server-side key closes the API rather than opening it.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
