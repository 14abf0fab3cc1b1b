// Package api exposes the registration pipeline over HTTP: the upstream
// system posts registrations, delivery layers fetch thumbnails, and the admin
// tooling lists badges.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"conbadge/internal/auth"
	"conbadge/internal/config"
	"conbadge/internal/model"
	"conbadge/internal/registration"
	"conbadge/internal/store"
	"conbadge/internal/thumbnail"
)

// Server hosts the HTTP endpoints around the registration service.
type Server struct {
	cfg      *config.Config
	service  *registration.Service
	verifier *auth.Verifier
	logger   *slog.Logger
	server   *http.Server
}

// New constructs a Server.
func New(cfg *config.Config, service *registration.Service, verifier *auth.Verifier, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		verifier: verifier,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:    cfg.Address,
		Handler: s.routes(),
	}
	return s
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", slog.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(s.verifier.Middleware)
		r.Post("/api/badges", s.handleRegister)
		r.Get("/api/badges", s.handleList)
		r.Get("/api/badges/{id}/image", s.handleImage)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRegister ingests one registration payload. The same endpoint serves
// first-time and repeat registrations; the service decides which it is.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		http.Error(w, "invalid registration payload", http.StatusBadRequest)
		return
	}
	id, err := s.service.Upsert(r.Context(), reg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	badges, err := s.service.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if badges == nil {
		badges = []model.BadgeRecord{}
	}
	respondJSON(w, http.StatusOK, badges)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.service.ImageBytes(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", model.ThumbMime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// respondError maps the pipeline's error taxonomy onto HTTP statuses: a bad
// photo is the client's fault, an unknown id is absent, anything else is a
// store failure surfaced as a 500.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, thumbnail.ErrDecode):
		http.Error(w, "photo is not a decodable image", http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", slog.String("error", err.Error()))
	}
}
