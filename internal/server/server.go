// Package server exposes the purchase tracker and the receipt draft engine
// over an HTTP JSON API.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/extract"
	"github.com/returnguard/returnguard/internal/store"
)

// Server bundles the API dependencies.
type Server struct {
	store  store.Store
	engine *extract.Engine
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithNow overrides the clock for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server around the given store and extraction engine.
func New(st store.Store, engine *extract.Engine, opts ...Option) *Server {
	s := &Server{store: st, engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi handler tree.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/drafts", s.handleCreateDraft)

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", s.handleListPurchases)
			r.Post("/", s.handleCreatePurchase)
			r.Get("/due", s.handleDuePurchases)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPurchase)
				r.Put("/", s.handleUpdatePurchase)
				r.Delete("/", s.handleDeletePurchase)
				r.Post("/archive", s.handleArchivePurchase)
			})
		})

		r.Get("/backup", s.handleExportBackup)
		r.Post("/backup", s.handleImportBackup)
	})

	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
