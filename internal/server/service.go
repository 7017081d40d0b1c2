// Package server provides the HTTP surface: REST endpoints for articles,
// rooms, and accounts, plus SSE event streams for live discussion.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/agora-live/agora/internal/auth"
	"github.com/agora-live/agora/internal/config"
	"github.com/agora-live/agora/internal/db/gorm"
	"github.com/agora-live/agora/internal/hub"
	"github.com/agora-live/agora/internal/scheduler"
	"github.com/agora-live/agora/internal/search"
	"github.com/agora-live/agora/pkg/models"
)

// Service is the HTTP service. It owns the router and the live-session
// index; domain logic lives in the packages it delegates to.
type Service struct {
	version string
	config  *config.Config

	articles *gorm.ArticleStore
	rooms    *gorm.RoomStore
	messages *gorm.MessageStore

	hub      *hub.Hub
	auth     *auth.Service
	sched    *scheduler.Scheduler
	searcher *search.Searcher

	// sessions indexes live SSE sessions by id so inbound POSTs can be
	// routed back to the connection that owns them.
	sessions sync.Map

	router    chi.Router
	srv       *http.Server
	startTime time.Time
	ready     atomic.Bool
}

// New creates the HTTP service and mounts all routes.
func New(version string, cfg *config.Config, articles *gorm.ArticleStore, rooms *gorm.RoomStore,
	messages *gorm.MessageStore, h *hub.Hub, authSvc *auth.Service, sched *scheduler.Scheduler) *Service {

	svc := &Service{
		version:   version,
		config:    cfg,
		articles:  articles,
		rooms:     rooms,
		messages:  messages,
		hub:       h,
		auth:      authSvc,
		sched:     sched,
		searcher:  search.New(articles),
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	svc.setupRoutes()
	svc.ready.Store(true)
	return svc
}

// Router exposes the mounted router, mainly for tests.
func (s *Service) Router() chi.Router { return s.router }

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/users", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(s.requireAuth).Get("/users/me", s.handleMe)

		r.Get("/articles", s.handleArticles)
		r.Get("/articles/search", s.handleArticleSearch)
		r.Post("/articles/{id}/view", s.handleArticleView)

		r.Get("/rooms", s.handleRooms)
		r.Get("/rooms/{id}", s.handleRoomDetail)

		r.Get("/stream", s.handleGlobalStream)
		r.Get("/rooms/{id}/stream", s.handleRoomStream)
		r.Post("/sessions/{sid}/messages", s.handleSendMessage)

		r.Get("/stats", s.handleStats)
	})
}

// ListenAndServe runs the HTTP listener until ctx is cancelled, then shuts
// down gracefully.
func (s *Service) ListenAndServe(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.config.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Server.Addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":             s.sched.Stats(),
		"global_listeners": s.hub.Registry().Count(models.ScopeGlobal),
		"uptime":           time.Since(s.startTime).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps domain errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, models.ErrScopeClosed):
		writeError(w, http.StatusGone, "room no longer exists")
	case errors.Is(err, models.ErrReservedHandle):
		writeError(w, http.StatusBadRequest, "handle is reserved")
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
