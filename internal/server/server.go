// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "composition root": every dependency is created and
// wired here, in New.
//
//	config → sqlite.DB ─────────────┐
//	       → cache store → Cache ───┼→ PasteService, TagService → handlers → chi routes
//	       → highlight.Registry ────┘
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/pastie/internal/cache"
	"github.com/sakif/pastie/internal/config"
	"github.com/sakif/pastie/internal/handler"
	"github.com/sakif/pastie/internal/highlight"
	"github.com/sakif/pastie/internal/middleware"
	sqliteRepo "github.com/sakif/pastie/internal/repository/sqlite"
	"github.com/sakif/pastie/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The server owns the database and, for the redis backend, the Redis
// client; Close releases both.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	closers []io.Closer
}

// New opens the storage backends and wires the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	store, err := s.newStore()
	if err != nil {
		db.Close()
		return nil, err
	}

	s.setupRoutes(cache.New(store, logger))
	return s, nil
}

// newStore picks the cache backend named by cache.backend.
func (s *Server) newStore() (cache.Store, error) {
	switch s.config.Cache.Backend {
	case config.CacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rc := s.config.Cache.Redis
		client, err := cache.NewRedisClient(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.closers = append(s.closers, client)
		s.logger.Info("using redis cache", slog.String("addr", rc.Addr), slog.Int("db", rc.DB))
		return cache.NewRedisStore(client, rc.Prefix), nil
	default:
		s.logger.Info("using in-memory cache")
		return cache.NewMemoryStore(), nil
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET  /healthz                               → database ping
// POST /api/pastes                            → create a paste or reply
// GET  /api/pastes?page=N&restrict=today      → listing page with pager links
// GET  /api/pastes/recent                     → newest pastes
// GET  /api/pastes/{id}                       → one paste
// GET  /api/pastes/{id}/highlight?truncate=N  → rendered markup
// GET  /api/pastes/{id}/children              → direct replies
// GET  /api/pastes/{id}/tree                  → whole reply tree
// GET  /api/pastes/{id}/root                  → thread root
// GET  /api/pastes/{id}/diff/{other}          → line diff (JSON)
// GET  /api/pastes/{id}/diff/{other}/unified  → unified diff download
// GET  /api/tags                              → tag cloud
// GET  /api/tags/names                        → every tag name
// GET  /api/tags/{name}?page=N                → pastes carrying a tag
// GET  /api/languages                         → supported languages
// GET  /api/styles.css                        → stylesheet for highlighted markup
//
// MIDDLEWARE ORDER MATTERS: RequestID runs first so the logger can report
// the id, and Recoverer sits inside the logger so a panic is logged as a 500.
func (s *Server) setupRoutes(c *cache.Cache) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	registry := highlight.NewRegistry()
	highlighter := highlight.NewHighlighter(registry, s.config.Highlight.Style, s.config.Highlight.SpecialEvery)
	opts := service.Options{
		PerPage:     s.config.PageSize,
		ListTTL:     s.config.Cache.ListTTL,
		TagCloudTTL: s.config.Cache.TagCloudTTL,
	}

	// s.db implements both repository interfaces.
	pasteService := service.NewPasteService(s.db, registry, highlighter, c, s.logger, opts)
	tagService := service.NewTagService(s.db, c, s.logger, opts)

	pastes := handler.NewPasteHandler(pasteService, registry, s.logger)
	tags := handler.NewTagHandler(tagService, s.logger)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/pastes", func(r chi.Router) {
			r.Get("/", pastes.HandleList)
			r.Post("/", pastes.HandleCreate)
			r.Get("/recent", pastes.HandleRecent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pastes.HandleGet)
				r.Get("/highlight", pastes.HandleHighlight)
				r.Get("/children", pastes.HandleChildren)
				r.Get("/tree", pastes.HandleTree)
				r.Get("/root", pastes.HandleRoot)
				r.Get("/diff/{other}", pastes.HandleDiff)
				r.Get("/diff/{other}/unified", pastes.HandleUnified)
			})
		})

		r.Get("/tags", tags.HandleCloud)
		r.Get("/tags/names", tags.HandleNames)
		r.Get("/tags/{name}", tags.HandleTagged)

		r.Get("/languages", pastes.HandleLanguages)
		r.Get("/styles.css", pastes.HandleStyleSheet)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the cache client.
func (s *Server) Close() error {
	errs := []error{}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully:
// 1. stop accepting new connections
// 2. wait up to 30s for in-flight requests
// 3. close the database and cache client
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("cache", s.config.Cache.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
