// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: main.go hands over a Config, and New wires
// the whole dependency chain in one place —
//
//	sqlite store → services (prompt, settings, transfer)
//	             → sync state store + gist remote → sync engine
//	             → handlers → routes
//
// Each layer only receives what it needs: services get the storage.Store
// interface (not the concrete SQLite type), handlers get services, and the
// sync engine depends on the RemoteStore contract rather than the gist
// client directly.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/prompt-manager/internal/handler"
	"github.com/sakif/prompt-manager/internal/middleware"
	"github.com/sakif/prompt-manager/internal/service"
	sqlitestore "github.com/sakif/prompt-manager/internal/storage/sqlite"
	syncpkg "github.com/sakif/prompt-manager/internal/sync"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
	// GitHubAPIBase overrides the GitHub API base URL (tests, GitHub
	// Enterprise). Empty means api.github.com.
	GitHubAPIBase string
}

// Server owns the router, the database connection and the sync engine. The
// store is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  *sqlitestore.Store
	engine *syncpkg.Engine
}

// New creates a Server with the full dependency chain wired up.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	store, err := sqlitestore.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes wires services, handlers and middleware to URL patterns.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	prompts := service.NewPromptService(s.store, s.logger)
	settings := service.NewSettingsService(s.store, s.logger)
	transfer := service.NewTransferService(prompts, settings, s.logger)

	syncState := syncpkg.NewStateStore(s.store, s.logger)
	remote := syncpkg.NewGistStore(s.config.GitHubAPIBase, s.logger)
	s.engine = syncpkg.NewEngine(syncState, remote, transfer, s.logger)

	promptHandler := handler.NewPromptHandler(prompts, s.logger)
	settingsHandler := handler.NewSettingsHandler(settings, s.logger)
	transferHandler := handler.NewTransferHandler(transfer, s.logger)
	syncHandler := handler.NewSyncHandler(s.engine, syncState, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/prompts", promptHandler.HandleList)
		r.Post("/prompts", promptHandler.HandleCreate)
		r.Get("/prompts/{id}", promptHandler.HandleGetByID)
		r.Put("/prompts/{id}", promptHandler.HandleUpdate)
		r.Delete("/prompts/{id}", promptHandler.HandleDelete)
		r.Get("/stats", promptHandler.HandleStats)

		r.Get("/settings", settingsHandler.HandleGet)
		r.Put("/settings", settingsHandler.HandleSave)
		r.Post("/settings/reset", settingsHandler.HandleReset)
		r.Get("/settings/tags", settingsHandler.HandleGetTags)
		r.Put("/settings/tags", settingsHandler.HandleUpdateTags)

		r.Get("/export", transferHandler.HandleExport)
		r.Post("/import", transferHandler.HandleImport)

		r.Get("/sync/state", syncHandler.HandleState)
		r.Put("/sync/credentials", syncHandler.HandleSetCredentials)
		r.Post("/sync/pull", syncHandler.HandlePull)
		r.Post("/sync/push", syncHandler.HandlePush)
		r.Post("/sync/bind", syncHandler.HandleBind)
		r.Post("/sync/validate", syncHandler.HandleValidate)
	})
}

// Start starts the HTTP server and blocks until shutdown. The startup sync
// runs in its own goroutine — listening never waits on the network, and the
// startup pull is best-effort by design.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // sync requests wait on the remote store
		IdleTimeout:  60 * time.Second,
	}

	go s.engine.InitOnLoad(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
