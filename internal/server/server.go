// Package server wires the HTTP side: router, middleware, routes and
// graceful shutdown. It is the composition root for the chat log
// endpoints and the channel feed proxy.
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

	"github.com/CapOVH/dasssb/internal/chatlog"
	"github.com/CapOVH/dasssb/internal/config"
	"github.com/CapOVH/dasssb/internal/handler"
	"github.com/CapOVH/dasssb/internal/kick"
	"github.com/CapOVH/dasssb/internal/middleware"
)

type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	chatHandler := handler.NewChatHandler(chatlog.New(s.config.Data.Dir, s.logger))
	kickHandler := handler.NewKickHandler(
		kick.NewClient(s.config.Kick.BaseURLV2, s.config.Kick.BaseURLV1, s.logger),
		s.logger,
	)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/chat", chatHandler.Get)
		r.Post("/chat", chatHandler.Post)
		r.Get("/kick/{slug}", kickHandler.Channel)
	})
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.config.HTTP.Address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("address", s.config.HTTP.Address),
			slog.String("env", s.config.Env),
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
