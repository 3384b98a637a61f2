// Package server wires the dependency graph and owns the HTTP listener.
//
// main.go loads configuration and hands it here; New connects to the
// document store, builds the service and handlers, and registers routes.
// Start blocks until shutdown and closes the store connection on the way
// out.
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

	"github.com/malshee/user-registration/internal/auth"
	"github.com/malshee/user-registration/internal/config"
	"github.com/malshee/user-registration/internal/handler"
	"github.com/malshee/user-registration/internal/media"
	"github.com/malshee/user-registration/internal/middleware"
	"github.com/malshee/user-registration/internal/repository/mongodb"
	"github.com/malshee/user-registration/internal/service"
)

// Server holds the router and the resources it owns.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *mongodb.DB
}

// New connects to MongoDB and assembles the full dependency chain:
// repository → service → handler → routes. The database connection is the
// only resource established here; it is closed during Start's shutdown path.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := mongodb.New(context.Background(), cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens)
	return s, nil
}

// setupRoutes registers middleware and the four endpoints:
//
//	POST /register  — multipart form, creates the account
//	POST /login     — JSON credentials, issues the session cookie
//	GET  /logout    — clears the session cookie
//	GET  /me        — requires a valid session cookie
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	uploader := media.NewCloudinaryClient(s.cfg.Cloudinary)
	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(s.db, uploader, tokens, passwords, s.logger)
	authHandler := handler.NewAuthHandler(authService, tokens, s.logger)

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", authHandler.HandleMe)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30 seconds
// to finish, and disconnect from the database.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBName),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			s.closeDB()
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.closeDB()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	s.closeDB()
	return nil
}

func (s *Server) closeDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.Close(ctx); err != nil {
		s.logger.Error("closing database connection", slog.String("error", err.Error()))
	}
}
