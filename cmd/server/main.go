package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lychee-technology/scorekeep"
	"github.com/lychee-technology/scorekeep/factory"
	"github.com/lychee-technology/scorekeep/internal"
	"go.uber.org/zap"
)

// Server represents the HTTP server with BoardgameManager
type Server struct {
	manager scorekeep.BoardgameManager
	router  *chi.Mux
	health  func(ctx context.Context) error
}

// NewServer creates a new Server instance
func NewServer(manager scorekeep.BoardgameManager) *Server {
	return &Server{
		manager: manager,
		router:  chi.NewRouter(),
	}
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/boardgames", s.handleRegister)
		r.Get("/boardgames", s.handleSearch)
		r.Get("/boardgames/names", s.handleNames)
		r.Get("/boardgames/{id}", s.handleGet)
		r.Post("/boardgames/{id}/matches/validate", s.handleValidateMatch)
		r.Post("/schemas/results/validate", s.handleValidateSchema)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zap.S().Infow("shutting down server")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			zap.S().Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func newLogger(cfg scorekeep.LoggingConfig, env scorekeep.Environment) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development || env == scorekeep.EnvironmentDevelopment {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

func main() {
	config, err := scorekeep.LoadConfigFromEnv()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(config.Logging, config.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := factory.NewPostgresPool(ctx, config.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = pool.Ping(pingCtx)
	cancel()
	if err != nil {
		sugar.Fatalf("failed to ping database: %v", err)
	}

	manager, err := factory.NewBoardgameManagerWithConfig(config, pool)
	if err != nil {
		sugar.Fatalf("failed to create boardgame manager: %v", err)
	}

	server := NewServer(manager)
	server.health = func(ctx context.Context) error {
		return internal.PostgresHealthCheck(ctx, pool, 2*time.Second)
	}
	server.RegisterRoutes()

	if err := server.Start(ctx, config.Server.Port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}
