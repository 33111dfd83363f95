package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/draftwise/ragbox/internal/db"
)

type Server struct {
	config   *Config
	server   *http.Server
	services *Services
}

func New(ctx context.Context, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.NewSqliteDB(db.WithPath(config.DBPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	services, err := NewServices(ctx, config, database)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &Server{
		config:   config,
		services: services,
		server: &http.Server{
			Addr:    config.HTTP.Addr,
			Handler: SetupRoutes(config, services),
		},
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("ragbox server start")
	defer slog.Info("ragbox server stop")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.runHTTPServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			return err
		}
		slog.Info("http server stopped")
		return nil
	})

	g.Go(func() error {
		if err := s.services.Jobs.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("ragbox shutdown signal")
		return s.Stop(context.WithoutCancel(gctx))
	})

	return g.Wait()
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.services.Shutdown(shutdownCtx)
}

func (s *Server) runHTTPServer() error {
	if s.config.HTTP.CertFile != "" && s.config.HTTP.KeyFile != "" {
		slog.Info("server start tls", "addr", s.config.HTTP.Addr, "cert", s.config.HTTP.CertFile, "key", s.config.HTTP.KeyFile)
		return s.server.ListenAndServeTLS(s.config.HTTP.CertFile, s.config.HTTP.KeyFile)
	}
	slog.Info("server start http", "addr", s.config.HTTP.Addr)
	return s.server.ListenAndServe()
}
