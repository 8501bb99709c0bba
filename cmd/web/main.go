package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/icdts/todo/internal/config"
	"github.com/icdts/todo/internal/db"
	handlers "github.com/icdts/todo/internal/http"
	"github.com/icdts/todo/internal/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("TODO_CONFIG"), "path to a TOML config file")
	port := flag.Int("p", 0, "port to listen on (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("todo", "info").WithError(err).Fatal("failed to load config")
	}
	if *port != 0 {
		cfg.Port = *port
	}

	log := logger.New("todo", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if cfg.DB.Driver == db.DriverSQLite {
		if err := ensureDir(cfg.DB.Path); err != nil {
			return err
		}
	}

	conn, err := db.Connect(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return err
	}
	store := db.NewStore(conn)
	defer store.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx, conn); err != nil {
		return err
	}
	log.WithField("driver", cfg.DB.Driver).Info("database ready")

	if cfg.DB.Seed {
		n, err := db.Seed(ctx, conn)
		if err != nil {
			return err
		}
		if n > 0 {
			log.WithField("count", n).Info("seeded database")
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(store, log, cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("todo service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ensureDir creates the parent directory of a sqlite file.
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}
