package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"verity/internal/platform/config"
	"verity/internal/platform/httpserver"
	"verity/internal/platform/logger"
)

const shutdownTimeout = 15 * time.Second

// main wires dependencies, exposes the HTTP router, and keeps the server
// lifecycle small. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close(log)

	srv := httpserver.New(cfg.Server.Addr, app.router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting verity",
			"addr", cfg.Server.Addr,
			"env", cfg.Server.Env,
			"record_store", cfg.Server.Store,
			"notify", cfg.Notify.Kind,
			"ocr_engine", cfg.OCR.Engine,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
