package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/khu-ai/regulation-assistant/internal/adapters/http"
	"github.com/khu-ai/regulation-assistant/internal/bootstrap"
	"github.com/khu-ai/regulation-assistant/internal/config"
	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/observability/logging"
	"github.com/khu-ai/regulation-assistant/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.Close(closeCtx)
	}()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.AskUC, app.ChunkStore, app.Relations, serverMetrics, cfg)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The partition cache is process-local, so this process consumes
	// invalidation events itself rather than delegating to the worker.
	go func() {
		err := app.Queue.SubscribePartitionInvalidated(ctx, func(_ context.Context, partition domain.Partition) error {
			app.IndexCache.Invalidate(partition)
			logger.Info("partition cache invalidated", "partition", partition.Key())
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("invalidation subscription ended", "error", err)
		}
	}()

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", "error", err)
	}
}
