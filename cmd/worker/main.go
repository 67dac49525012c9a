// The worker consumes partition invalidation events, drops its cached index
// clients, and immediately re-probes the rebuilt collection so a broken
// reindex shows up in metrics before users hit it.
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

	"github.com/khu-ai/regulation-assistant/internal/bootstrap"
	"github.com/khu-ai/regulation-assistant/internal/config"
	"github.com/khu-ai/regulation-assistant/internal/core/domain"
	"github.com/khu-ai/regulation-assistant/internal/observability/logging"
	"github.com/khu-ai/regulation-assistant/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
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

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server failed", "error", err)
		}
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribePartitionInvalidated(ctx, func(handlerCtx context.Context, partition domain.Partition) error {
		workerMetrics.StartInvalidation()
		start := time.Now()

		app.IndexCache.Invalidate(partition)

		probeCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		_, err := app.IndexCache.Get(probeCtx, partition)
		workerMetrics.FinishInvalidation("worker", time.Since(start), err)
		if err != nil {
			logger.Error("rebuilt partition is unreachable", "partition", partition.Key(), "error", err)
			return err
		}

		logger.Info("partition reloaded", "partition", partition.Key())
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker subscription failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
