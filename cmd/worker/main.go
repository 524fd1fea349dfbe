package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/d4d-ingest/internal/bootstrap"
	"github.com/kirillkom/d4d-ingest/internal/config"
	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/observability/logging"
	"github.com/kirillkom/d4d-ingest/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, ServeQueue: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.OffloadWorkers, "ledger", app.Runs != nil)
	err = app.Queue.ServeNormalize(ctx, func(handlerCtx context.Context, ref string) (domain.NormalizedDocument, error) {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout)
		defer cancel()

		start := time.Now()
		workerMetrics.StartRequest()
		doc, err := app.Pipeline.Normalize(processCtx, ref)
		workerMetrics.FinishRequest("worker", time.Since(start), domain.KindOf(err))
		return doc, err
	})
	if err != nil {
		logger.Error("worker_serve_failed", "error", err)
		os.Exit(1)
	}
}
