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

	"github.com/kirillkom/deepfake-scan/internal/bootstrap"
	"github.com/kirillkom/deepfake-scan/internal/config"
	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/observability/logging"
	"github.com/kirillkom/deepfake-scan/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "service", serviceName, "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

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

	logger.Info("worker_subscribed",
		"subject", cfg.NATSRequestedSubject,
		"metrics_port", cfg.WorkerMetricsPort,
	)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, event domain.AnalysisEvent) error {
		if !event.OccurredAt.IsZero() {
			workerMetrics.ObserveQueueLag(time.Since(event.OccurredAt))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout)
		defer cancel()

		started := time.Now()
		workerMetrics.StartAnalysis()
		err := app.ProcessUC.ProcessByID(processCtx, event.AnalysisID)
		workerMetrics.FinishAnalysis(time.Since(started), err)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
