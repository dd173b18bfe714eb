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

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/intellidocs/internal/bootstrap"
	"github.com/kirillkom/intellidocs/internal/config"
	"github.com/kirillkom/intellidocs/internal/observability/logging"
	"github.com/kirillkom/intellidocs/internal/observability/metrics"
)

const serviceName = "intellidocs-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithCircuitObserver(func(operation string, state gobreaker.State) {
		workerMetrics.SetCircuitState(serviceName, operation, state)
	}))
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	handler := &ingestHandler{
		processor: app.ProcessUC,
		documents: app.DocumentsUC,
		metrics:   workerMetrics,
		timeout:   cfg.WorkerProcessTimeout,
		now:       time.Now,
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeDocumentIngested(ctx, handler.handle); err != nil {
		slog.Error("worker_subscribe_error", "error", err)
		os.Exit(1)
	}
}
