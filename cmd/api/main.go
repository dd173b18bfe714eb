package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/intellidocs/internal/adapters/http"
	"github.com/kirillkom/intellidocs/internal/bootstrap"
	"github.com/kirillkom/intellidocs/internal/config"
	"github.com/kirillkom/intellidocs/internal/observability/logging"
	"github.com/kirillkom/intellidocs/internal/observability/metrics"
)

const serviceName = "intellidocs-api"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithCircuitObserver(func(operation string, state gobreaker.State) {
		httpMetrics.SetCircuitState(serviceName, operation, state)
	}))
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(cfg, httpadapter.Services{
		Ingestor:   app.IngestUC,
		Processor:  app.ProcessUC,
		Documents:  app.DocumentsUC,
		Categories: app.CategoriesUC,
		Chat:       app.ChatUC,
		Stats:      app.StatsUC,
	}, httpadapter.WithMetrics(httpMetrics))
	if err != nil {
		slog.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  cfg.APIReadTimeout,
		WriteTimeout: cfg.APIWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		slog.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		slog.Info("api_listening",
			"port", cfg.APIPort,
			"max_connections", cfg.APIMaxConnections,
			"rate_limit_rps", cfg.APIRateLimitRPS,
			"max_in_flight", cfg.APIMaxInFlight,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
}
