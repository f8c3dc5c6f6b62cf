package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/msavelyev/listing-categorizer/internal/bootstrap"
	"github.com/msavelyev/listing-categorizer/internal/config"
	"github.com/msavelyev/listing-categorizer/internal/core/domain"
	"github.com/msavelyev/listing-categorizer/internal/observability/logging"
	"github.com/msavelyev/listing-categorizer/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.ProcessUC.SetObserver(func(file domain.FileResult) {
		workerMetrics.ObserveFileOutcome(serviceName, string(file.Status), file.RecordCount)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     metricsMux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeBatchAccepted(ctx, func(handlerCtx context.Context, batchID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.StartBatch()
		processErr := app.ProcessUC.ProcessByID(processCtx, batchID)
		workerMetrics.FinishBatch(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker_metrics_shutdown_error", "error", err)
	}
}
