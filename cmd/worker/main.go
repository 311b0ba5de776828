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

	"github.com/kirillkom/cleanout-estimator/internal/bootstrap"
	"github.com/kirillkom/cleanout-estimator/internal/config"
	"github.com/kirillkom/cleanout-estimator/internal/core/domain"
	"github.com/kirillkom/cleanout-estimator/internal/core/ports"
	"github.com/kirillkom/cleanout-estimator/internal/observability/logging"
	"github.com/kirillkom/cleanout-estimator/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.Install("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:        "worker",
		Registerer:     workerMetrics.Registry(),
		SkipMigrations: true,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux(workerMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "timeout", cfg.WorkerTimeout.String())
	handler := newReprocessHandler(app.Rooms, workerMetrics, cfg.WorkerTimeout)
	if err := app.Queue.SubscribeRoomReprocess(ctx, handler); err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info("worker_stopped")
}

func metricsMux(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type reprocessHandler func(ctx context.Context, req domain.ReprocessRequest) error

// newReprocessHandler reclassifies one room per message. A missing room is
// logged and acknowledged since retrying cannot help.
func newReprocessHandler(rooms ports.RoomReprocessor, m *metrics.WorkerMetrics, timeout time.Duration) reprocessHandler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return func(ctx context.Context, req domain.ReprocessRequest) error {
		if !req.RequestedAt.IsZero() {
			m.ObserveQueueLag(time.Since(req.RequestedAt))
		}

		processCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		m.StartReprocess()
		start := time.Now()
		room, err := rooms.ReprocessRoom(processCtx, req.RoomID)
		m.FinishReprocess(time.Since(start), err)

		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				slog.Warn("reprocess_room_gone", "room_id", req.RoomID, "request_id", req.RequestID)
				return nil
			}
			return err
		}
		slog.Info("reprocess_completed",
			"room_id", room.ID,
			"request_id", req.RequestID,
			"estimated_cost", room.EstimatedCost.StringFixed(2),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}
