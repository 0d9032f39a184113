package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"epl_v4/etl/internal/config"
	"epl_v4/etl/internal/etl"
	"epl_v4/etl/internal/logging"
	"epl_v4/etl/internal/metrics"
	"epl_v4/etl/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.Setup(cfg)

	logger.Info().Msg("Starting football data ETL worker")
	logger.Info().
		Str("env", cfg.AppEnv).
		Str("competition", cfg.Competition).
		Int("season", cfg.Season).
		Str("store", cfg.StoreKind).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort, logger)
	}

	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	runOnce := func(ctx context.Context) {
		report, err := etl.Run(ctx, cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("ETL run could not start")
			return
		}
		logReport(logger, report)
	}

	sched := scheduler.New(cfg, runOnce, logger.With().Str("component", "scheduler").Logger())
	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.InitialRunEnabled {
		logger.Info().Msg("Running initial ETL...")
		runOnce(ctx)
	}

	<-ctx.Done()

	logger.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	logger.Info().Msg("Worker shutdown complete")
}

// logReport logs a finished run at a severity matching its outcome.
func logReport(logger zerolog.Logger, report etl.Report) {
	evt := logger.Info()
	if report.State != etl.StateDone {
		evt = logger.Warn().Err(report.Err)
	}
	evt.
		Str("state", report.State.String()).
		Int("teams", report.Teams).
		Int("matches", report.Matches).
		Int("players", report.Players).
		Ints("failed_team_ids", report.FailedTeamIDs).
		Dur("duration", report.Duration).
		Msg("ETL run finished")
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}
