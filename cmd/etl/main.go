// Command etl reads the device telemetry table once, aggregates readings into
// per-device hourly summaries and replaces the summary table with the result.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/device-telemetry-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/device-telemetry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/device-telemetry-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/device-telemetry-etl/internal/config"
	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
	"github.com/couchcryptid/device-telemetry-etl/internal/observability"
	"github.com/couchcryptid/device-telemetry-etl/internal/pipeline"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to read .env:", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, logFile, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	runErr := run(ctx, cfg, logger)
	stop()

	if closeErr := logFile.Close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "close log file:", closeErr)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	metrics := observability.NewMetrics()
	defer func() {
		if err != nil {
			metrics.LastRunSucceeded.Set(0)
			logger.Error("etl run failed", "kind", pipeline.KindOf(err), "error", err)
		}
		metrics.Push(context.WithoutCancel(ctx), cfg.PushgatewayURL, cfg.MetricsJob, logger)
	}()

	distance, err := domain.DistanceByName(cfg.DistanceMethod)
	if err != nil {
		return pipeline.Fail(pipeline.ErrCompute, err)
	}

	ready := newReadiness()
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, ready, metrics.Registry, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", "error", err)
			}
		}()
	}

	if cfg.StartupDelay > 0 {
		logger.Info("waiting before first connection", "delay", cfg.StartupDelay)
		select {
		case <-time.After(cfg.StartupDelay):
		case <-ctx.Done():
			return pipeline.Fail(pipeline.ErrConnect, ctx.Err())
		}
	}

	policy := sqlstore.RetryPolicy{
		InitialInterval: cfg.ConnectInitialBackoff,
		MaxInterval:     cfg.ConnectMaxBackoff,
		Timeout:         cfg.ConnectTimeout,
	}

	var closers []io.Closer
	defer func() {
		if closeErr := closeAll(closers); closeErr != nil {
			logger.Warn("close failed", "error", closeErr)
		}
	}()

	sourceDB, sourceTarget, err := connect(ctx, "source", cfg.SourceDSN, policy, logger, metrics)
	if err != nil {
		return err
	}
	closers = append(closers, sourceDB)
	ready.set("source", sourceDB)

	sinkDB, sinkTarget, err := connect(ctx, "sink", cfg.SinkDSN, policy, logger, metrics)
	if err != nil {
		return err
	}
	closers = append(closers, sinkDB)
	ready.set("sink", sinkDB)

	var opts []pipeline.Option
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, writer)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("kafka publication enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSummaryTopic)
	}

	p := pipeline.New(
		sqlstore.NewSource(sourceDB, sourceTarget.Dialect, cfg.SourceTable),
		pipeline.NewTransformer(),
		sqlstore.NewSink(sinkDB, sinkTarget.Dialect, cfg.SinkTable),
		domain.AggregateOptions{Distance: distance, OrderByTime: cfg.OrderByTime},
		logger,
		metrics,
		opts...,
	)

	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("etl run complete",
		"rows_extracted", report.RowsExtracted,
		"summaries", report.Written.Rows,
		"devices", report.Written.Devices,
		"published", report.Published,
		"duration", report.Duration(),
	)
	return nil
}

// connectURL is replaced in tests to observe the opened connections.
var connectURL = sqlstore.ConnectURL

func connect(ctx context.Context, store, dsn string, policy sqlstore.RetryPolicy, logger *slog.Logger, metrics *observability.Metrics) (*sql.DB, sqlstore.Target, error) {
	attempts := metrics.ConnectAttempts.WithLabelValues(store)
	db, target, err := connectURL(ctx, store, dsn, policy, logger, attempts.Inc)
	if err != nil {
		metrics.StageFailures.WithLabelValues("connect").Inc()
		return nil, sqlstore.Target{}, pipeline.Fail(pipeline.ErrConnect, err)
	}
	return db, target, nil
}

func closeAll(closers []io.Closer) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i].Close())
	}
	return err
}
