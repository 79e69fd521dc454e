// Command verify recomputes the hourly summaries from the source table and
// compares them with the rows stored in the sink table. It prints a diff and
// exits non-zero when the two disagree.
//
// Usage:
//
//	go run ./cmd/verify
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/device-telemetry-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/device-telemetry-etl/internal/config"
	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
	"github.com/couchcryptid/device-telemetry-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/joho/godotenv"
)

// distanceTolerance absorbs float formatting differences between stores.
const distanceTolerance = 1e-9

var errMismatch = errors.New("sink does not match source")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("verification failed", "error", err)
		os.Exit(1)
	}
	logger.Info("sink matches source")
}

func run(logger *slog.Logger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	distance, err := domain.DistanceByName(cfg.DistanceMethod)
	if err != nil {
		return err
	}
	policy := sqlstore.RetryPolicy{
		InitialInterval: cfg.ConnectInitialBackoff,
		MaxInterval:     cfg.ConnectMaxBackoff,
		Timeout:         cfg.ConnectTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceDB, sourceTarget, err := sqlstore.ConnectURL(ctx, "source", cfg.SourceDSN, policy, logger, nil)
	if err != nil {
		return err
	}
	defer sourceDB.Close()
	sinkDB, sinkTarget, err := sqlstore.ConnectURL(ctx, "sink", cfg.SinkDSN, policy, logger, nil)
	if err != nil {
		return err
	}
	defer sinkDB.Close()

	source := sqlstore.NewSource(sourceDB, sourceTarget.Dialect, cfg.SourceTable)
	sink := sqlstore.NewSink(sinkDB, sinkTarget.Dialect, cfg.SinkTable)

	want, err := expected(ctx, source, domain.AggregateOptions{Distance: distance, OrderByTime: cfg.OrderByTime})
	if err != nil {
		return err
	}
	got, err := sink.ReadSummaries(ctx)
	if err != nil {
		return fmt.Errorf("read sink: %w", err)
	}

	if diff := compare(want, got); diff != "" {
		fmt.Fprintf(os.Stderr, "summary mismatch (-source +sink):\n%s", diff)
		return errMismatch
	}
	logger.Info("summaries compared", "rows", len(got))
	return nil
}

// expected runs the same decode and aggregate steps as the ETL job.
func expected(ctx context.Context, source pipeline.Extractor, opts domain.AggregateOptions) ([]domain.HourlySummary, error) {
	raws, err := source.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	readings, err := pipeline.NewTransformer().Transform(raws)
	if err != nil {
		return nil, err
	}
	return domain.Aggregate(readings, opts)
}

// compare returns a human-readable diff, or "" when both sets agree.
func compare(want, got []domain.HourlySummary) string {
	return cmp.Diff(want, got,
		cmpopts.EquateEmpty(),
		cmpopts.EquateApprox(0, distanceTolerance),
		cmpopts.EquateApproxTime(0),
	)
}
