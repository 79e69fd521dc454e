package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds connection establishment.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Timeout is the total time allowed across all attempts.
	Timeout time.Duration
}

// DefaultRetryPolicy waits for a database that is still starting up.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	Timeout:         2 * time.Minute,
}

// Connect opens the target and pings it until it answers, retrying with
// exponential backoff until the policy timeout expires or ctx is cancelled.
// onAttempt, when non-nil, is called before every ping.
func Connect(ctx context.Context, name string, target Target, policy RetryPolicy, logger *slog.Logger, onAttempt func()) (*sql.DB, error) {
	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(policy.InitialInterval),
		backoff.WithMaxInterval(policy.MaxInterval),
		backoff.WithMaxElapsedTime(policy.Timeout),
	)

	var (
		attempts int
		lastErr  error
	)
	ping := func() error {
		attempts++
		if onAttempt != nil {
			onAttempt()
		}
		lastErr = db.PingContext(ctx)
		return lastErr
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying",
			"store", name,
			"target", target.Redacted,
			"attempt", attempts,
			"retry_in", next,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		_ = db.Close()
		if lastErr != nil && lastErr != err {
			return nil, fmt.Errorf("connect to %s (%s) after %d attempts: %w: last error: %v", name, target.Redacted, attempts, err, lastErr)
		}
		return nil, fmt.Errorf("connect to %s (%s) after %d attempts: %w", name, target.Redacted, attempts, err)
	}

	logger.Info("connection successful", "store", name, "target", target.Redacted, "attempts", attempts)
	return db, nil
}

// ConnectURL resolves a connection URL and connects to it with Connect.
func ConnectURL(ctx context.Context, name, rawURL string, policy RetryPolicy, logger *slog.Logger, onAttempt func()) (*sql.DB, Target, error) {
	target, err := ParseDSN(rawURL)
	if err != nil {
		return nil, Target{}, fmt.Errorf("%s: %w", name, err)
	}
	db, err := Connect(ctx, name, target, policy, logger, onAttempt)
	if err != nil {
		return nil, Target{}, err
	}
	return db, target, nil
}
