// Command seed fills the source devices table with synthetic readings.
// Each device takes a random walk so hourly summaries carry non-zero distances.
//
// Usage:
//
//	go run ./cmd/seed -devices 5 -readings 7200 -interval 1s
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/couchcryptid/device-telemetry-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/device-telemetry-etl/internal/config"
	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type generator struct {
	devices  int
	readings int
	start    time.Time
	interval time.Duration
	rng      *rand.Rand
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	devices := flag.Int("devices", 3, "number of devices")
	readings := flag.Int("readings", 600, "readings per device")
	start := flag.String("start", "", "RFC3339 time of the first reading (default: now truncated to the hour)")
	interval := flag.Duration("interval", time.Second, "time between readings of one device")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *devices <= 0 || *readings <= 0 || *interval <= 0 {
		flag.Usage()
		return errors.New("-devices, -readings and -interval must be positive")
	}

	startAt := time.Now().UTC().Truncate(time.Hour)
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			return fmt.Errorf("parse -start: %w", err)
		}
		startAt = t.UTC()
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read .env: %w", err)
	}
	dsn := config.EnvOrDefault("SOURCE_DSN", config.EnvOrDefault("POSTGRESQL_CS", ""))
	if dsn == "" {
		return errors.New("SOURCE_DSN (or POSTGRESQL_CS) is required")
	}
	table := config.EnvOrDefault("SOURCE_TABLE", "devices")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, target, err := sqlstore.ConnectURL(ctx, "source", dsn, sqlstore.DefaultRetryPolicy, logger, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	g := generator{
		devices:  *devices,
		readings: *readings,
		start:    startAt,
		interval: *interval,
		rng:      rand.New(rand.NewSource(*seed)), //nolint:gosec // synthetic data
	}
	rows := g.generate()

	if err := sqlstore.NewSource(db, target.Dialect, table).Seed(ctx, rows); err != nil {
		return err
	}
	logger.Info("source table seeded", "table", table, "devices", *devices, "rows", len(rows))
	return nil
}

// generate produces readings interleaved by time, one per device per interval.
func (g generator) generate() []domain.RawReading {
	type walker struct {
		id       string
		lat, lon float64
		temp     float64
	}
	walkers := make([]walker, g.devices)
	for i := range walkers {
		walkers[i] = walker{
			id:   uuid.NewString(),
			lat:  g.rng.Float64()*170 - 85,
			lon:  g.rng.Float64()*350 - 175,
			temp: 10 + g.rng.Float64()*20,
		}
	}

	out := make([]domain.RawReading, 0, g.devices*g.readings)
	for step := 0; step < g.readings; step++ {
		at := g.start.Add(time.Duration(step) * g.interval).Unix()
		for i := range walkers {
			w := &walkers[i]
			w.lat = clamp(w.lat+g.rng.NormFloat64()*0.001, -90, 90)
			w.lon = clamp(w.lon+g.rng.NormFloat64()*0.001, -180, 180)
			w.temp += g.rng.NormFloat64() * 0.2
			out = append(out, domain.RawReading{
				DeviceID:    w.id,
				Time:        strconv.FormatInt(at, 10),
				Temperature: float64(int(w.temp)),
				Location:    locationJSON(w.lat, w.lon),
			})
		}
	}
	return out
}

// locationJSON encodes coordinates as strings, the way upstream devices report them.
func locationJSON(lat, lon float64) string {
	b, _ := json.Marshal(map[string]string{
		"latitude":  strconv.FormatFloat(lat, 'f', 6, 64),
		"longitude": strconv.FormatFloat(lon, 'f', 6, 64),
	})
	return string(b)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
