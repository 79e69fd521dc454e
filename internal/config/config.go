package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	SourceDSN   string
	SinkDSN     string
	SourceTable string
	SinkTable   string

	LogLevel  string
	LogFormat string
	LogFile   string

	// Connection establishment.
	StartupDelay          time.Duration
	ConnectTimeout        time.Duration
	ConnectInitialBackoff time.Duration
	ConnectMaxBackoff     time.Duration

	// Aggregation.
	DistanceMethod string
	OrderByTime    bool

	// Optional summary publication to Kafka.
	KafkaBrokers      []string
	KafkaSummaryTopic string

	// Optional Prometheus Pushgateway.
	PushgatewayURL string
	MetricsJob     string

	// HTTPAddr serves health and metrics while the job runs; empty disables it.
	HTTPAddr string
}

// Load reads configuration from environment variables, applying defaults where unset.
// SOURCE_DSN and SINK_DSN fall back to POSTGRESQL_CS and MYSQL_CS.
func Load() (*Config, error) {
	startupDelay, err := parseDuration("STARTUP_DELAY", "0s", true)
	if err != nil {
		return nil, err
	}
	connectTimeout, err := parseDuration("CONNECT_TIMEOUT", "2m", false)
	if err != nil {
		return nil, err
	}
	initialBackoff, err := parseDuration("CONNECT_INITIAL_BACKOFF", "200ms", false)
	if err != nil {
		return nil, err
	}
	maxBackoff, err := parseDuration("CONNECT_MAX_BACKOFF", "5s", false)
	if err != nil {
		return nil, err
	}
	orderByTime, err := parseBool("ORDER_BY_TIME", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceDSN:   firstEnv("SOURCE_DSN", "POSTGRESQL_CS"),
		SinkDSN:     firstEnv("SINK_DSN", "MYSQL_CS"),
		SourceTable: EnvOrDefault("SOURCE_TABLE", "devices"),
		SinkTable:   EnvOrDefault("SINK_TABLE", "devices_agg_data"),

		LogLevel:  EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: EnvOrDefault("LOG_FORMAT", "text"),
		LogFile:   lookupOrDefault("LOG_FILE", "logs.log"),

		StartupDelay:          startupDelay,
		ConnectTimeout:        connectTimeout,
		ConnectInitialBackoff: initialBackoff,
		ConnectMaxBackoff:     maxBackoff,

		DistanceMethod: EnvOrDefault("DISTANCE_METHOD", domain.DistanceGeodesic),
		OrderByTime:    orderByTime,

		KafkaBrokers:      ParseBrokers(EnvOrDefault("KAFKA_BROKERS", "")),
		KafkaSummaryTopic: EnvOrDefault("KAFKA_SUMMARY_TOPIC", "device-hourly-summaries"),

		PushgatewayURL: EnvOrDefault("PUSHGATEWAY_URL", ""),
		MetricsJob:     EnvOrDefault("METRICS_JOB", "device-telemetry-etl"),

		HTTPAddr: EnvOrDefault("HTTP_ADDR", ""),
	}

	if cfg.SourceDSN == "" {
		return nil, errors.New("SOURCE_DSN (or POSTGRESQL_CS) is required")
	}
	if cfg.SinkDSN == "" {
		return nil, errors.New("SINK_DSN (or MYSQL_CS) is required")
	}
	if cfg.ConnectMaxBackoff < cfg.ConnectInitialBackoff {
		return nil, errors.New("CONNECT_MAX_BACKOFF must not be smaller than CONNECT_INITIAL_BACKOFF")
	}
	if _, err := domain.DistanceByName(cfg.DistanceMethod); err != nil {
		return nil, fmt.Errorf("invalid DISTANCE_METHOD: %w", err)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}

// KafkaEnabled reports whether summaries should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaSummaryTopic != ""
}
