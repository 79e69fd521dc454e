package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "device_etl"

// Metrics holds the Prometheus counters and gauges describing one ETL run.
type Metrics struct {
	Registry *prometheus.Registry

	RowsExtracted      prometheus.Counter
	SummariesWritten   prometheus.Counter
	SummariesPublished prometheus.Counter
	ConnectAttempts    *prometheus.CounterVec // labels: store={source,sink}
	StageFailures      *prometheus.CounterVec // labels: kind={connect,read,decode,compute,write}
	RunDuration        prometheus.Gauge
	LastSuccess        prometheus.Gauge
	LastRunSucceeded   prometheus.Gauge
}

// NewMetrics creates all job metrics on a private registry, so repeated calls
// (one per test) never collide.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Rows read from the source devices table.",
		}),
		SummariesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_written_total",
			Help:      "Hourly summaries written to the sink table.",
		}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Hourly summaries published to Kafka.",
		}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Database connection attempts by store.",
		}, []string{"store"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Run failures by error kind.",
		}, []string{"kind"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		LastRunSucceeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_succeeded",
			Help:      "1 when the last run completed, 0 when it failed.",
		}),
	}

	m.Registry.MustRegister(
		m.RowsExtracted,
		m.SummariesWritten,
		m.SummariesPublished,
		m.ConnectAttempts,
		m.StageFailures,
		m.RunDuration,
		m.LastSuccess,
		m.LastRunSucceeded,
	)
	return m
}

// Push sends the registry to a Prometheus Pushgateway. It is a no-op when url
// is empty; failures are logged and never returned since metrics must not fail
// the job.
func (m *Metrics) Push(ctx context.Context, url, job string, logger *slog.Logger) {
	if url == "" {
		return
	}
	err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx)
	if err != nil {
		logger.Warn("push metrics failed", "error", err, "url", url)
		return
	}
	logger.Debug("metrics pushed", "url", url, "job", job)
}
