package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
	"github.com/couchcryptid/device-telemetry-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Extractor reads every row of the source table.
type Extractor interface {
	ReadAll(ctx context.Context) ([]domain.RawReading, error)
}

// Transformer decodes source rows into readings.
type Transformer interface {
	Transform(raws []domain.RawReading) ([]domain.Reading, error)
}

// Loader replaces the sink table and reads it back.
type Loader interface {
	Replace(ctx context.Context, summaries []domain.HourlySummary) error
	Inspect(ctx context.Context) (domain.TableShape, error)
}

// Publisher forwards written summaries to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, summaries []domain.HourlySummary) error
}

// Report describes a completed run.
type Report struct {
	Started       time.Time
	Finished      time.Time
	RowsExtracted int
	// Result is the shape of the in-memory aggregate.
	Result domain.TableShape
	// Written is the shape read back from the sink.
	Written   domain.TableShape
	Published int
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Pipeline runs extract, transform, aggregate, load and verify once, in order.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	publisher   Publisher
	aggregate   domain.AggregateOptions
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithPublisher publishes summaries after they are written and verified.
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithClock replaces the wall clock used for run timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(pl *Pipeline) { pl.clock = c }
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l Loader, agg domain.AggregateOptions, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		aggregate:   agg,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline once. Decode and compute failures happen before
// the sink is touched, so a failed run leaves the previous result in place.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	report := Report{Started: p.clock.Now()}
	p.logger.Info("etl starting")

	err := p.run(ctx, &report)
	report.Finished = p.clock.Now()
	p.metrics.RunDuration.Set(report.Duration().Seconds())

	if err != nil {
		p.metrics.StageFailures.WithLabelValues(KindOf(err)).Inc()
		p.metrics.LastRunSucceeded.Set(0)
		return report, err
	}
	p.metrics.LastRunSucceeded.Set(1)
	p.metrics.LastSuccess.Set(float64(report.Finished.Unix()))
	p.logger.Info("etl finished", "duration", report.Duration())
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	raws, err := p.extractor.ReadAll(ctx)
	if err != nil {
		return Fail(ErrRead, err)
	}
	report.RowsExtracted = len(raws)
	p.metrics.RowsExtracted.Add(float64(len(raws)))
	p.logger.Info("rows extracted", "rows", len(raws))

	readings, err := p.transformer.Transform(raws)
	if err != nil {
		return Fail(ErrDecode, err)
	}

	summaries, err := domain.Aggregate(readings, p.aggregate)
	if err != nil {
		return Fail(ErrCompute, err)
	}
	report.Result = domain.ShapeOf(summaries)
	p.logShape("result", report.Result)

	if err := ctx.Err(); err != nil {
		return Fail(ErrWrite, fmt.Errorf("cancelled before write: %w", err))
	}
	if err := p.loader.Replace(ctx, summaries); err != nil {
		return Fail(ErrWrite, err)
	}
	p.metrics.SummariesWritten.Add(float64(len(summaries)))

	written, err := p.loader.Inspect(ctx)
	if err != nil {
		return Fail(ErrWrite, fmt.Errorf("read back: %w", err))
	}
	report.Written = written
	p.logShape("written", written)

	if !written.SameLayout(report.Result) {
		return Fail(ErrWrite, fmt.Errorf("read back %d rows with columns [%s], expected %d rows with columns [%s]",
			written.Rows, strings.Join(written.Columns, ", "),
			report.Result.Rows, strings.Join(report.Result.Columns, ", ")))
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, summaries); err != nil {
			return Fail(ErrWrite, fmt.Errorf("publish: %w", err))
		}
		report.Published = len(summaries)
		p.metrics.SummariesPublished.Add(float64(len(summaries)))
		p.logger.Info("summaries published", "count", len(summaries))
	}
	return nil
}

func (p *Pipeline) logShape(which string, shape domain.TableShape) {
	p.logger.Info("table shape",
		"table", which,
		"rows", shape.Rows,
		"columns", strings.Join(shape.Columns, ", "),
		"devices", shape.Devices,
	)
}
