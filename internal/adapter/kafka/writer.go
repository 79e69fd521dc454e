package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/device-telemetry-etl/internal/config"
	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes hourly summaries to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, topic: cfg.KafkaSummaryTopic, logger: logger}
}

// Publish serializes and writes all summaries in a single WriteMessages call.
// Messages are keyed by device and hour, which is the sink's primary key.
func (w *Writer) Publish(ctx context.Context, summaries []domain.HourlySummary) error {
	if len(summaries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeToMessage(summaries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.topic, err)
	}
	w.logger.Debug("summaries written to kafka", "topic", w.topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a summary into a Kafka message.
func serializeToMessage(s domain.HourlySummary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary: %w", err)
	}
	hour := s.Hour.UTC().Format(time.RFC3339)
	return kafkago.Message{
		Key:   []byte(s.DeviceID + "|" + hour),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "device_id", Value: []byte(s.DeviceID)},
			{Key: "hour", Value: []byte(hour)},
		},
	}, nil
}
