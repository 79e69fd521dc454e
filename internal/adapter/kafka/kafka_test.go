package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/device-telemetry-etl/internal/config"
	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

var testHour = time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)

func TestSerializeToMessage(t *testing.T) {
	s := domain.HourlySummary{
		Hour:           testHour,
		DeviceID:       "dev-1",
		MaxTemperature: 31.5,
		DataPointCount: 12,
		TotalDistance:  7,
	}

	msg, err := serializeToMessage(s)
	require.NoError(t, err)

	assert.Equal(t, []byte("dev-1|2024-04-26T15:00:00Z"), msg.Key)
	assert.JSONEq(t, `{"hour":"2024-04-26T15:00:00Z","device_id":"dev-1","max_temperature":31.5,"data_point_count":12,"total_distance":7}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "device_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("dev-1"), msg.Headers[0].Value)
	assert.Equal(t, "hour", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-04-26T15:00:00Z"), msg.Headers[1].Value)
}

func TestWriter_Publish(t *testing.T) {
	rec := &recordingWriter{}
	w := &Writer{writer: rec, topic: "device-hourly-summaries", logger: slog.Default()}

	err := w.Publish(context.Background(), []domain.HourlySummary{
		{Hour: testHour, DeviceID: "a"},
		{Hour: testHour, DeviceID: "b"},
	})
	require.NoError(t, err)
	require.Len(t, rec.msgs, 2)
	assert.Equal(t, []byte("a|2024-04-26T15:00:00Z"), rec.msgs[0].Key)
	assert.Equal(t, []byte("b|2024-04-26T15:00:00Z"), rec.msgs[1].Key)

	require.NoError(t, w.Publish(context.Background(), nil))
	assert.Len(t, rec.msgs, 2)

	require.NoError(t, w.Close())
	assert.True(t, rec.closed)
}

func TestWriter_PublishError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("leader not available")}
	w := &Writer{writer: rec, topic: "summaries", logger: slog.Default()}

	err := w.Publish(context.Background(), []domain.HourlySummary{{Hour: testHour, DeviceID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summaries")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaSummaryTopic: "summaries"}
	w := NewWriter(cfg, slog.Default())

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "summaries", kw.Topic)
	assert.Equal(t, kafkago.RequireAll, kw.RequiredAcks)
	require.NoError(t, w.Close())
}
