package pipeline

import (
	"fmt"

	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
)

// ReadingTransformer implements Transformer with domain.DecodeReading. The
// first row that fails to decode fails the batch.
type ReadingTransformer struct{}

// NewTransformer creates a ReadingTransformer.
func NewTransformer() *ReadingTransformer {
	return &ReadingTransformer{}
}

func (ReadingTransformer) Transform(raws []domain.RawReading) ([]domain.Reading, error) {
	readings := make([]domain.Reading, 0, len(raws))
	for i, raw := range raws {
		r, err := domain.DecodeReading(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}
