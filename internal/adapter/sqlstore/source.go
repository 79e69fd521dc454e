package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
)

// Source reads the devices table. It implements pipeline.Extractor.
type Source struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewSource creates a reader for table.
func NewSource(db *sql.DB, dialect Dialect, table string) *Source {
	return &Source{db: db, dialect: dialect, table: table}
}

// ReadAll fetches every row of the table in the order the database returns
// them. There is no filter and no pagination.
func (s *Source) ReadAll(ctx context.Context) ([]domain.RawReading, error) {
	table, err := s.dialect.Table(s.table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s",
		s.dialect.Quote("device_id"),
		s.dialect.Quote("time"),
		s.dialect.Quote("temperature"),
		s.dialect.Quote("location"),
		table,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var readings []domain.RawReading
	for rows.Next() {
		var r domain.RawReading
		if err := rows.Scan(&r.DeviceID, &r.Time, &r.Temperature, &r.Location); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", s.table, len(readings)+1, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return readings, nil
}
