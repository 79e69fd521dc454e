package sqlstore

import (
	"context"
	"fmt"

	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
)

// Seed recreates the source devices table and fills it with readings, in the
// layout the upstream generator uses: every column is text except temperature.
func (s *Source) Seed(ctx context.Context, readings []domain.RawReading) error {
	table, err := s.dialect.Table(s.table)
	if err != nil {
		return err
	}
	d := s.dialect
	columns := fmt.Sprintf("%s, %s, %s, %s",
		d.Quote("device_id"), d.Quote("temperature"), d.Quote("location"), d.Quote("time"))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", s.table, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s %s, %s %s, %s %s, %s %s)", table,
		d.Quote("device_id"), d.keyText,
		d.Quote("temperature"), d.float,
		d.Quote("location"), d.text,
		d.Quote("time"), d.keyText,
	)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}

	for start := 0; start < len(readings); start += insertBatchSize {
		end := min(start+insertBatchSize, len(readings))
		batch := readings[start:end]
		args := make([]any, 0, len(batch)*4)
		for _, r := range batch {
			args = append(args, r.DeviceID, r.Temperature, r.Location, r.Time)
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, columns, d.valuesClause(len(batch), 4))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s rows %d-%d: %w", s.table, start+1, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", s.table, err)
	}
	return nil
}
