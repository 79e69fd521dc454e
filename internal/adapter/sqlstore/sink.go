package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/device-telemetry-etl/internal/domain"
)

// insertBatchSize is the number of rows per multi-row INSERT.
const insertBatchSize = 500

// Sink owns the aggregated output table. It implements pipeline.Loader.
type Sink struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewSink creates a writer for table.
func NewSink(db *sql.DB, dialect Dialect, table string) *Sink {
	return &Sink{db: db, dialect: dialect, table: table}
}

// Replace drops the table if it exists, recreates it and inserts summaries.
// Statements run in one transaction; on MySQL the DDL commits implicitly.
func (s *Sink) Replace(ctx context.Context, summaries []domain.HourlySummary) error {
	table, err := s.dialect.Table(s.table)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", s.table, err)
	}
	if _, err := tx.ExecContext(ctx, s.createStatement(table)); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}

	columns := make([]string, len(domain.SummaryColumns))
	for i, c := range domain.SummaryColumns {
		columns[i] = s.dialect.Quote(c)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	for start := 0; start < len(summaries); start += insertBatchSize {
		end := min(start+insertBatchSize, len(summaries))
		batch := summaries[start:end]

		args := make([]any, 0, len(batch)*len(columns))
		for _, sm := range batch {
			args = append(args, sm.Hour.UTC(), sm.DeviceID, sm.MaxTemperature, sm.DataPointCount, sm.TotalDistance)
		}
		stmt := prefix + s.dialect.valuesClause(len(batch), len(columns))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s rows %d-%d: %w", s.table, start+1, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", s.table, err)
	}
	return nil
}

func (s *Sink) createStatement(table string) string {
	d := s.dialect
	return fmt.Sprintf(
		"CREATE TABLE %s (%s %s NOT NULL, %s %s NOT NULL, %s %s, %s %s, %s %s, PRIMARY KEY (%s, %s))",
		table,
		d.Quote("hour"), d.timestamp,
		d.Quote("device_id"), d.keyText,
		d.Quote("max_temperature"), d.float,
		d.Quote("data_point_count"), d.integer,
		d.Quote("total_distance"), d.float,
		d.Quote("hour"), d.Quote("device_id"),
	)
}

// Inspect reads the whole table back and reports its shape.
func (s *Sink) Inspect(ctx context.Context) (domain.TableShape, error) {
	table, err := s.dialect.Table(s.table)
	if err != nil {
		return domain.TableShape{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return domain.TableShape{}, fmt.Errorf("read back %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.TableShape{}, fmt.Errorf("columns of %s: %w", s.table, err)
	}
	deviceCol := -1
	for i, c := range columns {
		if strings.EqualFold(c, "device_id") {
			deviceCol = i
		}
	}

	values := make([]sql.RawBytes, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	shape := domain.TableShape{Columns: columns}
	devices := make(map[string]struct{})
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return domain.TableShape{}, fmt.Errorf("scan %s: %w", s.table, err)
		}
		shape.Rows++
		if deviceCol >= 0 {
			devices[string(values[deviceCol])] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return domain.TableShape{}, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	shape.Devices = len(devices)
	return shape, nil
}

// ReadSummaries reads the table back as typed summaries ordered by hour and
// device id.
func (s *Sink) ReadSummaries(ctx context.Context) ([]domain.HourlySummary, error) {
	table, err := s.dialect.Table(s.table)
	if err != nil {
		return nil, err
	}
	d := s.dialect
	query := fmt.Sprintf("SELECT %s, %s, %s, %s, %s FROM %s ORDER BY %s, %s",
		d.Quote("hour"), d.Quote("device_id"), d.Quote("max_temperature"),
		d.Quote("data_point_count"), d.Quote("total_distance"),
		table, d.Quote("hour"), d.Quote("device_id"),
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []domain.HourlySummary
	for rows.Next() {
		var (
			hour any
			sm   domain.HourlySummary
		)
		if err := rows.Scan(&hour, &sm.DeviceID, &sm.MaxTemperature, &sm.DataPointCount, &sm.TotalDistance); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		if sm.Hour, err = parseStoredTime(hour); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.table, len(out)+1, err)
		}
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return out, nil
}

var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// parseStoredTime normalizes the driver-specific representation of a
// timestamp column to UTC.
func parseStoredTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseStoredTime(string(t))
	case string:
		for _, layout := range storedTimeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
