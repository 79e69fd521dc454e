package sqlstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string

	quote     byte
	numbered  bool // $1, $2, ... instead of ?
	timestamp string
	text      string
	keyText   string
	float     string
	integer   string
}

var (
	// Postgres is the dialect of PostgreSQL via pgx.
	Postgres = Dialect{
		Name: "postgres", quote: '"', numbered: true,
		timestamp: "TIMESTAMP", text: "TEXT", keyText: "TEXT", float: "DOUBLE PRECISION", integer: "BIGINT",
	}
	// MySQL is the dialect of MySQL and MariaDB.
	MySQL = Dialect{
		Name: "mysql", quote: '`',
		timestamp: "DATETIME", text: "TEXT", keyText: "VARCHAR(255)", float: "DOUBLE", integer: "BIGINT",
	}
	// SQLite is the dialect of modernc.org/sqlite.
	SQLite = Dialect{
		Name: "sqlite", quote: '"',
		timestamp: "DATETIME", text: "TEXT", keyText: "TEXT", float: "REAL", integer: "INTEGER",
	}
)

// Table quotes a possibly schema-qualified table name.
func (d Dialect) Table(name string) (string, error) {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if !identRe.MatchString(p) {
			return "", fmt.Errorf("invalid table name %q", name)
		}
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, "."), nil
}

// Quote quotes a single identifier.
func (d Dialect) Quote(ident string) string {
	q := string(d.quote)
	return q + ident + q
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// valuesClause builds "(p1, p2), (p3, p4)" for rows of width columns.
func (d Dialect) valuesClause(rows, width int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
