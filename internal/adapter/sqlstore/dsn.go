package sqlstore

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Target is a resolved database connection: the database/sql driver name, the
// driver-specific DSN and the SQL dialect to speak.
type Target struct {
	Driver  string
	DSN     string
	Dialect Dialect

	// Redacted is safe to log.
	Redacted string
}

// ParseDSN resolves a connection URL. Accepted schemes:
//
//	postgres://, postgresql://, postgresql+psycopg2://  -> pgx
//	mysql://, mysql+pymysql://                           -> go-sql-driver/mysql
//	sqlite:///<relative path>, sqlite:////<absolute path> -> modernc.org/sqlite
//
// The "+driver" suffix of SQLAlchemy-style URLs is ignored. SQLite paths follow
// SQLAlchemy too: three slashes for a relative path, four for an absolute one.
func ParseDSN(raw string) (Target, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return Target{}, errors.New("connection string must be a URL with a scheme")
	}
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	switch base {
	case "sqlite", "sqlite3":
		path, err := sqlitePath(rest)
		if err != nil {
			return Target{}, err
		}
		return Target{Driver: "sqlite", DSN: path, Dialect: SQLite, Redacted: raw}, nil
	case "postgres", "postgresql":
		u, err := url.Parse(raw)
		if err != nil {
			return Target{}, fmt.Errorf("parse postgres url: %w", err)
		}
		u.Scheme = "postgres"
		return Target{Driver: "pgx", DSN: u.String(), Dialect: Postgres, Redacted: u.Redacted()}, nil
	case "mysql", "mariadb":
		u, err := url.Parse(raw)
		if err != nil {
			return Target{}, fmt.Errorf("parse mysql url: %w", err)
		}
		dsn, err := mysqlDSN(u)
		if err != nil {
			return Target{}, err
		}
		return Target{Driver: "mysql", DSN: dsn, Dialect: MySQL, Redacted: u.Redacted()}, nil
	default:
		return Target{}, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

// sqlitePath strips the slash that separates the empty host from the path.
func sqlitePath(rest string) (string, error) {
	path, ok := strings.CutPrefix(rest, "/")
	if !ok {
		return "", errors.New("sqlite connection string must be sqlite:///<path>")
	}
	if path == "" {
		return "", errors.New("sqlite connection string has no path")
	}
	return path, nil
}

// mysqlDSN converts a URL into the go-sql-driver DSN format,
// user:pass@tcp(host:port)/db?parseTime=true&...
func mysqlDSN(u *url.URL) (string, error) {
	if u.Hostname() == "" {
		return "", errors.New("mysql connection string has no host")
	}

	cfg := mysql.NewConfig()
	cfg.User = u.User.Username()
	cfg.Passwd, _ = u.User.Password()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true

	dsn := cfg.FormatDSN()
	if q := u.Query(); len(q) > 0 {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + q.Encode()
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", fmt.Errorf("mysql connection string: %w", err)
	}
	return dsn, nil
}
