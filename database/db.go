package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	defaultSQLitePath = "inventory.db"
	sqliteOptions     = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
)

// ResolveDSN converts a DATABASE_URL into a driver name and a DSN the driver accepts.
// An empty URL selects the local SQLite file.
func ResolveDSN(databaseURL string) (string, string, error) {
	raw := strings.TrimSpace(databaseURL)
	switch {
	case raw == "":
		return DriverSQLite, sqliteDSN(defaultSQLitePath), nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return postgresDSN(raw)
	case strings.HasPrefix(raw, "mysql://"):
		return mysqlDSN(raw)
	case strings.HasPrefix(raw, "sqlite:///"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(raw, "sqlite:///")), nil
	case strings.HasPrefix(raw, "sqlite3://"):
		return DriverSQLite, sqliteDSN(strings.TrimPrefix(raw, "sqlite3://")), nil
	case strings.HasPrefix(raw, "file:"):
		return DriverSQLite, raw, nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", redact(raw))
}

func sqliteDSN(path string) string {
	if path == "" {
		path = defaultSQLitePath
	}
	if strings.Contains(path, "?") {
		return "file:" + path
	}
	return "file:" + path + "?" + sqliteOptions
}

func postgresDSN(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid postgres URL: %w", err)
	}
	u.Scheme = "postgres"
	q := u.Query()
	if q.Get("sslmode") == "" {
		if isLocalHost(u.Hostname()) {
			q.Set("sslmode", "disable")
		} else {
			q.Set("sslmode", "require")
		}
		u.RawQuery = q.Encode()
	}
	return DriverPostgres, u.String(), nil
}

func mysqlDSN(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid mysql URL: %w", err)
	}
	c := mysql.NewConfig()
	c.Net = "tcp"
	c.Addr = u.Host
	if u.Port() == "" {
		c.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	c.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		c.User = u.User.Username()
		c.Passwd, _ = u.User.Password()
	}
	c.ParseTime = true
	c.ClientFoundRows = true
	c.Loc = time.UTC
	for k, v := range u.Query() {
		if len(v) > 0 {
			if c.Params == nil {
				c.Params = map[string]string{}
			}
			c.Params[k] = v[0]
		}
	}
	return DriverMySQL, c.FormatDSN(), nil
}

func isLocalHost(host string) bool {
	return host == "" || host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func redact(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.User != nil {
		return u.Redacted()
	}
	return raw
}

// Open connects, configures the pool and pings the database.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	driver, dsn, err := ResolveDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error (%s): %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(15)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks connectivity on a fresh round trip.
func Ping(ctx context.Context, db *sqlx.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed (%s): %w", db.DriverName(), err)
	}
	return nil
}
