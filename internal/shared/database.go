package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DatabaseURL is a parsed DATABASE_URL: the driver name and the DSN handed to it.
type DatabaseURL struct {
	Driver string
	DSN    string
	Memory bool
}

// ParseDatabaseURL maps a configured database URL onto a driver.
//
//	postgres://... and postgresql://...  -> lib/pq, DSN unchanged
//	sqlite:///relative/path.db           -> go-sqlite3, "relative/path.db"
//	sqlite:////abs/path.db               -> go-sqlite3, "/abs/path.db"
//	sqlite:// or :memory:                -> go-sqlite3, in-memory
//	anything else                        -> go-sqlite3, treated as a file path
func ParseDatabaseURL(raw string) (DatabaseURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DatabaseURL{}, fmt.Errorf("%w: database url", ErrMissingConfig)
	}

	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return DatabaseURL{Driver: DriverPostgres, DSN: raw}, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		path = strings.TrimPrefix(path, "/")
		if path == "" || path == ":memory:" {
			return DatabaseURL{Driver: DriverSQLite, DSN: ":memory:", Memory: true}, nil
		}
		return DatabaseURL{Driver: DriverSQLite, DSN: path}, nil
	case raw == ":memory:":
		return DatabaseURL{Driver: DriverSQLite, DSN: raw, Memory: true}, nil
	case strings.Contains(raw, "://"):
		return DatabaseURL{}, fmt.Errorf("%w: unsupported database scheme in %q", ErrInvalidConfig, schemeOf(raw))
	default:
		return DatabaseURL{Driver: DriverSQLite, DSN: raw}, nil
	}
}

func schemeOf(raw string) string {
	scheme, _, _ := strings.Cut(raw, "://")
	return scheme
}

// NewDatabase opens and pings the database described by rawURL.
//
// Each connection to an in-memory SQLite database is a separate database,
// so those are pinned to a single connection.
func NewDatabase(rawURL string) (*sqlx.DB, error) {
	u, err := ParseDatabaseURL(rawURL)
	if err != nil {
		return nil, err
	}

	dsn := u.DSN
	if u.Driver == DriverSQLite && !u.Memory {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sqlx.Open(u.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if u.Memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// OpenDatabase opens the configured database and applies its pool settings.
func OpenDatabase(cfg DatabaseConfig) (*sqlx.DB, error) {
	db, err := NewDatabase(cfg.URL)
	if err != nil {
		return nil, err
	}

	if u, _ := ParseDatabaseURL(cfg.URL); !u.Memory {
		ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Non-positive values leave the driver defaults.
func ConfigureDatabase(db *sqlx.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}

// IsUniqueViolation reports whether err is a unique or primary key constraint failure
// from either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}
