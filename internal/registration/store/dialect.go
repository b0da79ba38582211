package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"registrar/pkg/platform/sentinel"
)

// Dialect captures what differs between the SQL backends. Queries are written
// with ? placeholders and rebound per dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect maps a configured backend name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case DialectPostgres, DialectSQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// MaxOpenConns bounds the pool. SQLite allows a single writer, so every
// statement goes through one connection and transactions never contend.
func (d Dialect) MaxOpenConns() int {
	if d == DialectSQLite {
		return 1
	}
	return 20
}

// SQLiteDSN builds a modernc DSN with foreign keys and WAL enabled.
func SQLiteDSN(path string) string {
	return filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lockClause locks the selected row until the surrounding transaction ends.
func (d Dialect) lockClause(inTx bool) string {
	if inTx && d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// inInt64 renders "col IN ids". Postgres takes a single array parameter.
func (d Dialect) inInt64(col string, ids []int64) (string, []any) {
	if d == DialectPostgres {
		return col + " = ANY(?)", []any{pq.Array(ids)}
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return col + " IN (" + marks + ")", args
}

// Postgres SQLSTATE codes that mean another transaction won.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgForeignKeyViolation  = "23503"
)

// classify maps driver errors onto sentinel facts the service understands.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
		}
		return err
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
		}
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
		}
	}
	return err
}
