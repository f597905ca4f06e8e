// Package sqlite registers the "sqlite" gateway backend, built on the pure-Go
// modernc.org/sqlite driver. It is handy for local development and is what
// the end-to-end tests run against.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"dbadmin/internal/gateway"
	"dbadmin/internal/gateway/sqldb"
	"dbadmin/internal/statement"
)

// Options returns the sqldb options for SQLite.
func Options() sqldb.Options {
	return sqldb.Options{
		DriverName: "sqlite",
		Dialect:    statement.SQLite,
		Classify:   Classify,
		BindArg:    bindArg,
	}
}

// Open connects to a SQLite database. DSN is passed to the driver, e.g.
// "file:admin.db" or "file::memory:?cache=shared". Foreign key enforcement
// is switched on for the connection.
func Open(ctx context.Context, dsn string) (*sqldb.Gateway, error) {
	g, err := sqldb.Open(ctx, dsn, Options())
	if err != nil {
		return nil, err
	}
	// Per-connection pragma; keep one connection so it applies everywhere.
	g.DB().SetMaxOpenConns(1)
	if _, err := g.DB().ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		g.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return g, nil
}

func init() {
	gateway.Register("sqlite", func(ctx context.Context, cfg gateway.Config) (gateway.Gateway, error) {
		return Open(ctx, cfg.DSN)
	})
}

// Classify maps SQLite result codes onto gateway kinds. Extended codes are
// reduced to their primary code first.
func Classify(err error) (gateway.Kind, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return 0, false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG:
		return gateway.ConstraintViolation, true
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_BUSY,
		sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_NOTADB:
		return gateway.ConnectivityError, true
	}
	return gateway.UnknownError, true
}

// bindArg stores dates as ISO text so they compare and sort naturally and
// read back through DATE-declared columns.
func bindArg(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return v
}
