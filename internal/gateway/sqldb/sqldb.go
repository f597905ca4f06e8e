// Package sqldb implements gateway.Gateway on top of database/sql (through
// sqlx) for the backends that ship a database/sql driver: SQL Server, MySQL
// and SQLite. The backend packages supply the driver name, the statement
// dialect and an error classifier; everything else is shared here.
package sqldb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"dbadmin/internal/gateway"
	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
)

// Options describe a database/sql backend.
type Options struct {
	// DriverName is the name registered with database/sql, e.g. "sqlite".
	DriverName string

	// Dialect is used for identifier quoting in ReadTable and is reported
	// to statement builders.
	Dialect statement.Dialect

	// Classify recognises backend-specific errors. Optional.
	Classify gateway.Classifier

	// BindArg converts a bound value before it reaches the driver. Optional;
	// used by drivers that store dates as text.
	BindArg func(any) any

	// PingTimeout bounds the connectivity check in Open. Zero means 5s.
	PingTimeout time.Duration
}

// Gateway is a database/sql-backed gateway.Gateway.
type Gateway struct {
	db   *sqlx.DB
	opts Options
}

var _ gateway.Gateway = (*Gateway)(nil)

// Open connects with sqlx and pings to fail fast on a bad DSN or an
// unreachable server.
func Open(ctx context.Context, dsn string, opts Options) (*Gateway, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", opts.DriverName)
	}
	db, err := sqlx.Open(opts.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", opts.DriverName, err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", opts.DriverName, gateway.Classify(err, opts.Classify))
	}
	return New(db, opts), nil
}

// New wraps an already-open *sqlx.DB. Tests use it with sqlmock.
func New(db *sqlx.DB, opts Options) *Gateway {
	return &Gateway{db: db, opts: opts}
}

// DB exposes the underlying handle for backend-specific setup.
func (g *Gateway) DB() *sqlx.DB { return g.db }

// Dialect implements gateway.Gateway.
func (g *Gateway) Dialect() statement.Dialect { return g.opts.Dialect }

// ReadTable implements gateway.Gateway with SELECT * FROM <table>.
func (g *Gateway) ReadTable(ctx context.Context, name string) (*gateway.Table, error) {
	t, err := g.Query(ctx, "SELECT * FROM "+g.opts.Dialect.QuoteName(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	t.Name = name
	return t, nil
}

// Query implements gateway.Gateway. Column types come from the driver's
// reported database type names.
func (g *Gateway) Query(ctx context.Context, q string, args ...any) (*gateway.Table, error) {
	rows, err := g.db.QueryxContext(ctx, q, g.bind(args)...)
	if err != nil {
		return nil, gateway.Classify(err, g.opts.Classify)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, gateway.Classify(err, g.opts.Classify)
	}
	t := &gateway.Table{Columns: make([]schema.Column, len(types))}
	for i, ct := range types {
		dbType := ct.DatabaseTypeName()
		t.Columns[i] = schema.Column{Name: ct.Name(), DBType: dbType, Type: schema.ClassifyType(dbType)}
	}

	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, gateway.Classify(err, g.opts.Classify)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.Classify(err, g.opts.Classify)
	}
	return t, nil
}

// Execute implements gateway.Gateway.
func (g *Gateway) Execute(ctx context.Context, st statement.Statement) (int64, error) {
	res, err := g.db.ExecContext(ctx, st.SQL, g.bind(st.Args)...)
	if err != nil {
		return 0, gateway.Classify(err, g.opts.Classify)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report affected rows; the statement still ran.
		return -1, nil
	}
	return n, nil
}

// Close implements gateway.Gateway.
func (g *Gateway) Close() { _ = g.db.Close() }

func (g *Gateway) bind(args []any) []any {
	if g.opts.BindArg == nil || len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = g.opts.BindArg(a)
	}
	return out
}
