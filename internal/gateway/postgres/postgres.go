// Package postgres implements the "postgres" gateway backend on pgx v5. A
// single pgxpool.Pool is created at startup; every connection gets the
// configured search_path so unqualified table names resolve to the admin's
// schema.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"dbadmin/internal/gateway"
	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
)

// Config holds Postgres gateway configuration.
type Config struct {
	DSN        string // connection string for pgxpool
	SearchPath string // e.g. "assignment"; empty leaves the server default
}

// pgPoolLike is the subset of *pgxpool.Pool the gateway uses, so tests can
// substitute a fake without a live server.
type pgPoolLike interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Gateway is the pgx-backed gateway.Gateway.
type Gateway struct {
	pool    pgPoolLike
	typeMap *pgtype.Map
}

var _ gateway.Gateway = (*Gateway)(nil)

// Open parses the DSN, applies the search path and connects.
func Open(ctx context.Context, cfg Config) (*Gateway, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	if cfg.SearchPath != "" {
		pcfg.ConnConfig.RuntimeParams["search_path"] = cfg.SearchPath
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", gateway.Classify(err, Classify))
	}
	return newGateway(pool), nil
}

func newGateway(p pgPoolLike) *Gateway {
	return &Gateway{pool: p, typeMap: pgtype.NewMap()}
}

// Dialect implements gateway.Gateway.
func (g *Gateway) Dialect() statement.Dialect { return statement.Postgres }

// ReadTable implements gateway.Gateway.
func (g *Gateway) ReadTable(ctx context.Context, name string) (*gateway.Table, error) {
	t, err := g.Query(ctx, "SELECT * FROM "+statement.Postgres.QuoteName(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	t.Name = name
	return t, nil
}

// Query implements gateway.Gateway. Column types are resolved from the
// field descriptions' type OIDs.
func (g *Gateway) Query(ctx context.Context, sql string, args ...any) (*gateway.Table, error) {
	rows, err := g.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, gateway.Classify(err, Classify)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	t := &gateway.Table{Columns: make([]schema.Column, len(fds))}
	for i, fd := range fds {
		name := typeName(g.typeMap, fd.DataTypeOID)
		t.Columns[i] = schema.Column{Name: fd.Name, DBType: name, Type: schema.ClassifyType(name)}
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, gateway.Classify(err, Classify)
		}
		t.Rows = append(t.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, gateway.Classify(err, Classify)
	}
	return t, nil
}

// Execute implements gateway.Gateway.
func (g *Gateway) Execute(ctx context.Context, st statement.Statement) (int64, error) {
	tag, err := g.pool.Exec(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, gateway.Classify(err, Classify)
	}
	return tag.RowsAffected(), nil
}

// Close implements gateway.Gateway.
func (g *Gateway) Close() { g.pool.Close() }

// typeName resolves a type OID to its Postgres name ("int4", "varchar",
// "date"). Unknown OIDs, e.g. user-defined enums, yield "".
func typeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return ""
}

// Classify maps Postgres SQLSTATE classes onto gateway kinds:
//
//	23xxx integrity constraint violation, 22xxx data exception,
//	42804 datatype mismatch                        -> ConstraintViolation
//	08xxx connection exception, 57P0x shutdown     -> ConnectivityError
func Classify(err error) (gateway.Kind, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.SQLState()
		switch {
		case len(code) < 2:
			return gateway.UnknownError, true
		case code[:2] == "23", code[:2] == "22", code == "42804":
			return gateway.ConstraintViolation, true
		case code[:2] == "08", code == "57P01", code == "57P02", code == "57P03":
			return gateway.ConnectivityError, true
		}
		return gateway.UnknownError, true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return gateway.ConnectivityError, true
	}
	if pgconn.Timeout(err) {
		return gateway.ConnectivityError, true
	}
	return 0, false
}
