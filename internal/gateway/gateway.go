// Package gateway is the data access boundary of the admin: it reads whole
// tables, runs ad-hoc queries and executes built statements against the
// configured backend, and classifies execution failures.
//
// Backends (postgres, sqlserver, mysql, sqlite) live in subpackages and
// register a Factory with this package from their init functions. Callers
// obtain a Gateway via Open without importing a backend directly; a binary
// enables backends by blank-importing dbadmin/internal/gateway/all.
//
// The gateway is fail-fast: nothing is retried, because statements such as
// INSERT are not idempotent.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
)

// Gateway is the backend-agnostic database handle. One Gateway is opened at
// startup and shared for the life of the process.
type Gateway interface {
	// Dialect reports how statements for this backend must be built.
	Dialect() statement.Dialect

	// ReadTable returns every row of the named table together with the live
	// column set. A read failure is returned as an error; deciding whether
	// to degrade to an empty display is the caller's policy.
	ReadTable(ctx context.Context, name string) (*Table, error)

	// Query runs a read-only query and returns its result set.
	Query(ctx context.Context, sql string, args ...any) (*Table, error)

	// Execute runs a single auto-committed statement and returns the number
	// of affected rows. Failures are *ExecError values.
	Execute(ctx context.Context, st statement.Statement) (int64, error)

	// Close releases the underlying connection pool.
	Close()
}

// Table is a tabular result: the live column set and the rows, each row
// aligned to Columns.
type Table struct {
	Name    string
	Columns []schema.Column
	Rows    [][]any
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// ColumnIndex returns the position of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in result order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Distinct returns the distinct display values of a column in first-seen
// order. NULLs are skipped. ok is false when the column does not exist.
func (t *Table) Distinct(column string) (vals []string, ok bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, false
	}
	seen := make(map[string]struct{}, len(t.Rows))
	vals = []string{}
	for _, row := range t.Rows {
		if row[idx] == nil {
			continue
		}
		s := FormatValue(row[idx])
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		vals = append(vals, s)
	}
	return vals, true
}

// FormatValue renders a scanned value for display and for round-tripping
// through form inputs.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name: "postgres", "sqlserver", "mysql"
	// or "sqlite".
	Kind string

	// DSN is the backend connection string.
	DSN string

	// SearchPath is the schema search path applied to every connection.
	// Only the postgres backend honours it.
	SearchPath string
}

// Factory opens a Gateway for a backend.
type Factory func(ctx context.Context, cfg Config) (Gateway, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a backend available under kind. It is typically called
// from a backend package's init function; registering the same kind twice
// replaces the earlier factory.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[kind] = f
}

// Kinds lists the registered backend names, sorted.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open constructs the Gateway registered for cfg.Kind.
func Open(ctx context.Context, cfg Config) (Gateway, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("gateway: no backend registered for kind=%q (have %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}
