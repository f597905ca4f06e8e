package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTable is returned for lookups of a table that is not registered.
var ErrUnknownTable = errors.New("unknown table")

// Registry is the immutable set of table descriptions. The zero value is an
// empty registry; use NewRegistry to build a validated one.
type Registry struct {
	order  []string
	tables map[string]TableSchema
}

// NewRegistry validates tables and returns a Registry owning deep copies of
// them. Every table needs a non-empty primary key, names must be unique, and
// every foreign-key target must itself be registered. All violations are
// reported together; callers treat a non-nil error as fatal.
func NewRegistry(tables []TableSchema) (*Registry, error) {
	r := &Registry{tables: make(map[string]TableSchema, len(tables))}
	var errs []error

	for i, t := range tables {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("tables[%d]: name must not be empty", i))
			continue
		}
		if _, dup := r.tables[name]; dup {
			errs = append(errs, fmt.Errorf("table %q: registered twice", name))
			continue
		}
		if len(t.PrimaryKeys) == 0 {
			errs = append(errs, fmt.Errorf("table %q: primary key must not be empty", name))
		}
		for _, k := range t.PrimaryKeys {
			if strings.TrimSpace(k) == "" {
				errs = append(errs, fmt.Errorf("table %q: blank primary key column", name))
			}
		}

		cp := TableSchema{
			Name:        name,
			PrimaryKeys: append([]string(nil), t.PrimaryKeys...),
			ForeignKeys: make(map[string]string, len(t.ForeignKeys)),
		}
		for col, ref := range t.ForeignKeys {
			cp.ForeignKeys[col] = ref
		}
		r.tables[name] = cp
		r.order = append(r.order, name)
	}

	for _, name := range r.order {
		for col, ref := range r.tables[name].ForeignKeys {
			if _, ok := r.tables[ref]; !ok {
				errs = append(errs, fmt.Errorf("table %q: foreign key %q references unregistered table %q", name, col, ref))
			}
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("schema registry: %w", errors.Join(errs...))
	}
	return r, nil
}

// Tables returns the registered table names in registration order.
func (r *Registry) Tables() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns a copy of the schema for table.
func (r *Registry) Lookup(table string) (TableSchema, error) {
	t, ok := r.tables[table]
	if !ok {
		return TableSchema{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	out := TableSchema{
		Name:        t.Name,
		PrimaryKeys: append([]string(nil), t.PrimaryKeys...),
		ForeignKeys: make(map[string]string, len(t.ForeignKeys)),
	}
	for c, ref := range t.ForeignKeys {
		out.ForeignKeys[c] = ref
	}
	return out, nil
}

// PrimaryKeysOf returns the ordered primary-key columns of table.
func (r *Registry) PrimaryKeysOf(table string) ([]string, error) {
	t, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return append([]string(nil), t.PrimaryKeys...), nil
}

// ForeignKeyOf returns the table referenced by table.column, if any.
func (r *Registry) ForeignKeyOf(table, column string) (string, bool, error) {
	t, ok := r.tables[table]
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	ref, ok := t.ForeignKeys[column]
	return ref, ok, nil
}

// CheckColumns verifies that every primary-key column of table is present
// in a live column set, e.g. the result of reading the table.
func (r *Registry) CheckColumns(table string, columns []Column) error {
	keys, err := r.PrimaryKeysOf(table)
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c.Name] = struct{}{}
	}
	var missing []string
	for _, k := range keys {
		if _, ok := have[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %q: primary key columns %s not in result set", table, strings.Join(missing, ", "))
	}
	return nil
}
