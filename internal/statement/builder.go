package statement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dbadmin/internal/formatter"
)

var (
	// ErrIncompleteRecord: an insert did not supply a value for every column.
	ErrIncompleteRecord = errors.New("not all fields are filled")

	// ErrNoUpdatableFields: an update carried no non-key values.
	ErrNoUpdatableFields = errors.New("no non-key values specified")

	// ErrIncompleteKey: a key-addressed statement lacked part of the key.
	ErrIncompleteKey = errors.New("incomplete primary key")
)

// Statement is a parameterized statement ready for execution.
type Statement struct {
	Dialect Dialect
	SQL     string
	Args    []any
}

// String renders the statement with its arguments interpolated as SQL
// literals. It exists for display and logging; never execute its output.
func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	var prefix string
	switch s.Dialect {
	case Postgres:
		prefix = "$"
	case SQLServer:
		prefix = "@p"
	}

	var b strings.Builder
	sql, next := s.SQL, 0
	for len(sql) > 0 {
		if prefix == "" {
			if sql[0] == '?' && next < len(s.Args) {
				b.WriteString(formatter.Quote(s.Args[next]))
				next++
				sql = sql[1:]
				continue
			}
		} else if strings.HasPrefix(sql, prefix) {
			j := len(prefix)
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			if n, err := strconv.Atoi(sql[len(prefix):j]); err == nil && n >= 1 && n <= len(s.Args) {
				b.WriteString(formatter.Quote(s.Args[n-1]))
				sql = sql[j:]
				continue
			}
		}
		b.WriteByte(sql[0])
		sql = sql[1:]
	}
	return b.String()
}

// Insert builds INSERT INTO "table" VALUES (...) with one placeholder per
// value, in the order given. values must hold one literal per table column
// in table-column order; fewer than columnCount fails ErrIncompleteRecord,
// which is what makes every field mandatory on create.
func Insert(d Dialect, table string, columnCount int, values []formatter.Literal) (Statement, error) {
	if len(values) < columnCount || len(values) == 0 {
		return Statement{}, fmt.Errorf("%w: got %d of %d values for %s", ErrIncompleteRecord, len(values), columnCount, table)
	}
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = d.Placeholder(i + 1)
		args[i] = v.Value
	}
	sql := fmt.Sprintf("INSERT INTO %s VALUES (%s)", d.QuoteName(table), strings.Join(marks, ", "))
	return Statement{Dialect: d, SQL: sql, Args: args}, nil
}

// Update builds UPDATE "table" SET a = $1, b = $2 WHERE k = $3 AND ... .
// An empty nonKeys fails ErrNoUpdatableFields before keys are looked at; a
// key set missing any of primaryKeys fails ErrIncompleteKey.
func Update(d Dialect, table string, primaryKeys []string, keys, nonKeys []formatter.Literal) (Statement, error) {
	if len(nonKeys) == 0 {
		return Statement{}, fmt.Errorf("%w for %s", ErrNoUpdatableFields, table)
	}
	ordered, err := orderKeys(table, primaryKeys, keys)
	if err != nil {
		return Statement{}, err
	}

	args := make([]any, 0, len(nonKeys)+len(ordered))
	sets := make([]string, len(nonKeys))
	for i, v := range nonKeys {
		args = append(args, v.Value)
		sets[i] = d.QuoteIdent(v.Column) + " = " + d.Placeholder(len(args))
	}
	where := make([]string, len(ordered))
	for i, k := range ordered {
		args = append(args, k.Value)
		where[i] = d.QuoteIdent(k.Column) + " = " + d.Placeholder(len(args))
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		d.QuoteName(table), strings.Join(sets, ", "), strings.Join(where, " AND "))
	return Statement{Dialect: d, SQL: sql, Args: args}, nil
}

// Delete builds DELETE FROM "table" WHERE k1 = $1 AND k2 = $2. Every column
// of primaryKeys must be present in keys, otherwise ErrIncompleteKey.
func Delete(d Dialect, table string, primaryKeys []string, keys []formatter.Literal) (Statement, error) {
	ordered, err := orderKeys(table, primaryKeys, keys)
	if err != nil {
		return Statement{}, err
	}
	args := make([]any, len(ordered))
	where := make([]string, len(ordered))
	for i, k := range ordered {
		args[i] = k.Value
		where[i] = d.QuoteIdent(k.Column) + " = " + d.Placeholder(i+1)
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", d.QuoteName(table), strings.Join(where, " AND "))
	return Statement{Dialect: d, SQL: sql, Args: args}, nil
}

// orderKeys returns keys in primary-key order, failing when any key column
// is absent.
func orderKeys(table string, primaryKeys []string, keys []formatter.Literal) ([]formatter.Literal, error) {
	if len(primaryKeys) == 0 {
		return nil, fmt.Errorf("%w: %s has no primary key", ErrIncompleteKey, table)
	}
	byCol := formatter.ByColumn(keys)
	out := make([]formatter.Literal, 0, len(primaryKeys))
	var missing []string
	for _, k := range primaryKeys {
		lit, ok := byCol[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out = append(out, lit)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s missing %s", ErrIncompleteKey, table, strings.Join(missing, ", "))
	}
	return out, nil
}
