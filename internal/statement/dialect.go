// Package statement assembles INSERT, UPDATE and DELETE statements from
// already-formatted field values. Statements are parameterized: the SQL text
// carries dialect placeholders and the values travel separately in Args, so
// user input is never spliced into the statement text.
package statement

import (
	"strconv"
	"strings"
)

// Dialect captures the two things that differ between backends for the
// statements built here: identifier quoting and placeholder syntax.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
	MySQL
	SQLServer
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	case MySQL:
		return "mysql"
	case SQLServer:
		return "sqlserver"
	default:
		return "dialect(" + strconv.Itoa(int(d)) + ")"
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case Postgres:
		return "$" + strconv.Itoa(n)
	case SQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// QuoteIdent quotes a single identifier segment, escaping embedded quote
// characters by doubling them.
func (d Dialect) QuoteIdent(id string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(id, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
	}
}

// QuoteName quotes a possibly schema-qualified name such as
// "assignment.Record", quoting each dotted segment separately.
func (d Dialect) QuoteName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}
