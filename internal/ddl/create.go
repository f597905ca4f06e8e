// Package ddl models the admin's tables and renders CREATE TABLE statements
// for each supported dialect. It is used to bootstrap an empty development
// database and to build fixtures for tests.
package ddl

import (
	"fmt"
	"strings"

	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
)

// BuildCreateTableSQL renders a CREATE TABLE statement for t in dialect d.
//
// A column is rendered as
//
//	<name> <type> [NOT NULL]
//
// followed by a PRIMARY KEY clause over the key columns in column order and
// one FOREIGN KEY clause per referencing column. With ifNotExists the
// statement is a no-op when the table already exists.
func BuildCreateTableSQL(d statement.Dialect, t TableDef, ifNotExists bool) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	defs := make([]string, 0, len(t.Columns)+2)
	var pks, fks []string
	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ, err := sqlType(d, c)
		if err != nil {
			return "", fmt.Errorf("ddl: %s.%s: %w", name, col, err)
		}

		def := d.QuoteIdent(col) + " " + typ
		if !c.Nullable || c.PrimaryKey {
			def += " NOT NULL"
		}
		defs = append(defs, def)

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(col))
		}
		if c.References != "" {
			fks = append(fks, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
				d.QuoteIdent(col), d.QuoteName(c.References), d.QuoteIdent(col)))
		}
	}
	if len(pks) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	defs = append(defs, fks...)

	body := fmt.Sprintf("%s (\n  %s\n)", d.QuoteName(name), strings.Join(defs, ",\n  "))
	switch {
	case !ifNotExists:
		return "CREATE TABLE " + body, nil
	case d == statement.SQLServer:
		lit := "N'" + strings.ReplaceAll(name, "'", "''") + "'"
		return fmt.Sprintf("IF OBJECT_ID(%s, N'U') IS NULL CREATE TABLE %s", lit, body), nil
	default:
		return "CREATE TABLE IF NOT EXISTS " + body, nil
	}
}

// sqlType picks the column type for d.
func sqlType(d statement.Dialect, c ColumnDef) (string, error) {
	switch c.Type {
	case schema.Text:
		switch {
		case c.Length > 0 && d == statement.SQLServer:
			return fmt.Sprintf("NVARCHAR(%d)", c.Length), nil
		case c.Length > 0:
			return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
		case d == statement.SQLServer:
			return "NVARCHAR(MAX)", nil
		default:
			return "TEXT", nil
		}
	case schema.Integer:
		return "BIGINT", nil
	case schema.Date:
		return "DATE", nil
	default:
		return "", fmt.Errorf("no SQL type for %s column", c.Type)
	}
}
