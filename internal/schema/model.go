// Package schema describes the static table metadata the admin front end is
// driven by: which columns form each table's primary key, which columns
// reference another table, and how a backend's column type names collapse
// into the small set of value kinds the forms understand.
//
// The registry is configuration, not runtime-derived state. It is built once
// at process start (from the built-in default or a YAML file) and is
// immutable afterwards; callers receive it explicitly.
package schema

import "strings"

// TableSchema is the static description of one table.
type TableSchema struct {
	// Name is the unquoted table name, e.g. "Record".
	Name string `yaml:"name"`

	// PrimaryKeys lists the key columns in form order.
	PrimaryKeys []string `yaml:"primary_keys"`

	// ForeignKeys maps a column to the table it references. The referenced
	// column is assumed to carry the same name.
	ForeignKeys map[string]string `yaml:"foreign_keys,omitempty"`
}

// IsKey reports whether column is part of the primary key.
func (t TableSchema) IsKey(column string) bool {
	for _, k := range t.PrimaryKeys {
		if k == column {
			return true
		}
	}
	return false
}

// ColumnType is the closed set of value kinds a form field can hold.
type ColumnType int

const (
	// Unsupported marks a backend type the forms cannot render or format.
	Unsupported ColumnType = iota
	Text
	Integer
	Date
)

func (c ColumnType) String() string {
	switch c {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Date:
		return "date"
	default:
		return "unsupported"
	}
}

// Column is one column of a live result set.
type Column struct {
	Name   string
	DBType string // backend type name as reported by the driver, e.g. "int4"
	Type   ColumnType
}

// ClassifyType maps a driver-reported type name onto a ColumnType. Length
// and precision suffixes ("VARCHAR(255)", "character varying(30)") are
// ignored. Names outside the three supported families return Unsupported.
//
//	int2/int4/int8, smallint, integer, bigint, serial, tinyint ... -> Integer
//	text, varchar, char, bpchar, nvarchar, nchar, citext, name     -> Text
//	date, timestamp, timestamptz, datetime, datetime2              -> Date
func ClassifyType(dbType string) ColumnType {
	t := strings.ToLower(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimPrefix(t, "unsigned ")
	t = strings.TrimSuffix(t, " unsigned")

	switch t {
	case "int", "int2", "int4", "int8", "integer", "smallint", "bigint",
		"tinyint", "mediumint", "serial", "smallserial", "bigserial":
		return Integer
	case "text", "varchar", "char", "bpchar", "character", "character varying",
		"nvarchar", "nchar", "ntext", "citext", "name", "tinytext",
		"mediumtext", "longtext", "string", "clob":
		return Text
	case "date", "timestamp", "timestamptz", "timestamp without time zone",
		"timestamp with time zone", "datetime", "datetime2", "smalldatetime",
		"datetimeoffset":
		return Date
	default:
		return Unsupported
	}
}
