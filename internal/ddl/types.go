package ddl

import "dbadmin/internal/schema"

// ColumnDef describes a single column.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - Type: value kind; the SQL type is chosen per dialect
//   - Length: VARCHAR length for Text columns; 0 means the dialect's text type
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - References: table whose same-named column this column references
type ColumnDef struct {
	Name       string
	Type       schema.ColumnType
	Length     int
	Nullable   bool
	PrimaryKey bool
	References string
}

// TableDef holds the table name and its ordered columns. Column order is
// significant: inserts bind values positionally.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// Schema converts t to its registry entry: primary keys in column order
// and one foreign key per referencing column.
func (t TableDef) Schema() schema.TableSchema {
	ts := schema.TableSchema{Name: t.Name}
	for _, c := range t.Columns {
		if c.PrimaryKey {
			ts.PrimaryKeys = append(ts.PrimaryKeys, c.Name)
		}
		if c.References != "" {
			if ts.ForeignKeys == nil {
				ts.ForeignKeys = map[string]string{}
			}
			ts.ForeignKeys[c.Name] = c.References
		}
	}
	return ts
}
