package ddl

import (
	"context"
	"fmt"

	"dbadmin/internal/formatter"
	"dbadmin/internal/gateway"
	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
)

// DiseaseTables returns the disease-surveillance tables in dependency
// order, so that creating them in sequence satisfies every foreign key.
func DiseaseTables() []TableDef {
	text := func(name string, n int) ColumnDef { return ColumnDef{Name: name, Type: schema.Text, Length: n} }
	num := func(name string) ColumnDef { return ColumnDef{Name: name, Type: schema.Integer} }
	key := func(c ColumnDef) ColumnDef {
		c.PrimaryKey = true
		return c
	}
	ref := func(c ColumnDef, table string) ColumnDef {
		c.References = table
		return c
	}
	null := func(c ColumnDef) ColumnDef {
		c.Nullable = true
		return c
	}

	return []TableDef{
		{Name: "DiseaseType", Columns: []ColumnDef{
			key(num("id")),
			text("description", 140),
		}},
		{Name: "Country", Columns: []ColumnDef{
			key(text("cname", 50)),
			num("population"),
		}},
		{Name: "Disease", Columns: []ColumnDef{
			key(text("disease_code", 50)),
			text("pathogen", 20),
			text("description", 140),
			ref(num("id"), "DiseaseType"),
		}},
		{Name: "Discover", Columns: []ColumnDef{
			key(ref(text("cname", 50), "Country")),
			key(ref(text("disease_code", 50), "Disease")),
			{Name: "first_enc_date", Type: schema.Date},
		}},
		{Name: "Users", Columns: []ColumnDef{
			key(text("email", 60)),
			text("name", 30),
			text("surname", 40),
			null(num("salary")),
			null(text("phone", 20)),
			ref(text("cname", 50), "Country"),
		}},
		{Name: "PublicServant", Columns: []ColumnDef{
			key(ref(text("email", 60), "Users")),
			text("department", 50),
		}},
		{Name: "Doctor", Columns: []ColumnDef{
			key(ref(text("email", 60), "Users")),
			text("degree", 20),
		}},
		{Name: "Specialize", Columns: []ColumnDef{
			key(ref(num("id"), "DiseaseType")),
			key(ref(text("email", 60), "Doctor")),
		}},
		{Name: "Record", Columns: []ColumnDef{
			key(ref(text("email", 60), "PublicServant")),
			key(ref(text("cname", 50), "Country")),
			key(ref(text("disease_code", 50), "Disease")),
			num("total_deaths"),
			num("total_patients"),
		}},
	}
}

// sampleRows is a small demo dataset keyed by table, in column order.
var sampleRows = map[string][][]any{
	"DiseaseType": {
		{1, "infectious disease"},
		{2, "virology"},
		{3, "bacteriology"},
	},
	"Country": {
		{"Kazakhstan", 19000000},
		{"Chad", 17000000},
		{"Japan", 125000000},
	},
	"Disease": {
		{"covid-19", "virus", "coronavirus disease 2019", 1},
		{"cholera", "bacteria", "acute diarrhoeal infection", 3},
		{"tuberculosis", "bacteria", "chronic lung infection", 1},
	},
	"Discover": {
		{"Kazakhstan", "covid-19", "2019-12-01"},
		{"Chad", "cholera", "1817-01-01"},
		{"Japan", "tuberculosis", "1882-03-24"},
	},
	"Users": {
		{"aigerim@gov.kz", "Aigerim", "Bekova", 500000, "+77010000001", "Kazakhstan"},
		{"dana@med.kz", "Dana", "Nurlanova", 700000, "+77010000002", "Kazakhstan"},
		{"kenji@med.jp", "Kenji", "Sato", 900000, "+81300000003", "Japan"},
		{"mahamat@gov.td", "Mahamat", "Idriss", 300000, "+23500000004", "Chad"},
	},
	"PublicServant": {
		{"aigerim@gov.kz", "Ministry of Health"},
		{"mahamat@gov.td", "Epidemiology"},
	},
	"Doctor": {
		{"dana@med.kz", "virology"},
		{"kenji@med.jp", "infectious disease"},
	},
	"Specialize": {
		{2, "dana@med.kz"},
		{1, "kenji@med.jp"},
		{3, "kenji@med.jp"},
	},
	"Record": {
		{"aigerim@gov.kz", "Kazakhstan", "covid-19", 19000, 1500000},
		{"aigerim@gov.kz", "Chad", "covid-19", 190, 7000},
		{"mahamat@gov.td", "Chad", "cholera", 400, 120000},
	},
}

// Executor runs statements and counts rows. gateway.Gateway satisfies it.
type Executor interface {
	Execute(ctx context.Context, st statement.Statement) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (*gateway.Table, error)
}

// Bootstrap creates tables in order, skipping tables that already exist.
// With seed, the sample rows are inserted into every table that is still
// empty, so a restart with seed enabled leaves existing data alone.
func Bootstrap(ctx context.Context, ex Executor, d statement.Dialect, tables []TableDef, seed bool) error {
	for _, t := range tables {
		sql, err := BuildCreateTableSQL(d, t, true)
		if err != nil {
			return err
		}
		if _, err := ex.Execute(ctx, statement.Statement{Dialect: d, SQL: sql}); err != nil {
			return fmt.Errorf("ddl: create %s: %w", t.Name, err)
		}
	}
	if !seed {
		return nil
	}
	for _, t := range tables {
		if len(sampleRows[t.Name]) == 0 {
			continue
		}
		populated, err := hasRows(ctx, ex, d, t.Name)
		if err != nil {
			return fmt.Errorf("ddl: seed %s: %w", t.Name, err)
		}
		if populated {
			continue
		}
		stmts, err := SeedStatements(d, []TableDef{t})
		if err != nil {
			return err
		}
		for _, st := range stmts {
			if _, err := ex.Execute(ctx, st); err != nil {
				return fmt.Errorf("ddl: seed: %s: %w", st, err)
			}
		}
	}
	return nil
}

func hasRows(ctx context.Context, ex Executor, d statement.Dialect, table string) (bool, error) {
	res, err := ex.Query(ctx, "SELECT COUNT(*) FROM "+d.QuoteName(table))
	if err != nil {
		return false, err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return false, nil
	}
	n := gateway.FormatValue(res.Rows[0][0])
	return n != "" && n != "0", nil
}

// SeedStatements builds the sample-data inserts for tables, in table order.
// Tables without sample rows are skipped.
func SeedStatements(d statement.Dialect, tables []TableDef) ([]statement.Statement, error) {
	var out []statement.Statement
	for _, t := range tables {
		cols := make([]schema.Column, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = schema.Column{Name: c.Name, Type: c.Type}
		}
		for _, row := range sampleRows[t.Name] {
			if len(row) != len(cols) {
				return nil, fmt.Errorf("ddl: sample row for %s has %d values, want %d", t.Name, len(row), len(cols))
			}
			raw := make(map[string]any, len(row))
			for i, v := range row {
				raw[cols[i].Name] = v
			}
			lits, err := formatter.Format(cols, raw)
			if err != nil {
				return nil, fmt.Errorf("ddl: sample row for %s: %w", t.Name, err)
			}
			st, err := statement.Insert(d, t.Name, len(cols), lits)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
	}
	return out, nil
}
