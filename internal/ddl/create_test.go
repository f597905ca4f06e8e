package ddl

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"dbadmin/internal/gateway"
	_ "dbadmin/internal/gateway/sqlite"
	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
)

// TestBuildCreateTableSQL verifies rendering and validation across dialects.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	discover := TableDef{
		Name: "Discover",
		Columns: []ColumnDef{
			{Name: "cname", Type: schema.Text, Length: 50, PrimaryKey: true, References: "Country"},
			{Name: "disease_code", Type: schema.Text, Length: 50, PrimaryKey: true},
			{Name: "first_enc_date", Type: schema.Date, Nullable: true},
		},
	}

	tests := []struct {
		name        string
		dialect     statement.Dialect
		def         TableDef
		ifNotExists bool
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty name returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", Type: schema.Integer}}},
			errContains: "table name must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{Name: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: " ", Type: schema.Integer}}},
			errContains: "column with empty name",
		},
		{
			name:        "unsupported type returns error",
			def:         TableDef{Name: "t", Columns: []ColumnDef{{Name: "x", Type: schema.Unsupported}}},
			errContains: "no SQL type",
		},
		{
			name:    "postgres composite key and foreign key",
			dialect: statement.Postgres,
			def:     discover,
			wantSQL: "CREATE TABLE \"Discover\" (\n" +
				"  \"cname\" VARCHAR(50) NOT NULL,\n" +
				"  \"disease_code\" VARCHAR(50) NOT NULL,\n" +
				"  \"first_enc_date\" DATE,\n" +
				"  PRIMARY KEY (\"cname\", \"disease_code\"),\n" +
				"  FOREIGN KEY (\"cname\") REFERENCES \"Country\" (\"cname\")\n)",
		},
		{
			name:        "mysql if not exists",
			dialect:     statement.MySQL,
			def:         TableDef{Name: "Country", Columns: []ColumnDef{{Name: "cname", Type: schema.Text, Length: 50, PrimaryKey: true}, {Name: "population", Type: schema.Integer, Nullable: true}}},
			ifNotExists: true,
			wantSQL:     "CREATE TABLE IF NOT EXISTS `Country` (\n  `cname` VARCHAR(50) NOT NULL,\n  `population` BIGINT,\n  PRIMARY KEY (`cname`)\n)",
		},
		{
			name:        "sqlserver guard and nvarchar",
			dialect:     statement.SQLServer,
			def:         TableDef{Name: "Notes", Columns: []ColumnDef{{Name: "body", Type: schema.Text}}},
			ifNotExists: true,
			wantSQL:     "IF OBJECT_ID(N'Notes', N'U') IS NULL CREATE TABLE [Notes] (\n  [body] NVARCHAR(MAX) NOT NULL\n)",
		},
		{
			name:    "sqlite unbounded text",
			dialect: statement.SQLite,
			def:     TableDef{Name: "Notes", Columns: []ColumnDef{{Name: "body", Type: schema.Text, Nullable: true}}},
			wantSQL: "CREATE TABLE \"Notes\" (\n  \"body\" TEXT\n)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.dialect, tt.def, tt.ifNotExists)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, tt.wantSQL)
			}
		})
	}
}

// TestDiseaseTables_MatchDefaultRegistry keeps the bootstrap model and the
// built-in registry in step.
func TestDiseaseTables_MatchDefaultRegistry(t *testing.T) {
	t.Parallel()

	defs := DiseaseTables()
	reg := schema.Default()
	if len(defs) != len(reg.Tables()) {
		t.Fatalf("tables = %d, registry = %d", len(defs), len(reg.Tables()))
	}
	created := map[string]bool{}
	for _, def := range defs {
		want, err := reg.Lookup(def.Name)
		if err != nil {
			t.Fatalf("%s: %v", def.Name, err)
		}
		got := def.Schema()
		if !reflect.DeepEqual(got.PrimaryKeys, want.PrimaryKeys) {
			t.Errorf("%s keys = %v, want %v", def.Name, got.PrimaryKeys, want.PrimaryKeys)
		}
		if len(got.ForeignKeys) != len(want.ForeignKeys) {
			t.Errorf("%s foreign keys = %v, want %v", def.Name, got.ForeignKeys, want.ForeignKeys)
		}
		for col, ref := range got.ForeignKeys {
			if want.ForeignKeys[col] != ref {
				t.Errorf("%s.%s -> %s, registry says %s", def.Name, col, ref, want.ForeignKeys[col])
			}
			if !created[ref] {
				t.Errorf("%s.%s references %s before it is created", def.Name, col, ref)
			}
		}
		created[def.Name] = true
	}
}

type recordingExec struct {
	stmts   []statement.Statement
	failN   int
	counted []string
	rows    int64
}

func (r *recordingExec) Query(_ context.Context, sql string, _ ...any) (*gateway.Table, error) {
	r.counted = append(r.counted, sql)
	return &gateway.Table{Columns: []schema.Column{{Name: "count"}}, Rows: [][]any{{r.rows}}}, nil
}

func (r *recordingExec) Execute(_ context.Context, st statement.Statement) (int64, error) {
	r.stmts = append(r.stmts, st)
	if r.failN > 0 && len(r.stmts) == r.failN {
		return 0, errors.New("boom")
	}
	return 0, nil
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	ex := &recordingExec{}
	if err := Bootstrap(context.Background(), ex, statement.Postgres, DiseaseTables(), true); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if len(ex.stmts) <= 9 {
		t.Fatalf("statements = %d, want creates plus seed rows", len(ex.stmts))
	}
	for _, st := range ex.stmts[:9] {
		if !strings.HasPrefix(st.SQL, "CREATE TABLE IF NOT EXISTS") {
			t.Fatalf("unexpected create %q", st.SQL)
		}
	}
	if got := ex.stmts[9].String(); got != `INSERT INTO "DiseaseType" VALUES (1, 'infectious disease')` {
		t.Fatalf("first seed = %s", got)
	}

	failing := &recordingExec{failN: 2}
	err := Bootstrap(context.Background(), failing, statement.SQLite, DiseaseTables(), false)
	if err == nil || !strings.Contains(err.Error(), "create Country") {
		t.Fatalf("err = %v", err)
	}
}

func TestBootstrap_SkipsPopulatedTables(t *testing.T) {
	t.Parallel()

	ex := &recordingExec{rows: 3}
	if err := Bootstrap(context.Background(), ex, statement.Postgres, DiseaseTables(), true); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if len(ex.stmts) != 9 {
		t.Fatalf("statements = %d, want only the 9 creates", len(ex.stmts))
	}
	if len(ex.counted) == 0 || ex.counted[0] != `SELECT COUNT(*) FROM "DiseaseType"` {
		t.Fatalf("counted = %v", ex.counted)
	}
}

func TestBootstrap_RerunWithSeed(t *testing.T) {
	ctx := context.Background()
	gw, err := gateway.Open(ctx, gateway.Config{Kind: "sqlite", DSN: "file::memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(gw.Close)

	for i := 0; i < 2; i++ {
		if err := Bootstrap(ctx, gw, gw.Dialect(), DiseaseTables(), true); err != nil {
			t.Fatalf("Bootstrap run %d: %v", i+1, err)
		}
	}
	tbl, err := gw.ReadTable(ctx, "DiseaseType")
	if err != nil {
		t.Fatal(err)
	}
	if want := len(sampleRows["DiseaseType"]); len(tbl.Rows) != want {
		t.Fatalf("DiseaseType rows = %d, want %d", len(tbl.Rows), want)
	}
}

func TestSeedStatements_DatesAreTyped(t *testing.T) {
	t.Parallel()

	stmts, err := SeedStatements(statement.SQLite, DiseaseTables())
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range stmts {
		if strings.Contains(st.SQL, `"Discover"`) {
			if got := st.String(); !strings.HasSuffix(got, `'2019-12-01')`) {
				t.Fatalf("discover seed = %s", got)
			}
			return
		}
	}
	t.Fatal("no Discover seed row")
}

// benchmarkSink is a package-level variable used to prevent the compiler from
// optimizing away the results of BuildCreateTableSQL in benchmarks.
var benchmarkSink string

func BenchmarkBuildCreateTableSQL_DiseaseSchema(b *testing.B) {
	defs := DiseaseTables()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, def := range defs {
			sql, err := BuildCreateTableSQL(statement.Postgres, def, true)
			if err != nil {
				b.Fatalf("BuildCreateTableSQL() error = %v", err)
			}
			benchmarkSink = sql
		}
	}
}
