package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"dbadmin/internal/formatter"
	"dbadmin/internal/gateway"
	"dbadmin/internal/schema"
)

// fakeReader serves canned tables and counts reads per table.
type fakeReader struct {
	mu     sync.Mutex
	tables map[string]*gateway.Table
	errs   map[string]error
	reads  map[string]int
}

func (f *fakeReader) ReadTable(_ context.Context, name string) (*gateway.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reads == nil {
		f.reads = map[string]int{}
	}
	f.reads[name]++
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if t, ok := f.tables[name]; ok {
		return t, nil
	}
	return nil, errors.New("no such table")
}

func diseaseTypes(ids ...any) *gateway.Table {
	t := &gateway.Table{
		Name: "DiseaseType",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Integer},
			{Name: "description", Type: schema.Text},
		},
	}
	for _, id := range ids {
		t.Rows = append(t.Rows, []any{id, "x"})
	}
	return t
}

func TestResolve_ForeignKeyChoices(t *testing.T) {
	t.Parallel()

	r := &fakeReader{tables: map[string]*gateway.Table{
		"DiseaseType": diseaseTypes(int64(3), int64(1), int64(3), nil, int64(2)),
	}}
	res := NewResolver(schema.Default(), r)

	spec, err := res.Resolve(context.Background(), "Disease", schema.Column{Name: "id", Type: schema.Integer})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Kind != Choice || spec.Blocked {
		t.Fatalf("spec = %+v", spec)
	}
	if got := strings.Join(spec.Options, ","); got != "3,1,2" {
		t.Fatalf("options = %s, want first-seen distinct 3,1,2", got)
	}
	if spec.Default != "3" {
		t.Fatalf("default = %q", spec.Default)
	}

	// No caching: every render reads again.
	if _, err := res.Resolve(context.Background(), "Disease", schema.Column{Name: "id", Type: schema.Integer}); err != nil {
		t.Fatal(err)
	}
	if r.reads["DiseaseType"] != 2 {
		t.Fatalf("reads = %d, want 2", r.reads["DiseaseType"])
	}
}

func TestResolve_EmptyReferenceBlocksSelection(t *testing.T) {
	t.Parallel()

	r := &fakeReader{tables: map[string]*gateway.Table{"DiseaseType": diseaseTypes()}}
	spec, err := NewResolver(schema.Default(), r).
		Resolve(context.Background(), "Disease", schema.Column{Name: "id", Type: schema.Integer})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.Kind != Choice || !spec.Blocked || len(spec.Options) != 0 || spec.Default != "" {
		t.Fatalf("want blocked choice without default, got %+v", spec)
	}
}

func TestResolve_ReferenceLoadFailures(t *testing.T) {
	t.Parallel()

	readErr := errors.New("connection refused")
	r := &fakeReader{
		tables: map[string]*gateway.Table{
			"Country": {Name: "Country", Columns: []schema.Column{{Name: "name", Type: schema.Text}}},
		},
		errs: map[string]error{"DiseaseType": readErr},
	}
	res := NewResolver(schema.Default(), r)

	_, err := res.Resolve(context.Background(), "Disease", schema.Column{Name: "id", Type: schema.Integer})
	var rle *ReferenceLoadError
	if !errors.As(err, &rle) || !errors.Is(err, ErrReferenceLoad) || !errors.Is(err, readErr) {
		t.Fatalf("err = %v, want ReferenceLoadError wrapping read error", err)
	}
	if rle.Table != "Disease" || rle.Column != "id" || rle.References != "DiseaseType" {
		t.Fatalf("error fields = %+v", rle)
	}

	// Referenced table lacks the same-named column.
	_, err = res.Resolve(context.Background(), "Users", schema.Column{Name: "cname", Type: schema.Text})
	if !errors.Is(err, ErrReferenceLoad) {
		t.Fatalf("missing column err = %v", err)
	}
}

func TestResolve_ByType(t *testing.T) {
	t.Parallel()

	res := NewResolver(schema.Default(), &fakeReader{})
	tests := []struct {
		col     schema.Column
		kind    Kind
		def     string
		wantErr error
	}{
		{schema.Column{Name: "first_enc_date", Type: schema.Date}, Date, "", nil},
		{schema.Column{Name: "cname", Type: schema.Text}, Text, "", nil},
		{schema.Column{Name: "population", Type: schema.Integer}, Number, "0", nil},
		{schema.Column{Name: "ratio", DBType: "numeric", Type: schema.Unsupported}, 0, "", formatter.ErrUnsupportedType},
	}
	for _, tt := range tests {
		spec, err := res.Resolve(context.Background(), "Country", tt.col)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: err = %v, want %v", tt.col.Name, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.col.Name, err)
			continue
		}
		if spec.Kind != tt.kind || spec.Default != tt.def || spec.Label != tt.col.Name {
			t.Errorf("%s: spec = %+v", tt.col.Name, spec)
		}
	}
}

func TestResolve_DateBounds(t *testing.T) {
	t.Parallel()

	spec, err := NewResolver(schema.Default(), &fakeReader{}).
		Resolve(context.Background(), "Discover", schema.Column{Name: "first_enc_date", Type: schema.Date})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Min() != "1800-01-01" || spec.Max() != "2200-12-31" {
		t.Fatalf("bounds = %s..%s", spec.Min(), spec.Max())
	}
	if (Spec{}).Min() != "" {
		t.Fatal("zero bounds should render empty")
	}
}

func TestResolve_UnknownTable(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(schema.Default(), &fakeReader{}).
		Resolve(context.Background(), "Nope", schema.Column{Name: "x", Type: schema.Text})
	if !errors.Is(err, schema.ErrUnknownTable) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewDateBounds(t *testing.T) {
	t.Parallel()

	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name     string
		min, max time.Time
		ok       bool
	}{
		{"full range", day(1800, 1, 1), day(2200, 12, 31), true},
		{"narrow", day(2000, 1, 1), day(2000, 1, 1), true},
		{"too early", day(1799, 12, 31), day(2000, 1, 1), false},
		{"too late", day(2000, 1, 1), day(2201, 1, 1), false},
		{"inverted", day(2001, 1, 1), day(2000, 1, 1), false},
	}
	for _, tt := range tests {
		b, err := NewDateBounds(tt.min, tt.max)
		if (err == nil) != tt.ok {
			t.Errorf("%s: err = %v", tt.name, err)
			continue
		}
		if tt.ok && (!b.Contains(tt.min) || !b.Contains(tt.max)) {
			t.Errorf("%s: bounds exclude their own ends", tt.name)
		}
	}

	b := DefaultDateBounds()
	if b.Contains(day(1799, 12, 31)) || b.Contains(day(2201, 1, 1)) || !b.Contains(day(2200, 12, 31).Add(23*time.Hour)) {
		t.Fatal("DefaultDateBounds.Contains mismatch")
	}
}

func TestResolveAll(t *testing.T) {
	t.Parallel()

	countries := &gateway.Table{
		Name:    "Country",
		Columns: []schema.Column{{Name: "cname", Type: schema.Text}},
		Rows:    [][]any{{"Chad"}, {"Kazakhstan"}},
	}
	diseases := &gateway.Table{
		Name:    "Disease",
		Columns: []schema.Column{{Name: "disease_code", Type: schema.Text}},
		Rows:    [][]any{{"covid-19"}},
	}
	r := &fakeReader{tables: map[string]*gateway.Table{"Country": countries, "Disease": diseases}}
	cols := []schema.Column{
		{Name: "cname", Type: schema.Text},
		{Name: "disease_code", Type: schema.Text},
		{Name: "first_enc_date", Type: schema.Date},
	}

	specs, err := NewResolver(schema.Default(), r).ResolveAll(context.Background(), "Discover", cols)
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("specs = %d", len(specs))
	}
	if specs[0].Kind != Choice || strings.Join(specs[0].Options, ",") != "Chad,Kazakhstan" {
		t.Errorf("cname spec = %+v", specs[0])
	}
	if specs[1].Kind != Choice || specs[1].Default != "covid-19" {
		t.Errorf("disease_code spec = %+v", specs[1])
	}
	if specs[2].Kind != Date {
		t.Errorf("date spec = %+v", specs[2])
	}
	if r.reads["Country"] != 1 || r.reads["Disease"] != 1 {
		t.Errorf("reads = %v, want one per referenced table", r.reads)
	}

	r.errs = map[string]error{"Disease": errors.New("down")}
	if _, err := NewResolver(schema.Default(), r).ResolveAll(context.Background(), "Discover", cols); !errors.Is(err, ErrReferenceLoad) {
		t.Fatalf("err = %v", err)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	if Text.String() != "text" || Number.String() != "number" || Date.String() != "date" || Choice.String() != "choice" {
		t.Fatal("Kind.String mismatch")
	}
}
