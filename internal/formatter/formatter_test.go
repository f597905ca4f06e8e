package formatter

import (
	"errors"
	"testing"
	"time"

	"dbadmin/internal/schema"
)

var recordCols = []schema.Column{
	{Name: "email", DBType: "varchar", Type: schema.Text},
	{Name: "cname", DBType: "varchar", Type: schema.Text},
	{Name: "disease_code", DBType: "varchar", Type: schema.Text},
	{Name: "total_deaths", DBType: "int4", Type: schema.Integer},
	{Name: "total_patients", DBType: "int4", Type: schema.Integer},
}

// TestFormat_DropsExactlyTheEmptyEntries verifies the "leave blank to skip"
// rule: empty strings and nil are dropped, everything else is kept in
// column order with its value unchanged.
func TestFormat_DropsExactlyTheEmptyEntries(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"email":          "a@b.kz",
		"cname":          "",
		"disease_code":   nil,
		"total_deaths":   0,
		"total_patients": "120",
	}
	got, err := Format(recordCols, raw)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	wantCols := []string{"email", "total_deaths", "total_patients"}
	for i, c := range wantCols {
		if got[i].Column != c {
			t.Fatalf("got[%d].Column = %q, want %q", i, got[i].Column, c)
		}
	}
	if got[0].Value != "a@b.kz" {
		t.Errorf("email value = %#v", got[0].Value)
	}
	if got[1].Value != int64(0) {
		t.Errorf("total_deaths value = %#v, want int64(0)", got[1].Value)
	}
	if got[2].Value != int64(120) {
		t.Errorf("total_patients value = %#v, want int64(120)", got[2].Value)
	}
}

func TestFormat_IntegerZeroIsNotEmpty(t *testing.T) {
	t.Parallel()

	col := []schema.Column{{Name: "n", Type: schema.Integer}}
	got, err := Format(col, map[string]any{"n": 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("integer 0 was dropped")
	}
	if s := got[0].SQL(); s != "0" {
		t.Fatalf("SQL() = %q, want 0", s)
	}
}

func TestFormat_IgnoresUnknownRawKeys(t *testing.T) {
	t.Parallel()

	got, err := Format(recordCols[:1], map[string]any{"email": "x", "bogus": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Column != "email" {
		t.Fatalf("got %+v", got)
	}
}

func TestFormat_DateRoundTrip(t *testing.T) {
	t.Parallel()

	col := []schema.Column{{Name: "first_enc_date", Type: schema.Date}}
	orig := time.Date(1987, time.March, 14, 16, 30, 0, 0, time.FixedZone("x", 3600))

	got, err := Format(col, map[string]any{"first_enc_date": orig})
	if err != nil {
		t.Fatal(err)
	}
	lit := got[0].SQL()
	if lit != "'1987-03-14'" {
		t.Fatalf("SQL() = %s", lit)
	}
	back, err := time.Parse(DateLayout, lit[1:len(lit)-1])
	if err != nil {
		t.Fatal(err)
	}
	if back.Year() != orig.Year() || back.YearDay() != orig.YearDay() {
		t.Fatalf("round trip %v -> %v lost day precision", orig, back)
	}

	// String input parses to the same day.
	got2, err := Format(col, map[string]any{"first_enc_date": "1987-03-14"})
	if err != nil {
		t.Fatal(err)
	}
	if !got2[0].Value.(time.Time).Equal(got[0].Value.(time.Time)) {
		t.Fatalf("string and time inputs disagree: %v vs %v", got2[0].Value, got[0].Value)
	}
}

func TestFormat_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		col  schema.Column
		raw  any
		want error
	}{
		{"bad integer", schema.Column{Name: "n", Type: schema.Integer}, "12a", ErrInvalidValue},
		{"fractional", schema.Column{Name: "n", Type: schema.Integer}, 1.5, ErrInvalidValue},
		{"bad date", schema.Column{Name: "d", Type: schema.Date}, "14/03/1987", ErrInvalidValue},
		{"trailing digit", schema.Column{Name: "d", Type: schema.Date}, "2020-01-011", ErrInvalidValue},
		{"trailing garbage", schema.Column{Name: "d", Type: schema.Date}, "2020-01-01garbage", ErrInvalidValue},
		{"trailing words", schema.Column{Name: "d", Type: schema.Date}, "2020-01-01 not a date", ErrInvalidValue},
		{"date too early", schema.Column{Name: "d", Type: schema.Date}, "1799-12-31", ErrInvalidValue},
		{"date too late", schema.Column{Name: "d", Type: schema.Date}, "2201-01-01", ErrInvalidValue},
		{"unsupported", schema.Column{Name: "salary", DBType: "numeric", Type: schema.Unsupported}, "10.5", ErrUnsupportedType},
		{"unknown enum", schema.Column{Name: "x", Type: schema.ColumnType(99)}, "v", ErrUnsupportedType},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Format([]schema.Column{tt.col}, map[string]any{tt.col.Name: tt.raw})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFormat_TimestampsKeepTheDate(t *testing.T) {
	t.Parallel()

	col := []schema.Column{{Name: "d", Type: schema.Date}}
	for _, raw := range []string{"2020-01-02", " 2020-01-02 ", "2020-01-02T23:30:00+05:00", "2020-01-02 08:15:00"} {
		lits, err := Format(col, map[string]any{"d": raw})
		if err != nil {
			t.Fatalf("Format(%q): %v", raw, err)
		}
		if got := lits[0].Value.(time.Time).Format(DateLayout); got != "2020-01-02" {
			t.Fatalf("Format(%q) = %s", raw, got)
		}
	}
}

func TestFormat_BoundaryDatesAccepted(t *testing.T) {
	t.Parallel()

	col := []schema.Column{{Name: "d", Type: schema.Date}}
	for _, s := range []string{"1800-01-01", "2200-12-31"} {
		if _, err := Format(col, map[string]any{"d": s}); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
}

func TestFormat_NoPartialResultOnError(t *testing.T) {
	t.Parallel()

	got, err := Format(recordCols, map[string]any{"email": "a@b.kz", "total_deaths": "many"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Fatalf("partial result returned: %+v", got)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(-3), "-3"},
		{7, "7"},
		{"Chad", "'Chad'"},
		{"Cote d'Ivoire", "'Cote d''Ivoire'"},
		{time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), "'2020-01-02'"},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%#v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	empty := ""
	full := "x"
	if !IsEmpty(nil) || !IsEmpty("") || !IsEmpty(&empty) || !IsEmpty((*string)(nil)) {
		t.Fatal("empty values not recognised")
	}
	if IsEmpty(0) || IsEmpty(int64(0)) || IsEmpty(&full) || IsEmpty(false) {
		t.Fatal("non-empty value treated as empty")
	}
}
