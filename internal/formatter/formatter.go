// Package formatter turns raw form input into typed values ready to be bound
// into a statement. It applies the "leave blank to skip" rule: fields whose
// raw value is nil or the empty string are dropped. Every surviving field is
// coerced according to its column's type; a single failure rejects the
// whole submission, so a statement is never built from partially-formatted
// data.
package formatter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dbadmin/internal/schema"
)

var (
	// ErrUnsupportedType is returned for columns whose type is not one of
	// Text, Integer or Date, or which are missing from the column set.
	ErrUnsupportedType = errors.New("unsupported column type")

	// ErrInvalidValue is returned when a raw value cannot be coerced to its
	// column's type.
	ErrInvalidValue = errors.New("invalid value")
)

// DateLayout is the wire format of date inputs and of rendered date literals.
const DateLayout = "2006-01-02"

// Bounds of the date picker, inclusive.
var (
	MinDate = time.Date(1800, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(2200, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Literal is one formatted field: the column it belongs to, the column type,
// and the typed value to bind (string, int64 or time.Time).
type Literal struct {
	Column string
	Type   schema.ColumnType
	Value  any
}

// SQL renders the literal the way it would appear in statement text:
// single-quoted for Text and Date, a bare numeral for Integer.
func (l Literal) SQL() string {
	return Quote(l.Value)
}

// Quote renders a bound value as SQL literal text. It is used for previews
// and logs only; execution always binds values as parameters.
func Quote(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case time.Time:
		return "'" + x.Format(DateLayout) + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}

// IsEmpty reports whether a raw value counts as "not filled in". Only nil
// and the empty string are empty; numeric zero is a real value.
func IsEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *string:
		return v == nil || *v == ""
	default:
		return false
	}
}

// Format coerces raw input for the given columns. The result follows the
// order of columns; empty values are omitted and raw keys that are not in
// columns are ignored. Raw keys naming a column of Unsupported type fail
// with ErrUnsupportedType unless their value is empty.
func Format(columns []schema.Column, raw map[string]any) ([]Literal, error) {
	out := make([]Literal, 0, len(raw))
	for _, col := range columns {
		v, ok := raw[col.Name]
		if !ok || IsEmpty(v) {
			continue
		}
		lit, err := FormatValue(col, v)
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

// FormatValue coerces a single non-empty raw value.
func FormatValue(col schema.Column, raw any) (Literal, error) {
	if p, ok := raw.(*string); ok && p != nil {
		raw = *p
	}
	switch col.Type {
	case schema.Text:
		s, err := toText(raw)
		if err != nil {
			return Literal{}, fmt.Errorf("%w: column %q: %v", ErrInvalidValue, col.Name, err)
		}
		return Literal{Column: col.Name, Type: col.Type, Value: s}, nil

	case schema.Integer:
		n, err := toInteger(raw)
		if err != nil {
			return Literal{}, fmt.Errorf("%w: column %q: %v", ErrInvalidValue, col.Name, err)
		}
		return Literal{Column: col.Name, Type: col.Type, Value: n}, nil

	case schema.Date:
		d, err := toDate(raw)
		if err != nil {
			return Literal{}, fmt.Errorf("%w: column %q: %v", ErrInvalidValue, col.Name, err)
		}
		return Literal{Column: col.Name, Type: col.Type, Value: d}, nil

	case schema.Unsupported:
		return Literal{}, fmt.Errorf("%w: column %q has backend type %q", ErrUnsupportedType, col.Name, col.DBType)

	default:
		return Literal{}, fmt.Errorf("%w: column %q", ErrUnsupportedType, col.Name)
	}
}

func toText(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("cannot use %T as text", raw)
	}
}

func toInteger(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot use %T as integer", raw)
	}
}

func toDate(raw any) (time.Time, error) {
	var d time.Time
	switch v := raw.(type) {
	case time.Time:
		d = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
	case string:
		t, err := parseDate(strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, fmt.Errorf("%q is not a date (want %s)", v, DateLayout)
		}
		d = t
	default:
		return time.Time{}, fmt.Errorf("cannot use %T as date", raw)
	}
	if d.Before(MinDate) || d.After(MaxDate) {
		return time.Time{}, fmt.Errorf("%s outside %s..%s", d.Format(DateLayout), MinDate.Format(DateLayout), MaxDate.Format(DateLayout))
	}
	return d, nil
}

// timestampLayouts are accepted besides DateLayout. Only the calendar date
// in the value's own zone is kept.
var timestampLayouts = []string{time.RFC3339, "2006-01-02 15:04:05"}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if ts, terr := time.Parse(layout, s); terr == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, err
}

// ByColumn indexes literals by column name.
func ByColumn(lits []Literal) map[string]Literal {
	m := make(map[string]Literal, len(lits))
	for _, l := range lits {
		m[l.Column] = l
	}
	return m
}
