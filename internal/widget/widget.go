// Package widget decides which form control renders each column of a table.
//
// Foreign-key columns become a choice over the values present in the
// referenced table. Every other column is dispatched on its ColumnType:
// dates get a bounded date picker, integers a number field defaulting to 0,
// text a free text field. Column types outside that set are rejected.
package widget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"dbadmin/internal/formatter"
	"dbadmin/internal/gateway"
	"dbadmin/internal/schema"
)

// Kind is the form control family.
type Kind int

const (
	Text Kind = iota
	Number
	Date
	Choice
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Date:
		return "date"
	case Choice:
		return "choice"
	default:
		return "text"
	}
}

// ErrReferenceLoad matches every *ReferenceLoadError.
var ErrReferenceLoad = errors.New("reference load failed")

// ReferenceLoadError reports that the candidate values of a foreign-key
// column could not be loaded from the referenced table.
type ReferenceLoadError struct {
	Table      string // table holding the foreign key
	Column     string
	References string // referenced table
	Err        error
}

func (e *ReferenceLoadError) Error() string {
	return fmt.Sprintf("load choices for %s.%s from %s: %v", e.Table, e.Column, e.References, e.Err)
}

func (e *ReferenceLoadError) Unwrap() error { return e.Err }

func (e *ReferenceLoadError) Is(target error) bool { return target == ErrReferenceLoad }

// DateBounds is an inclusive date range for a date picker.
type DateBounds struct {
	Min, Max time.Time
}

// NewDateBounds validates that min..max lies within the supported calendar
// range and is not inverted.
func NewDateBounds(min, max time.Time) (DateBounds, error) {
	min, max = truncateDay(min), truncateDay(max)
	switch {
	case min.Before(formatter.MinDate):
		return DateBounds{}, fmt.Errorf("date bounds: min %s before %s", min.Format(formatter.DateLayout), formatter.MinDate.Format(formatter.DateLayout))
	case max.After(formatter.MaxDate):
		return DateBounds{}, fmt.Errorf("date bounds: max %s after %s", max.Format(formatter.DateLayout), formatter.MaxDate.Format(formatter.DateLayout))
	case max.Before(min):
		return DateBounds{}, fmt.Errorf("date bounds: max %s before min %s", max.Format(formatter.DateLayout), min.Format(formatter.DateLayout))
	}
	return DateBounds{Min: min, Max: max}, nil
}

// DefaultDateBounds is the full supported range.
func DefaultDateBounds() DateBounds {
	return DateBounds{Min: formatter.MinDate, Max: formatter.MaxDate}
}

// Contains reports whether t falls inside the bounds at day precision.
func (b DateBounds) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(b.Min) && !d.After(b.Max)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Spec describes one form control.
type Spec struct {
	Column  string
	Label   string
	Kind    Kind
	Default string

	// Date pickers only.
	Bounds DateBounds

	// Choice only. Options are the distinct referenced values in the order
	// they were first seen.
	Options []string

	// Blocked is set on a choice with no options: nothing can be selected
	// and the form must not submit a default in its place.
	Blocked bool
}

// Min and Max render the date bounds for an <input type="date">.
func (s Spec) Min() string { return dateAttr(s.Bounds.Min) }
func (s Spec) Max() string { return dateAttr(s.Bounds.Max) }

func dateAttr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(formatter.DateLayout)
}

// TableReader is the part of gateway.Gateway the resolver needs.
type TableReader interface {
	ReadTable(ctx context.Context, name string) (*gateway.Table, error)
}

// Resolver maps columns to form controls for the tables of one registry.
type Resolver struct {
	reg    *schema.Registry
	reader TableReader
	bounds DateBounds
}

// NewResolver returns a resolver that loads foreign-key choices through r.
func NewResolver(reg *schema.Registry, r TableReader) *Resolver {
	return &Resolver{reg: reg, reader: r, bounds: DefaultDateBounds()}
}

// WithDateBounds returns a copy of the resolver using b for date pickers.
func (r *Resolver) WithDateBounds(b DateBounds) *Resolver {
	c := *r
	c.bounds = b
	return &c
}

// Resolve returns the control for one column of table. Foreign-key choices
// are read from the referenced table on every call.
func (r *Resolver) Resolve(ctx context.Context, table string, col schema.Column) (Spec, error) {
	ref, isFK, err := r.reg.ForeignKeyOf(table, col.Name)
	if err != nil {
		return Spec{}, err
	}
	spec := Spec{Column: col.Name, Label: col.Name}
	if isFK {
		opts, err := r.loadChoices(ctx, table, col.Name, ref)
		if err != nil {
			return Spec{}, err
		}
		spec.Kind = Choice
		spec.Options = opts
		spec.Blocked = len(opts) == 0
		if !spec.Blocked {
			spec.Default = opts[0]
		}
		return spec, nil
	}

	switch col.Type {
	case schema.Date:
		spec.Kind = Date
		spec.Bounds = r.bounds
	case schema.Text:
		spec.Kind = Text
	case schema.Integer:
		spec.Kind = Number
		spec.Default = "0"
	case schema.Unsupported:
		return Spec{}, fmt.Errorf("%s.%s (%s): %w", table, col.Name, col.DBType, formatter.ErrUnsupportedType)
	default:
		return Spec{}, fmt.Errorf("%s.%s: %w", table, col.Name, formatter.ErrUnsupportedType)
	}
	return spec, nil
}

// ResolveAll resolves every column of a form. Foreign-key choices are
// loaded concurrently; the first failure is returned.
func (r *Resolver) ResolveAll(ctx context.Context, table string, cols []schema.Column) ([]Spec, error) {
	specs := make([]Spec, len(cols))
	g, ctx := errgroup.WithContext(ctx)
	for i, col := range cols {
		g.Go(func() error {
			s, err := r.Resolve(ctx, table, col)
			if err != nil {
				return err
			}
			specs[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return specs, nil
}

func (r *Resolver) loadChoices(ctx context.Context, table, column, ref string) ([]string, error) {
	t, err := r.reader.ReadTable(ctx, ref)
	if err != nil {
		return nil, &ReferenceLoadError{Table: table, Column: column, References: ref, Err: err}
	}
	vals, ok := t.Distinct(column)
	if !ok {
		return nil, &ReferenceLoadError{
			Table: table, Column: column, References: ref,
			Err: fmt.Errorf("column %q not found in %s", column, ref),
		}
	}
	return vals, nil
}
