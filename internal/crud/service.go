// Package crud runs one admin request cycle against a table: read the live
// table, describe its forms, and turn a submitted form into exactly one
// executed INSERT, UPDATE or DELETE.
//
// Column types are always taken from a fresh read of the table, never
// cached, so a form reflects the table as it is now.
package crud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"dbadmin/internal/formatter"
	"dbadmin/internal/gateway"
	"dbadmin/internal/logging"
	"dbadmin/internal/metrics"
	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
	"dbadmin/internal/widget"
)

// Op names a write operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Service performs reads and writes for the tables of one registry.
type Service struct {
	reg      *schema.Registry
	gw       gateway.Gateway
	resolver *widget.Resolver
	log      *zap.Logger
}

// NewService wires a service. log may be nil.
func NewService(reg *schema.Registry, gw gateway.Gateway, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		reg:      reg,
		gw:       gw,
		resolver: widget.NewResolver(reg, readRecorder{gw}),
		log:      log,
	}
}

// Registry returns the schema registry the service was built with.
func (s *Service) Registry() *schema.Registry { return s.reg }

// Gateway returns the underlying gateway.
func (s *Service) Gateway() gateway.Gateway { return s.gw }

// Row is one rendered grid row. ID identifies the row by its key values.
type Row struct {
	ID    string
	Cells []string
}

// KeyField is a primary-key selector on the update and delete forms. Its
// options are the key values present in the table.
type KeyField struct {
	Column   string
	Options  []string
	Selected string
}

// Page is everything needed to render one table screen.
type Page struct {
	Table   string
	Columns []schema.Column
	Rows    []Row

	// SelectedID is the ID of the selected row, or "" if none matched.
	SelectedID string

	// ReadErr is set when the table could not be read. The page then shows
	// an empty grid and no create fields.
	ReadErr error

	// FormErr is set when the forms could not be built, e.g. a
	// foreign-key choice list failed to load.
	FormErr error

	Keys    []KeyField
	NonKeys []widget.Spec // update form
	Fields  []widget.Spec // create form

	// UpdateDisabled is set when the table has no non-key columns.
	UpdateDisabled bool
}

// Selected returns the selected row, if any.
func (p *Page) Selected() (Row, bool) {
	for _, r := range p.Rows {
		if r.ID != "" && r.ID == p.SelectedID {
			return r, true
		}
	}
	return Row{}, false
}

// View reads table and assembles its page. rowID optionally selects a row,
// which pre-selects its key values in the update and delete forms. Only an
// unknown table is returned as an error; read and form failures are
// reported on the page.
func (s *Service) View(ctx context.Context, table, rowID string) (*Page, error) {
	ts, err := s.reg.Lookup(table)
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	log := logging.FromContext(ctx, s.log).With(zap.String("table", table))
	page := &Page{Table: table}

	tbl, err := s.read(ctx, table)
	if err != nil {
		log.Warn("table read failed; rendering empty", zap.Error(err))
		page.ReadErr = err
		tbl = &gateway.Table{Name: table}
	}
	page.Columns = tbl.Columns

	keyIdx := make([]int, len(ts.PrimaryKeys))
	for i, k := range ts.PrimaryKeys {
		keyIdx[i] = tbl.ColumnIndex(k)
	}
	var selected []any
	for _, raw := range tbl.Rows {
		row := Row{ID: RowID(raw, keyIdx), Cells: make([]string, len(raw))}
		for i, v := range raw {
			row.Cells[i] = gateway.FormatValue(v)
		}
		if rowID != "" && row.ID == rowID && selected == nil {
			page.SelectedID = row.ID
			selected = raw
		}
		page.Rows = append(page.Rows, row)
	}

	for i, k := range ts.PrimaryKeys {
		kf := KeyField{Column: k}
		kf.Options, _ = tbl.Distinct(k)
		switch {
		case selected != nil && keyIdx[i] >= 0:
			kf.Selected = gateway.FormatValue(selected[keyIdx[i]])
		case len(kf.Options) > 0:
			kf.Selected = kf.Options[0]
		}
		page.Keys = append(page.Keys, kf)
	}

	if page.ReadErr != nil {
		page.UpdateDisabled = true
		return page, nil
	}
	if err := s.reg.CheckColumns(table, tbl.Columns); err != nil {
		log.Error("live columns do not match registry", zap.Error(err))
		page.FormErr = err
	}

	specs, err := s.resolver.ResolveAll(ctx, table, tbl.Columns)
	if err != nil {
		log.Warn("form assembly failed", zap.Error(err))
		if page.FormErr == nil {
			page.FormErr = err
		}
	} else {
		page.Fields = specs
		for _, sp := range specs {
			if !ts.IsKey(sp.Column) {
				page.NonKeys = append(page.NonKeys, sp)
			}
		}
	}
	page.UpdateDisabled = page.FormErr != nil || len(page.NonKeys) == 0
	return page, nil
}

// Result describes one executed write.
type Result struct {
	Op        Op
	Table     string
	Statement statement.Statement
	Affected  int64
}

// Message is the confirmation shown to the user.
func (r Result) Message() string {
	switch r.Op {
	case OpCreate:
		return "Record created successfully!"
	case OpUpdate:
		return "Record updated successfully!"
	case OpDelete:
		return "Record deleted successfully!"
	}
	return "Done."
}

// Create inserts one row. Every column of the table must be filled.
func (s *Service) Create(ctx context.Context, table string, values map[string]string) (Result, error) {
	res := Result{Op: OpCreate, Table: table}
	_, tbl, err := s.columns(ctx, table)
	if err != nil {
		return res, err
	}
	lits, err := formatter.Format(tbl.Columns, rawInput(values))
	if err != nil {
		return res, fmt.Errorf("create %s: %w", table, err)
	}
	st, err := statement.Insert(s.gw.Dialect(), table, len(tbl.Columns), lits)
	if err != nil {
		return res, err
	}
	return s.execute(ctx, res, st)
}

// Update sets the filled non-key values on the row addressed by keys.
// Blank non-key fields are left unchanged.
func (s *Service) Update(ctx context.Context, table string, keys, values map[string]string) (Result, error) {
	res := Result{Op: OpUpdate, Table: table}
	ts, tbl, err := s.columns(ctx, table)
	if err != nil {
		return res, err
	}

	nonLits, err := formatter.Format(nonKeyColumns(ts, tbl.Columns), rawInput(values))
	if err != nil {
		return res, fmt.Errorf("update %s: %w", table, err)
	}
	var keyLits []formatter.Literal
	if len(nonLits) > 0 {
		keyLits, err = formatter.Format(keyColumns(ts, tbl.Columns), rawInput(keys))
		if err != nil {
			return res, fmt.Errorf("update %s key: %w", table, err)
		}
	}
	st, err := statement.Update(s.gw.Dialect(), table, ts.PrimaryKeys, keyLits, nonLits)
	if err != nil {
		return res, err
	}
	return s.execute(ctx, res, st)
}

// Delete removes the row addressed by keys. The full key is required.
func (s *Service) Delete(ctx context.Context, table string, keys map[string]string) (Result, error) {
	res := Result{Op: OpDelete, Table: table}
	ts, tbl, err := s.columns(ctx, table)
	if err != nil {
		return res, err
	}

	keyLits, err := formatter.Format(keyColumns(ts, tbl.Columns), rawInput(keys))
	if err != nil {
		return res, fmt.Errorf("delete %s key: %w", table, err)
	}
	st, err := statement.Delete(s.gw.Dialect(), table, ts.PrimaryKeys, keyLits)
	if err != nil {
		return res, err
	}
	return s.execute(ctx, res, st)
}

// columns returns the registry entry for table and a fresh read of it for
// the live column types.
func (s *Service) columns(ctx context.Context, table string) (schema.TableSchema, *gateway.Table, error) {
	ts, err := s.reg.Lookup(table)
	if err != nil {
		return ts, nil, err
	}
	tbl, err := s.read(ctx, table)
	if err != nil {
		return ts, nil, fmt.Errorf("load columns: %w", err)
	}
	return ts, tbl, nil
}

func (s *Service) read(ctx context.Context, table string) (*gateway.Table, error) {
	tbl, err := s.gw.ReadTable(ctx, table)
	metrics.RecordRead(table, err)
	return tbl, err
}

// execute runs st once. Failures are never retried.
func (s *Service) execute(ctx context.Context, res Result, st statement.Statement) (Result, error) {
	res.Statement = st
	log := logging.FromContext(ctx, s.log).With(
		zap.String("table", res.Table),
		zap.String("op", string(res.Op)),
		zap.Stringer("statement", st),
	)

	start := time.Now()
	n, err := s.gw.Execute(ctx, st)
	elapsed := time.Since(start)
	if err != nil {
		kind := gateway.KindOf(err)
		metrics.RecordStatement(res.Table, string(res.Op), kind.String(), elapsed)
		log.Warn("statement failed", zap.String("kind", kind.String()), zap.Error(err))
		return res, err
	}
	res.Affected = n
	metrics.RecordStatement(res.Table, string(res.Op), "success", elapsed)
	log.Info("statement executed", zap.Int64("rows", n), zap.Duration("took", elapsed))
	return res, nil
}

// RowID derives a stable row token from the key columns at keyIdx. Rows
// whose key columns are all missing from the result set get "".
func RowID(row []any, keyIdx []int) string {
	var b strings.Builder
	found := false
	for _, i := range keyIdx {
		b.WriteByte(0)
		if i < 0 || i >= len(row) {
			continue
		}
		found = true
		b.WriteString(gateway.FormatValue(row[i]))
	}
	if !found {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}

func keyColumns(ts schema.TableSchema, cols []schema.Column) []schema.Column {
	var out []schema.Column
	for _, c := range cols {
		if ts.IsKey(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func nonKeyColumns(ts schema.TableSchema, cols []schema.Column) []schema.Column {
	var out []schema.Column
	for _, c := range cols {
		if !ts.IsKey(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// rawInput converts submitted form values to the formatter's input shape.
// Blank strings stay blank so the formatter drops them.
func rawInput(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// readRecorder counts the resolver's foreign-key reads.
type readRecorder struct{ gw gateway.Gateway }

func (r readRecorder) ReadTable(ctx context.Context, name string) (*gateway.Table, error) {
	t, err := r.gw.ReadTable(ctx, name)
	metrics.RecordRead(name, err)
	return t, err
}
