package webui

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"dbadmin/internal/crud"
	"dbadmin/internal/formatter"
	"dbadmin/internal/gateway"
	"dbadmin/internal/logging"
	"dbadmin/internal/reports"
	"dbadmin/internal/schema"
	"dbadmin/internal/statement"
	"dbadmin/internal/widget"
)

// Form field name prefixes. Key selectors and value inputs share column
// names, so they are told apart by prefix.
const (
	keyPrefix   = "k."
	valuePrefix = "v."
)

var funcs = map[string]any{
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"count": func(n int64) string { return humanize.Comma(n) },
	"took":  func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	"key":   func(col string) string { return keyPrefix + col },
	"val":   func(col string) string { return valuePrefix + col },
	"isChoice": func(sp widget.Spec) bool {
		return sp.Kind == widget.Choice
	},
	"inputType": func(sp widget.Spec) string {
		switch sp.Kind {
		case widget.Number:
			return "number"
		case widget.Date:
			return "date"
		default:
			return "text"
		}
	},
	"pathEscape": url.PathEscape,
}

// flash is the toast shown after a write or report run.
type flash struct {
	OK        bool
	Message   string
	Statement string
}

type tableView struct {
	Tables []string
	Page   *crud.Page
	Flash  *flash
}

// Blocked reports whether the create form cannot be submitted.
func (v tableView) Blocked() bool {
	for _, f := range v.Page.Fields {
		if f.Blocked {
			return true
		}
	}
	return false
}

type reportsView struct {
	Tables  []string
	Reports []reports.Report
	Outcome *reportOutcome
	Flash   *flash
}

type reportOutcome struct {
	reports.Outcome
	Columns []string
	Rows    [][]string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tables := s.svc.Registry().Tables()
	if len(tables) == 0 {
		http.Error(w, "no tables configured", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/tables/"+url.PathEscape(tables[0]), http.StatusSeeOther)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	s.renderTable(w, r, r.PathValue("table"), r.URL.Query().Get("row"), http.StatusOK, nil)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	keys, values := splitForm(r.PostForm)

	var (
		res crud.Result
		err error
	)
	switch crud.Op(r.PathValue("op")) {
	case crud.OpCreate:
		res, err = s.svc.Create(r.Context(), table, values)
	case crud.OpUpdate:
		res, err = s.svc.Update(r.Context(), table, keys, values)
	case crud.OpDelete:
		res, err = s.svc.Delete(r.Context(), table, keys)
	default:
		http.NotFound(w, r)
		return
	}

	fl := &flash{OK: err == nil, Message: res.Message()}
	if res.Statement.SQL != "" {
		fl.Statement = res.Statement.String()
	}
	status := http.StatusOK
	if err != nil {
		status = statusOf(err)
		if status == http.StatusNotFound {
			http.Error(w, err.Error(), status)
			return
		}
		fl.Message = err.Error()
	}
	s.renderTable(w, r, table, r.URL.Query().Get("row"), status, fl)
}

func (s *Server) renderTable(w http.ResponseWriter, r *http.Request, table, rowID string, status int, fl *flash) {
	page, err := s.svc.View(r.Context(), table, rowID)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	s.render(w, r, status, "table", tableView{
		Tables: s.svc.Registry().Tables(),
		Page:   page,
		Flash:  fl,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "reports", reportsView{
		Tables:  s.svc.Registry().Tables(),
		Reports: reports.All(),
	})
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	rep, err := reports.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	view := reportsView{
		Tables:  s.svc.Registry().Tables(),
		Reports: reports.All(),
	}
	log := logging.FromContext(r.Context(), s.log).With(zap.Int("report", rep.ID))

	out, err := reports.Run(r.Context(), s.svc.Gateway(), rep)
	status := http.StatusOK
	if err != nil {
		log.Warn("report failed", zap.Error(err))
		status = statusOf(err)
		view.Flash = &flash{Message: err.Error(), Statement: rep.SQL}
	} else {
		log.Info("report run", zap.Stringer("kind", rep.Kind), zap.Duration("took", out.Took))
		ro := &reportOutcome{Outcome: out}
		if out.Table != nil {
			ro.Columns = out.Table.ColumnNames()
			for _, raw := range out.Table.Rows {
				cells := make([]string, len(raw))
				for i, v := range raw {
					cells[i] = gateway.FormatValue(v)
				}
				ro.Rows = append(ro.Rows, cells)
			}
		}
		view.Outcome = ro
	}
	s.render(w, r, status, "reports", view)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// render executes the named template into a buffer so a template failure
// can still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logging.FromContext(r.Context(), s.log).Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// splitForm separates key selectors from value inputs. Values are
// normalized to NFC so visually identical input compares equal to stored
// data.
func splitForm(form url.Values) (keys, values map[string]string) {
	keys = map[string]string{}
	values = map[string]string{}
	for name, vs := range form {
		if len(vs) == 0 {
			continue
		}
		v := norm.NFC.String(vs[0])
		switch {
		case strings.HasPrefix(name, keyPrefix):
			keys[strings.TrimPrefix(name, keyPrefix)] = v
		case strings.HasPrefix(name, valuePrefix):
			values[strings.TrimPrefix(name, valuePrefix)] = v
		}
	}
	return keys, values
}

// statusOf maps an error to the response status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, schema.ErrUnknownTable), errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound
	case errors.Is(err, formatter.ErrUnsupportedType),
		errors.Is(err, formatter.ErrInvalidValue),
		errors.Is(err, statement.ErrIncompleteRecord),
		errors.Is(err, statement.ErrNoUpdatableFields),
		errors.Is(err, statement.ErrIncompleteKey),
		errors.Is(err, widget.ErrReferenceLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gateway.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrConnectivity):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
