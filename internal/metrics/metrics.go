// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the admin front end.
//
// Callers depend only on the package-level helpers; a concrete system
// (Prometheus, Datadog) is installed once at startup with SetBackend. The
// default backend is a no-op, so recording is always safe.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StatementTotal    = "dbadmin_statements_total"
	StatementDuration = "dbadmin_statement_duration_seconds"
	ReadTotal         = "dbadmin_table_reads_total"
	ReportTotal       = "dbadmin_reports_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Reset restores the no-op backend.
func Reset() { backend = nopBackend{} }

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStatement counts one executed INSERT/UPDATE/DELETE and its latency.
// outcome is "success" or an error kind such as "constraint_violation".
func RecordStatement(table, op, outcome string, d time.Duration) {
	lbls := Labels{
		"table":   table,
		"op":      op,
		"outcome": outcome,
	}
	backend.IncCounter(StatementTotal, 1, lbls)
	backend.ObserveHistogram(StatementDuration, d.Seconds(), lbls)
}

// RecordRead counts one full-table read.
func RecordRead(table string, err error) {
	backend.IncCounter(ReadTotal, 1, Labels{
		"table":  table,
		"status": status(err),
	})
}

// RecordReport counts one run of a canned report.
func RecordReport(id string, err error) {
	backend.IncCounter(ReportTotal, 1, Labels{
		"report": id,
		"status": status(err),
	})
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
