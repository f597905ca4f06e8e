// Package prom implements a Prometheus backend for the metrics package.
//
// Collectors live in a private registry that is exposed for scraping via
// Handler (mounted at /metrics by the web UI). When a Pushgateway URL is
// configured, Flush also pushes the registry there, which is how the
// one-shot reports CLI publishes its counters.
package prom

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"dbadmin/internal/metrics"
)

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string // optional, e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	statementCounter  *prometheus.CounterVec   // dbadmin_statements_total
	statementDuration *prometheus.HistogramVec // dbadmin_statement_duration_seconds
	readCounter       *prometheus.CounterVec   // dbadmin_table_reads_total
	reportCounter     *prometheus.CounterVec   // dbadmin_reports_total
}

// NewBackend constructs a backend. gatewayURL may be empty, in which case
// Flush is a no-op and metrics are only available through Handler.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		jobName = "dbadmin"
	}
	reg := prometheus.NewRegistry()

	statementCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StatementTotal,
			Help: "Executed write statements, partitioned by table, operation and outcome.",
		},
		[]string{"table", "op", "outcome"},
	)
	statementDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metrics.StatementDuration,
			Help:    "Write statement latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "op", "outcome"},
	)
	readCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ReadTotal,
			Help: "Full table reads, partitioned by table and status.",
		},
		[]string{"table", "status"},
	)
	reportCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ReportTotal,
			Help: "Report runs, partitioned by report id and status.",
		},
		[]string{"report", "status"},
	)

	for name, c := range map[string]prometheus.Collector{
		"statement counter":  statementCounter,
		"statement duration": statementDuration,
		"read counter":       readCounter,
		"report counter":     reportCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:        gatewayURL,
		jobName:           jobName,
		reg:               reg,
		statementCounter:  statementCounter,
		statementDuration: statementDuration,
		readCounter:       readCounter,
		reportCounter:     reportCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StatementTotal:
		if b.statementCounter == nil {
			return
		}
		b.statementCounter.WithLabelValues(labels["table"], labels["op"], labels["outcome"]).Add(delta)
	case metrics.ReadTotal:
		if b.readCounter == nil {
			return
		}
		b.readCounter.WithLabelValues(labels["table"], labels["status"]).Add(delta)
	case metrics.ReportTotal:
		if b.reportCounter == nil {
			return
		}
		b.reportCounter.WithLabelValues(labels["report"], labels["status"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StatementDuration || b.statementDuration == nil {
		return
	}
	b.statementDuration.WithLabelValues(labels["table"], labels["op"], labels["outcome"]).Observe(value)
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Flush pushes the current registry to the Pushgateway, if one is configured.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
