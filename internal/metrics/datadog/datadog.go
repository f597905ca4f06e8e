// Package datadog sends admin metrics to a DogStatsD agent.
//
// The shared Prometheus-style names are mapped onto Datadog conventions:
// the "dbadmin_" prefix moves into the client namespace, underscores become
// dots and unit suffixes are dropped, so dbadmin_statements_total is sent as
// dbadmin.statements. Statement latency is sent as a timing in
// milliseconds. Labels become sorted "key:value" tags.
package datadog

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"dbadmin/internal/metrics"
)

// Config selects the agent and the tags common to every metric.
type Config struct {
	// Addr is the DogStatsD address, "host:port" or "unix:///path/to/socket".
	Addr string

	// Namespace prefixes every name. Empty means "dbadmin.".
	Namespace string

	// GlobalTags are added to every metric, e.g. "env:prod".
	GlobalTags []string

	// SampleRate applies to timings only; counts are always sent. Zero
	// means 1.
	SampleRate float64
}

type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Close() error
}

// Backend implements metrics.Backend over a statsd client.
type Backend struct {
	client client
	rate   float64
}

// NewBackend dials the agent. UDP clients connect lazily, so an
// unreachable agent only drops packets.
func NewBackend(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("datadog: agent address is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "dbadmin."
	}
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}

	opts := []statsd.Option{statsd.WithNamespace(ns)}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, errors.Join(errors.New("datadog: open client"), err)
	}
	return &Backend{client: c, rate: rate}, nil
}

// IncCounter sends a count. DogStatsD counts are integers.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(metricName(name), int64(delta), tags(labels), 1)
}

// ObserveHistogram sends second-valued durations as timings and anything
// else as a histogram.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	if strings.HasSuffix(name, "_seconds") {
		d := time.Duration(value * float64(time.Second))
		_ = b.client.Timing(metricName(name), d, tags(labels), b.rate)
		return
	}
	_ = b.client.Histogram(metricName(name), value, tags(labels), b.rate)
}

// Flush closes the client, which sends whatever is still buffered. Call it
// once at shutdown.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// metricName maps dbadmin_statement_duration_seconds to statement.duration.
func metricName(name string) string {
	name = strings.TrimPrefix(name, "dbadmin_")
	for _, suffix := range []string{"_total", "_seconds"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.ReplaceAll(name, "_", ".")
}

func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
