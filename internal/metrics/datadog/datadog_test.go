package datadog

import (
	"strings"
	"testing"
	"time"

	"dbadmin/internal/metrics"
)

type sent struct {
	kind  string
	name  string
	value float64
	tags  []string
	rate  float64
}

type recorder struct {
	sent   []sent
	closed int
}

func (r *recorder) Count(name string, value int64, tags []string, rate float64) error {
	r.sent = append(r.sent, sent{"count", name, float64(value), tags, rate})
	return nil
}

func (r *recorder) Histogram(name string, value float64, tags []string, rate float64) error {
	r.sent = append(r.sent, sent{"histogram", name, value, tags, rate})
	return nil
}

func (r *recorder) Timing(name string, value time.Duration, tags []string, rate float64) error {
	r.sent = append(r.sent, sent{"timing", name, float64(value.Milliseconds()), tags, rate})
	return nil
}

func (r *recorder) Close() error {
	r.closed++
	return nil
}

func TestNewBackend(t *testing.T) {
	if _, err := NewBackend(Config{Addr: " "}); err == nil {
		t.Fatal("expected error for empty address")
	}

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", GlobalTags: []string{"env:test"}, SampleRate: 7})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.rate != 1 {
		t.Fatalf("out-of-range sample rate kept: %v", b.rate)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestMetricName(t *testing.T) {
	tests := map[string]string{
		metrics.StatementTotal:    "statements",
		metrics.StatementDuration: "statement.duration",
		metrics.ReadTotal:         "table.reads",
		metrics.ReportTotal:       "reports",
		"custom_gauge":            "custom.gauge",
	}
	for in, want := range tests {
		if got := metricName(in); got != want {
			t.Errorf("metricName(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestStatementMetrics drives the backend through the package-level
// recorders, the way the crud service does.
func TestStatementMetrics(t *testing.T) {
	rec := &recorder{}
	metrics.SetBackend(&Backend{client: rec, rate: 0.5})
	t.Cleanup(metrics.Reset)

	metrics.RecordStatement("Country", "create", "success", 250*time.Millisecond)
	metrics.RecordRead("Disease", nil)
	if err := metrics.Flush(); err != nil {
		t.Fatal(err)
	}

	if len(rec.sent) != 3 || rec.closed != 1 {
		t.Fatalf("sent = %+v closed = %d", rec.sent, rec.closed)
	}
	count, timing, read := rec.sent[0], rec.sent[1], rec.sent[2]
	if count.kind != "count" || count.name != "statements" || count.rate != 1 {
		t.Fatalf("count = %+v", count)
	}
	if got := strings.Join(count.tags, ","); got != "op:create,outcome:success,table:Country" {
		t.Fatalf("tags = %s", got)
	}
	if timing.kind != "timing" || timing.name != "statement.duration" || timing.value != 250 || timing.rate != 0.5 {
		t.Fatalf("timing = %+v", timing)
	}
	if read.name != "table.reads" || strings.Join(read.tags, ",") != "status:success,table:Disease" {
		t.Fatalf("read = %+v", read)
	}
}

func TestHistogramForNonDurations(t *testing.T) {
	rec := &recorder{}
	b := &Backend{client: rec, rate: 1}
	b.ObserveHistogram("dbadmin_form_fields", 4, metrics.Labels{"table": "Users"})
	if len(rec.sent) != 1 || rec.sent[0].kind != "histogram" || rec.sent[0].name != "form.fields" {
		t.Fatalf("sent = %+v", rec.sent)
	}
}

func TestNilClient(t *testing.T) {
	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x_seconds", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if tags(nil) != nil {
		t.Fatal("tags(nil) != nil")
	}
}
