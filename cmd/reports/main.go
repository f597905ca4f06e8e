// Command reports runs the analytical report battery and prints each result
// as an aligned table.
//
// Usage:
//
//	reports -list
//	reports -query 4
//	reports -all
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"dbadmin/internal/config"
	"dbadmin/internal/gateway"
	"dbadmin/internal/logging"
	"dbadmin/internal/metrics"
	"dbadmin/internal/metrics/datadog"
	"dbadmin/internal/metrics/prom"
	"dbadmin/internal/reports"

	_ "dbadmin/internal/gateway/all"
)

func main() {
	var (
		query int
		all   bool
		list  bool
	)
	flag.IntVar(&query, "query", 0, "run the report with this id")
	flag.BoolVar(&all, "all", false, "run every report in order")
	flag.BoolVar(&list, "list", false, "list the reports and exit")
	cfg := config.Load()

	if list {
		printCatalog(os.Stdout)
		return
	}
	selected, err := selectReports(query, all)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, selected, os.Stdout, log)
	stop()
	if err != nil {
		log.Error("reports stopped", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run opens the database and runs the selected reports. Metrics are flushed
// and the database closed before it returns, whatever the outcome.
func run(ctx context.Context, cfg *config.Config, selected []reports.Report, w io.Writer, log *zap.Logger) error {
	if err := setupMetrics(cfg); err != nil {
		log.Warn("metrics disabled", zap.Error(err))
	}
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}()

	gw, err := gateway.Open(ctx, gateway.Config{
		Kind:       cfg.DBDriver,
		DSN:        cfg.ConnString(),
		SearchPath: cfg.DBSearchPath,
	})
	if err != nil {
		return fmt.Errorf("open %s (%s): %w", cfg.DBDriver, cfg.Redacted(), err)
	}
	defer gw.Close()

	if failed := runAll(ctx, gw, selected, w, log); failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(selected))
	}
	return nil
}

// selectReports turns the -query / -all flags into the reports to run.
func selectReports(query int, all bool) ([]reports.Report, error) {
	switch {
	case all && query != 0:
		return nil, fmt.Errorf("use either -query or -all, not both")
	case all:
		return reports.All(), nil
	case query != 0:
		r, err := reports.ByID(query)
		if err != nil {
			return nil, err
		}
		return []reports.Report{r}, nil
	}
	return nil, fmt.Errorf("nothing to run: pass -query N or -all")
}

// runAll runs each report in turn and prints its result. A failing report
// is logged and the rest still run. It returns the number of failures.
func runAll(ctx context.Context, db reports.Runner, rs []reports.Report, w io.Writer, log *zap.Logger) int {
	failed := 0
	for _, r := range rs {
		out, err := reports.Run(ctx, db, r)
		if err != nil {
			failed++
			log.Error("report failed", zap.Int("report", r.ID), zap.Error(err))
			fmt.Fprintf(w, "-- %d. %s\nerror: %v\n\n", r.ID, r.Title, err)
			continue
		}
		log.Debug("report run", zap.Int("report", r.ID), zap.Duration("took", out.Took))
		printOutcome(w, out)
	}
	return failed
}

func printOutcome(w io.Writer, out reports.Outcome) {
	fmt.Fprintf(w, "-- %d. %s\n", out.Report.ID, out.Report.Title)
	switch out.Report.Kind {
	case reports.Mutation:
		fmt.Fprintf(w, "%s rows affected\n\n", humanize.Comma(out.Affected))
		return
	case reports.Schema:
		fmt.Fprint(w, "done\n\n")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	cols := out.Table.ColumnNames()
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	rule := make([]string, len(cols))
	for i, c := range cols {
		rule[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))
	for _, raw := range out.Table.Rows {
		cells := make([]string, len(raw))
		for i, v := range raw {
			cells[i] = gateway.FormatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "(%s rows)\n\n", humanize.Comma(int64(len(out.Table.Rows))))
}

func printCatalog(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range reports.All() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.Kind, r.Title)
	}
	_ = tw.Flush()
}

// setupMetrics installs the configured backend. Batch runs push to the
// Pushgateway on Flush; there is nothing to scrape.
func setupMetrics(cfg *config.Config) error {
	switch cfg.MetricsBackend {
	case config.MetricsPrometheus:
		b, err := prom.NewBackend("reports", cfg.PushgatewayURL)
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	case config.MetricsDatadog:
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogStatsdAddr,
			Namespace:  "dbadmin.",
			GlobalTags: []string{"service:reports"},
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
	}
	return nil
}
