// Command dbadmin serves the schema-driven admin UI.
//
// Usage:
//
//	DB_DSN=postgres://... dbadmin -addr :8080
//	dbadmin -db_driver sqlite -dsn file:admin.db -bootstrap -seed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"dbadmin/internal/config"
	"dbadmin/internal/crud"
	"dbadmin/internal/ddl"
	"dbadmin/internal/gateway"
	"dbadmin/internal/logging"
	"dbadmin/internal/metrics"
	"dbadmin/internal/metrics/datadog"
	"dbadmin/internal/metrics/prom"
	"dbadmin/internal/schema"
	"dbadmin/internal/webui"

	// register every backend; DB_DRIVER picks one.
	_ "dbadmin/internal/gateway/all"
)

func main() {
	validate := flag.Bool("validate", false, "validate the configuration and exit")
	cfg := config.Load()

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		os.Exit(2)
	}
	if *validate {
		os.Exit(0)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("dbadmin stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	reg, err := loadRegistry(cfg.SchemaFile)
	if err != nil {
		return err
	}
	log.Info("schema loaded", zap.Strings("tables", reg.Tables()), zap.String("file", cfg.SchemaFile))

	gw, err := gateway.Open(ctx, gateway.Config{
		Kind:       cfg.DBDriver,
		DSN:        cfg.ConnString(),
		SearchPath: cfg.DBSearchPath,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	defer gw.Close()
	log.Info("database connected", zap.String("driver", cfg.DBDriver), zap.String("dsn", cfg.Redacted()))

	if cfg.Bootstrap {
		if err := ddl.Bootstrap(ctx, gw, gw.Dialect(), ddl.DiseaseTables(), cfg.Seed); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		log.Info("schema bootstrapped", zap.Bool("seed", cfg.Seed))
	}

	scrape, err := setupMetrics(cfg, "dbadmin")
	if err != nil {
		return err
	}
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}()

	srv := webui.NewServer(webui.Config{Addr: cfg.Addr, Metrics: scrape}, crud.NewService(reg, gw, log), log)
	log.Info("listening", zap.String("addr", cfg.Addr), zap.String("metrics", cfg.MetricsBackend))
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadRegistry reads the schema file, or returns the built-in disease
// schema when path is empty.
func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.Default(), nil
	}
	reg, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return reg, nil
}

// setupMetrics installs the configured metrics backend. For prometheus it
// returns the scrape handler.
func setupMetrics(cfg *config.Config, job string) (http.Handler, error) {
	switch cfg.MetricsBackend {
	case config.MetricsPrometheus:
		b, err := prom.NewBackend(job, cfg.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
		return b.Handler(), nil
	case config.MetricsDatadog:
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.DogStatsdAddr,
			Namespace:  job + ".",
			GlobalTags: []string{"service:" + job},
		})
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metrics.SetBackend(b)
	}
	return nil, nil
}
