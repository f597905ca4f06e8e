// Package config centralizes process configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable,
// so `-help` lists all knobs and containers can be configured by env alone.
//
// Typical usage:
//
//	cfg := config.Load() // reads os.Args and os.Environ
//
// Tests stay hermetic with LoadFromArgs:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	cfg, err := config.LoadFromArgs(fs, func(k string) string { return env[k] }, nil)
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Metrics backend names accepted by METRICS_BACKEND.
const (
	MetricsNone       = "none"
	MetricsPrometheus = "prometheus"
	MetricsDatadog    = "datadog"
)

// Config holds the settings of cmd/dbadmin and cmd/reports. All fields are
// plain values; a Config may be copied freely after loading.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DB selects the backend. DSN wins when set; otherwise a Postgres
	// connection string is built from the discrete parts.
	DBDriver     string
	DSN          string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSearchPath string

	// SchemaFile is an optional YAML schema registry. Empty selects the
	// built-in disease schema.
	SchemaFile string

	// Bootstrap creates the disease tables when missing; Seed also loads
	// the sample rows.
	Bootstrap bool
	Seed      bool

	LogLevel  string
	LogFormat string

	MetricsBackend string
	PushgatewayURL string
	DogStatsdAddr  string
}

// LoadFromArgs defines flags on fs, seeds each default from getenv and
// parses args. Explicit flags override environment values.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	boolEnvOr := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	fs.StringVar(&cfg.Addr, "addr", envOr("ADDR", ":8080"), "HTTP listen address")

	fs.StringVar(&cfg.DBDriver, "db_driver", envOr("DB_DRIVER", "postgres"), "Database backend: postgres, sqlserver, mysql or sqlite")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for every backend except postgres)")
	fs.StringVar(&cfg.DBHost, "db_host", envOr("DB_HOST", "localhost"), "DB host (postgres)")
	fs.StringVar(&cfg.DBPort, "db_port", envOr("DB_PORT", "5432"), "DB port (postgres)")
	fs.StringVar(&cfg.DBUser, "db_user", envOr("DB_USER", "postgres"), "DB user (postgres)")
	fs.StringVar(&cfg.DBPassword, "db_password", getenv("DB_PASSWORD"), "DB password (postgres)")
	fs.StringVar(&cfg.DBName, "db_name", envOr("DB_NAME", "postgres"), "DB name (postgres)")
	fs.StringVar(&cfg.DBSearchPath, "db_search_path", envOr("DB_SEARCH_PATH", "assignment"), "Postgres search_path for every connection")

	fs.StringVar(&cfg.SchemaFile, "schema_file", getenv("SCHEMA_FILE"), "YAML schema registry; empty uses the built-in disease schema")
	fs.BoolVar(&cfg.Bootstrap, "bootstrap", boolEnvOr("BOOTSTRAP", false), "Create missing disease tables at startup")
	fs.BoolVar(&cfg.Seed, "seed", boolEnvOr("SEED", false), "With -bootstrap, insert the sample rows")

	fs.StringVar(&cfg.LogLevel, "log_level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log_format", envOr("LOG_FORMAT", "json"), "Log format: json or console")

	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOr("METRICS_BACKEND", MetricsNone), "Metrics backend: none, prometheus or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway URL for batch runs")
	fs.StringVar(&cfg.DogStatsdAddr, "dogstatsd_addr", envOr("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Load is the production entry point: the process flag set, os.Getenv and
// os.Args[1:]. flag.CommandLine exits on parse errors.
func Load() *Config {
	cfg, err := LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// ConnString returns the DSN to open. An explicit DSN is used as is. For
// postgres without a DSN, a URL is assembled from the discrete parts.
func (c *Config) ConnString() string {
	if c.DSN != "" || c.DBDriver != "postgres" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.DBHost + ":" + c.DBPort,
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else if c.DBUser != "" {
		u.User = url.User(c.DBUser)
	}
	return u.String()
}

// Redacted returns ConnString with any password replaced, for logs.
func (c *Config) Redacted() string {
	cs := c.ConnString()
	u, err := url.Parse(cs)
	if err != nil || u.User == nil {
		return cs
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
