package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks startup.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is logged and startup continues.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the flag.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var knownDrivers = map[string]struct{}{
	"postgres":  {},
	"sqlserver": {},
	"mysql":     {},
	"sqlite":    {},
}

// Validate performs static checks over cfg. It does not mutate cfg.
func Validate(cfg *Config) []Issue {
	var issues []Issue
	issues = append(issues, validateDB(cfg)...)
	issues = append(issues, validateLogging(cfg)...)
	issues = append(issues, validateMetrics(cfg)...)

	if strings.TrimSpace(cfg.Addr) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "addr",
			Message:  "addr must not be empty",
		})
	}
	if cfg.Seed && !cfg.Bootstrap {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "seed",
			Message:  "seed has no effect without bootstrap",
		})
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateDB(cfg *Config) []Issue {
	var issues []Issue

	if _, ok := knownDrivers[cfg.DBDriver]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db_driver",
			Message:  fmt.Sprintf("unknown driver %q; want postgres, sqlserver, mysql or sqlite", cfg.DBDriver),
		})
		return issues
	}

	if cfg.DBDriver == "postgres" {
		if cfg.DSN == "" && strings.TrimSpace(cfg.DBHost) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "db_host",
				Message:  "postgres needs either dsn or db_host",
			})
		}
	} else {
		if strings.TrimSpace(cfg.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "dsn",
				Message:  fmt.Sprintf("%s requires a full dsn", cfg.DBDriver),
			})
		}
		if cfg.DBSearchPath != "" && cfg.DBSearchPath != "assignment" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "db_search_path",
				Message:  fmt.Sprintf("search path is only applied by postgres; ignored for %s", cfg.DBDriver),
			})
		}
	}
	return issues
}

func validateLogging(cfg *Config) []Issue {
	var issues []Issue
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log_level",
			Message:  err.Error(),
		})
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log_format",
			Message:  fmt.Sprintf("unknown log format %q; want json or console", cfg.LogFormat),
		})
	}
	return issues
}

func validateMetrics(cfg *Config) []Issue {
	var issues []Issue
	switch cfg.MetricsBackend {
	case MetricsNone, "":
		if cfg.PushgatewayURL != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "pushgateway_url",
				Message:  "pushgateway_url is set but metrics_backend is none",
			})
		}
	case MetricsPrometheus:
		if cfg.PushgatewayURL != "" {
			if u, err := url.Parse(cfg.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "pushgateway_url",
					Message:  fmt.Sprintf("pushgateway_url %q is not an absolute URL", cfg.PushgatewayURL),
				})
			}
		}
	case MetricsDatadog:
		if strings.TrimSpace(cfg.DogStatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "dogstatsd_addr",
				Message:  "datadog metrics need dogstatsd_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics_backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want none, prometheus or datadog", cfg.MetricsBackend),
		})
	}
	return issues
}
