// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading accepts context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Default source locations and table settings.
const (
	DefaultSourceURL     = "https://web.archive.org/web/20230908091635/https://en.wikipedia.org/wiki/List_of_largest_banks"
	DefaultRateSourceURL = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/IBMSkillsNetwork-PY0221EN-Coursera/labs/v2/exchange_rate.csv"
	DefaultTableName     = "Largest_banks"
	DefaultRecordLimit   = 10
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the structured log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// SourceURL is the page holding the largest-banks table.
	SourceURL string `koanf:"source_url"`

	// RateSourceURL is the CSV rate table (Currency,Rate); a local path works too.
	RateSourceURL string `koanf:"rate_source_url"`

	// CSVPath is where the enriched table is written.
	CSVPath string `koanf:"csv_path"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// TableName is replaced on every run.
	TableName string `koanf:"table_name"`

	// ProgressLogPath is the append-only progress log.
	ProgressLogPath string `koanf:"progress_log_path"`

	// RecordLimit caps the number of extracted rows.
	RecordLimit int `koanf:"record_limit"`

	// NameColumn and MarketCapColumn are the source table headers to project.
	NameColumn      string `koanf:"name_column"`
	MarketCapColumn string `koanf:"market_cap_column"`

	// FetchTimeoutMS bounds every HTTP fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// UserAgent is sent with HTTP fetches.
	UserAgent string `koanf:"user_agent"`

	// MetricsTextfile, when set, receives the Prometheus exposition at the end of a run.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBucketsMS overrides the stage duration histogram buckets.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`

	// Queries run against the loaded table, in order.
	Queries []string `koanf:"queries"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		SourceURL:        DefaultSourceURL,
		RateSourceURL:    DefaultRateSourceURL,
		CSVPath:          "./Largest_banks_data.csv",
		DBPath:           "Banks.db",
		TableName:        DefaultTableName,
		ProgressLogPath:  "code_log.txt",
		RecordLimit:      DefaultRecordLimit,
		NameColumn:       "Bank name",
		MarketCapColumn:  "Market cap (US$ billion)",
		FetchTimeoutMS:   30_000,
		UserAgent:        "bankrank/1.0 (+https://github.com/okian/bankrank)",
		MetricsNamespace: "bankrank",
		MetricsSubsystem: "etl",
		Queries:          DefaultQueries(DefaultTableName),
	}
}

// DefaultQueries returns the three fixed analytical queries for table.
func DefaultQueries(table string) []string {
	return []string{
		"SELECT * FROM " + table,
		"SELECT AVG(MC_GBP_Billion) FROM " + table,
		"SELECT Name FROM " + table + " LIMIT 5",
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.SourceURL) == "":
		return fmt.Errorf("%w: source_url must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.RateSourceURL) == "":
		return fmt.Errorf("%w: rate_source_url must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.CSVPath) == "":
		return fmt.Errorf("%w: csv_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ProgressLogPath) == "":
		return fmt.Errorf("%w: progress_log_path must not be empty", ErrInvalidConfig)
	case !tableNamePattern.MatchString(c.TableName):
		return fmt.Errorf("%w: table_name %q is not a valid identifier", ErrInvalidConfig, c.TableName)
	case c.RecordLimit <= 0:
		return fmt.Errorf("%w: record_limit must be positive", ErrInvalidConfig)
	case c.FetchTimeoutMS <= 0:
		return fmt.Errorf("%w: fetch_timeout_ms must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.NameColumn) == "" || strings.TrimSpace(c.MarketCapColumn) == "":
		return fmt.Errorf("%w: name_column and market_cap_column must not be empty", ErrInvalidConfig)
	}
	return nil
}
