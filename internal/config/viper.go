// Package config provides Viper-based hierarchical configuration for the ingestion tool.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"jamledger/stmt-ingest/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STMT_DATABASE_DSN.
const EnvPrefix = "STMT"

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Currency struct {
		Marker string `mapstructure:"marker" yaml:"marker"`
	} `mapstructure:"currency" yaml:"currency"`

	PDF struct {
		SkipLeadingPages  int       `mapstructure:"skip_leading_pages" yaml:"skip_leading_pages"`
		SkipTrailingPages int       `mapstructure:"skip_trailing_pages" yaml:"skip_trailing_pages"`
		TableArea         []float64 `mapstructure:"table_area" yaml:"table_area"`
		LineTolerance     float64   `mapstructure:"line_tolerance" yaml:"line_tolerance"`
		ColumnGap         float64   `mapstructure:"column_gap" yaml:"column_gap"`
		Columns           []float64 `mapstructure:"columns" yaml:"columns"`
	} `mapstructure:"pdf" yaml:"pdf"`

	Statement struct {
		HeaderTokens []string `mapstructure:"header_tokens" yaml:"header_tokens"`
		Columns      Columns  `mapstructure:"columns" yaml:"columns"`
	} `mapstructure:"statement" yaml:"statement"`

	Model struct {
		Path       string `mapstructure:"path" yaml:"path"`
		LabelsPath string `mapstructure:"labels_path" yaml:"labels_path"`
		TimeoutMS  int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	} `mapstructure:"model" yaml:"model"`

	Categories struct {
		DefaultColor    string `mapstructure:"default_color" yaml:"default_color"`
		DefaultIcon     string `mapstructure:"default_icon" yaml:"default_icon"`
		CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
		// DefaultsFile lists the global default categories; empty uses the built-in set.
		DefaultsFile string `mapstructure:"defaults_file" yaml:"defaults_file"`
	} `mapstructure:"categories" yaml:"categories"`

	Database struct {
		Driver string `mapstructure:"driver" yaml:"driver"`
		DSN    string `mapstructure:"dsn" yaml:"-"`
	} `mapstructure:"database" yaml:"database"`

	Processing struct {
		Workers   int `mapstructure:"workers" yaml:"workers"`
		BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	} `mapstructure:"processing" yaml:"processing"`
}

// Columns is the positional layout of a raw statement row. -1 marks an absent column.
type Columns struct {
	Date        int `mapstructure:"date" yaml:"date"`
	Description int `mapstructure:"description" yaml:"description"`
	Credit      int `mapstructure:"credit" yaml:"credit"`
	Debit       int `mapstructure:"debit" yaml:"debit"`
	Balance     int `mapstructure:"balance" yaml:"balance"`
}

// ModelTimeout returns the classifier call budget.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.Model.TimeoutMS) * time.Millisecond
}

// CategoryCacheTTL returns how long visible categories stay cached per user.
func (c *Config) CategoryCacheTTL() time.Duration {
	return time.Duration(c.Categories.CacheTTLSeconds) * time.Second
}

// InitializeConfig loads defaults, then config.yaml from the usual locations, then
// STMT_ environment variables.
func InitializeConfig() (*Config, error) {
	return InitializeConfigWithFile("")
}

// InitializeConfigWithFile is InitializeConfig reading an explicit config file instead
// of searching for one. A missing explicit file is an error.
func InitializeConfigWithFile(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Defaults
	setDefaults(v)

	// 2. Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.stmt-ingest")
		v.AddConfigPath(".stmt-ingest")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// NewDefaultConfig returns the built-in defaults without reading files or the
// environment.
func NewDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults always decode.
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("currency.marker", "J$")

	v.SetDefault("pdf.skip_leading_pages", 1)
	v.SetDefault("pdf.skip_trailing_pages", 2)
	v.SetDefault("pdf.table_area", []float64{30, 630, 600, 60})
	v.SetDefault("pdf.line_tolerance", 2.0)
	v.SetDefault("pdf.column_gap", 8.0)
	v.SetDefault("pdf.columns", []float64{})

	v.SetDefault("statement.header_tokens", []string{"date", "transaction", "0"})
	v.SetDefault("statement.columns.date", 0)
	v.SetDefault("statement.columns.description", 1)
	v.SetDefault("statement.columns.credit", 2)
	v.SetDefault("statement.columns.debit", 3)
	v.SetDefault("statement.columns.balance", 4)

	v.SetDefault("model.path", "transaction_classifier.gob")
	v.SetDefault("model.labels_path", "")
	v.SetDefault("model.timeout_ms", 2000)

	v.SetDefault("categories.default_color", "#808080")
	v.SetDefault("categories.default_icon", "tag")
	v.SetDefault("categories.cache_ttl_seconds", 60)
	v.SetDefault("categories.defaults_file", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "stmt-ingest.db")

	v.SetDefault("processing.workers", 1)
	v.SetDefault("processing.batch_size", 100)
}

// validateConfig validates the configuration values.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if strings.TrimSpace(config.Currency.Marker) == "" {
		return fmt.Errorf("currency.marker must not be empty")
	}

	if config.PDF.SkipLeadingPages < 0 || config.PDF.SkipTrailingPages < 0 {
		return fmt.Errorf("pdf page margins must not be negative, got: %d/%d",
			config.PDF.SkipLeadingPages, config.PDF.SkipTrailingPages)
	}

	if a := config.PDF.TableArea; len(a) != 4 || a[0] >= a[2] || a[1] <= a[3] {
		return fmt.Errorf("pdf.table_area must be x1,y1,x2,y2 with x1<x2 and y1>y2, got: %v", a)
	}

	if config.PDF.LineTolerance <= 0 || config.PDF.ColumnGap <= 0 {
		return fmt.Errorf("pdf.line_tolerance and pdf.column_gap must be positive")
	}

	cols := config.Statement.Columns
	if cols.Date < 0 || cols.Description < 0 || (cols.Credit < 0 && cols.Debit < 0) {
		return fmt.Errorf("statement.columns needs date, description and a credit or debit column")
	}

	if config.Model.TimeoutMS < 1 {
		return fmt.Errorf("model.timeout_ms must be at least 1, got: %d", config.Model.TimeoutMS)
	}

	if config.Categories.CacheTTLSeconds < 0 {
		return fmt.Errorf("categories.cache_ttl_seconds must not be negative, got: %d", config.Categories.CacheTTLSeconds)
	}

	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got: %s", config.Database.Driver)
	}

	if config.Processing.Workers < 1 {
		return fmt.Errorf("processing.workers must be at least 1, got: %d", config.Processing.Workers)
	}

	if config.Processing.BatchSize < 1 {
		return fmt.Errorf("processing.batch_size must be at least 1, got: %d", config.Processing.BatchSize)
	}

	return nil
}

// ConfigureLoggingFromConfig builds the application logger from the log section.
func ConfigureLoggingFromConfig(config *Config) logging.Logger {
	return logging.NewLogrusAdapter(strings.ToLower(config.Log.Level), strings.ToLower(config.Log.Format))
}
