package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jamledger/stmt-ingest/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfig_Defaults(t *testing.T) {
	clearTestEnvVars(t)

	config, err := InitializeConfigWithFile(writeConfig(t, "log:\n  level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, "J$", config.Currency.Marker)
	assert.Equal(t, 1, config.PDF.SkipLeadingPages)
	assert.Equal(t, 2, config.PDF.SkipTrailingPages)
	assert.Equal(t, []float64{30, 630, 600, 60}, config.PDF.TableArea)
	assert.Equal(t, 2.0, config.PDF.LineTolerance)
	assert.Equal(t, 8.0, config.PDF.ColumnGap)
	assert.Empty(t, config.PDF.Columns)
	assert.Equal(t, []string{"date", "transaction", "0"}, config.Statement.HeaderTokens)
	assert.Equal(t, Columns{Date: 0, Description: 1, Credit: 2, Debit: 3, Balance: 4}, config.Statement.Columns)
	assert.Equal(t, "transaction_classifier.gob", config.Model.Path)
	assert.Equal(t, 2*time.Second, config.ModelTimeout())
	assert.Equal(t, "#808080", config.Categories.DefaultColor)
	assert.Equal(t, "tag", config.Categories.DefaultIcon)
	assert.Equal(t, time.Minute, config.CategoryCacheTTL())
	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, 1, config.Processing.Workers)
	assert.Equal(t, 100, config.Processing.BatchSize)
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)

	testEnvVars := map[string]string{
		"STMT_LOG_LEVEL":               "debug",
		"STMT_LOG_FORMAT":              "json",
		"STMT_CURRENCY_MARKER":         "JMD",
		"STMT_PDF_TABLE_AREA":          "20,700,580,40",
		"STMT_MODEL_TIMEOUT_MS":        "250",
		"STMT_DATABASE_DRIVER":         "postgres",
		"STMT_DATABASE_DSN":            "host=db user=ingest dbname=ledger",
		"STMT_PROCESSING_WORKERS":      "4",
		"STMT_STATEMENT_COLUMNS_DEBIT": "5",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := InitializeConfigWithFile(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "JMD", config.Currency.Marker)
	assert.Equal(t, []float64{20, 700, 580, 40}, config.PDF.TableArea)
	assert.Equal(t, 250*time.Millisecond, config.ModelTimeout())
	assert.Equal(t, "postgres", config.Database.Driver)
	assert.Equal(t, "host=db user=ingest dbname=ledger", config.Database.DSN)
	assert.Equal(t, 4, config.Processing.Workers)
	assert.Equal(t, 5, config.Statement.Columns.Debit)
}

func TestInitializeConfig_ConfigFile(t *testing.T) {
	clearTestEnvVars(t)

	path := writeConfig(t, `
log:
  level: warn
pdf:
  skip_leading_pages: 0
  columns: [95, 300, 420, 510]
statement:
  header_tokens: ["date", "posted"]
  columns:
    balance: -1
model:
  path: /models/classifier.gob
  labels_path: /models/labels.yaml
categories:
  cache_ttl_seconds: 0
`)

	config, err := InitializeConfigWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, 0, config.PDF.SkipLeadingPages)
	assert.Equal(t, []float64{95, 300, 420, 510}, config.PDF.Columns)
	assert.Equal(t, []string{"date", "posted"}, config.Statement.HeaderTokens)
	assert.Equal(t, -1, config.Statement.Columns.Balance)
	assert.Equal(t, 3, config.Statement.Columns.Debit)
	assert.Equal(t, "/models/labels.yaml", config.Model.LabelsPath)
	assert.Equal(t, time.Duration(0), config.CategoryCacheTTL())
}

func TestInitializeConfig_HierarchicalPrecedence(t *testing.T) {
	clearTestEnvVars(t)

	path := writeConfig(t, "log:\n  level: warn\nprocessing:\n  workers: 2\n")
	t.Setenv("STMT_LOG_LEVEL", "error")

	config, err := InitializeConfigWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level, "environment overrides file")
	assert.Equal(t, 2, config.Processing.Workers, "file overrides default")
}

func TestInitializeConfig_MissingExplicitFile(t *testing.T) {
	clearTestEnvVars(t)

	_, err := InitializeConfigWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"currency marker", func(c *Config) { c.Currency.Marker = " " }},
		{"negative margins", func(c *Config) { c.PDF.SkipTrailingPages = -1 }},
		{"area size", func(c *Config) { c.PDF.TableArea = []float64{1, 2, 3} }},
		{"area order", func(c *Config) { c.PDF.TableArea = []float64{600, 630, 30, 60} }},
		{"area vertical order", func(c *Config) { c.PDF.TableArea = []float64{30, 60, 600, 630} }},
		{"tolerance", func(c *Config) { c.PDF.LineTolerance = 0 }},
		{"no description", func(c *Config) { c.Statement.Columns.Description = -1 }},
		{"no amount columns", func(c *Config) { c.Statement.Columns.Credit, c.Statement.Columns.Debit = -1, -1 }},
		{"timeout", func(c *Config) { c.Model.TimeoutMS = 0 }},
		{"cache ttl", func(c *Config) { c.Categories.CacheTTLSeconds = -5 }},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"workers", func(c *Config) { c.Processing.Workers = 0 }},
		{"batch size", func(c *Config) { c.Processing.BatchSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			require.NoError(t, validateConfig(c))
			tt.mutate(c)
			assert.Error(t, validateConfig(c))
		})
	}
}

func TestNewDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()
	require.NoError(t, validateConfig(c))
	assert.Equal(t, "J$", c.Currency.Marker)
	assert.Equal(t, []float64{30, 630, 600, 60}, c.PDF.TableArea)
	assert.Equal(t, "", c.Categories.DefaultsFile)
	assert.Equal(t, 2*time.Second, c.ModelTimeout())
	assert.Equal(t, time.Minute, c.CategoryCacheTTL())
}

func TestConfigureLoggingFromConfig(t *testing.T) {
	c := validConfig()
	c.Log.Level = "DEBUG"
	c.Log.Format = "json"

	logger := ConfigureLoggingFromConfig(c)
	require.NotNil(t, logger)
	_, ok := logger.(*logging.LogrusAdapter)
	assert.True(t, ok)
}

func TestLoadEnvFrom(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STMT_TEST_FROM_DOTENV=yes\n"), 0o600))
	t.Setenv("STMT_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("STMT_TEST_FROM_DOTENV"))

	loaded := loadEnvFrom(filepath.Join(dir, "missing.env"), envFile)

	assert.Equal(t, envFile, loaded)
	assert.Equal(t, "yes", os.Getenv("STMT_TEST_FROM_DOTENV"))
	assert.Equal(t, "", loadEnvFrom(filepath.Join(dir, "missing.env")))
}

func validConfig() *Config {
	c := &Config{}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Currency.Marker = "J$"
	c.PDF.SkipLeadingPages = 1
	c.PDF.SkipTrailingPages = 2
	c.PDF.TableArea = []float64{30, 630, 600, 60}
	c.PDF.LineTolerance = 2
	c.PDF.ColumnGap = 8
	c.Statement.Columns = Columns{Date: 0, Description: 1, Credit: 2, Debit: 3, Balance: 4}
	c.Model.TimeoutMS = 2000
	c.Categories.CacheTTLSeconds = 60
	c.Database.Driver = "sqlite"
	c.Processing.Workers = 1
	c.Processing.BatchSize = 100
	return c
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearTestEnvVars blanks every STMT_ variable for the duration of the test.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] != '=' {
				continue
			}
			key := kv[:i]
			if len(key) > len(EnvPrefix) && key[:len(EnvPrefix)+1] == EnvPrefix+"_" {
				t.Setenv(key, "")
				require.NoError(t, os.Unsetenv(key))
			}
			break
		}
	}
}
