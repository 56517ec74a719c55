package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/dagdeploy"
	"github.com/loykin/dagdeploy/internal/journal"
	"github.com/loykin/dagdeploy/internal/journal/postgresql"
	"github.com/loykin/dagdeploy/internal/journal/sqlite"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // error, warn, info, debug
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

type ClientConfig struct {
	// Insecure disables TLS verification (local stub schedulers only).
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`
}

type ConfigDoc struct {
	// EnvironmentsFile is the per-environment configuration YAML.
	EnvironmentsFile string `mapstructure:"environments_file" yaml:"environments_file"`
	// PipelineFile is the pipeline definition YAML.
	PipelineFile string         `mapstructure:"pipeline_file" yaml:"pipeline_file"`
	Client       ClientConfig   `mapstructure:"client" yaml:"client"`
	Logging      LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Journal      journal.Config `mapstructure:"journal" yaml:"journal"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	return dec.Decode(c)
}

func (c *ConfigDoc) parseLogLevel() (dagdeploy.LogLevel, error) {
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "error":
		return dagdeploy.LogLevelError, nil
	case "warn", "warning":
		return dagdeploy.LogLevelWarn, nil
	case "info", "":
		return dagdeploy.LogLevelInfo, nil
	case "debug":
		return dagdeploy.LogLevelDebug, nil
	default:
		return dagdeploy.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	var logger *dagdeploy.Logger
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "json":
		logger = dagdeploy.NewJSONLogger(level)
	case "text", "":
		logger = dagdeploy.NewLogger(level)
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json)", c.Logging.Format)
	}

	dagdeploy.SetDefaultLogger(logger)
	return nil
}

// OpenJournal builds and bootstraps the configured journal connector.
// Returns (nil, nil) when the journal is disabled.
func (c *ConfigDoc) OpenJournal() (*journal.Journal, error) {
	jc := c.Journal
	if !jc.Enabled {
		return nil, nil
	}
	driver := strings.ToLower(strings.TrimSpace(jc.Type))
	switch driver {
	case journal.DriverPostgres:
		conn := &postgresql.Connector{}
		if err := conn.Load(jc.Postgres); err != nil {
			return nil, err
		}
		return journal.Open(conn, journal.DriverPostgres)
	case journal.DriverSqlite, "":
		conn := &sqlite.Connector{}
		if err := conn.Load(jc.Sqlite); err != nil {
			return nil, err
		}
		return journal.Open(conn, journal.DriverSqlite)
	default:
		return nil, fmt.Errorf("unknown journal type: %s (valid: sqlite, postgres)", jc.Type)
	}
}
