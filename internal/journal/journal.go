// Package journal provides an optional, audit-only record of deployment
// invocations. The in-memory DeploymentResult remains the caller contract;
// the journal exists so the status command can report past promotions.
// Disabled by default.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/dagdeploy/internal/retry"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// TaskRecord is one task's reconciliation outcome within a journal entry.
type TaskRecord struct {
	Task   string
	Status string
	Error  string
}

// Record is one deployment invocation as persisted in the journal.
type Record struct {
	ID          int64
	Environment string
	Pipeline    string
	RootState   string
	RecordedAt  time.Time
	Tasks       []TaskRecord
}

// Config selects and configures a journal driver. It is decoded from the
// CLI configuration's journal section.
type Config struct {
	Enabled  bool                   `mapstructure:"enabled" yaml:"enabled"`
	Type     string                 `mapstructure:"type" yaml:"type"`
	Sqlite   map[string]interface{} `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres map[string]interface{} `mapstructure:"postgres" yaml:"postgres"`
}

// FromMap decodes a generic configuration map into the receiver.
func (c *Config) FromMap(m map[string]interface{}) error {
	return mapstructure.Decode(m, c)
}

// Journal records deployment outcomes through a Connector, retrying
// transient database failures.
type Journal struct {
	conn       Connector
	retryCfg   *retry.Config
	driverName string
}

// New wraps an already-loaded connector.
func New(conn Connector, driverName string) *Journal {
	return &Journal{conn: conn, retryCfg: retry.DefaultConfig(), driverName: driverName}
}

// Driver returns the active driver name.
func (j *Journal) Driver() string { return j.driverName }

// Open validates, connects and bootstraps the connector.
func Open(conn Connector, driverName string) (*Journal, error) {
	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("journal config invalid: %w", err)
	}
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("journal connect: %w", err)
	}
	if err := conn.Ensure(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return New(conn, driverName), nil
}

// RecordDeployment appends one invocation record.
func (j *Journal) RecordDeployment(ctx context.Context, rec Record) (int64, error) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	var id int64
	err := retry.WithRetry(ctx, j.retryCfg, func() error {
		var rerr error
		id, rerr = j.conn.Record(ctx, rec)
		return rerr
	})
	return id, err
}

// ListDeployments returns the most recent records for an environment,
// newest first. An empty environment matches all.
func (j *Journal) ListDeployments(ctx context.Context, environment string, limit int) ([]Record, error) {
	var out []Record
	err := retry.WithRetry(ctx, j.retryCfg, func() error {
		var rerr error
		out, rerr = j.conn.List(ctx, environment, limit)
		return rerr
	})
	return out, err
}

// Close releases the underlying connection.
func (j *Journal) Close() error {
	if j == nil || j.conn == nil {
		return nil
	}
	return j.conn.Close()
}
