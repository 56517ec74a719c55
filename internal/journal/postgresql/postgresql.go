package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loykin/dagdeploy/internal/journal"
)

// Config holds PostgreSQL-specific journal settings.
type Config struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

func (c Config) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslmode)
}

// Connector stores journal records in PostgreSQL via the pgx stdlib driver.
type Connector struct {
	Config Config
	db     *sql.DB
}

var _ journal.Connector = (*Connector)(nil)

func (c *Connector) Load(config map[string]interface{}) error {
	return mapstructure.Decode(config, &c.Config)
}

func (c *Connector) Validate() error {
	if c.Config.DSN != "" {
		return nil
	}
	if c.Config.Host == "" || c.Config.User == "" || c.Config.DBName == "" {
		return errors.New("postgres journal: host, user and dbname are required when no dsn is given")
	}
	return nil
}

func (c *Connector) Connect() error {
	db, err := sql.Open("pgx", c.Config.dsn())
	if err != nil {
		return err
	}
	c.db = db
	return nil
}

func (c *Connector) Ensure() error {
	if _, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS deployments (
		id BIGSERIAL PRIMARY KEY,
		environment TEXT NOT NULL,
		pipeline TEXT NOT NULL,
		root_state TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		return err
	}
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS deployment_tasks (
		deployment_id BIGINT NOT NULL REFERENCES deployments(id),
		seq INT NOT NULL,
		task TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

func (c *Connector) Record(ctx context.Context, rec journal.Record) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO deployments(environment, pipeline, root_state, recorded_at) VALUES($1, $2, $3, $4) RETURNING id`,
		rec.Environment, rec.Pipeline, rec.RootState, rec.RecordedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, err
	}
	for i, t := range rec.Tasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deployment_tasks(deployment_id, seq, task, status, error) VALUES($1, $2, $3, $4, $5)`,
			id, i, t.Task, t.Status, t.Error); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *Connector) List(ctx context.Context, environment string, limit int) ([]journal.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, environment, pipeline, root_state, recorded_at FROM deployments`
	args := []interface{}{}
	if environment != "" {
		query += ` WHERE environment = $1 ORDER BY id DESC LIMIT $2`
		args = append(args, environment, limit)
	} else {
		query += ` ORDER BY id DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []journal.Record
	for rows.Next() {
		var rec journal.Record
		var ts time.Time
		if err := rows.Scan(&rec.ID, &rec.Environment, &rec.Pipeline, &rec.RootState, &ts); err != nil {
			return nil, err
		}
		rec.RecordedAt = ts
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		tasks, err := c.tasksFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tasks = tasks
	}
	return out, nil
}

func (c *Connector) tasksFor(ctx context.Context, deploymentID int64) ([]journal.TaskRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT task, status, error FROM deployment_tasks WHERE deployment_id = $1 ORDER BY seq ASC`, deploymentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []journal.TaskRecord
	for rows.Next() {
		var t journal.TaskRecord
		if err := rows.Scan(&t.Task, &t.Status, &t.Error); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *Connector) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
