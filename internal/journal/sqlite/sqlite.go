package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/dagdeploy/internal/journal"
	_ "modernc.org/sqlite"
)

// DbFileName is the default filename for the deployment journal database.
const DbFileName = "dagdeploy.db"

// Config holds sqlite-specific journal settings.
type Config struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Connector stores journal records in a local SQLite file.
type Connector struct {
	Config Config
	db     *sql.DB
}

var _ journal.Connector = (*Connector)(nil)

func (c *Connector) Load(config map[string]interface{}) error {
	return mapstructure.Decode(config, &c.Config)
}

func (c *Connector) Validate() error {
	if c.Config.Path == "" {
		return errors.New("sqlite journal: path is required")
	}
	return nil
}

func (c *Connector) Connect() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", c.Config.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	c.db = db
	return nil
}

func (c *Connector) Ensure() error {
	if _, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS deployments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		environment TEXT NOT NULL,
		pipeline TEXT NOT NULL,
		root_state TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	)`); err != nil {
		return err
	}
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS deployment_tasks (
		deployment_id INTEGER NOT NULL,
		task TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(deployment_id) REFERENCES deployments(id)
	)`)
	return err
}

func (c *Connector) Record(ctx context.Context, rec journal.Record) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO deployments(environment, pipeline, root_state, recorded_at) VALUES(?, ?, ?, ?)`,
		rec.Environment, rec.Pipeline, rec.RootState, rec.RecordedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, t := range rec.Tasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deployment_tasks(deployment_id, task, status, error) VALUES(?, ?, ?, ?)`,
			id, t.Task, t.Status, t.Error); err != nil {
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
		query += ` WHERE environment = ?`
		args = append(args, environment)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []journal.Record
	for rows.Next() {
		var rec journal.Record
		var ts string
		if err := rows.Scan(&rec.ID, &rec.Environment, &rec.Pipeline, &rec.RootState, &ts); err != nil {
			return nil, err
		}
		rec.RecordedAt, _ = time.Parse(time.RFC3339, ts)
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
		`SELECT task, status, error FROM deployment_tasks WHERE deployment_id = ? ORDER BY rowid ASC`, deploymentID)
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
