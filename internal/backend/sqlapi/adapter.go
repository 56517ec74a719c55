// Package sqlapi implements the backend interface against a scheduler
// exposing a Snowflake-style SQL REST API: task objects are managed with
// CREATE TASK / ALTER TASK statements submitted over HTTP.
package sqlapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/dagdeploy/internal/backend"
	"github.com/tidwall/gjson"
)

// Config carries the authenticated session parameters for the adapter.
type Config struct {
	Token     string
	TokenType string
	Role      string
	Warehouse string
	Database  string
	Schema    string
}

// Adapter is the real backend implementation. One Adapter targets one
// namespace (database.schema); each method is a single statement submission.
type Adapter struct {
	client *resty.Client
	cfg    Config
}

var _ backend.Backend = (*Adapter)(nil)

// New returns an Adapter using the given HTTP client and session config.
func New(client *resty.Client, cfg Config) *Adapter {
	return &Adapter{client: client, cfg: cfg}
}

func (a *Adapter) qualify(name string) string {
	return fmt.Sprintf("%s.%s.%s", a.cfg.Database, a.cfg.Schema, name)
}

// ListTasks runs SHOW TASKS in the target schema and maps the result rows
// to observed task states.
func (a *Adapter) ListTasks(ctx context.Context) ([]backend.TaskState, error) {
	res, err := a.submit(ctx, fmt.Sprintf("SHOW TASKS IN SCHEMA %s.%s", a.cfg.Database, a.cfg.Schema))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]backend.TaskState, 0, len(res.rows))
	for _, row := range res.rows {
		state := backend.TaskState{
			Name:        res.column(row, "name"),
			Body:        res.column(row, "definition"),
			ComputePool: res.column(row, "warehouse"),
			Suspended:   !strings.EqualFold(res.column(row, "state"), "started"),
		}
		// predecessors arrive as a JSON array of fully qualified names
		if preds := res.column(row, "predecessors"); preds != "" {
			gjson.Parse(preds).ForEach(func(_, p gjson.Result) bool {
				state.Predecessors = append(state.Predecessors, unqualify(p.String()))
				return true
			})
		}
		tasks = append(tasks, state)
	}
	return tasks, nil
}

// CreateTask issues CREATE TASK with the dependency edges of spec.
func (a *Adapter) CreateTask(ctx context.Context, spec backend.TaskSpec) error {
	if _, err := a.submit(ctx, a.createStatement(spec, false)); err != nil {
		return fmt.Errorf("create task %s: %w", spec.Name, err)
	}
	return nil
}

// ReplaceTask issues CREATE OR REPLACE TASK, destructively rebuilding the
// task object under the same name.
func (a *Adapter) ReplaceTask(ctx context.Context, spec backend.TaskSpec) error {
	if _, err := a.submit(ctx, a.createStatement(spec, true)); err != nil {
		return fmt.Errorf("replace task %s: %w", spec.Name, err)
	}
	return nil
}

// SetSchedule sets a recurring interval schedule on a root task.
func (a *Adapter) SetSchedule(ctx context.Context, name string, cadenceHours int) error {
	stmt := fmt.Sprintf("ALTER TASK %s SET SCHEDULE = '%d MINUTE'", a.qualify(name), cadenceHours*60)
	if _, err := a.submit(ctx, stmt); err != nil {
		return fmt.Errorf("set schedule on %s: %w", name, err)
	}
	return nil
}

// Resume activates the task's schedule.
func (a *Adapter) Resume(ctx context.Context, name string) error {
	if _, err := a.submit(ctx, fmt.Sprintf("ALTER TASK %s RESUME", a.qualify(name))); err != nil {
		return fmt.Errorf("resume %s: %w", name, err)
	}
	return nil
}

// Suspend deactivates the task's schedule.
func (a *Adapter) Suspend(ctx context.Context, name string) error {
	if _, err := a.submit(ctx, fmt.Sprintf("ALTER TASK %s SUSPEND", a.qualify(name))); err != nil {
		return fmt.Errorf("suspend %s: %w", name, err)
	}
	return nil
}

// Execute triggers one manual run of the task.
func (a *Adapter) Execute(ctx context.Context, name string) error {
	if _, err := a.submit(ctx, fmt.Sprintf("EXECUTE TASK %s", a.qualify(name))); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}
	return nil
}

func (a *Adapter) createStatement(spec backend.TaskSpec, orReplace bool) string {
	var b strings.Builder
	if orReplace {
		b.WriteString("CREATE OR REPLACE TASK ")
	} else {
		b.WriteString("CREATE TASK ")
	}
	b.WriteString(a.qualify(spec.Name))

	pool := spec.ComputePool
	if pool == "" {
		pool = a.cfg.Warehouse
	}
	fmt.Fprintf(&b, " WAREHOUSE = %s", pool)

	if len(spec.Predecessors) > 0 {
		qualified := make([]string, 0, len(spec.Predecessors))
		for _, p := range spec.Predecessors {
			qualified = append(qualified, a.qualify(p))
		}
		fmt.Fprintf(&b, " AFTER %s", strings.Join(qualified, ", "))
	}

	fmt.Fprintf(&b, " AS %s", spec.Body)
	return b.String()
}

// unqualify strips the database/schema prefix from a fully qualified name.
func unqualify(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
