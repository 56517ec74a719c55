package backend

import "context"

// TaskSpec is the desired definition of a scheduled task: an opaque body
// reference plus the dependency edges and compute pool it should carry.
type TaskSpec struct {
	Name         string
	Body         string
	Predecessors []string
	ComputePool  string
}

// TaskState is a task as observed on the backend. The backend is the sole
// source of truth for deployed state; this component never caches it beyond
// one invocation.
type TaskState struct {
	Name         string
	Body         string
	Predecessors []string
	ComputePool  string
	Suspended    bool
}

// Backend abstracts the remote scheduler's per-object task operations. Each
// method is a single synchronous remote call; callers bound latency with the
// supplied context. Implementations: the SQL-API adapter (sqlapi package)
// and recording fakes in tests.
type Backend interface {
	// ListTasks returns all tasks currently present in the target namespace.
	ListTasks(ctx context.Context) ([]TaskState, error)
	// CreateTask creates a task that does not yet exist, wiring its
	// dependency edges. Predecessor tasks must already exist.
	CreateTask(ctx context.Context, spec TaskSpec) error
	// ReplaceTask destructively replaces an existing task's definition.
	ReplaceTask(ctx context.Context, spec TaskSpec) error
	// SetSchedule sets the recurring cadence, in hours, on a root task.
	SetSchedule(ctx context.Context, name string, cadenceHours int) error
	// Resume activates a task's schedule.
	Resume(ctx context.Context, name string) error
	// Suspend deactivates a task's schedule.
	Suspend(ctx context.Context, name string) error
	// Execute triggers one manual run of a task.
	Execute(ctx context.Context, name string) error
}
