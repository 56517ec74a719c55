// Package deploy reconciles a desired task graph against the backend's
// observed state and applies the environment's scheduling policy.
package deploy

import (
	"context"
	"sort"
	"strings"

	"github.com/loykin/dagdeploy/internal/backend"
	"github.com/loykin/dagdeploy/internal/common"
	"github.com/loykin/dagdeploy/internal/config"
	"github.com/loykin/dagdeploy/internal/graph"
	"github.com/loykin/dagdeploy/internal/policy"
)

// Deployer reconciles one validated task graph per invocation. It holds no
// state between invocations; the backend is the sole source of truth.
type Deployer struct {
	Backend backend.Backend
}

// Deploy walks the graph in topological order (parents before children, the
// only order under which dependency edges can be declared), creating,
// replacing or skipping each task, then applies the schedule policy to the
// roots. The first backend failure stops further creation; already-applied
// changes are not rolled back.
func (d *Deployer) Deploy(ctx context.Context, g *graph.TaskGraph, cfg config.EnvironmentConfig) (*DeploymentResult, error) {
	logger := common.GetLogger().WithComponent("deployer").WithEnvironment(cfg.Name).WithPipeline(g.Name)

	result := &DeploymentResult{
		Pipeline:      g.Name,
		Environment:   cfg.Name,
		PerTaskStatus: map[string]TaskStatus{},
	}

	observed, err := d.Backend.ListTasks(ctx)
	if err != nil {
		derr := &DeploymentError{Op: "list tasks", Err: err}
		result.Errors = append(result.Errors, derr)
		return result, derr
	}
	byName := make(map[string]backend.TaskState, len(observed))
	for _, t := range observed {
		byName[t.Name] = t
	}

	logger.Info("reconciling task graph", "tasks", len(g.Tasks), "observed", len(observed))

	pool := cfg.ComputePool
	if g.ComputePool != "" {
		pool = g.ComputePool
	}

	for _, name := range g.TopologicalOrder() {
		def, _ := g.Task(name)
		spec := backend.TaskSpec{
			Name:         def.Name,
			Body:         def.Body,
			Predecessors: def.After,
			ComputePool:  pool,
		}

		existing, present := byName[name]
		switch {
		case !present:
			if err := d.Backend.CreateTask(ctx, spec); err != nil {
				return result, d.fail(result, logger, name, "create", err)
			}
			result.PerTaskStatus[name] = StatusCreated
			logger.WithTask(name).Info("task created")
		case specMatchesState(spec, existing):
			result.PerTaskStatus[name] = StatusUnchanged
			logger.WithTask(name).Debug("task unchanged")
		default:
			if err := d.Backend.ReplaceTask(ctx, spec); err != nil {
				return result, d.fail(result, logger, name, "replace", err)
			}
			result.PerTaskStatus[name] = StatusUpdated
			logger.WithTask(name).Info("task replaced")
		}
	}

	if err := d.applySchedulePolicy(ctx, g, cfg, result, logger); err != nil {
		return result, err
	}
	return result, nil
}

// applySchedulePolicy activates the roots of approval-gated (production
// class) environments with the configured cadence and leaves everything
// else suspended, firing one manual run so the deployed graph can be
// verified without waiting for a schedule.
func (d *Deployer) applySchedulePolicy(ctx context.Context, g *graph.TaskGraph, cfg config.EnvironmentConfig, result *DeploymentResult, logger *common.Logger) error {
	if pol, perr := policy.For(cfg.Name); perr == nil && pol.ApprovalRequired != cfg.ApprovalRequired {
		logger.Warn("environment approval flag disagrees with promotion policy",
			"config", cfg.ApprovalRequired, "policy", pol.ApprovalRequired)
	}

	for _, root := range g.Roots() {
		if cfg.ApprovalRequired {
			if err := d.Backend.SetSchedule(ctx, root, cfg.ScheduleCadenceHours); err != nil {
				return d.fail(result, logger, root, "set schedule", err)
			}
			if err := d.Backend.Resume(ctx, root); err != nil {
				return d.fail(result, logger, root, "resume", err)
			}
			logger.WithTask(root).Info("root schedule activated", "cadence_hours", cfg.ScheduleCadenceHours)
		} else {
			if err := d.Backend.Suspend(ctx, root); err != nil {
				return d.fail(result, logger, root, "suspend", err)
			}
			if err := d.Backend.Execute(ctx, root); err != nil {
				return d.fail(result, logger, root, "execute", err)
			}
			logger.WithTask(root).Info("root left suspended, manual run triggered")
		}
	}

	if cfg.ApprovalRequired {
		result.RootScheduleState = ScheduleActive
	} else {
		result.RootScheduleState = ScheduleSuspended
	}
	return nil
}

func (d *Deployer) fail(result *DeploymentResult, logger *common.Logger, task, op string, err error) error {
	derr := &DeploymentError{Task: task, Op: op, Err: err}
	result.PerTaskStatus[task] = StatusFailed
	result.Errors = append(result.Errors, derr)
	logger.WithTask(task).Error("backend operation failed", "op", op, "error", err)
	return derr
}

// specMatchesState reports whether the observed task already carries the
// desired definition: same normalized body, same predecessor set and same
// compute pool (when the backend reports one).
func specMatchesState(spec backend.TaskSpec, state backend.TaskState) bool {
	if normalizeBody(spec.Body) != normalizeBody(state.Body) {
		return false
	}
	if state.ComputePool != "" && !strings.EqualFold(spec.ComputePool, state.ComputePool) {
		return false
	}
	return sameNameSet(spec.Predecessors, state.Predecessors)
}

// normalizeBody collapses whitespace so formatting-only differences do not
// trigger a destructive replace.
func normalizeBody(body string) string {
	return strings.Join(strings.Fields(body), " ")
}

func sameNameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if !strings.EqualFold(as[i], bs[i]) {
			return false
		}
	}
	return true
}
