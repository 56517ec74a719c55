package graph

import "sort"

// TaskDefinition is one named unit of work in a pipeline. Body is an opaque
// reference to the business logic the scheduler will execute (a stored
// procedure call or SQL statement); this component never interprets it.
type TaskDefinition struct {
	Name  string   `yaml:"name"`
	Body  string   `yaml:"body"`
	After []string `yaml:"after"`
}

// TaskGraph is a validated, acyclic set of task definitions. Construct via
// Build; a TaskGraph obtained any other way carries no validity guarantee.
type TaskGraph struct {
	Name  string
	Tasks []TaskDefinition
	// ComputePool optionally overrides the environment's compute pool for
	// every task in this pipeline.
	ComputePool string

	byName map[string]*TaskDefinition
}

// Task returns the definition for name, if present.
func (g *TaskGraph) Task(name string) (*TaskDefinition, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Roots returns the names of tasks with no predecessors, sorted. These are
// the entry points of scheduled execution. The canonical pipelines have
// exactly one root, but the model permits several.
func (g *TaskGraph) Roots() []string {
	var roots []string
	for _, t := range g.Tasks {
		if len(t.After) == 0 {
			roots = append(roots, t.Name)
		}
	}
	sort.Strings(roots)
	return roots
}
