package graph

import (
	"fmt"
	"sort"
)

// Build validates definitions and returns a TaskGraph. Validation order:
// unique names, resolvable predecessor references (no self-reference),
// acyclicity. Pure: it performs no backend interaction and must run to
// completion before any deployment begins.
func Build(name string, defs []TaskDefinition) (*TaskGraph, error) {
	if len(defs) == 0 {
		return nil, &GraphValidationError{Pipeline: name, Reason: "no task definitions"}
	}

	byName := make(map[string]*TaskDefinition, len(defs))
	for i := range defs {
		d := &defs[i]
		if d.Name == "" {
			return nil, &GraphValidationError{Pipeline: name, Reason: fmt.Sprintf("task %d: name is required", i)}
		}
		if _, exists := byName[d.Name]; exists {
			return nil, &GraphValidationError{Pipeline: name, Task: d.Name, Reason: "duplicate task name"}
		}
		byName[d.Name] = d
	}

	for _, d := range defs {
		for _, pred := range d.After {
			if pred == d.Name {
				return nil, &GraphValidationError{Pipeline: name, Task: d.Name, Reason: "task depends on itself"}
			}
			if _, ok := byName[pred]; !ok {
				return nil, &GraphValidationError{
					Pipeline: name,
					Task:     d.Name,
					Reason:   fmt.Sprintf("predecessor %s is not defined", pred),
				}
			}
		}
	}

	g := &TaskGraph{Name: name, Tasks: defs, byName: byName}
	if cycle := g.detectCycle(); cycle != nil {
		return nil, &GraphValidationError{Pipeline: name, Cycle: cycle}
	}
	return g, nil
}

// detectCycle runs DFS over the predecessor relation tracking a "visiting"
// (in-stack) set; reaching a node still in the stack signals a cycle. The
// returned slice is the cycle path, closed on the repeated node.
func (g *TaskGraph) detectCycle() []string {
	// successor adjacency: predecessor -> dependents
	edges := make(map[string][]string, len(g.Tasks))
	for _, t := range g.Tasks {
		for _, pred := range t.After {
			edges[pred] = append(edges[pred], t.Name)
		}
	}

	visited := make(map[string]bool, len(g.Tasks))
	inStack := make(map[string]bool, len(g.Tasks))

	names := make([]string, 0, len(g.Tasks))
	for _, t := range g.Tasks {
		names = append(names, t.Name)
	}
	sort.Strings(names)

	var dfs func(node string, path []string) []string
	dfs = func(node string, path []string) []string {
		visited[node] = true
		inStack[node] = true
		path = append(path, node)

		for _, next := range edges[node] {
			if inStack[next] {
				start := 0
				for i, n := range path {
					if n == next {
						start = i
						break
					}
				}
				return append(path[start:], next)
			}
			if !visited[next] {
				if cycle := dfs(next, path); cycle != nil {
					return cycle
				}
			}
		}

		inStack[node] = false
		return nil
	}

	for _, n := range names {
		if !visited[n] {
			if cycle := dfs(n, nil); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalOrder returns task names with every predecessor ahead of its
// dependents, using Kahn's algorithm. Ready nodes are sorted at each step so
// the order is deterministic. Build has already rejected cyclic graphs.
func (g *TaskGraph) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.Tasks))
	edges := make(map[string][]string, len(g.Tasks))
	for _, t := range g.Tasks {
		inDegree[t.Name] += 0
		for _, pred := range t.After {
			edges[pred] = append(edges[pred], t.Name)
			inDegree[t.Name]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.Tasks))
	for len(queue) > 0 {
		batch := queue
		queue = nil
		sort.Strings(batch)
		for _, current := range batch {
			order = append(order, current)
			for _, next := range edges[current] {
				inDegree[next]--
				if inDegree[next] == 0 {
					queue = append(queue, next)
				}
			}
		}
	}
	return order
}
