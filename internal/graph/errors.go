package graph

import (
	"fmt"
	"strings"
)

// GraphValidationError reports a duplicate task name, a dangling predecessor
// reference, or a dependency cycle. It is raised before any backend
// interaction, so the backend is never left in a changed state.
type GraphValidationError struct {
	Pipeline string
	Task     string
	Cycle    []string
	Reason   string
}

func (e *GraphValidationError) Error() string {
	var b strings.Builder
	b.WriteString("graph validation")
	if e.Pipeline != "" {
		fmt.Fprintf(&b, " (%s)", e.Pipeline)
	}
	b.WriteString(": ")
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&b, "dependency cycle: %s", strings.Join(e.Cycle, " -> "))
		return b.String()
	}
	if e.Task != "" {
		fmt.Fprintf(&b, "task %s: ", e.Task)
	}
	b.WriteString(e.Reason)
	return b.String()
}
