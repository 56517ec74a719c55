package deploy

import "fmt"

// DeploymentError records a backend operation that failed after validation
// passed. Partial application is possible and is not rolled back; the
// accompanying DeploymentResult tells the caller what was applied.
type DeploymentError struct {
	Task string
	Op   string
	Err  error
}

func (e *DeploymentError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("deployment: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("deployment: task %s: %s: %v", e.Task, e.Op, e.Err)
}

func (e *DeploymentError) Unwrap() error { return e.Err }
