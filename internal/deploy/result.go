package deploy

// TaskStatus is the reconciliation outcome for one task within an invocation.
type TaskStatus string

const (
	StatusCreated   TaskStatus = "created"
	StatusUpdated   TaskStatus = "updated"
	StatusUnchanged TaskStatus = "unchanged"
	StatusFailed    TaskStatus = "failed"
)

// ScheduleState is the post-deployment schedule state of the graph's roots.
type ScheduleState string

const (
	ScheduleActive    ScheduleState = "active"
	ScheduleSuspended ScheduleState = "suspended"
)

// DeploymentResult enumerates exactly which tasks succeeded and which
// failed, so the caller can re-invoke or remediate manually. Tasks never
// attempted (because an earlier task failed) are absent from PerTaskStatus.
// The result is produced once per invocation and not persisted here.
type DeploymentResult struct {
	Pipeline          string
	Environment       string
	PerTaskStatus     map[string]TaskStatus
	RootScheduleState ScheduleState
	Errors            []*DeploymentError
}

// Failed reports whether any task failed during the invocation.
func (r *DeploymentResult) Failed() bool {
	return len(r.Errors) > 0
}
