package policy

import (
	"fmt"

	"github.com/loykin/dagdeploy/internal/config"
)

// Policy captures the approval and scheduling requirements of one
// environment along the promotion sequence. The deployer uses it to decide
// whether a deployed graph is activated; the surrounding CI system uses it
// to decide whether to gate an invocation behind a manual approval step.
// Enforcement of approval itself happens in CI, never here.
type Policy struct {
	ApprovalRequired     bool
	ScheduleCadenceHours int
}

// Production-class environments run on a recurring schedule; everything
// below PRD is deployed inert and triggered manually.
var table = map[string]Policy{
	config.EnvDEV: {ApprovalRequired: false, ScheduleCadenceHours: 24},
	config.EnvSIT: {ApprovalRequired: false, ScheduleCadenceHours: 24},
	config.EnvUAT: {ApprovalRequired: false, ScheduleCadenceHours: 24},
	config.EnvPRD: {ApprovalRequired: true, ScheduleCadenceHours: 24},
}

// For returns the promotion policy for the named environment.
func For(name string) (Policy, error) {
	p, ok := table[name]
	if !ok {
		return Policy{}, fmt.Errorf("no promotion policy for environment %q", name)
	}
	return p, nil
}

// RequiresApproval reports whether promotion into name must be gated by a
// manual approval step.
func RequiresApproval(name string) bool {
	p, ok := table[name]
	return ok && p.ApprovalRequired
}
