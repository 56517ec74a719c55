// Package routing maps CI branch names to target environments. It lives
// outside the deployment core: the surrounding CI system uses it to decide
// which environment to promote into and whether to gate the promotion
// behind a manual approval step.
package routing

import (
	"fmt"
	"strings"

	"github.com/loykin/dagdeploy/internal/config"
	"github.com/loykin/dagdeploy/internal/policy"
)

// Rule maps a branch pattern to a target environment. Patterns are either
// exact branch names or a prefix followed by "/**".
type Rule struct {
	Pattern     string
	Environment string
}

// DefaultRules is the canonical promotion routing table.
var DefaultRules = []Rule{
	{Pattern: "feature/**", Environment: config.EnvDEV},
	{Pattern: "development", Environment: config.EnvSIT},
	{Pattern: "release/**", Environment: config.EnvUAT},
	{Pattern: "main", Environment: config.EnvPRD},
}

// Route resolves a branch name to its target environment and whether the
// promotion requires approval, using the default routing table.
func Route(branch string) (environment string, approvalRequired bool, err error) {
	return RouteWith(DefaultRules, branch)
}

// RouteWith resolves branch against an explicit rule set, first match wins.
func RouteWith(rules []Rule, branch string) (string, bool, error) {
	name := strings.TrimSpace(branch)
	if name == "" {
		return "", false, fmt.Errorf("routing: branch name is empty")
	}
	for _, r := range rules {
		if matches(r.Pattern, name) {
			return r.Environment, policy.RequiresApproval(r.Environment), nil
		}
	}
	return "", false, fmt.Errorf("routing: no rule matches branch %q", name)
}

func matches(pattern, branch string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return strings.HasPrefix(branch, prefix+"/")
	}
	return pattern == branch
}
