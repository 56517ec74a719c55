// Package dagdeploy deploys a declaratively defined task graph to a remote
// scheduler backend and reconciles it idempotently, applying per-environment
// scheduling policy along the DEV -> SIT -> UAT -> PRD promotion sequence.
package dagdeploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/loykin/dagdeploy/internal/backend"
	"github.com/loykin/dagdeploy/internal/backend/sqlapi"
	"github.com/loykin/dagdeploy/internal/common"
	"github.com/loykin/dagdeploy/internal/config"
	"github.com/loykin/dagdeploy/internal/connect"
	"github.com/loykin/dagdeploy/internal/deploy"
	"github.com/loykin/dagdeploy/internal/graph"
	"github.com/loykin/dagdeploy/internal/policy"
)

// Re-export commonly used types for public API

// EnvironmentConfig is the validated configuration of one target environment.
type EnvironmentConfig = config.EnvironmentConfig

// ConfigError reports an unknown environment or incomplete configuration.
type ConfigError = config.ConfigError

// TaskDefinition is one named unit of work with explicit dependencies.
type TaskDefinition = graph.TaskDefinition

// TaskGraph is a validated, acyclic set of task definitions.
type TaskGraph = graph.TaskGraph

// GraphValidationError reports a duplicate, dangling or cyclic definition.
type GraphValidationError = graph.GraphValidationError

// DeploymentResult enumerates per-task reconciliation outcomes.
type DeploymentResult = deploy.DeploymentResult

// DeploymentError records a failed backend operation.
type DeploymentError = deploy.DeploymentError

// AuthenticationError reports a missing or unusable connection context.
type AuthenticationError = connect.AuthenticationError

// ConnContext is the explicit connection context passed through the call chain.
type ConnContext = connect.Context

// ClientOptions tunes the HTTP client built from a connection context.
type ClientOptions = connect.ClientOptions

// Backend abstracts the remote scheduler's task operations.
type Backend = backend.Backend

// Policy captures one environment's approval and scheduling requirements.
type Policy = policy.Policy

// Logger re-exports for library users
type Logger = common.Logger
type LogLevel = common.LogLevel

const (
	LogLevelError = common.LogLevelError
	LogLevelWarn  = common.LogLevelWarn
	LogLevelInfo  = common.LogLevelInfo
	LogLevelDebug = common.LogLevelDebug
)

func NewLogger(level LogLevel) *Logger      { return common.NewLogger(level) }
func NewJSONLogger(level LogLevel) *Logger  { return common.NewJSONLogger(level) }
func SetDefaultLogger(l *Logger)            { common.SetDefaultLogger(l) }
func GetLogger() *Logger                    { return common.GetLogger() }

// EnvironmentNames returns the enumerated environment set in promotion order.
func EnvironmentNames() []string { return config.EnvironmentNames() }

// PolicyFor returns the promotion policy for the named environment. It is
// exposed so the surrounding CI system can decide whether to gate an
// invocation behind a manual approval step before calling Deploy at all.
func PolicyFor(name string) (Policy, error) { return policy.For(name) }

// LoadPipeline reads and validates a pipeline definition file.
func LoadPipeline(path string) (*TaskGraph, error) { return graph.LoadPipeline(path) }

// BuildGraph validates task definitions into a TaskGraph.
func BuildGraph(name string, defs []TaskDefinition) (*TaskGraph, error) {
	return graph.Build(name, defs)
}

// ConnContextFromEnv builds the connection context from process environment
// variables supplied by the CI system.
func ConnContextFromEnv() (*ConnContext, error) { return connect.FromEnv() }

// Options configures one deployment invocation.
type Options struct {
	// Environment is the target environment name (DEV, SIT, UAT, PRD).
	Environment string
	// EnvironmentsPath is the per-environment configuration YAML.
	EnvironmentsPath string
	// PipelinePath is the pipeline definition YAML.
	PipelinePath string
	// Connection supplies the backend endpoint and credentials. Ignored
	// when Backend is set.
	Connection *ConnContext
	// Backend overrides the real SQL-API adapter (embedded use, tests).
	Backend Backend
	// Insecure disables TLS verification for local stub schedulers.
	Insecure bool
}

// Deploy resolves the environment, builds the task graph and reconciles it
// against the backend. Validation errors surface before any backend call.
func (o Options) Deploy(ctx context.Context) (*DeploymentResult, error) {
	resolver, err := config.LoadResolver(o.EnvironmentsPath)
	if err != nil {
		return nil, err
	}
	cfg, err := resolver.Resolve(o.Environment)
	if err != nil {
		return nil, err
	}

	g, err := graph.LoadPipeline(o.PipelinePath)
	if err != nil {
		return nil, err
	}

	b := o.Backend
	if b == nil {
		if o.Connection == nil {
			return nil, &connect.AuthenticationError{Reason: "no connection context supplied"}
		}
		b, err = newSQLAPIBackend(ctx, o.Connection, cfg, o.Insecure)
		if err != nil {
			return nil, err
		}
	}

	d := &deploy.Deployer{Backend: b}
	return d.Deploy(ctx, g, cfg)
}

// newSQLAPIBackend authenticates the connection context and targets the
// adapter at the environment's namespace and compute pool.
func newSQLAPIBackend(ctx context.Context, cc *connect.Context, cfg config.EnvironmentConfig, insecure bool) (backend.Backend, error) {
	token, tokenType, err := cc.BearerToken(ctx)
	if err != nil {
		return nil, err
	}
	database, schema, err := splitNamespace(cfg.Namespace, cc)
	if err != nil {
		return nil, err
	}
	client := cc.NewClient(connect.ClientOptions{Insecure: insecure})
	return sqlapi.New(client, sqlapi.Config{
		Token:     token,
		TokenType: tokenType,
		Role:      cc.Role,
		Warehouse: cfg.ComputePool,
		Database:  database,
		Schema:    schema,
	}), nil
}

// splitNamespace splits "DATABASE.SCHEMA"; a bare schema name falls back to
// the connection context's default database.
func splitNamespace(ns string, cc *connect.Context) (database, schema string, err error) {
	parts := strings.SplitN(ns, ".", 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return parts[0], parts[1], nil
	}
	if cc.Database != "" && parts[0] != "" {
		return cc.Database, parts[0], nil
	}
	return "", "", fmt.Errorf("namespace %q is not DATABASE.SCHEMA and no default database is set", ns)
}
