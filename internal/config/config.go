package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Known environment names along the promotion sequence.
const (
	EnvDEV = "DEV"
	EnvSIT = "SIT"
	EnvUAT = "UAT"
	EnvPRD = "PRD"
)

// EnvironmentNames returns the enumerated environment set in promotion order.
func EnvironmentNames() []string {
	return []string{EnvDEV, EnvSIT, EnvUAT, EnvPRD}
}

// IsKnownEnvironment reports whether name is part of the enumerated set.
func IsKnownEnvironment(name string) bool {
	switch name {
	case EnvDEV, EnvSIT, EnvUAT, EnvPRD:
		return true
	}
	return false
}

// ConfigError reports an unknown environment or an incomplete environment entry.
// It is always produced before any graph construction or backend interaction.
type ConfigError struct {
	Environment string
	Reason      string
}

func (e *ConfigError) Error() string {
	if e.Environment == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: environment %s: %s", e.Environment, e.Reason)
}

// EnvironmentConfig is the fully resolved, validated configuration for one
// target environment. Instances are constructed fresh on every invocation
// and hold no persisted state.
type EnvironmentConfig struct {
	Name                 string `yaml:"-"`
	ComputePool          string `yaml:"compute_pool"`
	Namespace            string `yaml:"namespace"`
	ScheduleCadenceHours int    `yaml:"schedule_cadence_hours"`
	ApprovalRequired     bool   `yaml:"approval_required"`
	DataVolumeTier       string `yaml:"data_volume_tier"`
}

// entry is the raw YAML shape before defaults are applied. Pointer fields
// distinguish "absent" from zero values so defaults only fill gaps.
type entry struct {
	ComputePool          string `yaml:"compute_pool"`
	Namespace            string `yaml:"namespace"`
	ScheduleCadenceHours *int   `yaml:"schedule_cadence_hours"`
	ApprovalRequired     *bool  `yaml:"approval_required"`
	DataVolumeTier       string `yaml:"data_volume_tier"`
}

// Document is the declarative per-environment configuration source:
// one entry per enumerated environment plus an optional default section
// whose values fill fields an environment entry leaves empty.
type Document struct {
	Default      entry            `yaml:"default"`
	Environments map[string]entry `yaml:"environments"`
}

// Load reads the document from a YAML file.
func (d *Document) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user/CI; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(d); err != nil {
		return fmt.Errorf("failed to decode environments configuration: %w", err)
	}
	return nil
}

// Resolver resolves environment names against a loaded Document.
type Resolver struct {
	doc Document
}

// NewResolver returns a Resolver over the given document.
func NewResolver(doc Document) *Resolver {
	return &Resolver{doc: doc}
}

// LoadResolver loads a Document from path and wraps it in a Resolver.
func LoadResolver(path string) (*Resolver, error) {
	var doc Document
	if err := doc.Load(path); err != nil {
		return nil, err
	}
	return NewResolver(doc), nil
}

// Resolve produces a validated EnvironmentConfig for name. It fails with
// ConfigError when name is outside the enumerated set or when a required
// field remains empty after defaults are applied. Pure: no side effects.
func (r *Resolver) Resolve(name string) (EnvironmentConfig, error) {
	if !IsKnownEnvironment(name) {
		return EnvironmentConfig{}, &ConfigError{
			Environment: name,
			Reason:      fmt.Sprintf("unknown environment (valid: %v)", EnvironmentNames()),
		}
	}
	e, ok := r.doc.Environments[name]
	if !ok {
		return EnvironmentConfig{}, &ConfigError{Environment: name, Reason: "no configuration entry"}
	}

	cfg := EnvironmentConfig{Name: name}

	cfg.ComputePool = firstNonEmpty(e.ComputePool, r.doc.Default.ComputePool)
	cfg.Namespace = firstNonEmpty(e.Namespace, r.doc.Default.Namespace)
	cfg.DataVolumeTier = firstNonEmpty(e.DataVolumeTier, r.doc.Default.DataVolumeTier)

	switch {
	case e.ScheduleCadenceHours != nil:
		cfg.ScheduleCadenceHours = *e.ScheduleCadenceHours
	case r.doc.Default.ScheduleCadenceHours != nil:
		cfg.ScheduleCadenceHours = *r.doc.Default.ScheduleCadenceHours
	}
	switch {
	case e.ApprovalRequired != nil:
		cfg.ApprovalRequired = *e.ApprovalRequired
	case r.doc.Default.ApprovalRequired != nil:
		cfg.ApprovalRequired = *r.doc.Default.ApprovalRequired
	}

	if missing := cfg.missingFields(); len(missing) > 0 {
		sort.Strings(missing)
		return EnvironmentConfig{}, &ConfigError{
			Environment: name,
			Reason:      fmt.Sprintf("missing required fields: %v", missing),
		}
	}
	return cfg, nil
}

func (c EnvironmentConfig) missingFields() []string {
	var missing []string
	if c.ComputePool == "" {
		missing = append(missing, "compute_pool")
	}
	if c.Namespace == "" {
		missing = append(missing, "namespace")
	}
	if c.ScheduleCadenceHours <= 0 {
		missing = append(missing, "schedule_cadence_hours")
	}
	if c.DataVolumeTier == "" {
		missing = append(missing, "data_volume_tier")
	}
	return missing
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
