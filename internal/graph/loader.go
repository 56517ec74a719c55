package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PipelineDoc is the top-level YAML shape of a pipeline definition file.
type PipelineDoc struct {
	Name string `yaml:"name"`
	// ComputePool optionally pins the pipeline to a compute pool regardless
	// of the target environment's default.
	ComputePool string           `yaml:"compute_pool"`
	Tasks       []TaskDefinition `yaml:"tasks"`
}

// LoadPipeline reads a pipeline definition from a YAML file and builds a
// validated TaskGraph from it.
func LoadPipeline(path string) (*TaskGraph, error) {
	cleanPath := filepath.Clean(path)

	// #nosec G304 -- path is provided by user configuration
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file %s: %w", cleanPath, err)
	}

	var doc PipelineDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file %s: %w", cleanPath, err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("pipeline file %s: name is required", cleanPath)
	}

	g, err := Build(doc.Name, doc.Tasks)
	if err != nil {
		return nil, err
	}
	g.ComputePool = doc.ComputePool
	return g, nil
}
