package commands

import (
	"log"
	"strings"

	"github.com/loykin/dagdeploy/cmd/dagdeploy/config"
	"github.com/spf13/viper"
)

// loadConfigDoc loads the CLI configuration file if one is configured.
// A missing or unreadable file is tolerated; flags and environment
// variables then supply everything.
func loadConfigDoc() config.ConfigDoc {
	var doc config.ConfigDoc
	path := strings.TrimSpace(viper.GetViper().GetString("config"))
	if path == "" {
		return doc
	}
	if err := doc.Load(path); err != nil {
		log.Printf("warning: failed to load config: %v", err)
	}
	return doc
}

// environmentsPath resolves the environments file: flag/env first, then the
// config document, then the packaged default.
func environmentsPath(doc config.ConfigDoc) string {
	if p := strings.TrimSpace(viper.GetViper().GetString("environments")); p != "" {
		return p
	}
	if p := strings.TrimSpace(doc.EnvironmentsFile); p != "" {
		return p
	}
	return "./config/environments.yaml"
}

// pipelinePath resolves the pipeline file with the same precedence.
func pipelinePath(doc config.ConfigDoc) string {
	if p := strings.TrimSpace(viper.GetViper().GetString("pipeline")); p != "" {
		return p
	}
	if p := strings.TrimSpace(doc.PipelineFile); p != "" {
		return p
	}
	return "./config/pipeline.yaml"
}
