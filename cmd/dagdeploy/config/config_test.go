package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
environments_file: ./config/environments.yaml
pipeline_file: ./config/pipeline.yaml
client:
  insecure: true
logging:
  level: debug
  format: json
journal:
  enabled: true
  type: sqlite
  sqlite:
    path: /tmp/journal-test/dagdeploy.db
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dagdeploy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigDocLoad(t *testing.T) {
	var doc ConfigDoc
	if err := doc.Load(writeConfig(t, sampleConfig)); err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.EnvironmentsFile != "./config/environments.yaml" {
		t.Fatalf("environments_file = %q", doc.EnvironmentsFile)
	}
	if doc.PipelineFile != "./config/pipeline.yaml" {
		t.Fatalf("pipeline_file = %q", doc.PipelineFile)
	}
	if !doc.Client.Insecure {
		t.Fatalf("client.insecure not decoded")
	}
	if doc.Logging.Level != "debug" || doc.Logging.Format != "json" {
		t.Fatalf("logging = %+v", doc.Logging)
	}
	if !doc.Journal.Enabled || doc.Journal.Type != "sqlite" {
		t.Fatalf("journal = %+v", doc.Journal)
	}
}

func TestConfigDocLoad_Directory(t *testing.T) {
	var doc ConfigDoc
	if err := doc.Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestSetupLogging(t *testing.T) {
	var doc ConfigDoc
	doc.Logging.Level = "info"
	doc.Logging.Format = "text"
	if err := doc.SetupLogging(); err != nil {
		t.Fatalf("setup: %v", err)
	}

	doc.Logging.Level = "verbose"
	if err := doc.SetupLogging(); err == nil {
		t.Fatalf("expected error for invalid level")
	}

	doc.Logging.Level = "info"
	doc.Logging.Format = "xml"
	if err := doc.SetupLogging(); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestOpenJournal_Disabled(t *testing.T) {
	var doc ConfigDoc
	j, err := doc.OpenJournal()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if j != nil {
		t.Fatalf("expected nil journal when disabled")
	}
}

func TestOpenJournal_UnknownType(t *testing.T) {
	var doc ConfigDoc
	doc.Journal.Enabled = true
	doc.Journal.Type = "oracle"
	if _, err := doc.OpenJournal(); err == nil {
		t.Fatalf("expected error for unknown journal type")
	}
}

func TestOpenJournal_Sqlite(t *testing.T) {
	var doc ConfigDoc
	doc.Journal.Enabled = true
	doc.Journal.Type = "sqlite"
	doc.Journal.Sqlite = map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "journal.db"),
	}
	j, err := doc.OpenJournal()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = j.Close() }()
	if j.Driver() != "sqlite" {
		t.Fatalf("driver = %q", j.Driver())
	}
}
