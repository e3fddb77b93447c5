package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "base.yaml", `
telemetry:
  service_name: my-agent
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Executor.MaxTurns != 10 {
		t.Errorf("MaxTurns = %d, want default 10", cfg.Executor.MaxTurns)
	}
	if cfg.Telemetry.ServiceName != "my-agent" {
		t.Errorf("ServiceName = %q, want override to stick", cfg.Telemetry.ServiceName)
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
executor:
  max_turns: 3
`)
	mainPath := writeFile(t, dir, "main.yaml", `
$include: base.yaml
telemetry:
  service_name: included-agent
`)

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Executor.MaxTurns != 3 {
		t.Errorf("MaxTurns = %d, want included value 3", cfg.Executor.MaxTurns)
	}
	if cfg.Telemetry.ServiceName != "included-agent" {
		t.Errorf("ServiceName = %q, want including file's own value to win", cfg.Telemetry.ServiceName)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("AGENTCORE_SERVICE_NAME", "env-agent")
	dir := t.TempDir()
	path := writeFile(t, dir, "env.yaml", `
telemetry:
  service_name: ${AGENTCORE_SERVICE_NAME}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telemetry.ServiceName != "env-agent" {
		t.Errorf("ServiceName = %q, want expanded env var", cfg.Telemetry.ServiceName)
	}
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, dir, "a.yaml", "$include: b.yaml\n")
	writeFile(t, dir, "b.yaml", "$include: a.yaml\n")
	_ = a
	_ = b

	if _, err := Load(filepath.Join(dir, "a.yaml")); err == nil {
		t.Fatal("expected include cycle error")
	}
}
