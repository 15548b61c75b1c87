package main

import (
	"strings"
	"testing"

	"github.com/hyperengineering/praxis"
)

func TestVersion_Human_ShowsVersionInfo(t *testing.T) {
	testEnv(t)

	out := mustRun(t, "version")

	// Without ldflags, version shows "dev".
	if !strings.Contains(out, "praxis dev") {
		t.Errorf("dev build should show 'praxis dev', got: %s", out)
	}
	for _, label := range []string{"commit:", "built:", "schema:", "go:", "os:"} {
		if !strings.Contains(out, label) {
			t.Errorf("output should contain %q", label)
		}
	}
	if strings.Contains(out, "PRAXIS") {
		t.Error("banner should not be printed outside a terminal")
	}
}

func TestVersion_JSON_ReturnsValidJSON(t *testing.T) {
	testEnv(t)

	var result map[string]any
	decodeJSON(t, mustRun(t, "version", "--json"), &result)

	for _, field := range []string{"version", "commit", "date", "go", "os", "arch", "schema_version"} {
		if _, ok := result[field]; !ok {
			t.Errorf("JSON should have %q field", field)
		}
	}
	if result["version"] != "dev" {
		t.Errorf("version = %v, want dev", result["version"])
	}
	if result["schema_version"] != praxis.SchemaVersion {
		t.Errorf("schema_version = %v, want %s", result["schema_version"], praxis.SchemaVersion)
	}
}

func TestVersion_RejectsArgs(t *testing.T) {
	testEnv(t)

	if _, _, err := run(t, "version", "extra"); err == nil {
		t.Error("version should reject positional arguments")
	}
}
