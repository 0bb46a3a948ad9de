package validator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	path := filepath.Join(root, "ops", "sb.yml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func writeDockerStub(t *testing.T, exitCode int) func() {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docker")
	stub := "#!/bin/sh\nexit " + itoa(exitCode) + "\n"
	if runtime.GOOS == "windows" {
		t.Skip("docker stub is a POSIX shell script")
	}
	if err := os.WriteFile(path, []byte(stub), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	oldPath := os.Getenv("PATH")
	os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath)
	return func() { os.Setenv("PATH", oldPath) }
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	return string(rune('0' + n))
}

func TestDoctor_ConfigParseFailureShortCircuits(t *testing.T) {
	tmp := t.TempDir()
	results := Doctor(context.Background(), tmp)
	if len(results) != 1 {
		t.Fatalf("expected a single short-circuited result, got %#v", results)
	}
	if results[0].Status != StatusFail {
		t.Fatalf("expected fail status, got %#v", results[0])
	}
}

func TestDoctor_DockerCLIEngineReachable(t *testing.T) {
	restore := writeDockerStub(t, 0)
	defer restore()

	tmp := t.TempDir()
	writeConfig(t, tmp, "secrets:\n  engine:\n    type: docker-cli\n")

	results := Doctor(context.Background(), tmp)
	var engine CheckResult
	for _, r := range results {
		if r.ID == "engine" {
			engine = r
		}
	}
	if engine.Status != StatusPass {
		t.Fatalf("expected engine check to pass, got %#v", engine)
	}
}

func TestDoctor_DockerCLIEngineUnreachable(t *testing.T) {
	restore := writeDockerStub(t, 1)
	defer restore()

	tmp := t.TempDir()
	writeConfig(t, tmp, "secrets:\n  engine:\n    type: docker-cli\n")

	results := Doctor(context.Background(), tmp)
	var engine CheckResult
	for _, r := range results {
		if r.ID == "engine" {
			engine = r
		}
	}
	if engine.Status != StatusFail {
		t.Fatalf("expected engine check to fail, got %#v", engine)
	}
}

func TestDoctor_RemoteStoreNotConfiguredPasses(t *testing.T) {
	tmp := t.TempDir()
	writeConfig(t, tmp, "secrets:\n  engine:\n    type: docker-cli\n")
	restore := writeDockerStub(t, 0)
	defer restore()

	results := Doctor(context.Background(), tmp)
	var remote CheckResult
	for _, r := range results {
		if r.ID == "remote-store" {
			remote = r
		}
	}
	if remote.Status != StatusPass {
		t.Fatalf("expected remote-store check to pass when unconfigured, got %#v", remote)
	}
}

func TestDoctor_RemoteStoreEnabledWithoutCredentialsWarns(t *testing.T) {
	tmp := t.TempDir()
	writeConfig(t, tmp, "secrets:\n  engine:\n    type: docker-cli\nproviders:\n  infisical:\n    enabled: true\n")
	restore := writeDockerStub(t, 0)
	defer restore()

	oldID := os.Getenv("INFISICAL_CLIENT_ID")
	oldSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	os.Unsetenv("INFISICAL_CLIENT_ID")
	os.Unsetenv("INFISICAL_CLIENT_SECRET")
	defer func() {
		os.Setenv("INFISICAL_CLIENT_ID", oldID)
		os.Setenv("INFISICAL_CLIENT_SECRET", oldSecret)
	}()

	results := Doctor(context.Background(), tmp)
	var remote CheckResult
	for _, r := range results {
		if r.ID == "remote-store" {
			remote = r
		}
	}
	if remote.Status != StatusWarn {
		t.Fatalf("expected remote-store check to warn, got %#v", remote)
	}
}
