package providers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fusapp/swarmbender/internal/config"
)

func writeAllowlist(t *testing.T, dir, name string, patterns []string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	b := `["` + joinQuoted(patterns) + `"]`
	if err := os.WriteFile(filepath.Join(dir, name), []byte(b), 0o644); err != nil {
		t.Fatal(err)
	}
}

func joinQuoted(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += `","`
		}
		out += s
	}
	return out
}

func TestEnvProvider_MatchesAllowlistedVars(t *testing.T) {
	root := t.TempDir()
	writeAllowlist(t, filepath.Join(root, "stacks", "app"), "use-envvars.json", []string{"SB_TEST_*"})

	t.Setenv("SB_TEST_FOO", "bar")
	t.Setenv("UNRELATED_VAR", "nope")

	p := &EnvProvider{}
	out, err := p.Collect(context.Background(), root, "app", "dev")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if out["SB_TEST_FOO"] != "bar" {
		t.Fatalf("expected allowlisted var collected, got %#v", out)
	}
	if _, ok := out["UNRELATED_VAR"]; ok {
		t.Fatalf("expected unrelated var excluded")
	}
}

func TestEnvProvider_NoAllowlistFilesIsEmpty(t *testing.T) {
	root := t.TempDir()
	p := &EnvProvider{}
	out, err := p.Collect(context.Background(), root, "app", "dev")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %#v", out)
	}
}

func TestEnvProvider_CustomAllowlistGlob(t *testing.T) {
	root := t.TempDir()
	writeAllowlist(t, filepath.Join(root, "custom"), "allow.json", []string{"SB_CUSTOM_*"})
	t.Setenv("SB_CUSTOM_X", "1")

	p := &EnvProvider{Config: config.EnvProviderConfig{AllowlistFileSearch: []string{"custom/*.json"}}}
	out, err := p.Collect(context.Background(), root, "app", "dev")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if out["SB_CUSTOM_X"] != "1" {
		t.Fatalf("expected custom allowlisted var collected, got %#v", out)
	}
}
