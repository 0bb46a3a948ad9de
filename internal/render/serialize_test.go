package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fusapp/swarmbender/internal/compose"
	"github.com/fusapp/swarmbender/internal/secretize"
)

func TestQuoteIfAmbiguous(t *testing.T) {
	cases := map[string]string{
		"true":        `"true"`,
		"YES":         `"YES"`,
		"off":         `"off"`,
		"null":        `"null"`,
		"plain":       "plain",
		" padded":     `" padded"`,
		"trailing  ":  `"trailing  "`,
		"alpine:3.20": "alpine:3.20",
	}
	for in, want := range cases {
		if got := quoteIfAmbiguous(in); got != want {
			t.Errorf("quoteIfAmbiguous(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSerializeStack_WritesYAMLAndQuotesAmbiguousScalars(t *testing.T) {
	root := t.TempDir()
	working := &compose.File{
		Services: map[string]*compose.Service{
			"api": {Image: "alpine:3.20", User: "yes"},
		},
	}
	ctx := &Context{
		Request: Request{RootPath: root, StackID: "app", Env: "dev", OutDir: filepath.Join(root, "out")},
		Working: working,
	}
	if err := SerializeStack(ctx, time.Unix(0, 0)); err != nil {
		t.Fatalf("SerializeStack: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(root, "out", "app-dev.stack.yml"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !containsLine(string(b), `user: "yes"`) {
		t.Fatalf("expected quoted ambiguous user value, got:\n%s", b)
	}
}

func TestSerializeStack_WriteHistoryMirrorsOutput(t *testing.T) {
	root := t.TempDir()
	working := &compose.File{Services: map[string]*compose.Service{"api": {Image: "alpine:3.20"}}}
	ctx := &Context{
		Request: Request{RootPath: root, StackID: "app", Env: "dev", OutDir: filepath.Join(root, "out"), WriteHistory: true},
		Working: working,
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := SerializeStack(ctx, now); err != nil {
		t.Fatalf("SerializeStack: %v", err)
	}
	historyPath := filepath.Join(root, "ops", "state", "history", "20260102030405", "app-dev.stack.yml")
	if _, err := os.Stat(historyPath); err != nil {
		t.Fatalf("expected history copy at %s: %v", historyPath, err)
	}
}

func TestExportConfig_UnflattensAndDropsSecretizedKeys(t *testing.T) {
	root := t.TempDir()
	working := &compose.File{
		Services: map[string]*compose.Service{
			"api": {Environment: compose.NewListOrDictMap(map[string]string{
				"A__B":      "1",
				"C__D":      "two",
				"X__Secret": "hidden",
			}, []string{"A__B", "C__D", "X__Secret"})},
		},
	}
	ctx := &Context{
		Request: Request{RootPath: root, StackID: "s", Env: "dev", OutDir: filepath.Join(root, "out")},
		Working: working,
	}
	matcher := secretize.CompileMatcher([]string{"X__*"})

	if err := ExportConfig(ctx, matcher); err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(root, "out", "s-dev.appsettings.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	a, ok := got["A"].(map[string]interface{})
	if !ok || a["B"] != "1" {
		t.Fatalf("expected A.B=1, got %#v", got)
	}
	c, ok := got["C"].(map[string]interface{})
	if !ok || c["D"] != "two" {
		t.Fatalf("expected C.D=two, got %#v", got)
	}
	if _, ok := got["X"]; ok {
		t.Fatalf("expected X tree dropped by secretize match, got %#v", got)
	}
}

func containsLine(doc, line string) bool {
	for _, l := range splitLines(doc) {
		if trimmed(l) == line {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func trimmed(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
