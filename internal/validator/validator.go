// Package validator implements the checks behind `sb doctor` (§6): config
// parses, the configured Swarm Secret Engine backend is reachable, and any
// configured remote-store credentials are present. Every check is read-only.
package validator

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/swarmsecrets"
)

// Status is one check's outcome.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CheckResult is one doctor check's reported outcome.
type CheckResult struct {
	ID      string
	Title   string
	Status  Status
	Summary string
}

// Doctor runs every check in a fixed, deterministic order. A config parse
// failure short-circuits the remaining checks, since nothing downstream can
// run without it.
func Doctor(ctx context.Context, root string) []CheckResult {
	cfg, err := config.Load(root)
	if err != nil {
		return []CheckResult{{ID: "config", Title: "ops/sb.yml parses", Status: StatusFail, Summary: err.Error()}}
	}

	results := []CheckResult{{ID: "config", Title: "ops/sb.yml parses", Status: StatusPass, Summary: "ok"}}
	results = append(results, checkEngine(ctx, cfg))
	results = append(results, checkRemoteStoreCredentials(cfg))
	return results
}

func checkEngine(ctx context.Context, cfg config.SbConfig) CheckResult {
	if cfg.Secrets.Engine.Type == config.EngineDockerCLI {
		out, err := exec.CommandContext(ctx, "docker", "version").CombinedOutput()
		if err != nil {
			return CheckResult{ID: "engine", Title: "Swarm secret engine reachable (docker-cli)", Status: StatusFail,
				Summary: strings.TrimSpace(string(out)) + ": " + err.Error()}
		}
		return CheckResult{ID: "engine", Title: "Swarm secret engine reachable (docker-cli)", Status: StatusPass, Summary: "docker version ok"}
	}

	engine, err := swarmsecrets.New(string(cfg.Secrets.Engine.Type), cfg.Secrets.Engine.Args["dockerContext"])
	if err != nil {
		return CheckResult{ID: "engine", Title: "Swarm secret engine reachable (docker-api)", Status: StatusFail, Summary: err.Error()}
	}
	if _, err := engine.List(ctx); err != nil {
		return CheckResult{ID: "engine", Title: "Swarm secret engine reachable (docker-api)", Status: StatusFail, Summary: err.Error()}
	}
	return CheckResult{ID: "engine", Title: "Swarm secret engine reachable (docker-api)", Status: StatusPass, Summary: "ok"}
}

func checkRemoteStoreCredentials(cfg config.SbConfig) CheckResult {
	if !cfg.Providers.Infisical.Enabled {
		return CheckResult{ID: "remote-store", Title: "Remote store credentials", Status: StatusPass, Summary: "infisical not configured"}
	}
	if os.Getenv("INFISICAL_CLIENT_ID") == "" || os.Getenv("INFISICAL_CLIENT_SECRET") == "" {
		return CheckResult{ID: "remote-store", Title: "Remote store credentials", Status: StatusWarn,
			Summary: "infisical enabled but INFISICAL_CLIENT_ID/INFISICAL_CLIENT_SECRET not set"}
	}
	return CheckResult{ID: "remote-store", Title: "Remote store credentials", Status: StatusPass, Summary: "infisical credentials present"}
}
