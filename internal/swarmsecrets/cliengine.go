package swarmsecrets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fusapp/swarmbender/internal/apperr"
)

// Exec abstracts docker CLI execution, grounded on the teacher's
// dockercli.Exec, extended with a stdin-carrying variant so secret values
// are never passed as argv (§9 Design Notes).
type Exec interface {
	Run(ctx context.Context, args ...string) (string, error)
	RunWithStdin(ctx context.Context, stdin []byte, args ...string) (string, error)
}

// SystemExec shells out to the docker CLI, mirroring the teacher's
// dockercli.SystemExec.
type SystemExec struct {
	ContextName string
}

func (s SystemExec) Run(ctx context.Context, args ...string) (string, error) {
	return s.run(ctx, nil, args...)
}

func (s SystemExec) RunWithStdin(ctx context.Context, stdin []byte, args ...string) (string, error) {
	return s.run(ctx, stdin, args...)
}

func (s SystemExec) run(ctx context.Context, stdin []byte, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	if s.ContextName != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("DOCKER_CONTEXT=%s", s.ContextName))
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, truncate(stderr.String(), 512))
	}
	return stdout.String(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// CLIEngine is the docker-cli fallback backend for Engine, used when the
// Engine API is not reachable (e.g. remote Docker contexts without direct
// socket access).
type CLIEngine struct {
	exec Exec
}

func NewCLIEngine(dockerContext string) *CLIEngine {
	return &CLIEngine{exec: SystemExec{ContextName: dockerContext}}
}

func (c *CLIEngine) List(ctx context.Context) (map[string]struct{}, error) {
	out, err := c.exec.Run(ctx, "secret", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, apperr.Wrap("swarmsecrets.CLIEngine.List", apperr.Unavailable, err, "docker secret ls")
	}
	names := map[string]struct{}{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names[line] = struct{}{}
		}
	}
	return names, nil
}

func (c *CLIEngine) Create(ctx context.Context, name string, value []byte, labels map[string]string) error {
	args := []string{"secret", "create"}
	for k, v := range labels {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, name, "-")
	if _, err := c.exec.RunWithStdin(ctx, value, args...); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return apperr.Wrap("swarmsecrets.CLIEngine.Create", apperr.External, err, "docker secret create %s", name)
	}
	return nil
}

func (c *CLIEngine) Remove(ctx context.Context, name string) error {
	if _, err := c.exec.Run(ctx, "secret", "rm", name); err != nil {
		if strings.Contains(err.Error(), "no such secret") {
			return nil
		}
		return apperr.Wrap("swarmsecrets.CLIEngine.Remove", apperr.External, err, "docker secret rm %s", name)
	}
	return nil
}
