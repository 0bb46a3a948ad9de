// Package swarmsecrets implements the Swarm Secret Engine (§4.14): a small
// Engine interface with a Docker Engine API backend and a docker-cli
// fallback backend, both idempotent on create/remove.
package swarmsecrets

import "context"

// Engine lists, creates, and removes Swarm secrets by name. Create is
// idempotent: creating a secret that already exists under that name is not
// an error. Remove of a nonexistent secret is not an error either.
type Engine interface {
	List(ctx context.Context) (map[string]struct{}, error)
	Create(ctx context.Context, name string, value []byte, labels map[string]string) error
	Remove(ctx context.Context, name string) error
}

// New builds the configured backend: "docker-api" (default) talks to the
// Engine API directly; "docker-cli" shells out to the docker binary.
func New(engineType string, dockerContext string) (Engine, error) {
	switch engineType {
	case "docker-cli":
		return NewCLIEngine(dockerContext), nil
	default:
		return NewAPIEngine()
	}
}
