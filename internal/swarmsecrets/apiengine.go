package swarmsecrets

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"

	"github.com/fusapp/swarmbender/internal/apperr"
)

// APIEngine talks to the Docker Engine API directly, grounded on the
// SecretList/SecretCreate/SecretInspectWithRaw/SecretRemove calls used by
// the compose-to-swarm stack deploy flow in the reference corpus.
type APIEngine struct {
	cli *client.Client
}

func NewAPIEngine() (*APIEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, apperr.Wrap("swarmsecrets.NewAPIEngine", apperr.Unavailable, err, "create docker client")
	}
	return &APIEngine{cli: cli}, nil
}

func (e *APIEngine) List(ctx context.Context) (map[string]struct{}, error) {
	secrets, err := e.cli.SecretList(ctx, types.SecretListOptions{})
	if err != nil {
		return nil, apperr.Wrap("swarmsecrets.APIEngine.List", apperr.Unavailable, err, "list secrets")
	}
	out := make(map[string]struct{}, len(secrets))
	for _, s := range secrets {
		out[s.Spec.Name] = struct{}{}
	}
	return out, nil
}

func (e *APIEngine) Create(ctx context.Context, name string, value []byte, labels map[string]string) error {
	if _, _, err := e.cli.SecretInspectWithRaw(ctx, name); err == nil {
		return nil
	}

	spec := swarm.SecretSpec{
		Annotations: swarm.Annotations{Name: name, Labels: labels},
		Data:        value,
	}
	if _, err := e.cli.SecretCreate(ctx, spec); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return apperr.Wrap("swarmsecrets.APIEngine.Create", apperr.External, err, "create secret %s", name)
	}
	return nil
}

func (e *APIEngine) Remove(ctx context.Context, name string) error {
	secret, _, err := e.cli.SecretInspectWithRaw(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return apperr.Wrap("swarmsecrets.APIEngine.Remove", apperr.External, err, "inspect secret %s", name)
	}
	if err := e.cli.SecretRemove(ctx, secret.ID); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return apperr.Wrap("swarmsecrets.APIEngine.Remove", apperr.External, err, "remove secret %s", name)
	}
	return nil
}
