package providers

import "context"

// FileProvider is a no-op: the Env JSON Collect stage (§4.3, internal/envsources)
// already populates the bag with file-sourced values before Aggregate runs.
// It exists so "file" can appear in providers.order without special-casing.
type FileProvider struct{}

func (p *FileProvider) Type() string { return "file" }

func (p *FileProvider) Collect(ctx context.Context, rootPath, stackID, env string) (map[string]string, error) {
	return nil, nil
}
