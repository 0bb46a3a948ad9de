// Package providers implements the Providers Aggregate stage (§4.4): a
// Provider interface with file/env/azure-kv/infisical implementations,
// iterated in SbConfig.Providers.Order and merged into the environment bag
// with fail-soft error handling.
package providers

import (
	"context"

	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/logger"
)

// Provider collects environment key/value pairs from a single source.
// Implementations must fail soft: a returned error is logged as a warning
// by Aggregate and the pipeline continues with whatever the provider did
// manage to return.
type Provider interface {
	// Type returns the providers.order identifier this provider answers to
	// (e.g. "file", "env", "azure-kv", "infisical").
	Type() string
	Collect(ctx context.Context, rootPath, stackID, env string) (map[string]string, error)
}

// Registry resolves a provider type name to its implementation, wired from SbConfig.
type Registry map[string]Provider

// NewRegistry builds the default provider set from cfg.
func NewRegistry(cfg config.ProvidersConfig) Registry {
	return Registry{
		"file":      &FileProvider{},
		"env":       &EnvProvider{Config: cfg.Env},
		"azure-kv":  &AzureKVProvider{Config: cfg.AzureKV},
		"infisical": &InfisicalProvider{Config: cfg.Infisical},
	}
}

// Aggregate iterates cfg.Order, collects from each registered provider, and
// merges the results into bag (last-wins, per §4.4). Unknown provider types
// are ignored. Provider errors are logged as warnings and do not stop
// aggregation.
func Aggregate(ctx context.Context, log logger.Logger, reg Registry, cfg config.ProvidersConfig, rootPath, stackID, env string, bag Bag) {
	for _, typ := range cfg.Order {
		p, ok := reg[typ]
		if !ok {
			continue
		}
		values, err := p.Collect(ctx, rootPath, stackID, env)
		if err != nil && log != nil {
			log.Warn("provider_collect_skip", "provider", typ, "err", err.Error())
		}
		for k, v := range values {
			bag.SetCanonical(k, v)
		}
	}
}

// Bag is the minimal surface Aggregate needs from envsources.Bag, avoiding
// an import cycle between envsources and providers.
type Bag interface {
	SetCanonical(dottedKey, value string)
}
