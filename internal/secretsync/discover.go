// Package secretsync implements Secret Discovery (§4.13) and Secret Sync
// (§4.15) against the Swarm Secret Engine. Upload to a remote store lives in
// package remotestore.
package secretsync

import (
	"context"
	"sort"
	"time"

	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/envsources"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/providers"
	"github.com/fusapp/swarmbender/internal/render"
	"github.com/fusapp/swarmbender/internal/secretize"
)

// Secret is one discovered (scope, key, value, version, externalName) tuple,
// per §4.13. Discovery never mutates remote state.
type Secret struct {
	ServiceName  string
	Scope        string // "<stackId>_<serviceName>"
	Key          string // canonical ("__"-joined) env key
	Value        string
	Version      string
	ExternalName string
}

// Discover runs env collection and provider aggregation (§4.3-4.4), then the
// same per-service merge and secretize matching Secrets Attach (§4.8) would
// perform, without persisting the resulting Working model: it only reports
// what would be created.
func Discover(ctx context.Context, log logger.Logger, rootPath, stackID, env string, cfg config.SbConfig) ([]Secret, error) {
	rc := &render.Context{
		Request: render.Request{RootPath: rootPath, StackID: stackID, Env: env},
		Config:  cfg,
	}
	if err := render.LoadTemplate(rc); err != nil {
		return nil, err
	}
	if err := render.ApplyOverlays(rc); err != nil {
		return nil, err
	}

	bag, err := envsources.CollectFileEnv(log, rootPath, stackID, env, cfg.Providers.File.ExtraJSONDirs, sopsAgeKeyFile(cfg))
	if err != nil {
		return nil, err
	}
	reg := providers.NewRegistry(cfg.Providers)
	providers.Aggregate(ctx, log, reg, cfg.Providers, rootPath, stackID, env, bag)
	rc.Env = bag

	if err := render.ApplyEnvironment(rc); err != nil {
		return nil, err
	}
	if err := render.ApplyGroups(rc); err != nil {
		return nil, err
	}

	if !cfg.Secretize.Enabled || len(cfg.Secretize.Paths) == 0 {
		return nil, nil
	}

	now := time.Now()
	matcher := secretize.CompileMatcher(cfg.Secretize.Paths)

	var out []Secret
	if len(rc.Working.Services) == 0 {
		values, order := bag.Map()
		out = append(out, matchSecrets("all", stackID, env, cfg, matcher, values, order, now)...)
		return out, nil
	}

	names := make([]string, 0, len(rc.Working.Services))
	for name := range rc.Working.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc := rc.Working.Services[name]
		values, order := svc.Environment.ToMap()
		out = append(out, matchSecrets(name, stackID, env, cfg, matcher, values, order, now)...)
	}
	return out, nil
}

func matchSecrets(serviceName, stackID, env string, cfg config.SbConfig, matcher *secretize.Matcher, values map[string]string, order []string, now time.Time) []Secret {
	canonMap, canonOrder := secretize.CollapseToCanonical(values, order)
	var out []Secret
	for _, key := range canonOrder {
		if !matcher.Match(key) {
			continue
		}
		value := canonMap[key]
		version := secretize.VersionToken(cfg.Secrets.VersionMode, value, now)
		externalName := secretize.RenderName(cfg.Secrets.NameTemplate, stackID, serviceName, env, key, version)
		out = append(out, Secret{
			ServiceName:  serviceName,
			Scope:        stackID + "_" + serviceName,
			Key:          key,
			Value:        value,
			Version:      version,
			ExternalName: externalName,
		})
	}
	return out
}

func sopsAgeKeyFile(cfg config.SbConfig) string {
	if cfg.Secrets.Sops != nil && cfg.Secrets.Sops.Age != nil {
		return cfg.Secrets.Sops.Age.KeyFile
	}
	return ""
}
