package providers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/util"
)

// EnvProvider merges process environment variables matched against an
// allowlist of wildcard patterns (§4.4 "env"). Each allowlist file is a JSON
// array of wildcard strings; patterns from every matched file are unioned.
type EnvProvider struct {
	Config config.EnvProviderConfig
}

func (p *EnvProvider) Type() string { return "env" }

func (p *EnvProvider) Collect(ctx context.Context, rootPath, stackID, env string) (map[string]string, error) {
	patterns, err := p.loadAllowlist(rootPath, stackID, env)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	out := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name, value := parts[0], parts[1]
		if util.MatchesAnyWildcard(patterns, name) {
			out[name] = value
		}
	}
	return out, nil
}

func (p *EnvProvider) loadAllowlist(rootPath, stackID, env string) ([]string, error) {
	globs := p.Config.AllowlistFileSearch
	if len(globs) == 0 {
		globs = []string{
			"stacks/{stackId}/use-envvars.json",
			"stacks/all/use-envvars.json",
		}
	}

	seen := map[string]struct{}{}
	var patterns []string
	for _, g := range globs {
		resolved := strings.NewReplacer("{stackId}", stackID, "{env}", env).Replace(g)
		matches, err := filepath.Glob(filepath.Join(rootPath, resolved))
		if err != nil {
			return nil, apperr.Wrap("providers.env.loadAllowlist", apperr.InvalidInput, err, "glob %s", g)
		}
		sort.Strings(matches)
		for _, path := range matches {
			b, rerr := os.ReadFile(path)
			if rerr != nil {
				return nil, apperr.Wrap("providers.env.loadAllowlist", apperr.External, rerr, "read %s", path)
			}
			var names []string
			if jerr := json.Unmarshal(b, &names); jerr != nil {
				return nil, apperr.Wrap("providers.env.loadAllowlist", apperr.InvalidInput, jerr, "parse allowlist %s", path)
			}
			for _, n := range names {
				if _, ok := seen[n]; !ok {
					seen[n] = struct{}{}
					patterns = append(patterns, n)
				}
			}
		}
	}
	return patterns, nil
}
