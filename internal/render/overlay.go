package render

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/compose"
	"github.com/goccy/go-yaml"
)

// yamlExtSentinel is the "y?(a)ml" glob sentinel from render.overlayOrder
// (and the groups/env-JSON directory layouts), meaning "match .yml or .yaml".
const yamlExtSentinel = "y?(a)ml"

// ResolveGlobFiles resolves a single {stackId}/{env}-templated glob pattern
// (optionally containing the "y?(a)ml" sentinel) against rootPath, returning
// matches sorted ASCII-ascending.
func ResolveGlobFiles(rootPath, pattern, stackID, env string) ([]string, error) {
	resolved := strings.NewReplacer("{stackId}", stackID, "{env}", env).Replace(pattern)

	var variants []string
	if strings.Contains(resolved, yamlExtSentinel) {
		variants = []string{
			strings.ReplaceAll(resolved, yamlExtSentinel, "yml"),
			strings.ReplaceAll(resolved, yamlExtSentinel, "yaml"),
		}
	} else {
		variants = []string{resolved}
	}

	seen := map[string]struct{}{}
	var matches []string
	for _, v := range variants {
		found, err := filepath.Glob(filepath.Join(rootPath, v))
		if err != nil {
			return nil, apperr.Wrap("render.ResolveGlobFiles", apperr.InvalidInput, err, "glob %s", v)
		}
		for _, f := range found {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				matches = append(matches, f)
			}
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// ApplyOverlays implements §4.2: resolves ctx.Config.Render.OverlayOrder (or
// the built-in default) in configured order and deep-merges each matching
// file into ctx.Working.
func ApplyOverlays(ctx *Context) error {
	patterns := ctx.Config.Render.OverlayOrder
	for _, pattern := range patterns {
		files, err := ResolveGlobFiles(ctx.Request.RootPath, pattern, ctx.Request.StackID, ctx.Request.Env)
		if err != nil {
			return err
		}
		for _, path := range files {
			b, rerr := os.ReadFile(path)
			if rerr != nil {
				return apperr.Wrap("render.ApplyOverlays", apperr.External, rerr, "read overlay %s", path)
			}
			var overlay compose.File
			if yerr := yaml.Unmarshal(b, &overlay); yerr != nil {
				return apperr.Wrap("render.ApplyOverlays", apperr.InvalidInput, yerr, "parse overlay %s", path)
			}
			compose.ApplyOverlay(ctx.Working, &overlay)
		}
	}
	return nil
}
