package secretsync

import (
	"context"
	"sort"
	"strings"

	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/swarmsecrets"
)

// Diff is the result of comparing desired (discovered) secrets against the
// engine's existing stack-scoped secrets (§4.15 diff).
type Diff struct {
	Create []Secret
	Prune  []string
	Match  []string
}

// stackScoped reports whether name belongs to this stack/env under the
// default naming scheme, per §4.15's literal diff predicate.
func stackScoped(name, stackID, env string) bool {
	return strings.HasPrefix(name, "sb_"+stackID+"_") && strings.Contains(name, "_"+env+"_")
}

// ComputeDiff intersects desired with the engine's current listing,
// restricted to this stack/env's naming scope.
func ComputeDiff(desired []Secret, existing map[string]struct{}, stackID, env string) Diff {
	desiredSet := make(map[string]Secret, len(desired))
	for _, s := range desired {
		desiredSet[s.ExternalName] = s
	}

	var d Diff
	for name := range existing {
		if !stackScoped(name, stackID, env) {
			continue
		}
		if _, ok := desiredSet[name]; ok {
			d.Match = append(d.Match, name)
		} else {
			d.Prune = append(d.Prune, name)
		}
	}
	for name, s := range desiredSet {
		if _, ok := existing[name]; !ok {
			d.Create = append(d.Create, s)
		}
	}
	sort.Slice(d.Create, func(i, j int) bool { return d.Create[i].ExternalName < d.Create[j].ExternalName })
	sort.Strings(d.Prune)
	sort.Strings(d.Match)
	return d
}

// Options controls Sync/Prune side effects.
type Options struct {
	DryRun    bool
	PruneOld  bool
	ShowValue bool
}

// Sync creates every missing desired secret and, if opts.PruneOld, removes
// existing stack-scoped secrets no longer desired (§4.15 sync).
func Sync(ctx context.Context, log logger.Logger, engine swarmsecrets.Engine, desired []Secret, stackID, env string, labels map[string]string, opts Options) (created, pruned []string, err error) {
	existing, err := engine.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	diff := ComputeDiff(desired, existing, stackID, env)

	for _, s := range diff.Create {
		if opts.DryRun {
			created = append(created, s.ExternalName)
			continue
		}
		if err := engine.Create(ctx, s.ExternalName, []byte(s.Value), labels); err != nil {
			return created, pruned, err
		}
		created = append(created, s.ExternalName)
	}

	if opts.PruneOld {
		for _, name := range diff.Prune {
			if opts.DryRun {
				pruned = append(pruned, name)
				continue
			}
			if err := engine.Remove(ctx, name); err != nil {
				return created, pruned, err
			}
			pruned = append(pruned, name)
		}
	}
	return created, pruned, nil
}

// Prune removes existing stack-scoped secrets not present in desired,
// independent of any create step (§4.15 prune).
func Prune(ctx context.Context, engine swarmsecrets.Engine, desired []Secret, stackID, env string, dryRun bool) ([]string, error) {
	existing, err := engine.List(ctx)
	if err != nil {
		return nil, err
	}
	diff := ComputeDiff(desired, existing, stackID, env)

	var pruned []string
	for _, name := range diff.Prune {
		if dryRun {
			pruned = append(pruned, name)
			continue
		}
		if err := engine.Remove(ctx, name); err != nil {
			return pruned, err
		}
		pruned = append(pruned, name)
	}
	return pruned, nil
}
