package remotestore

import (
	"context"
	"sort"
	"sync"

	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/secretsync"
)

// DefaultConcurrency is the target upload concurrency from §5: "up to ≈8
// concurrent upsert operations".
const DefaultConcurrency = 8

// Action records what Upload did (or would do) for one secret.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped" // remote value already matches
	ActionFailed  Action = "failed"
)

// Result is the outcome of routing and upserting one discovered secret.
type Result struct {
	ExternalName string
	Path         string
	Action       Action
	Err          error
}

// Upload routes each discovered secret to a remote-store path and performs
// fetch-compare-then-create-or-update, bounded to `concurrency` in-flight
// operations (§4.15 point 2, §5 point 1). A single secret's failure never
// blocks the others (§4.16 "remote store network/auth error on a single
// path → warn and continue"); per-secret outcomes are returned rather than
// aggregated into an error, mirroring the teacher's
// planner.ExecuteAcrossContexts shape but without cancel-on-first-error,
// since §5 requires independent, idempotent operations to keep proceeding.
func Upload(ctx context.Context, log logger.Logger, adapter Adapter, cfg config.InfisicalConfig, stackID, env string, secrets []secretsync.Secret, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if len(secrets) == 0 {
		return nil
	}

	results := make([]Result, len(secrets))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			if ctx.Err() != nil {
				results[i] = Result{ExternalName: secrets[i].ExternalName, Action: ActionFailed, Err: ctx.Err()}
				continue
			}
			results[i] = upsertOne(ctx, adapter, cfg, stackID, env, secrets[i])
		}
	}

	workers := concurrency
	if workers > len(secrets) {
		workers = len(secrets)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go worker()
	}
	for i := range secrets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		if r.Action == ActionFailed {
			log.Warn("remotestore_upload_failed", "name", r.ExternalName, "path", r.Path, "error", r.Err)
		}
	}
	return results
}

func upsertOne(ctx context.Context, adapter Adapter, cfg config.InfisicalConfig, stackID, env string, s secretsync.Secret) Result {
	route := ResolveRoute(cfg.Routes, cfg.PathTemplate, stackID, env, s.Key)

	var (
		current string
		found   bool
		err     error
	)
	for _, readPath := range route.ReadPaths {
		current, found, err = adapter.Get(ctx, readPath, s.Key)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Result{ExternalName: s.ExternalName, Path: route.WritePath, Action: ActionFailed, Err: err}
	}

	if !found {
		if err := adapter.Create(ctx, route.WritePath, s.Key, s.Value); err != nil {
			return Result{ExternalName: s.ExternalName, Path: route.WritePath, Action: ActionFailed, Err: err}
		}
		return Result{ExternalName: s.ExternalName, Path: route.WritePath, Action: ActionCreated}
	}
	if current == s.Value {
		return Result{ExternalName: s.ExternalName, Path: route.WritePath, Action: ActionSkipped}
	}
	if err := adapter.Update(ctx, route.WritePath, s.Key, s.Value); err != nil {
		return Result{ExternalName: s.ExternalName, Path: route.WritePath, Action: ActionFailed, Err: err}
	}
	return Result{ExternalName: s.ExternalName, Path: route.WritePath, Action: ActionUpdated}
}

// SortResults orders results by external name for deterministic reporting.
func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool { return results[i].ExternalName < results[j].ExternalName })
}
