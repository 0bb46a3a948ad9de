package remotestore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/secretsync"
)

type fakeAdapter struct {
	mu        sync.Mutex
	store     map[string]string // path+"|"+key -> value
	getErr    map[string]error  // key -> error
	inFlight  int32
	maxInFlig int32
	created   []string
	updated   []string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{store: map[string]string{}, getErr: map[string]error{}}
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) trackConcurrency() func() {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlig)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlig, max, n) {
			break
		}
	}
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeAdapter) Get(ctx context.Context, path, key string) (string, bool, error) {
	defer f.trackConcurrency()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.getErr[key]; ok {
		return "", false, err
	}
	v, ok := f.store[path+"|"+key]
	return v, ok, nil
}

func (f *fakeAdapter) Create(ctx context.Context, path, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[path+"|"+key] = value
	f.created = append(f.created, key)
	return nil
}

func (f *fakeAdapter) Update(ctx context.Context, path, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[path+"|"+key] = value
	f.updated = append(f.updated, key)
	return nil
}

func TestUpload_CreatesMissingUpdatesChangedSkipsEqual(t *testing.T) {
	fa := newFakeAdapter()
	fa.store["/app/dev|EXISTING"] = "same-value"
	fa.store["/app/dev|CHANGED"] = "old-value"

	secrets := []secretsync.Secret{
		{ExternalName: "sb_app_api_dev_NEW_v1", Key: "NEW", Value: "new-value"},
		{ExternalName: "sb_app_api_dev_EXISTING_v1", Key: "EXISTING", Value: "same-value"},
		{ExternalName: "sb_app_api_dev_CHANGED_v1", Key: "CHANGED", Value: "new-value"},
	}
	cfg := config.InfisicalConfig{PathTemplate: "/{stackId}/{env}"}

	results := Upload(context.Background(), logger.Nop(), fa, cfg, "app", "dev", secrets, 8)
	SortResults(results)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.ExternalName] = r
	}
	if byName["sb_app_api_dev_NEW_v1"].Action != ActionCreated {
		t.Fatalf("expected create, got %#v", byName["sb_app_api_dev_NEW_v1"])
	}
	if byName["sb_app_api_dev_EXISTING_v1"].Action != ActionSkipped {
		t.Fatalf("expected skip, got %#v", byName["sb_app_api_dev_EXISTING_v1"])
	}
	if byName["sb_app_api_dev_CHANGED_v1"].Action != ActionUpdated {
		t.Fatalf("expected update, got %#v", byName["sb_app_api_dev_CHANGED_v1"])
	}
}

func TestUpload_OneFailureDoesNotBlockOthers(t *testing.T) {
	fa := newFakeAdapter()
	fa.getErr["BAD"] = fmt.Errorf("boom")

	secrets := []secretsync.Secret{
		{ExternalName: "sb_app_api_dev_BAD_v1", Key: "BAD", Value: "v"},
		{ExternalName: "sb_app_api_dev_GOOD_v1", Key: "GOOD", Value: "v"},
	}
	cfg := config.InfisicalConfig{PathTemplate: "/{stackId}/{env}"}

	results := Upload(context.Background(), logger.Nop(), fa, cfg, "app", "dev", secrets, 8)
	var failed, created int
	for _, r := range results {
		switch r.Action {
		case ActionFailed:
			failed++
		case ActionCreated:
			created++
		}
	}
	if failed != 1 || created != 1 {
		t.Fatalf("expected 1 failed + 1 created, got failed=%d created=%d (%#v)", failed, created, results)
	}
}

func TestUpload_BoundsConcurrency(t *testing.T) {
	fa := newFakeAdapter()
	var secrets []secretsync.Secret
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("KEY%d", i)
		secrets = append(secrets, secretsync.Secret{ExternalName: "sb_app_api_dev_" + key + "_v1", Key: key, Value: "v"})
	}
	cfg := config.InfisicalConfig{PathTemplate: "/{stackId}/{env}"}

	Upload(context.Background(), logger.Nop(), fa, cfg, "app", "dev", secrets, 4)

	if fa.maxInFlig > 4 {
		t.Fatalf("expected concurrency bounded to 4, observed max in-flight %d", fa.maxInFlig)
	}
	if fa.maxInFlig < 1 {
		t.Fatalf("expected at least one concurrent Get observed")
	}
}
