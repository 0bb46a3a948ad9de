package secretsync

import (
	"context"
	"sort"
	"testing"

	"github.com/fusapp/swarmbender/internal/logger"
)

type fakeEngine struct {
	names      map[string]struct{}
	created    []string
	createdVal map[string][]byte
	createdLbl map[string]map[string]string
	removed    []string
	createErr  error
	removeErr  error
}

func (f *fakeEngine) List(ctx context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(f.names))
	for k := range f.names {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeEngine) Create(ctx context.Context, name string, value []byte, labels map[string]string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, name)
	if f.createdVal == nil {
		f.createdVal = map[string][]byte{}
	}
	f.createdVal[name] = value
	if f.createdLbl == nil {
		f.createdLbl = map[string]map[string]string{}
	}
	f.createdLbl[name] = labels
	return nil
}

func (f *fakeEngine) Remove(ctx context.Context, name string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, name)
	return nil
}

func TestComputeDiff_ScopesToStackAndEnv(t *testing.T) {
	existing := map[string]struct{}{
		"sb_app_api_dev_KEY_v1":  {},
		"sb_app_api_prod_KEY_v1": {},
		"unrelated":              {},
	}
	desired := []Secret{{ExternalName: "sb_app_api_dev_KEY_v1", Key: "KEY", Value: "v"}}

	diff := ComputeDiff(desired, existing, "app", "dev")

	if len(diff.Match) != 1 || diff.Match[0] != "sb_app_api_dev_KEY_v1" {
		t.Fatalf("expected match=[sb_app_api_dev_KEY_v1], got %#v", diff.Match)
	}
	if len(diff.Prune) != 0 {
		t.Fatalf("expected empty prune, got %#v", diff.Prune)
	}
	if len(diff.Create) != 0 {
		t.Fatalf("expected empty create, got %#v", diff.Create)
	}
}

func TestComputeDiff_CreatesMissingAndPrunesOrphans(t *testing.T) {
	existing := map[string]struct{}{
		"sb_app_api_dev_OLD_v1": {},
		"unrelated":             {},
	}
	desired := []Secret{{ExternalName: "sb_app_api_dev_NEW_v1", Key: "NEW", Value: "v"}}

	diff := ComputeDiff(desired, existing, "app", "dev")

	if len(diff.Create) != 1 || diff.Create[0].ExternalName != "sb_app_api_dev_NEW_v1" {
		t.Fatalf("expected create=[sb_app_api_dev_NEW_v1], got %#v", diff.Create)
	}
	if len(diff.Prune) != 1 || diff.Prune[0] != "sb_app_api_dev_OLD_v1" {
		t.Fatalf("expected prune=[sb_app_api_dev_OLD_v1], got %#v", diff.Prune)
	}
	if len(diff.Match) != 0 {
		t.Fatalf("expected empty match, got %#v", diff.Match)
	}
}

func TestSync_CreatesMissingAndPrunesWhenEnabled(t *testing.T) {
	fe := &fakeEngine{names: map[string]struct{}{
		"sb_app_api_dev_OLD_v1": {},
	}}
	desired := []Secret{{ExternalName: "sb_app_api_dev_NEW_v1", Value: "secret-value"}}

	created, pruned, err := Sync(context.Background(), logger.Nop(), fe, desired, "app", "dev",
		map[string]string{"team": "platform"}, Options{PruneOld: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(created) != 1 || created[0] != "sb_app_api_dev_NEW_v1" {
		t.Fatalf("expected created=[sb_app_api_dev_NEW_v1], got %#v", created)
	}
	if len(pruned) != 1 || pruned[0] != "sb_app_api_dev_OLD_v1" {
		t.Fatalf("expected pruned=[sb_app_api_dev_OLD_v1], got %#v", pruned)
	}
	if string(fe.createdVal["sb_app_api_dev_NEW_v1"]) != "secret-value" {
		t.Fatalf("expected create value passed through, got %q", fe.createdVal["sb_app_api_dev_NEW_v1"])
	}
	if fe.createdLbl["sb_app_api_dev_NEW_v1"]["team"] != "platform" {
		t.Fatalf("expected labels passed through, got %#v", fe.createdLbl["sb_app_api_dev_NEW_v1"])
	}
	if len(fe.removed) != 1 || fe.removed[0] != "sb_app_api_dev_OLD_v1" {
		t.Fatalf("expected engine.Remove called for orphan, got %#v", fe.removed)
	}
}

func TestSync_WithoutPruneOldLeavesOrphansInPlace(t *testing.T) {
	fe := &fakeEngine{names: map[string]struct{}{
		"sb_app_api_dev_OLD_v1": {},
	}}
	desired := []Secret{{ExternalName: "sb_app_api_dev_NEW_v1", Value: "v"}}

	_, pruned, err := Sync(context.Background(), logger.Nop(), fe, desired, "app", "dev", nil, Options{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(pruned) != 0 {
		t.Fatalf("expected no pruning, got %#v", pruned)
	}
	if len(fe.removed) != 0 {
		t.Fatalf("expected engine.Remove not called, got %#v", fe.removed)
	}
}

func TestSync_DryRunSuppressesEngineCalls(t *testing.T) {
	fe := &fakeEngine{names: map[string]struct{}{
		"sb_app_api_dev_OLD_v1": {},
	}}
	desired := []Secret{{ExternalName: "sb_app_api_dev_NEW_v1", Value: "v"}}

	created, pruned, err := Sync(context.Background(), logger.Nop(), fe, desired, "app", "dev", nil,
		Options{DryRun: true, PruneOld: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(created) != 1 || created[0] != "sb_app_api_dev_NEW_v1" {
		t.Fatalf("expected reported create even in dry-run, got %#v", created)
	}
	if len(pruned) != 1 || pruned[0] != "sb_app_api_dev_OLD_v1" {
		t.Fatalf("expected reported prune even in dry-run, got %#v", pruned)
	}
	if len(fe.created) != 0 {
		t.Fatalf("expected no actual engine.Create in dry-run, got %#v", fe.created)
	}
	if len(fe.removed) != 0 {
		t.Fatalf("expected no actual engine.Remove in dry-run, got %#v", fe.removed)
	}
}

func TestPrune_StandaloneRemovesOrphansOnly(t *testing.T) {
	fe := &fakeEngine{names: map[string]struct{}{
		"sb_app_api_dev_OLD_v1": {},
		"sb_app_api_dev_KEEP_v1": {},
	}}
	desired := []Secret{{ExternalName: "sb_app_api_dev_KEEP_v1"}}

	pruned, err := Prune(context.Background(), fe, desired, "app", "dev", false)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != "sb_app_api_dev_OLD_v1" {
		t.Fatalf("expected pruned=[sb_app_api_dev_OLD_v1], got %#v", pruned)
	}
	if len(fe.created) != 0 {
		t.Fatalf("Prune must never create, got %#v", fe.created)
	}
	sort.Strings(fe.removed)
	if len(fe.removed) != 1 || fe.removed[0] != "sb_app_api_dev_OLD_v1" {
		t.Fatalf("expected engine.Remove called once for orphan, got %#v", fe.removed)
	}
}
