package providers

import (
	"context"
	"testing"

	"github.com/fusapp/swarmbender/internal/config"
)

type fakeKVClient struct {
	names  []string
	values map[string]string
}

func (f *fakeKVClient) listSecretNames(ctx context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeKVClient) getSecretValue(ctx context.Context, name string) (string, error) {
	return f.values[name], nil
}

func TestAzureKVProvider_Disabled(t *testing.T) {
	p := &AzureKVProvider{Config: config.AzureKVConfig{Enabled: false}}
	out, err := p.Collect(context.Background(), "", "app", "dev")
	if err != nil || out != nil {
		t.Fatalf("expected no-op when disabled, got %#v %v", out, err)
	}
}

func TestAzureKVProvider_MissingVaultURLIsError(t *testing.T) {
	p := &AzureKVProvider{Config: config.AzureKVConfig{Enabled: true}}
	if _, err := p.Collect(context.Background(), "", "app", "dev"); err == nil {
		t.Fatalf("expected error for missing vaultUrl")
	}
}

func TestAzureKVProvider_FiltersByStackEnvPrefixAndCanonicalizes(t *testing.T) {
	fake := &fakeKVClient{
		names: []string{"app-dev-ConnectionStrings-Main", "app-prod-Other", "unrelated"},
		values: map[string]string{
			"app-dev-ConnectionStrings-Main": "Server=db;",
		},
	}
	p := &AzureKVProvider{
		Config:    config.AzureKVConfig{Enabled: true, VaultURL: "https://example.vault.azure.net"},
		newClient: func(vaultURL string) (kvClient, error) { return fake, nil },
	}
	out, err := p.Collect(context.Background(), "", "app", "dev")
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if out["ConnectionStrings__Main"] != "Server=db;" {
		t.Fatalf("expected canonicalized key present, got %#v", out)
	}
	if len(out) != 1 {
		t.Fatalf("expected only matching prefix retained, got %#v", out)
	}
}
