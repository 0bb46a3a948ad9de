package providers

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
)

// AzureKVProvider pulls secrets from Azure Key Vault (§4.4 "azure-kv"). Key
// Vault secret names cannot contain '.', '_', or '/', so secrets are stored
// dash-separated and scoped by a "<stackId>-<env>-" name prefix; the
// remainder of the name is canonicalized back to "__" form before merging.
type AzureKVProvider struct {
	Config config.AzureKVConfig

	// newClient is overridable in tests.
	newClient func(vaultURL string) (kvClient, error)
}

type kvClient interface {
	listSecretNames(ctx context.Context) ([]string, error)
	getSecretValue(ctx context.Context, name string) (string, error)
}

func (p *AzureKVProvider) Type() string { return "azure-kv" }

func (p *AzureKVProvider) Collect(ctx context.Context, rootPath, stackID, env string) (map[string]string, error) {
	if !p.Config.Enabled {
		return nil, nil
	}
	if p.Config.VaultURL == "" {
		return nil, apperr.New("providers.azurekv.Collect", apperr.InvalidInput, "azureKv.vaultUrl is required when enabled")
	}

	newClient := p.newClient
	if newClient == nil {
		newClient = defaultAzureKVClient
	}
	client, err := newClient(p.Config.VaultURL)
	if err != nil {
		return nil, apperr.Wrap("providers.azurekv.Collect", apperr.Unavailable, err, "create Key Vault client")
	}

	prefix := strings.ToLower(stackID) + "-" + strings.ToLower(env) + "-"
	names, err := client.listSecretNames(ctx)
	if err != nil {
		return nil, apperr.Wrap("providers.azurekv.Collect", apperr.Unavailable, err, "list secrets")
	}

	out := map[string]string{}
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		key := strings.ReplaceAll(name[len(prefix):], "-", "__")
		value, gerr := client.getSecretValue(ctx, name)
		if gerr != nil {
			continue // per-secret failures are skipped, not fatal
		}
		out[key] = value
	}
	return out, nil
}

type azureKVClient struct {
	c *azsecrets.Client
}

func defaultAzureKVClient(vaultURL string) (kvClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	c, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return &azureKVClient{c: c}, nil
}

func (a *azureKVClient) listSecretNames(ctx context.Context) ([]string, error) {
	var names []string
	pager := a.c.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Value {
			if item == nil || item.ID == nil {
				continue
			}
			names = append(names, item.ID.Name())
		}
	}
	return names, nil
}

func (a *azureKVClient) getSecretValue(ctx context.Context, name string) (string, error) {
	resp, err := a.c.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", err
	}
	if resp.Value == nil {
		return "", nil
	}
	return *resp.Value, nil
}
