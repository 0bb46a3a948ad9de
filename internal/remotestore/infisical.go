package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/providers"
)

// InfisicalAdapter is the write-side counterpart to providers.InfisicalProvider,
// sharing its auth/transport construction (§10 domain stack table).
type InfisicalAdapter struct {
	Config config.InfisicalConfig

	httpClient func(ctx context.Context) (*http.Client, error)
}

func (a *InfisicalAdapter) Name() string { return "infisical" }

func (a *InfisicalAdapter) client(ctx context.Context) (*http.Client, error) {
	if a.httpClient != nil {
		return a.httpClient(ctx)
	}
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, apperr.New("remotestore.infisical", apperr.Unavailable, "INFISICAL_CLIENT_ID/INFISICAL_CLIENT_SECRET not set")
	}
	siteURL := a.siteURL()
	return providers.InfisicalOAuthClient(ctx, siteURL, clientID, clientSecret), nil
}

func (a *InfisicalAdapter) siteURL() string {
	if a.Config.SiteURL != "" {
		return a.Config.SiteURL
	}
	return "https://app.infisical.com"
}

func (a *InfisicalAdapter) Get(ctx context.Context, path, key string) (string, bool, error) {
	hc, err := a.client(ctx)
	if err != nil {
		return "", false, err
	}
	reqURL := strings.TrimRight(a.siteURL(), "/") + "/api/v3/secrets/raw/" + url.PathEscape(key)
	q := url.Values{}
	q.Set("workspaceId", a.Config.ProjectID)
	q.Set("environment", firstNonEmptyStr(a.Config.Environment))
	q.Set("secretPath", path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("infisical: unexpected status %d fetching %s%s", resp.StatusCode, path, key)
	}
	var parsed struct {
		Secret struct {
			SecretValue string `json:"secretValue"`
		} `json:"secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, err
	}
	return parsed.Secret.SecretValue, true, nil
}

func (a *InfisicalAdapter) Create(ctx context.Context, path, key, value string) error {
	return a.write(ctx, http.MethodPost, path, key, value)
}

func (a *InfisicalAdapter) Update(ctx context.Context, path, key, value string) error {
	return a.write(ctx, http.MethodPatch, path, key, value)
}

func (a *InfisicalAdapter) write(ctx context.Context, method, path, key, value string) error {
	hc, err := a.client(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{
		"workspaceId": a.Config.ProjectID,
		"environment": firstNonEmptyStr(a.Config.Environment),
		"secretPath":  path,
		"secretValue": value,
	})
	if err != nil {
		return err
	}
	reqURL := strings.TrimRight(a.siteURL(), "/") + "/api/v3/secrets/raw/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("infisical: unexpected status %d on %s %s%s", resp.StatusCode, method, path, key)
	}
	return nil
}

func firstNonEmptyStr(v string) string {
	if v != "" {
		return v
	}
	return "production"
}
