package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// InfisicalProvider pulls secrets from an Infisical project/environment
// (§4.4 "infisical"), authenticating via INFISICAL_CLIENT_ID/SECRET
// (client-credentials OAuth2) and fetching through a retrying HTTP
// transport. Route read-paths narrow which Infisical secret-path prefixes
// are queried; with no route read-paths configured, pathTemplate (with
// {stackId}/{env} substituted) is queried, or "/" when pathTemplate is empty.
type InfisicalProvider struct {
	Config config.InfisicalConfig

	httpClient func(ctx context.Context) (*http.Client, error)
}

func (p *InfisicalProvider) Type() string { return "infisical" }

type infisicalSecret struct {
	SecretKey   string `json:"secretKey"`
	SecretValue string `json:"secretValue"`
}

type infisicalListResponse struct {
	Secrets []infisicalSecret `json:"secrets"`
}

func (p *InfisicalProvider) Collect(ctx context.Context, rootPath, stackID, env string) (map[string]string, error) {
	if !p.Config.Enabled {
		return nil, nil
	}
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, apperr.New("providers.infisical.Collect", apperr.Unavailable, "INFISICAL_CLIENT_ID/INFISICAL_CLIENT_SECRET not set")
	}
	siteURL := p.Config.SiteURL
	if siteURL == "" {
		siteURL = "https://app.infisical.com"
	}

	newClient := p.httpClient
	if newClient == nil {
		newClient = func(ctx context.Context) (*http.Client, error) {
			return p.oauthClient(ctx, siteURL, clientID, clientSecret), nil
		}
	}
	hc, err := newClient(ctx)
	if err != nil {
		return nil, apperr.Wrap("providers.infisical.Collect", apperr.Unavailable, err, "authenticate")
	}

	paths := readPaths(p.Config, stackID, env)
	out := map[string]string{}
	for _, path := range paths {
		vals, err := p.fetchPath(ctx, hc, siteURL, path, env)
		if err != nil {
			continue // fail soft per-path, per §4.4/§4.16
		}
		for k, v := range vals {
			out[strings.ReplaceAll(k, ".", "__")] = v
		}
	}
	return out, nil
}

func readPaths(cfg config.InfisicalConfig, stackID, env string) []string {
	var paths []string
	for _, r := range cfg.Routes {
		paths = append(paths, r.ReadPaths...)
	}
	if len(paths) == 0 {
		tmpl := cfg.PathTemplate
		if tmpl == "" {
			tmpl = "/"
		}
		paths = []string{strings.NewReplacer("{stackId}", stackID, "{env}", env).Replace(tmpl)}
	}
	return paths
}

func (p *InfisicalProvider) oauthClient(ctx context.Context, siteURL, clientID, clientSecret string) *http.Client {
	return InfisicalOAuthClient(ctx, siteURL, clientID, clientSecret)
}

// InfisicalOAuthClient builds an HTTP client authenticated via Infisical's
// universal-auth client-credentials flow, backed by a retrying transport.
// Shared by the read-side provider and the write-side remote-store adapter.
func InfisicalOAuthClient(ctx context.Context, siteURL, clientID, clientSecret string) *http.Client {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     strings.TrimRight(siteURL, "/") + "/api/v1/auth/universal-auth/login",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 3
	base := rc.StandardClient()
	base.Timeout = 30 * time.Second
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	return cc.Client(ctx)
}

func (p *InfisicalProvider) fetchPath(ctx context.Context, hc *http.Client, siteURL, path, env string) (map[string]string, error) {
	reqURL := strings.TrimRight(siteURL, "/") + "/api/v3/secrets/raw"
	q := url.Values{}
	q.Set("workspaceId", p.Config.ProjectID)
	q.Set("environment", firstNonEmpty(p.Config.Environment, env))
	q.Set("secretPath", path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("infisical: unexpected status %d for path %s", resp.StatusCode, path)
	}
	var parsed infisicalListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(parsed.Secrets))
	for _, s := range parsed.Secrets {
		out[s.SecretKey] = s.SecretValue
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
