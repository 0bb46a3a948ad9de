// Package config loads and validates SbConfig, the tool's own configuration
// (ops/sb.yml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// SbConfig is the root desired-state structure parsed from ops/sb.yml.
type SbConfig struct {
	Render    RenderConfig        `yaml:"render"`
	Tokens    TokensConfig        `yaml:"tokens"`
	Secretize SecretizeConfig     `yaml:"secretize"`
	Secrets   SecretsEngineConfig `yaml:"secrets"`
	Providers ProvidersConfig     `yaml:"providers"`
	BaseDir   string              `yaml:"-"`
}

// RenderConfig controls the render pipeline's output behavior.
type RenderConfig struct {
	AppsettingsMode string   `yaml:"appsettingsMode" validate:"omitempty,oneof=env config"`
	OutDir          string   `yaml:"outDir"`
	WriteHistory    bool     `yaml:"writeHistory"`
	OverlayOrder    []string `yaml:"overlayOrder"`
}

// TokensConfig holds user-defined token substitutions, merged on top of the
// implicit SB_STACK_ID/SB_ENV/SB_SERVICE_NAME tokens.
type TokensConfig struct {
	User map[string]string `yaml:"user"`
}

// SecretizeConfig controls which environment keys are pulled out into Swarm secrets.
type SecretizeConfig struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"`
}

// EngineType selects a Swarm Secret Engine backend.
type EngineType string

const (
	EngineDockerCLI EngineType = "docker-cli"
	EngineDockerAPI EngineType = "docker-api"
)

// EngineConfig selects and configures the Swarm Secret Engine backend.
type EngineConfig struct {
	Type EngineType        `yaml:"type" validate:"omitempty,oneof=docker-cli docker-api"`
	Args map[string]string `yaml:"args"`
}

// VersionMode selects how {version} is derived for external secret names.
type VersionMode string

const (
	VersionContentSha VersionMode = "content-sha"
	VersionStatic     VersionMode = "static"
	VersionTimestamp  VersionMode = "timestamp"
)

// SecretsEngineConfig configures external secret naming and the engine backend.
type SecretsEngineConfig struct {
	Engine       EngineConfig      `yaml:"engine"`
	NameTemplate string            `yaml:"nameTemplate"`
	VersionMode  VersionMode       `yaml:"versionMode" validate:"omitempty,oneof=content-sha static timestamp"`
	Labels       map[string]string `yaml:"labels"`
	Sops         *SopsConfig       `yaml:"sops"`
}

// SopsConfig configures SOPS-encrypted env JSON decryption (section 4.17).
type SopsConfig struct {
	Age *SopsAgeConfig `yaml:"age"`
}

// SopsAgeConfig points at the age identity file used to decrypt .sops.json files.
type SopsAgeConfig struct {
	KeyFile string `yaml:"keyFile"`
}

// ProvidersConfig lists, in order, which sources feed the environment bag.
type ProvidersConfig struct {
	Order     []string           `yaml:"order"`
	File      FileProviderConfig `yaml:"file"`
	Env       EnvProviderConfig  `yaml:"env"`
	AzureKV   AzureKVConfig      `yaml:"azureKv"`
	Infisical InfisicalConfig    `yaml:"infisical"`
}

// FileProviderConfig adds extra directories to the Env JSON Collect stage.
type FileProviderConfig struct {
	ExtraJSONDirs []string `yaml:"extraJsonDirs"`
}

// EnvProviderConfig points at allowlist files for the process-env provider.
type EnvProviderConfig struct {
	AllowlistFileSearch []string `yaml:"allowlistFileSearch"`
}

// AzureKVConfig configures the Azure Key Vault provider.
type AzureKVConfig struct {
	Enabled  bool   `yaml:"enabled"`
	VaultURL string `yaml:"vaultUrl"`
}

// InfisicalConfig configures the Infisical provider and remote store adapter.
type InfisicalConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SiteURL      string        `yaml:"siteUrl"`
	ProjectID    string        `yaml:"projectId"`
	Environment  string        `yaml:"environment"`
	Routes       []RouteConfig `yaml:"routes"`
	PathTemplate string        `yaml:"pathTemplate"`
}

// RouteConfig maps a canonical key pattern to remote-store read/write paths.
type RouteConfig struct {
	Match     []string `yaml:"match"`
	ReadPaths []string `yaml:"readPaths"`
	WritePath string   `yaml:"writePath"`
}

var (
	validate      = validator.New(validator.WithRequiredStructEnabled())
	envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// Load reads and validates SbConfig from the provided path. When path is
// empty, it searches for ops/sb.yml or ops/sb.yaml relative to the current
// working directory.
func Load(path string) (SbConfig, error) {
	cfg, missing, err := LoadWithWarnings(path)
	if err != nil {
		return SbConfig{}, err
	}
	for _, name := range missing {
		fmt.Fprintf(os.Stderr, "warning: environment variable %s is not set; replacing with empty string\n", name)
	}
	return cfg, nil
}

// LoadWithWarnings is like Load but returns missing interpolation variable
// names instead of printing them, so callers (e.g. doctor) can report them.
func LoadWithWarnings(path string) (SbConfig, []string, error) {
	guessed, err := resolveConfigPath(path)
	if err != nil {
		return SbConfig{}, nil, err
	}
	guessedAbs, err := filepath.Abs(guessed)
	if err != nil {
		return SbConfig{}, nil, fmt.Errorf("abs path: %w", err)
	}

	b, err := os.ReadFile(guessedAbs)
	if err != nil {
		return SbConfig{}, nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, missing := interpolateEnvPlaceholders(string(b))

	var cfg SbConfig
	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolated)), yaml.Validator(validate), yaml.Strict())
	if err := dec.Decode(&cfg); err != nil {
		return SbConfig{}, missing, fmt.Errorf("parse yaml: %s", yaml.FormatError(err, true, true))
	}

	cfg.BaseDir = filepath.Dir(filepath.Dir(guessedAbs))
	normalize(&cfg)
	return cfg, missing, nil
}

func normalize(cfg *SbConfig) {
	if cfg.Render.AppsettingsMode == "" {
		cfg.Render.AppsettingsMode = "env"
	}
	if cfg.Render.OutDir == "" {
		cfg.Render.OutDir = "ops/state/out"
	}
	if len(cfg.Render.OverlayOrder) == 0 {
		cfg.Render.OverlayOrder = []string{
			"stacks/all/{env}/stack/*.y?(a)ml",
			"stacks/{stackId}/{env}/stack/*.y?(a)ml",
		}
	}
	if cfg.Secrets.NameTemplate == "" {
		cfg.Secrets.NameTemplate = "sb_{scope}_{env}_{key}_{version}"
	}
	if cfg.Secrets.VersionMode == "" {
		cfg.Secrets.VersionMode = VersionContentSha
	}
	if cfg.Secrets.Engine.Type == "" {
		cfg.Secrets.Engine.Type = EngineDockerAPI
	}
	if len(cfg.Providers.Order) == 0 {
		cfg.Providers.Order = []string{"file", "env"}
	}
}

func interpolateEnvPlaceholders(in string) (string, []string) {
	missingSet := map[string]struct{}{}
	out := envVarPattern.ReplaceAllStringFunc(in, func(m string) string {
		submatches := envVarPattern.FindStringSubmatch(m)
		if len(submatches) != 2 {
			return m
		}
		name := submatches[1]
		val, ok := os.LookupEnv(name)
		if !ok {
			missingSet[name] = struct{}{}
			return ""
		}
		return val
	})
	if len(missingSet) == 0 {
		return out, nil
	}
	miss := make([]string, 0, len(missingSet))
	for n := range missingSet {
		miss = append(miss, n)
	}
	sort.Strings(miss)
	return out, miss
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if info, err := os.Stat(path); err == nil {
			if info.IsDir() {
				for _, name := range []string{"sb.yml", "sb.yaml"} {
					candidate := filepath.Join(path, "ops", name)
					if _, statErr := os.Stat(candidate); statErr == nil {
						return candidate, nil
					}
				}
				return "", fmt.Errorf("no config file found under %s/ops (looked for sb.yml or sb.yaml)", path)
			}
			return path, nil
		}
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	for _, name := range []string{"sb.yml", "sb.yaml"} {
		candidate := filepath.Join(cwd, "ops", name)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, statErr)
		}
	}
	return "", fmt.Errorf("no config file found (looked for ops/sb.yml or ops/sb.yaml under %s)", cwd)
}
