package render

import (
	"context"
	"time"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/envsources"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/providers"
	"github.com/fusapp/swarmbender/internal/secretize"
	"github.com/fusapp/swarmbender/internal/tokens"
)

// runCommonStages wires Template Load through Token Expand (§4.1-§4.9),
// the portion shared by StackRender and ConfigExport. Secret Discovery does
// not call it; it runs its own subset of these stages.
func runCommonStages(ctx context.Context, rc *Context, log logger.Logger) error {
	if err := LoadTemplate(rc); err != nil {
		return err
	}
	if err := ApplyOverlays(rc); err != nil {
		return err
	}

	bag, err := envsources.CollectFileEnv(
		log,
		rc.Request.RootPath,
		rc.Request.StackID,
		rc.Request.Env,
		rc.Config.Providers.File.ExtraJSONDirs,
		ageKeyFile(rc.Config),
	)
	if err != nil {
		return err
	}

	reg := providers.NewRegistry(rc.Config.Providers)
	providers.Aggregate(ctx, log, reg, rc.Config.Providers, rc.Request.RootPath, rc.Request.StackID, rc.Request.Env, bag)
	rc.Env = bag

	if err := ApplyEnvironment(rc); err != nil {
		return err
	}
	if err := ApplyGroups(rc); err != nil {
		return err
	}
	if err := NormalizeLabels(rc); err != nil {
		return err
	}

	secretize.Attach(rc.Working, rc.Request.StackID, rc.Request.Env, rc.Config.Secretize, rc.Config.Secrets, time.Now())

	userTokens := rc.Config.Tokens.User
	tokens.Expand(rc.Working, rc.Request.StackID, rc.Request.Env, userTokens)

	return nil
}

func ageKeyFile(cfg config.SbConfig) string {
	if cfg.Secrets.Sops != nil && cfg.Secrets.Sops.Age != nil {
		return cfg.Secrets.Sops.Age.KeyFile
	}
	return ""
}

// RunStackRender executes the full StackRender pipeline (§2): every common
// stage followed by Env Stringify, Strip Custom, and YAML serialization.
func RunStackRender(ctx context.Context, rc *Context, log logger.Logger) error {
	if err := runCommonStages(ctx, rc, log); err != nil {
		return err
	}
	if err := StringifyEnv(rc); err != nil {
		return err
	}
	if err := StripCustom(rc); err != nil {
		return err
	}
	return SerializeStack(rc, time.Now())
}

// RunConfigExport executes the ConfigExport pipeline: every common stage
// (environment is left in map form; no YAML-oriented stringify is needed)
// followed by JSON export.
func RunConfigExport(ctx context.Context, rc *Context, log logger.Logger) error {
	if err := runCommonStages(ctx, rc, log); err != nil {
		return err
	}
	if err := StripCustom(rc); err != nil {
		return err
	}
	matcher := secretize.CompileMatcher(rc.Config.Secretize.Paths)
	return ExportConfig(rc, matcher)
}

// Run dispatches on rc.Request.AppsettingsMode, matching the CLI's
// --appsettings-mode flag (§6).
func Run(ctx context.Context, rc *Context, log logger.Logger) error {
	switch rc.Request.AppsettingsMode {
	case "", "env":
		return RunStackRender(ctx, rc, log)
	case "config":
		return RunConfigExport(ctx, rc, log)
	default:
		return apperr.New("render.Run", apperr.InvalidInput, "unknown appsettings mode %q", rc.Request.AppsettingsMode)
	}
}
