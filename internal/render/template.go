package render

import (
	"os"
	"path/filepath"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/compose"
	"github.com/goccy/go-yaml"
)

// LoadTemplate resolves stacks/<stackId>/docker-stack.template.(yml|yaml),
// parses it twice into independent *compose.File values (Template and
// Working), and records TemplatePath (§4.1).
func LoadTemplate(ctx *Context) error {
	base := filepath.Join(ctx.Request.RootPath, "stacks", ctx.Request.StackID, "docker-stack.template")
	var path string
	for _, ext := range []string{".yml", ".yaml"} {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return apperr.New("render.LoadTemplate", apperr.NotFound, "template missing: %s.(yml|yaml)", base)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return apperr.Wrap("render.LoadTemplate", apperr.External, err, "read template %s", path)
	}

	template := &compose.File{}
	if err := yaml.Unmarshal(b, template); err != nil {
		return apperr.Wrap("render.LoadTemplate", apperr.InvalidInput, err, "parse template %s", path)
	}
	working := &compose.File{}
	if err := yaml.Unmarshal(b, working); err != nil {
		return apperr.Wrap("render.LoadTemplate", apperr.InvalidInput, err, "parse template %s", path)
	}

	ctx.Template = template
	ctx.Working = working
	ctx.TemplatePath = path
	return nil
}
