package render

import (
	"os"
	"path/filepath"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/compose"
	"github.com/goccy/go-yaml"
)

// ApplyGroups implements §4.6: services declaring x-sb-groups pull in a
// fragment per named group, common fragment first then stack-specific,
// deep-merged over the service in declaration order.
func ApplyGroups(ctx *Context) error {
	for name, svc := range ctx.Working.Services {
		for _, group := range svc.XSbGroups {
			candidates := []string{
				filepath.Join(ctx.Request.RootPath, "stacks", "all", ctx.Request.Env, "groups", group, "service"),
				filepath.Join(ctx.Request.RootPath, "stacks", ctx.Request.StackID, ctx.Request.Env, "groups", group, "service"),
			}
			for _, base := range candidates {
				fragment, ok, err := loadServiceFragment(base)
				if err != nil {
					return apperr.Wrap("render.ApplyGroups", apperr.InvalidInput, err, "group %q for service %q", group, name)
				}
				if !ok {
					continue
				}
				applyReplicasShim(fragment)
				merged := compose.MergeService(svc, fragment)
				ctx.Working.Services[name] = merged
				svc = merged
			}
		}
	}
	return nil
}

func loadServiceFragment(base string) (*compose.Service, bool, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		path := base + ext
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, false, apperr.Wrap("render.loadServiceFragment", apperr.External, err, "read %s", path)
		}
		var svc compose.Service
		if err := yaml.Unmarshal(b, &svc); err != nil {
			return nil, false, apperr.Wrap("render.loadServiceFragment", apperr.InvalidInput, err, "parse %s", path)
		}
		return &svc, true, nil
	}
	return nil, false, nil
}

// applyReplicasShim maps a stray top-level "replicas" key (a shorthand some
// group fragments use instead of the full deploy.replicas shape) onto
// deploy.replicas.
func applyReplicasShim(svc *compose.Service) {
	raw, ok := svc.Custom["replicas"]
	if !ok {
		return
	}
	delete(svc.Custom, "replicas")

	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	default:
		return
	}
	if svc.Deploy == nil {
		svc.Deploy = &compose.Deploy{}
	}
	svc.Deploy.Replicas = &n
}
