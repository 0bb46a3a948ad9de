package remotestore

import (
	"regexp"
	"strings"

	"github.com/fusapp/swarmbender/internal/config"
)

// Route is a resolved (readPaths, writePath) pair for one canonical key.
type Route struct {
	ReadPaths []string
	WritePath string
}

// ResolveRoute matches key (canonical, "__"-joined) against the configured
// routes in order, first hit wins. With no match (or no routes configured
// at all) it falls back to a single path built from pathTemplate, per
// §4.15 "upload to remote store".
func ResolveRoute(routes []config.RouteConfig, pathTemplate, stackID, env, key string) Route {
	for _, r := range routes {
		for _, pattern := range r.Match {
			if compileWildcard(pattern).MatchString(key) {
				write := r.WritePath
				if write == "" && len(r.ReadPaths) > 0 {
					write = r.ReadPaths[0]
				}
				return Route{ReadPaths: r.ReadPaths, WritePath: templatePath(write, stackID, env)}
			}
		}
	}
	tmpl := pathTemplate
	if tmpl == "" {
		tmpl = "/"
	}
	path := templatePath(tmpl, stackID, env)
	return Route{ReadPaths: []string{path}, WritePath: path}
}

func templatePath(tmpl, stackID, env string) string {
	return strings.NewReplacer("{stackId}", stackID, "{env}", env).Replace(tmpl)
}

func compileWildcard(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
