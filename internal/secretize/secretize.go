// Package secretize implements the Secrets Attach stage (§4.8): matching env
// keys against wildcard patterns, minting deterministic external Swarm
// secret names, and rewriting the compose model to reference them.
package secretize

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fusapp/swarmbender/internal/compose"
	"github.com/fusapp/swarmbender/internal/config"
	"github.com/fusapp/swarmbender/internal/util"
)

// secretFileMode is the Swarm secret mount mode attached to every secretized reference.
const secretFileMode = 0o444

// ToCanon replaces "." with "__", the Compose-side canonical key form.
func ToCanon(key string) string { return strings.ReplaceAll(key, ".", "__") }

// Matcher compiles secretize.paths wildcard patterns into case-insensitive,
// anchored regexes ("*" -> ".*", "?" -> ".").
type Matcher struct {
	patterns []*regexp.Regexp
}

// CompileMatcher compiles the configured wildcard paths.
func CompileMatcher(paths []string) *Matcher {
	m := &Matcher{}
	for _, p := range paths {
		m.patterns = append(m.patterns, compileWildcard(p))
	}
	return m
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

// Match reports whether key or its canonical form matches any configured pattern.
func (m *Matcher) Match(key string) bool {
	if m == nil {
		return false
	}
	canon := ToCanon(key)
	for _, re := range m.patterns {
		if re.MatchString(key) || re.MatchString(canon) {
			return true
		}
	}
	return false
}

// CollapseToCanonical merges dot-form and double-underscore-form duplicates
// of the same logical key, keeping the __ form's value when both exist
// (Invariant 2). Order is the first-seen order of the resulting canonical keys.
func CollapseToCanonical(m map[string]string, order []string) (map[string]string, []string) {
	out := make(map[string]string, len(m))
	var outOrder []string
	fromCanonForm := map[string]bool{}
	for _, k := range order {
		canon := ToCanon(k)
		wasCanon := k == canon
		if _, exists := out[canon]; exists {
			if fromCanonForm[canon] && !wasCanon {
				continue // __ form already chosen, dot form dropped
			}
			out[canon] = m[k]
			fromCanonForm[canon] = wasCanon
			continue
		}
		out[canon] = m[k]
		outOrder = append(outOrder, canon)
		fromCanonForm[canon] = wasCanon
	}
	return out, outOrder
}

// RenderName renders secrets.nameTemplate with {scope}, {stackId},
// {serviceName}, {env}, {key}, {version} placeholders. {scope} always
// includes {serviceName} in the shipped default (§9 Open Question resolution).
func RenderName(tmpl, stackID, serviceName, env, keyCanon, version string) string {
	scope := stackID + "_" + serviceName
	r := strings.NewReplacer(
		"{scope}", scope,
		"{stackId}", stackID,
		"{serviceName}", serviceName,
		"{env}", env,
		"{key}", keyCanon,
		"{version}", version,
	)
	return r.Replace(tmpl)
}

// VersionToken derives the {version} component per versionMode.
func VersionToken(mode config.VersionMode, value string, now time.Time) string {
	switch mode {
	case config.VersionStatic:
		return "v1"
	case config.VersionTimestamp:
		return now.UTC().Format("20060102150405")
	default: // content-sha
		sum := util.Sha256StringHex(value)
		if len(sum) > 12 {
			sum = sum[:12]
		}
		return sum
	}
}

// Attach removes env entries matching cfg.Paths from every service in f,
// creates the corresponding external Secrets entries (idempotently), and
// attaches deduplicated service secret references. now is used only for
// versionMode=timestamp.
func Attach(f *compose.File, stackID, env string, cfg config.SecretizeConfig, secretsCfg config.SecretsEngineConfig, now time.Time) {
	if !cfg.Enabled || len(cfg.Paths) == 0 {
		return
	}
	matcher := CompileMatcher(cfg.Paths)
	if f.Secrets == nil {
		f.Secrets = map[string]*compose.SecretDef{}
	}

	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, serviceName := range names {
		svc := f.Services[serviceName]
		raw, order := svc.Environment.ToMap()
		canonMap, canonOrder := CollapseToCanonical(raw, order)

		remaining := make(map[string]string, len(canonMap))
		var remainingOrder []string
		for _, key := range canonOrder {
			value := canonMap[key]
			if !matcher.Match(key) {
				remaining[key] = value
				remainingOrder = append(remainingOrder, key)
				continue
			}
			version := VersionToken(secretsCfg.VersionMode, value, now)
			externalName := RenderName(secretsCfg.NameTemplate, stackID, serviceName, env, key, version)
			if _, exists := f.Secrets[externalName]; !exists {
				f.Secrets[externalName] = &compose.SecretDef{External: true, Name: externalName}
			}
			appendSecretRef(svc, externalName, key)
		}
		svc.Environment = compose.NewListOrDictMap(remaining, remainingOrder)
		svc.Secrets = dedupeSecretRefs(svc.Secrets)
	}
}

func appendSecretRef(svc *compose.Service, source, target string) {
	for _, ref := range svc.Secrets {
		if ref.Source == source {
			return
		}
	}
	mode := secretFileMode
	svc.Secrets = append(svc.Secrets, compose.SecretRef{Source: source, Target: target, Mode: &mode})
}

func dedupeSecretRefs(refs []compose.SecretRef) []compose.SecretRef {
	seen := map[string]struct{}{}
	out := make([]compose.SecretRef, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.Source]; ok {
			continue
		}
		seen[ref.Source] = struct{}{}
		out = append(out, ref)
	}
	return out
}
