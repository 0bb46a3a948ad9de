// Package tokens implements the Token Expand stage (§4.9): substitution of
// ${NAME} and {{NAME}} placeholders across every scalar field of a rendered
// Compose document.
package tokens

import (
	"regexp"

	"github.com/fusapp/swarmbender/internal/compose"
)

var (
	dollarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	bracePattern  = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)
)

// ExpandString substitutes ${NAME} and {{NAME}} occurrences found in vals,
// leaving unresolved tokens verbatim.
func ExpandString(s string, vals map[string]string) string {
	s = dollarPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := dollarPattern.FindStringSubmatch(m)[1]
		if v, ok := vals[name]; ok {
			return v
		}
		return m
	})
	s = bracePattern.ReplaceAllStringFunc(s, func(m string) string {
		name := bracePattern.FindStringSubmatch(m)[1]
		if v, ok := vals[name]; ok {
			return v
		}
		return m
	})
	return s
}

// ImplicitTokens builds the SB_STACK_ID / SB_ENV / SB_SERVICE_NAME tokens.
func ImplicitTokens(stackID, env, serviceName string) map[string]string {
	return map[string]string{
		"SB_STACK_ID":     stackID,
		"SB_ENV":          env,
		"SB_SERVICE_NAME": serviceName,
	}
}

// Expand applies token substitution to every service in f, and to the root
// Secrets entries, per §4.9. userTokens are overlaid on top of the implicit
// tokens, winning on conflict.
func Expand(f *compose.File, stackID, env string, userTokens map[string]string) {
	globalVals := map[string]string{"SB_STACK_ID": stackID, "SB_ENV": env}
	for k, v := range userTokens {
		globalVals[k] = v
	}

	for name, svc := range f.Services {
		vals := make(map[string]string, len(globalVals)+1)
		for k, v := range globalVals {
			vals[k] = v
		}
		if _, ok := userTokens["SB_SERVICE_NAME"]; !ok {
			vals["SB_SERVICE_NAME"] = name
		}
		expandService(svc, vals)
	}

	for name, sec := range f.Secrets {
		if sec == nil {
			continue
		}
		sec.Name = ExpandString(sec.Name, globalVals)
		sec.File = ExpandString(sec.File, globalVals)
		_ = name
	}
}

func expandService(svc *compose.Service, vals map[string]string) {
	if svc == nil {
		return
	}
	svc.Image = ExpandString(svc.Image, vals)
	svc.User = ExpandString(svc.User, vals)
	svc.WorkingDir = ExpandString(svc.WorkingDir, vals)
	svc.StopSignal = ExpandString(svc.StopSignal, vals)
	svc.StopGracePeriod = ExpandString(svc.StopGracePeriod, vals)

	expandListOrString(&svc.Command, vals)
	expandListOrString(&svc.Entrypoint, vals)
	expandListOrString(&svc.EnvFile, vals)
	expandListOrString(&svc.DNS, vals)
	expandListOrString(&svc.DNSSearch, vals)

	svc.Devices = expandStrings(svc.Devices, vals)
	svc.Tmpfs = expandStrings(svc.Tmpfs, vals)
	svc.Volumes = expandStrings(svc.Volumes, vals)
	svc.Ports = expandStrings(svc.Ports, vals)

	expandListOrDict(&svc.Environment, vals)
	expandListOrDict(&svc.Labels, vals)

	if svc.Logging != nil {
		svc.Logging.Driver = ExpandString(svc.Logging.Driver, vals)
		for k, v := range svc.Logging.Options {
			delete(svc.Logging.Options, k)
			svc.Logging.Options[ExpandString(k, vals)] = ExpandString(v, vals)
		}
	}
	if svc.Healthcheck != nil {
		expandListOrString(&svc.Healthcheck.Test, vals)
		svc.Healthcheck.Interval = ExpandString(svc.Healthcheck.Interval, vals)
		svc.Healthcheck.Timeout = ExpandString(svc.Healthcheck.Timeout, vals)
		svc.Healthcheck.StartPeriod = ExpandString(svc.Healthcheck.StartPeriod, vals)
	}
	if svc.Deploy != nil {
		expandListOrDict(&svc.Deploy.Labels, vals)
	}

	for k, v := range extraHostsMapRef(&svc.ExtraHosts) {
		delete(svc.ExtraHosts.Map, k)
		svc.ExtraHosts.Map[ExpandString(k, vals)] = ExpandString(v, vals)
	}
	for i, item := range svc.ExtraHosts.List {
		svc.ExtraHosts.List[i] = ExpandString(item, vals)
	}
	for k, v := range svc.Sysctls.Map {
		delete(svc.Sysctls.Map, k)
		svc.Sysctls.Map[ExpandString(k, vals)] = ExpandString(v, vals)
	}
	for i, item := range svc.Sysctls.List {
		svc.Sysctls.List[i] = ExpandString(item, vals)
	}

	for _, attach := range svc.Networks.Map {
		if attach == nil {
			continue
		}
		attach.Ipv4Address = ExpandString(attach.Ipv4Address, vals)
		attach.Ipv6Address = ExpandString(attach.Ipv6Address, vals)
		for i, a := range attach.Aliases {
			attach.Aliases[i] = ExpandString(a, vals)
		}
	}
	for i, n := range svc.Networks.List {
		svc.Networks.List[i] = ExpandString(n, vals)
	}

	for i, ref := range svc.Secrets {
		svc.Secrets[i].Source = ExpandString(ref.Source, vals)
		svc.Secrets[i].Target = ExpandString(ref.Target, vals)
	}
	for i, ref := range svc.Configs {
		svc.Configs[i].Source = ExpandString(ref.Source, vals)
		svc.Configs[i].Target = ExpandString(ref.Target, vals)
	}

	if svc.Custom != nil {
		svc.Custom = expandAny(svc.Custom, vals).(map[string]interface{})
	}
}

func extraHostsMapRef(e *compose.ExtraHosts) map[string]string {
	if e.Map == nil {
		return nil
	}
	return e.Map
}

func expandListOrString(l *compose.ListOrString, vals map[string]string) {
	for i, v := range l.Values {
		l.Values[i] = ExpandString(v, vals)
	}
}

func expandListOrDict(d *compose.ListOrDict, vals map[string]string) {
	switch d.Mode {
	case compose.ModeMap:
		for k, v := range d.Map {
			delete(d.Map, k)
			d.Map[ExpandString(k, vals)] = ExpandString(v, vals)
		}
	case compose.ModeList:
		for i, item := range d.List {
			d.List[i] = ExpandString(item, vals)
		}
	}
}

func expandStrings(in []string, vals map[string]string) []string {
	for i, v := range in {
		in[i] = ExpandString(v, vals)
	}
	return in
}

func expandAny(v interface{}, vals map[string]string) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[ExpandString(k, vals)] = expandAny(v, vals)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = expandAny(v, vals)
		}
		return out
	case string:
		return ExpandString(t, vals)
	default:
		return t
	}
}
