package compose

import "strings"

// ApplyOverlay deep-merges overlay into working per §4.2's contract: the
// wildcard service ("*") is merged into every concrete service first and
// then discarded, named services are merged or added, and all non-services
// top-level fields are merged with mapping/list/scalar semantics.
func ApplyOverlay(working *File, overlay *File) {
	if overlay == nil {
		return
	}
	if wildcard, ok := overlay.Services["*"]; ok {
		for name, svc := range working.Services {
			working.Services[name] = MergeService(svc, wildcard)
		}
		delete(overlay.Services, "*")
	}
	for name, svc := range overlay.Services {
		if existing, ok := working.Services[name]; ok {
			working.Services[name] = MergeService(existing, svc)
		} else {
			working.Services[name] = svc.Clone()
			working.ServiceOrder = append(working.ServiceOrder, name)
		}
	}

	if len(overlay.Networks) > 0 {
		if working.Networks == nil {
			working.Networks = map[string]*Network{}
		}
		for k, v := range overlay.Networks {
			working.Networks[k] = v
		}
	}
	if len(overlay.Volumes) > 0 {
		if working.Volumes == nil {
			working.Volumes = map[string]*Volume{}
		}
		for k, v := range overlay.Volumes {
			working.Volumes[k] = v
		}
	}
	if len(overlay.Configs) > 0 {
		if working.Configs == nil {
			working.Configs = map[string]*ConfigDef{}
		}
		for k, v := range overlay.Configs {
			working.Configs[k] = v
		}
	}
	if len(overlay.Secrets) > 0 {
		if working.Secrets == nil {
			working.Secrets = map[string]*SecretDef{}
		}
		for k, v := range overlay.Secrets {
			working.Secrets[k] = v
		}
	}
	if overlay.Version != "" {
		working.Version = overlay.Version
	}
	if len(overlay.Custom) > 0 {
		if working.Custom == nil {
			working.Custom = map[string]interface{}{}
		}
		for k, v := range overlay.Custom {
			working.Custom[k] = mergeCustomValue(working.Custom[k], v)
		}
	}
}

func mergeCustomValue(existing, incoming interface{}) interface{} {
	if incoming == nil {
		return existing
	}
	existingMap, eok := existing.(map[string]interface{})
	incomingMap, iok := incoming.(map[string]interface{})
	if eok && iok {
		out := make(map[string]interface{}, len(existingMap)+len(incomingMap))
		for k, v := range existingMap {
			out[k] = v
		}
		for k, v := range incomingMap {
			out[k] = mergeCustomValue(existingMap[k], v)
		}
		return out
	}
	existingList, eok := existing.([]interface{})
	incomingList, iok := incoming.([]interface{})
	if eok && iok {
		return append(append([]interface{}(nil), existingList...), incomingList...)
	}
	return incoming
}

// MergeService deep-merges overlay into base per the Service Deep Merge
// table in §4.2, returning a new *Service (base and overlay are untouched).
func MergeService(base, overlay *Service) *Service {
	if base == nil {
		return overlay.Clone()
	}
	if overlay == nil {
		return base.Clone()
	}
	out := base.Clone()

	if overlay.Image != "" {
		out.Image = overlay.Image
	}
	if overlay.User != "" {
		out.User = overlay.User
	}
	if overlay.WorkingDir != "" {
		out.WorkingDir = overlay.WorkingDir
	}
	if overlay.StopSignal != "" {
		out.StopSignal = overlay.StopSignal
	}
	if overlay.StopGracePeriod != "" {
		out.StopGracePeriod = overlay.StopGracePeriod
	}

	if !overlay.Command.IsZero() {
		out.Command = overlay.Command.Clone()
	}
	if !overlay.Entrypoint.IsZero() {
		out.Entrypoint = overlay.Entrypoint.Clone()
	}
	if !overlay.EnvFile.IsZero() {
		out.EnvFile = overlay.EnvFile.Clone()
	}
	if !overlay.DNS.IsZero() {
		out.DNS = overlay.DNS.Clone()
	}
	if !overlay.DNSSearch.IsZero() {
		out.DNSSearch = overlay.DNSSearch.Clone()
	}

	if len(overlay.Devices) > 0 {
		out.Devices = cloneStrings(overlay.Devices)
	}
	if len(overlay.Tmpfs) > 0 {
		out.Tmpfs = cloneStrings(overlay.Tmpfs)
	}
	if len(overlay.CapAdd) > 0 {
		out.CapAdd = cloneStrings(overlay.CapAdd)
	}
	if len(overlay.CapDrop) > 0 {
		out.CapDrop = cloneStrings(overlay.CapDrop)
	}
	if len(overlay.Profiles) > 0 {
		out.Profiles = cloneStrings(overlay.Profiles)
	}
	if len(overlay.DNSOpt) > 0 {
		out.DNSOpt = cloneStrings(overlay.DNSOpt)
	}
	if len(overlay.Volumes) > 0 {
		out.Volumes = cloneStrings(overlay.Volumes)
	}
	if len(overlay.Ports) > 0 {
		out.Ports = cloneStrings(overlay.Ports)
	}
	if len(overlay.Secrets) > 0 {
		out.Secrets = append([]SecretRef(nil), overlay.Secrets...)
	}
	if len(overlay.Configs) > 0 {
		out.Configs = append([]ConfigRef(nil), overlay.Configs...)
	}

	out.Environment = mergeListOrDict(out.Environment, overlay.Environment)
	out.Labels = mergeListOrDict(out.Labels, overlay.Labels)

	out.Logging = mergeLogging(out.Logging, overlay.Logging)
	out.Healthcheck = mergeHealthcheck(out.Healthcheck, overlay.Healthcheck)
	out.Deploy = mergeDeploy(out.Deploy, overlay.Deploy)

	out.ExtraHosts = mergeExtraHosts(out.ExtraHosts, overlay.ExtraHosts)
	out.Ulimits = mergeUlimits(out.Ulimits, overlay.Ulimits)
	out.Sysctls = mergeSysctls(out.Sysctls, overlay.Sysctls)
	out.Networks = mergeServiceNetworks(out.Networks, overlay.Networks)

	if len(overlay.XSbGroups) > 0 {
		out.XSbGroups = append(append([]string(nil), out.XSbGroups...), overlay.XSbGroups...)
	}
	if len(overlay.XSbSecrets) > 0 {
		if out.XSbSecrets == nil {
			out.XSbSecrets = map[string]interface{}{}
		}
		for k, v := range overlay.XSbSecrets {
			out.XSbSecrets[k] = v
		}
	}
	if len(overlay.Custom) > 0 {
		if out.Custom == nil {
			out.Custom = map[string]interface{}{}
		}
		for k, v := range overlay.Custom {
			out.Custom[k] = mergeCustomValue(out.Custom[k], v)
		}
	}

	return out
}

func mergeListOrDict(base, overlay ListOrDict) ListOrDict {
	if overlay.IsZero() {
		return base
	}
	if base.IsZero() {
		return overlay.Clone()
	}
	if base.Mode == ModeMap && overlay.Mode == ModeMap {
		m := cloneMap(base.Map)
		order := append([]string(nil), base.MapOrder...)
		for _, k := range overlay.MapOrder {
			if _, ok := m[k]; !ok {
				order = append(order, k)
			}
			m[k] = overlay.Map[k]
		}
		return NewListOrDictMap(m, order)
	}
	if base.Mode == ModeList && overlay.Mode == ModeList {
		return NewListOrDictList(append(append([]string(nil), base.List...), overlay.List...))
	}
	// mixed: overlay wins
	return overlay.Clone()
}

func mergeLogging(base, overlay *Logging) *Logging {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = &Logging{}
	}
	out := *base
	if overlay.Driver != "" {
		out.Driver = overlay.Driver
	}
	if len(overlay.Options) > 0 {
		out.Options = cloneMap(out.Options)
		if out.Options == nil {
			out.Options = map[string]string{}
		}
		for k, v := range overlay.Options {
			out.Options[k] = v
		}
	}
	return &out
}

func mergeHealthcheck(base, overlay *Healthcheck) *Healthcheck {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = &Healthcheck{}
	}
	out := *base
	if !overlay.Test.IsZero() {
		out.Test = overlay.Test.Clone()
	}
	if overlay.Interval != "" {
		out.Interval = overlay.Interval
	}
	if overlay.Timeout != "" {
		out.Timeout = overlay.Timeout
	}
	if overlay.StartPeriod != "" {
		out.StartPeriod = overlay.StartPeriod
	}
	if overlay.Retries != nil {
		out.Retries = overlay.Retries
	}
	return &out
}

func mergeDeploy(base, overlay *Deploy) *Deploy {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = &Deploy{}
	}
	out := *base
	if overlay.Replicas != nil {
		out.Replicas = overlay.Replicas
	}
	out.Labels = mergeListOrDict(out.Labels, overlay.Labels)
	if overlay.UpdateConfig != nil {
		out.UpdateConfig = mergeUpdateConfig(out.UpdateConfig, overlay.UpdateConfig)
	}
	if overlay.RestartPolicy != nil {
		out.RestartPolicy = mergeRestartPolicy(out.RestartPolicy, overlay.RestartPolicy)
	}
	return &out
}

func mergeUpdateConfig(base, overlay *UpdateConfig) *UpdateConfig {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = &UpdateConfig{}
	}
	out := *base
	if overlay.Parallelism != nil {
		out.Parallelism = overlay.Parallelism
	}
	if overlay.Delay != "" {
		out.Delay = overlay.Delay
	}
	if overlay.FailureAction != "" {
		out.FailureAction = overlay.FailureAction
	}
	if overlay.Order != "" {
		out.Order = overlay.Order
	}
	if overlay.Monitor != "" {
		out.Monitor = overlay.Monitor
	}
	if overlay.MaxFailureRatio != "" {
		out.MaxFailureRatio = overlay.MaxFailureRatio
	}
	return &out
}

func mergeRestartPolicy(base, overlay *RestartPolicy) *RestartPolicy {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = &RestartPolicy{}
	}
	out := *base
	if overlay.Condition != "" {
		out.Condition = overlay.Condition
	}
	if overlay.Delay != "" {
		out.Delay = overlay.Delay
	}
	if overlay.MaxAttempts != nil {
		out.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.Window != "" {
		out.Window = overlay.Window
	}
	return &out
}

func mergeExtraHosts(base, overlay ExtraHosts) ExtraHosts {
	if overlay.IsZero() {
		return base
	}
	if base.IsZero() {
		return overlay.Clone()
	}
	if base.Mode == ModeMap && overlay.Mode == ModeMap {
		m := cloneMap(base.Map)
		order := append([]string(nil), base.MapOrder...)
		for _, k := range overlay.MapOrder {
			if _, ok := m[k]; !ok {
				order = append(order, k)
			}
			m[k] = overlay.Map[k]
		}
		return ExtraHosts{Mode: ModeMap, Map: m, MapOrder: order}
	}
	if base.Mode == ModeList && overlay.Mode == ModeList {
		return ExtraHosts{Mode: ModeList, List: append(append([]string(nil), base.List...), overlay.List...)}
	}
	return overlay.Clone()
}

func mergeUlimits(base, overlay Ulimits) Ulimits {
	if overlay.IsZero() {
		return base
	}
	if base.IsZero() {
		return overlay.Clone()
	}
	if base.Mode == ModeMap && overlay.Mode == ModeMap {
		m := make(map[string]UlimitValue, len(base.Map)+len(overlay.Map))
		for k, v := range base.Map {
			m[k] = v
		}
		order := append([]string(nil), base.MapOrder...)
		for _, k := range overlay.MapOrder {
			ov := overlay.Map[k]
			if bv, ok := m[k]; ok && bv.Single == nil && ov.Single == nil {
				merged := bv
				if ov.Soft != nil {
					merged.Soft = ov.Soft
				}
				if ov.Hard != nil {
					merged.Hard = ov.Hard
				}
				m[k] = merged
			} else {
				m[k] = ov
			}
			if _, existed := base.Map[k]; !existed {
				order = append(order, k)
			}
		}
		return Ulimits{Mode: ModeMap, Map: m, MapOrder: order}
	}
	if base.Mode == ModeList && overlay.Mode == ModeList {
		return Ulimits{Mode: ModeList, List: append(append([]string(nil), base.List...), overlay.List...)}
	}
	return overlay.Clone()
}

func mergeSysctls(base, overlay Sysctls) Sysctls {
	if overlay.IsZero() {
		return base
	}
	if base.IsZero() {
		return overlay.Clone()
	}
	if base.Mode == ModeMap && overlay.Mode == ModeMap {
		m := cloneMap(base.Map)
		order := append([]string(nil), base.MapOrder...)
		for _, k := range overlay.MapOrder {
			if _, ok := m[k]; !ok {
				order = append(order, k)
			}
			m[k] = overlay.Map[k]
		}
		return Sysctls{Mode: ModeMap, Map: m, MapOrder: order}
	}
	if base.Mode == ModeList && overlay.Mode == ModeList {
		return Sysctls{Mode: ModeList, List: append(append([]string(nil), base.List...), overlay.List...)}
	}
	return overlay.Clone()
}

func mergeServiceNetworks(base, overlay ServiceNetworks) ServiceNetworks {
	if overlay.IsZero() {
		return base
	}
	if base.IsZero() {
		return overlay.Clone()
	}
	if base.Mode == ModeMap && overlay.Mode == ModeMap {
		m := make(map[string]*NetworkAttachment, len(base.Map)+len(overlay.Map))
		for k, v := range base.Map {
			m[k] = v
		}
		order := append([]string(nil), base.MapOrder...)
		for _, k := range overlay.MapOrder {
			if _, ok := m[k]; !ok {
				order = append(order, k)
			}
			m[k] = overlay.Map[k]
		}
		return ServiceNetworks{Mode: ModeMap, Map: m, MapOrder: order}
	}
	if base.Mode == ModeList && overlay.Mode == ModeList {
		out := append([]string(nil), base.List...)
		seen := map[string]struct{}{}
		for _, n := range out {
			seen[strings.ToLower(n)] = struct{}{}
		}
		for _, n := range overlay.List {
			key := strings.ToLower(n)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, n)
		}
		return ServiceNetworks{Mode: ModeList, List: out}
	}
	return overlay.Clone()
}
