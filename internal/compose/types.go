// Package compose implements a typed Compose v3/Swarm-subset document model,
// the variant scalar containers YAML uses to express Compose's polymorphic
// fields, and the deep-merge rules overlays apply to it.
package compose

// File is the root Compose document: an ordered mapping of named services
// plus the top-level resource mappings. Custom carries any unrecognized
// top-level x-* key, preserved through the pipeline until Strip Custom.
type File struct {
	Version  string                 `yaml:"version,omitempty"`
	Services map[string]*Service    `yaml:"services,omitempty"`
	Networks map[string]*Network    `yaml:"networks,omitempty"`
	Volumes  map[string]*Volume     `yaml:"volumes,omitempty"`
	Configs  map[string]*ConfigDef  `yaml:"configs,omitempty"`
	Secrets  map[string]*SecretDef  `yaml:"secrets,omitempty"`
	Custom   map[string]interface{} `yaml:"-"`

	// ServiceOrder collects the names of services that Overlay Apply adds
	// beyond those already in the file. It is not filled when a file is
	// parsed, so it does not hold the template's key order, and
	// serialization does not read it.
	ServiceOrder []string `yaml:"-"`
}

// Service covers the Compose v3/Swarm subset of per-service fields.
type Service struct {
	Image           string `yaml:"image,omitempty"`
	User            string `yaml:"user,omitempty"`
	WorkingDir      string `yaml:"working_dir,omitempty"`
	StopSignal      string `yaml:"stop_signal,omitempty"`
	StopGracePeriod string `yaml:"stop_grace_period,omitempty"`

	Command    ListOrString `yaml:"command,omitempty"`
	Entrypoint ListOrString `yaml:"entrypoint,omitempty"`
	EnvFile    ListOrString `yaml:"env_file,omitempty"`
	DNS        ListOrString `yaml:"dns,omitempty"`
	DNSSearch  ListOrString `yaml:"dns_search,omitempty"`

	Devices  []string `yaml:"devices,omitempty"`
	Tmpfs    []string `yaml:"tmpfs,omitempty"`
	CapAdd   []string `yaml:"cap_add,omitempty"`
	CapDrop  []string `yaml:"cap_drop,omitempty"`
	Profiles []string `yaml:"profiles,omitempty"`
	DNSOpt   []string `yaml:"dns_opt,omitempty"`
	Volumes  []string `yaml:"volumes,omitempty"`
	Ports    []string `yaml:"ports,omitempty"`

	Secrets []SecretRef `yaml:"secrets,omitempty"`
	Configs []ConfigRef `yaml:"configs,omitempty"`

	Environment ListOrDict `yaml:"environment,omitempty"`
	Labels      ListOrDict `yaml:"labels,omitempty"`

	Logging     *Logging     `yaml:"logging,omitempty"`
	Healthcheck *Healthcheck `yaml:"healthcheck,omitempty"`
	Deploy      *Deploy      `yaml:"deploy,omitempty"`

	ExtraHosts ExtraHosts      `yaml:"extra_hosts,omitempty"`
	Ulimits    Ulimits         `yaml:"ulimits,omitempty"`
	Sysctls    Sysctls         `yaml:"sysctls,omitempty"`
	Networks   ServiceNetworks `yaml:"networks,omitempty"`

	XSbGroups  []string               `yaml:"-"`
	XSbSecrets map[string]interface{} `yaml:"-"`
	Custom     map[string]interface{} `yaml:"-"`
}

// SecretRef is a per-service `secrets:` long-syntax entry.
type SecretRef struct {
	Source string `yaml:"source"`
	Target string `yaml:"target,omitempty"`
	UID    string `yaml:"uid,omitempty"`
	GID    string `yaml:"gid,omitempty"`
	Mode   *int   `yaml:"mode,omitempty"`
}

// ConfigRef is a per-service `configs:` long-syntax entry.
type ConfigRef struct {
	Source string `yaml:"source"`
	Target string `yaml:"target,omitempty"`
}

// Logging configures the service's log driver.
type Logging struct {
	Driver  string            `yaml:"driver,omitempty"`
	Options map[string]string `yaml:"options,omitempty"`
}

// Healthcheck is the service healthcheck block.
type Healthcheck struct {
	Test        ListOrString `yaml:"test,omitempty"`
	Interval    string       `yaml:"interval,omitempty"`
	Timeout     string       `yaml:"timeout,omitempty"`
	StartPeriod string       `yaml:"start_period,omitempty"`
	Retries     *int         `yaml:"retries,omitempty"`
}

// Deploy is the Swarm `deploy:` block.
type Deploy struct {
	Replicas      *int           `yaml:"replicas,omitempty"`
	Labels        ListOrDict     `yaml:"labels,omitempty"`
	UpdateConfig  *UpdateConfig  `yaml:"update_config,omitempty"`
	RestartPolicy *RestartPolicy `yaml:"restart_policy,omitempty"`
}

// UpdateConfig controls Swarm's rolling update behavior.
type UpdateConfig struct {
	Parallelism     *int   `yaml:"parallelism,omitempty"`
	Delay           string `yaml:"delay,omitempty"`
	FailureAction   string `yaml:"failure_action,omitempty"`
	Order           string `yaml:"order,omitempty"`
	Monitor         string `yaml:"monitor,omitempty"`
	MaxFailureRatio string `yaml:"max_failure_ratio,omitempty"`
}

// RestartPolicy controls Swarm's restart behavior on task failure.
type RestartPolicy struct {
	Condition   string `yaml:"condition,omitempty"`
	Delay       string `yaml:"delay,omitempty"`
	MaxAttempts *int   `yaml:"max_attempts,omitempty"`
	Window      string `yaml:"window,omitempty"`
}

// Network is a top-level `networks:` entry.
type Network struct {
	External bool              `yaml:"external,omitempty"`
	Name     string            `yaml:"name,omitempty"`
	Driver   string            `yaml:"driver,omitempty"`
	Labels   map[string]string `yaml:"labels,omitempty"`
}

// Volume is a top-level `volumes:` entry.
type Volume struct {
	External bool              `yaml:"external,omitempty"`
	Name     string            `yaml:"name,omitempty"`
	Driver   string            `yaml:"driver,omitempty"`
	Labels   map[string]string `yaml:"labels,omitempty"`
}

// ConfigDef is a top-level `configs:` entry.
type ConfigDef struct {
	External bool   `yaml:"external,omitempty"`
	Name     string `yaml:"name,omitempty"`
	File     string `yaml:"file,omitempty"`
}

// SecretDef is a top-level `secrets:` entry. Secrets Attach (§4.8) always
// produces External=true entries; File is only set for template-declared
// file-backed secrets that pass through untouched.
type SecretDef struct {
	External bool   `yaml:"external,omitempty"`
	Name     string `yaml:"name,omitempty"`
	File     string `yaml:"file,omitempty"`
}

// Clone returns a deep copy of the service, used before mutating during
// overlay/group merges so the original template/overlay structs are never
// aliased into Working.
func (s *Service) Clone() *Service {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Command = s.Command.Clone()
	clone.Entrypoint = s.Entrypoint.Clone()
	clone.EnvFile = s.EnvFile.Clone()
	clone.DNS = s.DNS.Clone()
	clone.DNSSearch = s.DNSSearch.Clone()
	clone.Devices = cloneStrings(s.Devices)
	clone.Tmpfs = cloneStrings(s.Tmpfs)
	clone.CapAdd = cloneStrings(s.CapAdd)
	clone.CapDrop = cloneStrings(s.CapDrop)
	clone.Profiles = cloneStrings(s.Profiles)
	clone.DNSOpt = cloneStrings(s.DNSOpt)
	clone.Volumes = cloneStrings(s.Volumes)
	clone.Ports = cloneStrings(s.Ports)
	clone.Secrets = append([]SecretRef(nil), s.Secrets...)
	clone.Configs = append([]ConfigRef(nil), s.Configs...)
	clone.Environment = s.Environment.Clone()
	clone.Labels = s.Labels.Clone()
	if s.Logging != nil {
		l := *s.Logging
		l.Options = cloneMap(s.Logging.Options)
		clone.Logging = &l
	}
	if s.Healthcheck != nil {
		h := *s.Healthcheck
		h.Test = s.Healthcheck.Test.Clone()
		clone.Healthcheck = &h
	}
	if s.Deploy != nil {
		d := *s.Deploy
		d.Labels = s.Deploy.Labels.Clone()
		if s.Deploy.UpdateConfig != nil {
			uc := *s.Deploy.UpdateConfig
			d.UpdateConfig = &uc
		}
		if s.Deploy.RestartPolicy != nil {
			rp := *s.Deploy.RestartPolicy
			d.RestartPolicy = &rp
		}
		clone.Deploy = &d
	}
	clone.ExtraHosts = s.ExtraHosts.Clone()
	clone.Ulimits = s.Ulimits.Clone()
	clone.Sysctls = s.Sysctls.Clone()
	clone.Networks = s.Networks.Clone()
	clone.XSbGroups = cloneStrings(s.XSbGroups)
	clone.XSbSecrets = cloneAnyMap(s.XSbSecrets)
	clone.Custom = cloneAnyMap(s.Custom)
	return &clone
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
