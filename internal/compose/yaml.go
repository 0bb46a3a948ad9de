package compose

// fileYAML mirrors File's known fields for (de)serialization. Custom uses
// the ",inline" tag so any unrecognized top-level key (e.g. "x-sb",
// third-party "x-*" extensions) round-trips without an explicit field,
// following the teacher's preference for typed models over raw node
// manipulation.
type fileYAML struct {
	Version  string                 `yaml:"version,omitempty"`
	Services map[string]*Service    `yaml:"services,omitempty"`
	Networks map[string]*Network    `yaml:"networks,omitempty"`
	Volumes  map[string]*Volume     `yaml:"volumes,omitempty"`
	Configs  map[string]*ConfigDef  `yaml:"configs,omitempty"`
	Secrets  map[string]*SecretDef  `yaml:"secrets,omitempty"`
	Custom   map[string]interface{} `yaml:",inline"`
}

func (f *File) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var a fileYAML
	if err := unmarshal(&a); err != nil {
		return err
	}
	f.Version = a.Version
	f.Services = a.Services
	f.Networks = a.Networks
	f.Volumes = a.Volumes
	f.Configs = a.Configs
	f.Secrets = a.Secrets
	f.Custom = a.Custom
	return nil
}

func (f File) MarshalYAML() (interface{}, error) {
	return fileYAML{
		Version:  f.Version,
		Services: f.Services,
		Networks: f.Networks,
		Volumes:  f.Volumes,
		Configs:  f.Configs,
		Secrets:  f.Secrets,
		Custom:   f.Custom,
	}, nil
}

// serviceYAML mirrors Service's known fields. x-sb-groups/x-sb-secrets get
// dedicated fields since Groups Apply and Secrets Attach read them
// structurally; every other "x-*" key lands in Custom via ",inline".
type serviceYAML struct {
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

	XSbGroups  []string               `yaml:"x-sb-groups,omitempty"`
	XSbSecrets map[string]interface{} `yaml:"x-sb-secrets,omitempty"`
	Custom     map[string]interface{} `yaml:",inline"`
}

func (s *Service) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var a serviceYAML
	if err := unmarshal(&a); err != nil {
		return err
	}
	*s = Service{
		Image: a.Image, User: a.User, WorkingDir: a.WorkingDir,
		StopSignal: a.StopSignal, StopGracePeriod: a.StopGracePeriod,
		Command: a.Command, Entrypoint: a.Entrypoint, EnvFile: a.EnvFile,
		DNS: a.DNS, DNSSearch: a.DNSSearch,
		Devices: a.Devices, Tmpfs: a.Tmpfs, CapAdd: a.CapAdd, CapDrop: a.CapDrop,
		Profiles: a.Profiles, DNSOpt: a.DNSOpt, Volumes: a.Volumes, Ports: a.Ports,
		Secrets: a.Secrets, Configs: a.Configs,
		Environment: a.Environment, Labels: a.Labels,
		Logging: a.Logging, Healthcheck: a.Healthcheck, Deploy: a.Deploy,
		ExtraHosts: a.ExtraHosts, Ulimits: a.Ulimits, Sysctls: a.Sysctls, Networks: a.Networks,
		XSbGroups: a.XSbGroups, XSbSecrets: a.XSbSecrets, Custom: a.Custom,
	}
	return nil
}

func (s Service) MarshalYAML() (interface{}, error) {
	return serviceYAML{
		Image: s.Image, User: s.User, WorkingDir: s.WorkingDir,
		StopSignal: s.StopSignal, StopGracePeriod: s.StopGracePeriod,
		Command: s.Command, Entrypoint: s.Entrypoint, EnvFile: s.EnvFile,
		DNS: s.DNS, DNSSearch: s.DNSSearch,
		Devices: s.Devices, Tmpfs: s.Tmpfs, CapAdd: s.CapAdd, CapDrop: s.CapDrop,
		Profiles: s.Profiles, DNSOpt: s.DNSOpt, Volumes: s.Volumes, Ports: s.Ports,
		Secrets: s.Secrets, Configs: s.Configs,
		Environment: s.Environment, Labels: s.Labels,
		Logging: s.Logging, Healthcheck: s.Healthcheck, Deploy: s.Deploy,
		ExtraHosts: s.ExtraHosts, Ulimits: s.Ulimits, Sysctls: s.Sysctls, Networks: s.Networks,
		XSbGroups: s.XSbGroups, XSbSecrets: s.XSbSecrets, Custom: s.Custom,
	}, nil
}
