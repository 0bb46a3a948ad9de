package compose

import (
	"fmt"
	"sort"
	"strings"
)

// Mode tags which shape a variant scalar container currently holds.
// The zero value, ModeNone, means the field was absent.
type Mode int

const (
	ModeNone Mode = iota
	ModeScalar
	ModeList
	ModeMap
)

// ListOrString holds either a single string or an ordered list of strings,
// never both (§3 "Variant scalar containers").
type ListOrString struct {
	Mode   Mode
	Values []string
}

// NewListOrStringList builds a ListOrString in list form.
func NewListOrStringList(vals []string) ListOrString {
	return ListOrString{Mode: ModeList, Values: vals}
}

// NewListOrStringScalar builds a ListOrString in scalar form.
func NewListOrStringScalar(v string) ListOrString {
	return ListOrString{Mode: ModeScalar, Values: []string{v}}
}

func (l ListOrString) IsZero() bool { return l.Mode == ModeNone }

func (l ListOrString) Clone() ListOrString {
	return ListOrString{Mode: l.Mode, Values: cloneStrings(l.Values)}
}

// UnmarshalYAML tries a plain scalar first, then a list of scalars, then nil
// — following the teacher's RestartTargets technique of trying one shape,
// then the other, then empty.
func (l *ListOrString) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*l = NewListOrStringScalar(s)
		return nil
	}
	var list []string
	if err := unmarshal(&list); err == nil {
		*l = NewListOrStringList(list)
		return nil
	}
	*l = ListOrString{}
	return nil
}

func (l ListOrString) MarshalYAML() (interface{}, error) {
	switch l.Mode {
	case ModeScalar:
		if len(l.Values) == 0 {
			return nil, nil
		}
		return l.Values[0], nil
	case ModeList:
		return l.Values, nil
	default:
		return nil, nil
	}
}

// ListOrDict holds either an ordered list of "KEY" / "KEY=VALUE" strings or a
// string-to-string mapping, never both.
type ListOrDict struct {
	Mode     Mode
	List     []string
	Map      map[string]string
	MapOrder []string
}

func NewListOrDictMap(m map[string]string, order []string) ListOrDict {
	return ListOrDict{Mode: ModeMap, Map: m, MapOrder: order}
}

func NewListOrDictList(list []string) ListOrDict {
	return ListOrDict{Mode: ModeList, List: list}
}

func (d ListOrDict) IsZero() bool { return d.Mode == ModeNone }

func (d ListOrDict) Clone() ListOrDict {
	return ListOrDict{Mode: d.Mode, List: cloneStrings(d.List), Map: cloneMap(d.Map), MapOrder: cloneStrings(d.MapOrder)}
}

func (d *ListOrDict) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*d = NewListOrDictList(list)
		return nil
	}
	var m map[string]string
	if err := unmarshal(&m); err == nil {
		order := sortedKeys(m)
		*d = NewListOrDictMap(m, order)
		return nil
	}
	*d = ListOrDict{}
	return nil
}

func (d ListOrDict) MarshalYAML() (interface{}, error) {
	switch d.Mode {
	case ModeList:
		return d.List, nil
	case ModeMap:
		return d.Map, nil
	default:
		return nil, nil
	}
}

// ToMap flattens either representation into a plain map, splitting
// "KEY=VALUE" / bare "KEY" list entries.
func (d ListOrDict) ToMap() (map[string]string, []string) {
	out := map[string]string{}
	var order []string
	switch d.Mode {
	case ModeMap:
		for _, k := range d.MapOrder {
			if _, ok := out[k]; !ok {
				order = append(order, k)
			}
			out[k] = d.Map[k]
		}
		for k, v := range d.Map {
			if _, seen := out[k]; !seen {
				order = append(order, k)
				out[k] = v
			}
		}
	case ModeList:
		for _, item := range d.List {
			k, v, _ := strings.Cut(item, "=")
			if _, ok := out[k]; !ok {
				order = append(order, k)
			}
			out[k] = v
		}
	}
	return out, order
}

// ExtraHosts holds either a "host:ip" list or a host->ip mapping.
type ExtraHosts struct {
	Mode     Mode
	List     []string
	Map      map[string]string
	MapOrder []string
}

func (e ExtraHosts) IsZero() bool { return e.Mode == ModeNone }

func (e ExtraHosts) Clone() ExtraHosts {
	return ExtraHosts{Mode: e.Mode, List: cloneStrings(e.List), Map: cloneMap(e.Map), MapOrder: cloneStrings(e.MapOrder)}
}

func (e *ExtraHosts) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*e = ExtraHosts{Mode: ModeList, List: list}
		return nil
	}
	var m map[string]string
	if err := unmarshal(&m); err == nil {
		*e = ExtraHosts{Mode: ModeMap, Map: m, MapOrder: sortedKeys(m)}
		return nil
	}
	*e = ExtraHosts{}
	return nil
}

func (e ExtraHosts) MarshalYAML() (interface{}, error) {
	switch e.Mode {
	case ModeList:
		return e.List, nil
	case ModeMap:
		return e.Map, nil
	default:
		return nil, nil
	}
}

// ToMap flattens either representation into host->ip pairs.
func (e ExtraHosts) ToMap() (map[string]string, []string) {
	out := map[string]string{}
	var order []string
	switch e.Mode {
	case ModeMap:
		for _, k := range e.MapOrder {
			out[k] = e.Map[k]
			order = append(order, k)
		}
	case ModeList:
		for _, item := range e.List {
			host, ip, _ := strings.Cut(item, ":")
			if _, ok := out[host]; !ok {
				order = append(order, host)
			}
			out[host] = ip
		}
	}
	return out, order
}

// UlimitValue is either a single soft=hard integer, or an explicit
// {soft, hard} object.
type UlimitValue struct {
	Single *int
	Soft   *int
	Hard   *int
}

func (u UlimitValue) Clone() UlimitValue { return u }

func (u *UlimitValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n int
	if err := unmarshal(&n); err == nil {
		*u = UlimitValue{Single: &n}
		return nil
	}
	var obj struct {
		Soft *int `yaml:"soft"`
		Hard *int `yaml:"hard"`
	}
	if err := unmarshal(&obj); err == nil {
		*u = UlimitValue{Soft: obj.Soft, Hard: obj.Hard}
		return nil
	}
	return fmt.Errorf("ulimit value: expected integer or {soft,hard} object")
}

func (u UlimitValue) MarshalYAML() (interface{}, error) {
	if u.Single != nil {
		return *u.Single, nil
	}
	return map[string]interface{}{"soft": u.Soft, "hard": u.Hard}, nil
}

// Ulimits holds either a list of raw ulimit strings or a name->value mapping.
type Ulimits struct {
	Mode     Mode
	List     []string
	Map      map[string]UlimitValue
	MapOrder []string
}

func (u Ulimits) IsZero() bool { return u.Mode == ModeNone }

func (u Ulimits) Clone() Ulimits {
	m := map[string]UlimitValue(nil)
	if u.Map != nil {
		m = make(map[string]UlimitValue, len(u.Map))
		for k, v := range u.Map {
			m[k] = v.Clone()
		}
	}
	return Ulimits{Mode: u.Mode, List: cloneStrings(u.List), Map: m, MapOrder: cloneStrings(u.MapOrder)}
}

func (u *Ulimits) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*u = Ulimits{Mode: ModeList, List: list}
		return nil
	}
	var m map[string]UlimitValue
	if err := unmarshal(&m); err == nil {
		*u = Ulimits{Mode: ModeMap, Map: m, MapOrder: sortedUlimitKeys(m)}
		return nil
	}
	*u = Ulimits{}
	return nil
}

func (u Ulimits) MarshalYAML() (interface{}, error) {
	switch u.Mode {
	case ModeList:
		return u.List, nil
	case ModeMap:
		return u.Map, nil
	default:
		return nil, nil
	}
}

func sortedUlimitKeys(m map[string]UlimitValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sysctls holds either a list of "KEY=VALUE" strings or a mapping.
type Sysctls struct {
	Mode     Mode
	List     []string
	Map      map[string]string
	MapOrder []string
}

func (s Sysctls) IsZero() bool { return s.Mode == ModeNone }

func (s Sysctls) Clone() Sysctls {
	return Sysctls{Mode: s.Mode, List: cloneStrings(s.List), Map: cloneMap(s.Map), MapOrder: cloneStrings(s.MapOrder)}
}

func (s *Sysctls) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*s = Sysctls{Mode: ModeList, List: list}
		return nil
	}
	var m map[string]string
	if err := unmarshal(&m); err == nil {
		*s = Sysctls{Mode: ModeMap, Map: m, MapOrder: sortedKeys(m)}
		return nil
	}
	*s = Sysctls{}
	return nil
}

func (s Sysctls) MarshalYAML() (interface{}, error) {
	switch s.Mode {
	case ModeList:
		return s.List, nil
	case ModeMap:
		return s.Map, nil
	default:
		return nil, nil
	}
}

func (s Sysctls) ToMap() (map[string]string, []string) {
	out := map[string]string{}
	var order []string
	switch s.Mode {
	case ModeMap:
		for _, k := range s.MapOrder {
			out[k] = s.Map[k]
			order = append(order, k)
		}
	case ModeList:
		for _, item := range s.List {
			k, v, _ := strings.Cut(item, "=")
			if _, ok := out[k]; !ok {
				order = append(order, k)
			}
			out[k] = v
		}
	}
	return out, order
}

// NetworkAttachment is the per-network attachment configuration available in
// ServiceNetworks' map form.
type NetworkAttachment struct {
	Aliases     []string `yaml:"aliases,omitempty"`
	Ipv4Address string   `yaml:"ipv4_address,omitempty"`
	Ipv6Address string   `yaml:"ipv6_address,omitempty"`
}

func (a *NetworkAttachment) Clone() *NetworkAttachment {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Aliases = cloneStrings(a.Aliases)
	return &clone
}

// ServiceNetworks holds either a plain list of network names or a
// name->attachment mapping.
type ServiceNetworks struct {
	Mode     Mode
	List     []string
	Map      map[string]*NetworkAttachment
	MapOrder []string
}

func (n ServiceNetworks) IsZero() bool { return n.Mode == ModeNone }

func (n ServiceNetworks) Clone() ServiceNetworks {
	m := map[string]*NetworkAttachment(nil)
	if n.Map != nil {
		m = make(map[string]*NetworkAttachment, len(n.Map))
		for k, v := range n.Map {
			m[k] = v.Clone()
		}
	}
	return ServiceNetworks{Mode: n.Mode, List: cloneStrings(n.List), Map: m, MapOrder: cloneStrings(n.MapOrder)}
}

func (n *ServiceNetworks) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*n = ServiceNetworks{Mode: ModeList, List: list}
		return nil
	}
	var m map[string]*NetworkAttachment
	if err := unmarshal(&m); err == nil {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		*n = ServiceNetworks{Mode: ModeMap, Map: m, MapOrder: keys}
		return nil
	}
	*n = ServiceNetworks{}
	return nil
}

func (n ServiceNetworks) MarshalYAML() (interface{}, error) {
	switch n.Mode {
	case ModeList:
		return n.List, nil
	case ModeMap:
		return n.Map, nil
	default:
		return nil, nil
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
