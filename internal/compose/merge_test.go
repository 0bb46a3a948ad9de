package compose

import "testing"

func TestApplyOverlay_WildcardAppliesToAllAndIsRemoved(t *testing.T) {
	working := &File{Services: map[string]*Service{
		"api": {Image: "alpine:3.20"},
	}}
	overlay := &File{Services: map[string]*Service{
		"*": {Logging: &Logging{Driver: "json-file"}},
	}}
	ApplyOverlay(working, overlay)

	if working.Services["api"].Logging == nil || working.Services["api"].Logging.Driver != "json-file" {
		t.Fatalf("expected logging.driver applied via wildcard, got %#v", working.Services["api"].Logging)
	}
	if _, ok := working.Services["*"]; ok {
		t.Fatalf("wildcard key must not survive in Working.Services")
	}
}

func TestApplyOverlay_WildcardThenNamedOverlay_NamedWins(t *testing.T) {
	working := &File{Services: map[string]*Service{
		"api": {Image: "alpine:3.20"},
	}}
	wildcardOverlay := &File{Services: map[string]*Service{
		"*": {Environment: NewListOrDictMap(map[string]string{"FOO": "1"}, []string{"FOO"})},
	}}
	ApplyOverlay(working, wildcardOverlay)

	namedOverlay := &File{Services: map[string]*Service{
		"api": {Environment: NewListOrDictMap(map[string]string{"FOO": "2"}, []string{"FOO"})},
	}}
	ApplyOverlay(working, namedOverlay)

	m, _ := working.Services["api"].Environment.ToMap()
	if m["FOO"] != "2" {
		t.Fatalf("expected named overlay to win, got FOO=%q", m["FOO"])
	}
}

func TestMergeService_ListOrStringReplace(t *testing.T) {
	base := &Service{Command: NewListOrStringList([]string{"serve"})}
	overlay := &Service{Command: NewListOrStringScalar("run.sh")}
	out := MergeService(base, overlay)
	if out.Command.Mode != ModeScalar || out.Command.Values[0] != "run.sh" {
		t.Fatalf("expected command replaced with scalar, got %#v", out.Command)
	}
}

func TestMergeService_UlimitsObjectFieldWiseMerge(t *testing.T) {
	soft := 1024
	base := &Service{Ulimits: Ulimits{Mode: ModeMap, Map: map[string]UlimitValue{
		"nofile": {Soft: &soft},
	}, MapOrder: []string{"nofile"}}}
	hard := 2048
	overlay := &Service{Ulimits: Ulimits{Mode: ModeMap, Map: map[string]UlimitValue{
		"nofile": {Hard: &hard},
	}, MapOrder: []string{"nofile"}}}
	out := MergeService(base, overlay)
	v := out.Ulimits.Map["nofile"]
	if v.Soft == nil || *v.Soft != 1024 || v.Hard == nil || *v.Hard != 2048 {
		t.Fatalf("expected field-wise soft/hard merge, got %#v", v)
	}
}

func TestMergeService_NetworksListUnionCaseInsensitiveDedup(t *testing.T) {
	base := &Service{Networks: ServiceNetworks{Mode: ModeList, List: []string{"Frontend"}}}
	overlay := &Service{Networks: ServiceNetworks{Mode: ModeList, List: []string{"frontend", "backend"}}}
	out := MergeService(base, overlay)
	if len(out.Networks.List) != 2 {
		t.Fatalf("expected dedup union of 2 networks, got %#v", out.Networks.List)
	}
}

func TestMergeService_PureListFieldsReplaceWhenNonEmpty(t *testing.T) {
	base := &Service{Ports: []string{"80:80"}}
	overlay := &Service{Ports: []string{"443:443"}}
	out := MergeService(base, overlay)
	if len(out.Ports) != 1 || out.Ports[0] != "443:443" {
		t.Fatalf("expected ports replaced, got %#v", out.Ports)
	}
	// empty overlay list is a no-op
	out2 := MergeService(out, &Service{})
	if len(out2.Ports) != 1 || out2.Ports[0] != "443:443" {
		t.Fatalf("empty overlay list must not clear existing ports, got %#v", out2.Ports)
	}
}

func TestMergeService_EnvironmentMixedModeOverlayWins(t *testing.T) {
	base := &Service{Environment: NewListOrDictList([]string{"A=1"})}
	overlay := &Service{Environment: NewListOrDictMap(map[string]string{"B": "2"}, []string{"B"})}
	out := MergeService(base, overlay)
	if out.Environment.Mode != ModeMap {
		t.Fatalf("expected overlay (map form) to win on mixed modes, got mode=%v", out.Environment.Mode)
	}
}

func TestApplyOverlay_EmptyServicesIsNoOp(t *testing.T) {
	working := &File{
		Services: map[string]*Service{"api": {Image: "alpine:3.20"}},
		Custom:   map[string]interface{}{"x-sb": map[string]interface{}{"labels": map[string]interface{}{"team": "core"}}},
	}
	overlay := &File{Custom: map[string]interface{}{"x-sb": map[string]interface{}{"labels": map[string]interface{}{"owner": "infra"}}}}
	ApplyOverlay(working, overlay)
	if working.Services["api"].Image != "alpine:3.20" {
		t.Fatalf("service must be untouched by an overlay with no services")
	}
	labels := working.Custom["x-sb"].(map[string]interface{})["labels"].(map[string]interface{})
	if labels["team"] != "core" || labels["owner"] != "infra" {
		t.Fatalf("expected merged custom labels, got %#v", labels)
	}
}
