package tokens

import (
	"testing"

	"github.com/fusapp/swarmbender/internal/compose"
)

func TestExpand_DollarAndBraceStylesAcrossFields(t *testing.T) {
	f := &compose.File{Services: map[string]*compose.Service{
		"api": {Image: "registry/${COMPANY_NAME}/api:{{SB_ENV}}"},
	}}
	Expand(f, "app", "prod", map[string]string{"COMPANY_NAME": "acme"})
	if f.Services["api"].Image != "registry/acme/api:prod" {
		t.Fatalf("unexpected image: %q", f.Services["api"].Image)
	}
}

func TestExpand_ServiceNameToken(t *testing.T) {
	f := &compose.File{Services: map[string]*compose.Service{
		"worker": {Labels: compose.NewListOrDictMap(map[string]string{"svc": "${SB_SERVICE_NAME}"}, []string{"svc"})},
	}}
	Expand(f, "app", "dev", nil)
	m, _ := f.Services["worker"].Labels.ToMap()
	if m["svc"] != "worker" {
		t.Fatalf("expected service name token expanded, got %q", m["svc"])
	}
}

func TestExpand_UnresolvedLeftVerbatim(t *testing.T) {
	f := &compose.File{Services: map[string]*compose.Service{
		"api": {Image: "${UNKNOWN_TOKEN}"},
	}}
	Expand(f, "app", "dev", nil)
	if f.Services["api"].Image != "${UNKNOWN_TOKEN}" {
		t.Fatalf("expected unresolved token left verbatim, got %q", f.Services["api"].Image)
	}
}

func TestExpand_CustomBlockRecursive(t *testing.T) {
	f := &compose.File{Services: map[string]*compose.Service{
		"api": {Custom: map[string]interface{}{
			"x-sb": map[string]interface{}{"nested": []interface{}{"${SB_ENV}"}},
		}},
	}}
	Expand(f, "app", "staging", nil)
	nested := f.Services["api"].Custom["x-sb"].(map[string]interface{})["nested"].([]interface{})
	if nested[0] != "staging" {
		t.Fatalf("expected custom block expanded, got %#v", nested)
	}
}

func TestExpand_RootSecretNames(t *testing.T) {
	f := &compose.File{Secrets: map[string]*compose.SecretDef{
		"s1": {Name: "sb_app_${SB_ENV}_key_v1"},
	}}
	Expand(f, "app", "dev", nil)
	if f.Secrets["s1"].Name != "sb_app_dev_key_v1" {
		t.Fatalf("unexpected secret name: %q", f.Secrets["s1"].Name)
	}
}
