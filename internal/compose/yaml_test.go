package compose

import (
	"testing"

	"github.com/goccy/go-yaml"
)

func TestFile_UnmarshalYAML_CapturesCustomTopLevelKeys(t *testing.T) {
	src := `
version: "3.8"
services:
  api:
    image: alpine:3.20
x-sb:
  labels:
    team: platform
x-custom-tool:
  enabled: true
`
	var f File
	if err := yaml.Unmarshal([]byte(src), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Services["api"].Image != "alpine:3.20" {
		t.Fatalf("expected known field decoded, got %#v", f.Services["api"])
	}
	if _, ok := f.Custom["x-sb"]; !ok {
		t.Fatalf("expected x-sb captured in Custom, got %#v", f.Custom)
	}
	if _, ok := f.Custom["x-custom-tool"]; !ok {
		t.Fatalf("expected third-party x-* key captured in Custom, got %#v", f.Custom)
	}
}

func TestService_UnmarshalYAML_CapturesGroupsAndSecrets(t *testing.T) {
	src := `
image: alpine:3.20
x-sb-groups: ["logging", "metrics"]
x-sb-secrets:
  ConnectionStrings__Main: {}
x-other: "keepme"
`
	var s Service
	if err := yaml.Unmarshal([]byte(src), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s.XSbGroups) != 2 || s.XSbGroups[0] != "logging" {
		t.Fatalf("unexpected groups: %#v", s.XSbGroups)
	}
	if _, ok := s.XSbSecrets["ConnectionStrings__Main"]; !ok {
		t.Fatalf("expected x-sb-secrets captured, got %#v", s.XSbSecrets)
	}
	if _, ok := s.Custom["x-other"]; !ok {
		t.Fatalf("expected unrelated x-* key captured in Custom, got %#v", s.Custom)
	}
}

func TestFile_MarshalYAML_RoundTripsCustomKeys(t *testing.T) {
	f := File{
		Services: map[string]*Service{"api": {Image: "alpine:3.20"}},
		Custom:   map[string]interface{}{"x-sb": map[string]interface{}{"labels": map[string]interface{}{"team": "platform"}}},
	}
	out, err := yaml.Marshal(&f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTrip File
	if err := yaml.Unmarshal(out, &roundTrip); err != nil {
		t.Fatalf("unmarshal round-trip: %v", err)
	}
	if _, ok := roundTrip.Custom["x-sb"]; !ok {
		t.Fatalf("expected x-sb preserved across round-trip, got %#v", roundTrip.Custom)
	}
	if roundTrip.Services["api"].Image != "alpine:3.20" {
		t.Fatalf("expected service preserved, got %#v", roundTrip.Services["api"])
	}
}
