package apperr_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/fusapp/swarmbender/internal/apperr"
)

var errSentinel = errors.New("missing required field")

func TestWrapPreservesSentinel(t *testing.T) {
	err := apperr.Wrap("config.Load", apperr.InvalidInput, errSentinel, "field %q is required", "render.outDir")
	if !errors.Is(err, errSentinel) {
		t.Fatalf("want Is(..., errSentinel)=true")
	}
	if !apperr.IsKind(err, apperr.InvalidInput) {
		t.Fatalf("want kind=InvalidInput")
	}
}

func TestErrorStringIncludesOpAndMsg(t *testing.T) {
	err := apperr.New("swarmsecrets.Sync", apperr.External, "docker secret create failed")
	got := err.Error()
	if !strings.Contains(got, "swarmsecrets.Sync: docker secret create failed") {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestAggregateNilsIgnored(t *testing.T) {
	if err := apperr.Aggregate("providers.Aggregate", apperr.Unavailable, "provider errors", nil, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := apperr.Aggregate("providers.Aggregate", apperr.Unavailable, "provider errors", errSentinel, nil)
	if !apperr.IsKind(err, apperr.Unavailable) {
		t.Fatalf("want kind Unavailable")
	}
}
