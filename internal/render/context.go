// Package render implements the core render pipeline (§2, §4): the ordered
// stages that turn a Compose template plus overlays, environment JSON, and
// provider data into a final Swarm-ready Compose document or a merged
// ConfigExport JSON, operating on a shared RenderContext.
package render

import (
	"github.com/fusapp/swarmbender/internal/compose"
	"github.com/fusapp/swarmbender/internal/config"
)

// Request describes a single render invocation's inputs.
type Request struct {
	RootPath        string
	StackID         string
	Env             string
	AppsettingsMode string // "env" or "config"
	OutDir          string
	WriteHistory    bool
}

// Context is mutated in place by each pipeline stage, per §3's RenderContext.
type Context struct {
	Request Request
	Config  config.SbConfig

	Template *compose.File // immutable reference, loaded once
	Working  *compose.File // mutated by every stage

	Env Bag // ordered environment bag, last-write-wins

	OutputDir    string
	OutFilePath  string
	TemplatePath string
}

// Bag is the minimal env-bag surface the render stages need. envsources.Bag
// satisfies it; kept as a local interface so render does not need to import
// envsources for every caller (tests can supply a trivial stub).
type Bag interface {
	Set(key, value string)
	SetCanonical(dottedKey, value string)
	Map() (map[string]string, []string)
}
