package render

import (
	"sort"

	"github.com/fusapp/swarmbender/internal/compose"
)

// StringifyEnv implements §4.10: normalizes every service's `environment`
// into list form (ASCII-sorted "KEY=value", bare "KEY" becomes "KEY=") so
// the YAML emitter never reinterprets a value as a bool/number/null.
func StringifyEnv(ctx *Context) error {
	for _, svc := range ctx.Working.Services {
		if svc.Environment.IsZero() {
			continue
		}
		values, _ := svc.Environment.ToMap()

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		list := make([]string, 0, len(keys))
		for _, k := range keys {
			list = append(list, k+"="+values[k])
		}
		svc.Environment = compose.NewListOrDictList(list)
	}
	return nil
}
