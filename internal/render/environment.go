package render

import "github.com/fusapp/swarmbender/internal/compose"

// ApplyEnvironment implements §4.5: every service's existing `environment`
// is normalized to map form, then overlaid with the aggregated env bag
// (ctx.Env), last-write-wins, and written back as map form so downstream
// stages (Secrets Attach, Token Expand) operate on a single shape.
func ApplyEnvironment(ctx *Context) error {
	if ctx.Env == nil {
		return nil
	}
	values, order := ctx.Env.Map()

	for _, svc := range ctx.Working.Services {
		current, currentOrder := svc.Environment.ToMap()

		merged := map[string]string{}
		var mergedOrder []string
		for _, k := range currentOrder {
			merged[k] = current[k]
			mergedOrder = append(mergedOrder, k)
		}
		for _, k := range order {
			if _, ok := merged[k]; !ok {
				mergedOrder = append(mergedOrder, k)
			}
			merged[k] = values[k]
		}

		svc.Environment = compose.NewListOrDictMap(merged, mergedOrder)
	}
	return nil
}
