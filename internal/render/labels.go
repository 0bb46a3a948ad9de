package render

import (
	"sort"

	"github.com/fusapp/swarmbender/internal/compose"
)

// NormalizeLabels implements §4.7: merges root and per-service "x-sb.labels"
// extension maps into deploy.labels, later source overriding earlier
// (current deploy.labels ⊕ global x-sb.labels ⊕ service x-sb.labels), then
// re-emits deterministic ASCII-sorted "k=v" (or bare "k") entries.
func NormalizeLabels(ctx *Context) error {
	globalLabels := xsbLabels(ctx.Working.Custom)

	for _, svc := range ctx.Working.Services {
		serviceLabels := xsbLabels(svc.Custom)

		merged := map[string]string{}
		if svc.Deploy != nil {
			current, order := svc.Deploy.Labels.ToMap()
			for _, k := range order {
				merged[k] = current[k]
			}
		}
		for k, v := range globalLabels {
			merged[k] = v
		}
		for k, v := range serviceLabels {
			merged[k] = v
		}
		if len(merged) == 0 {
			continue
		}

		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		list := make([]string, 0, len(keys))
		for _, k := range keys {
			if v := merged[k]; v != "" {
				list = append(list, k+"="+v)
			} else {
				list = append(list, k)
			}
		}

		if svc.Deploy == nil {
			svc.Deploy = &compose.Deploy{}
		}
		svc.Deploy.Labels = compose.NewListOrDictList(list)
	}
	return nil
}

// xsbLabels extracts Custom["x-sb"]["labels"] as a flat string map, if present.
func xsbLabels(custom map[string]interface{}) map[string]string {
	out := map[string]string{}
	xsb, ok := custom["x-sb"]
	if !ok {
		return out
	}
	xsbMap, ok := xsb.(map[string]interface{})
	if !ok {
		return out
	}
	rawLabels, ok := xsbMap["labels"]
	if !ok {
		return out
	}
	labelsMap, ok := rawLabels.(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range labelsMap {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
