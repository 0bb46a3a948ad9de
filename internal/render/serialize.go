package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/secretize"
	"github.com/goccy/go-yaml"
)

var ambiguousScalar = regexp.MustCompile(`(?i)^(true|false|yes|no|on|off|null|~)$`)

// quoteIfAmbiguous double-quotes a scalar that would otherwise parse as a
// YAML 1.1 boolean/null, or that has leading/trailing whitespace (§4.12).
func quoteIfAmbiguous(s string) string {
	if ambiguousScalar.MatchString(s) || s != strings.TrimSpace(s) {
		return strconv.Quote(s)
	}
	return s
}

// scalarLine matches a single-line "key: value" or "- value" emission whose
// value is a bare (unquoted, unbracketed) scalar, the only shapes our own
// marshaling ever produces for leaf strings.
var scalarLine = regexp.MustCompile(`^(\s*(?:- )?(?:[^\s:#][^:\n]*: )?)([^"'\s\[\{>|].*)$`)

func quoteAmbiguousScalars(doc []byte) []byte {
	lines := strings.Split(string(doc), "\n")
	for i, line := range lines {
		m := scalarLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		prefix, value := m[1], m[2]
		quoted := quoteIfAmbiguous(value)
		if quoted != value {
			lines[i] = prefix + quoted
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// writeFileAtomic writes b to path via a temp file in the same directory
// followed by rename, so a reader never observes a partial write.
func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".sb-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// SerializeStack implements the StackRender half of §4.12: emits Working as
// YAML to <outDir>/<stackId>-<env>.stack.yml, quoting boolean/null-like or
// whitespace-padded scalars, optionally mirroring the output under a UTC
// timestamped history directory.
func SerializeStack(ctx *Context, now time.Time) error {
	raw, err := yaml.Marshal(ctx.Working)
	if err != nil {
		return apperr.Wrap("render.SerializeStack", apperr.Internal, err, "marshal stack")
	}
	out := quoteAmbiguousScalars(raw)

	filename := fmt.Sprintf("%s-%s.stack.yml", ctx.Request.StackID, ctx.Request.Env)
	outPath := filepath.Join(ctx.Request.OutDir, filename)
	if err := writeFileAtomic(outPath, out); err != nil {
		return apperr.Wrap("render.SerializeStack", apperr.External, err, "write %s", outPath)
	}
	ctx.OutFilePath = outPath

	if ctx.Request.WriteHistory {
		historyDir := filepath.Join(ctx.Request.RootPath, "ops", "state", "history", now.UTC().Format("20060102150405"))
		historyPath := filepath.Join(historyDir, filename)
		if err := writeFileAtomic(historyPath, out); err != nil {
			return apperr.Wrap("render.SerializeStack", apperr.External, err, "write history copy %s", historyPath)
		}
	}
	return nil
}

// ExportConfig implements the ConfigExport half of §4.12: merges every
// service's environment into one last-wins bag, drops secretize-matched
// keys, unflattens "__"-joined paths into nested JSON, and writes the
// result as pretty-printed JSON.
func ExportConfig(ctx *Context, matcher *secretize.Matcher) error {
	names := make([]string, 0, len(ctx.Working.Services))
	for name := range ctx.Working.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	merged := map[string]string{}
	var order []string
	for _, name := range names {
		svc := ctx.Working.Services[name]
		values, valOrder := svc.Environment.ToMap()
		for _, k := range valOrder {
			if _, ok := merged[k]; !ok {
				order = append(order, k)
			}
			merged[k] = values[k]
		}
	}

	tree := map[string]interface{}{}
	for _, k := range order {
		canon := secretize.ToCanon(k)
		if matcher != nil && (matcher.Match(k) || matcher.Match(canon)) {
			continue
		}
		unflattenInto(tree, strings.Split(canon, "__"), merged[k])
	}

	b, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return apperr.Wrap("render.ExportConfig", apperr.Internal, err, "marshal appsettings json")
	}

	filename := fmt.Sprintf("%s-%s.appsettings.json", ctx.Request.StackID, ctx.Request.Env)
	outPath := filepath.Join(ctx.Request.OutDir, filename)
	if err := writeFileAtomic(outPath, b); err != nil {
		return apperr.Wrap("render.ExportConfig", apperr.External, err, "write %s", outPath)
	}
	ctx.OutFilePath = outPath
	return nil
}

func unflattenInto(tree map[string]interface{}, path []string, value string) {
	node := tree
	for i, part := range path {
		if i == len(path)-1 {
			node[part] = value
			return
		}
		next, ok := node[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			node[part] = next
		}
		node = next
	}
}
