// Package envsources implements the Env JSON Collect stage (§4.3): reading
// appsettings-style JSON files in a fixed directory order, flattening nested
// structure into the environment bag's dual canonical key forms, and
// transparently decrypting *.sops.json files along the way.
package envsources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fusapp/swarmbender/internal/apperr"
	"github.com/fusapp/swarmbender/internal/logger"
	"github.com/fusapp/swarmbender/internal/secrets"
)

// Bag is the ordered string->string environment map threaded through
// aggregation. Keys are written in both the dotted (A.B.C) and canonical
// (A__B__C) forms until secretize.Attach performs the final collapse
// (Invariant 2); Set/SetCanonical keep that duplication consistent.
type Bag struct {
	values map[string]string
	order  []string
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{values: map[string]string{}}
}

// Set stores value under key, last-write-wins, recording first-seen order.
func (b *Bag) Set(key, value string) {
	if _, exists := b.values[key]; !exists {
		b.order = append(b.order, key)
	}
	b.values[key] = value
}

// SetCanonical writes value under both the dotted key and its canonical
// (__-joined) form, so later stages can match either spelling.
func (b *Bag) SetCanonical(dottedKey, value string) {
	b.Set(dottedKey, value)
	canon := strings.ReplaceAll(dottedKey, ".", "__")
	if canon != dottedKey {
		b.Set(canon, value)
	}
}

// Map returns the current key/value snapshot and its first-seen key order.
func (b *Bag) Map() (map[string]string, []string) {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	order := make([]string, len(b.order))
	copy(order, b.order)
	return out, order
}

// Flatten walks an arbitrary decoded JSON value and emits "A.B.C"-style
// dotted paths. Arrays flatten by index ("A.0", "A.1"); non-string leaves
// are stringified with invariant (culture-free) formatting.
func Flatten(prefix string, v interface{}, emit func(path, value string)) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			Flatten(joinPath(prefix, k), t[k], emit)
		}
	case []interface{}:
		for i, item := range t {
			Flatten(joinPath(prefix, strconv.Itoa(i)), item, emit)
		}
	case nil:
		emit(prefix, "")
	case string:
		emit(prefix, t)
	case bool:
		emit(prefix, strconv.FormatBool(t))
	case float64:
		emit(prefix, formatInvariantNumber(t))
	default:
		emit(prefix, fmt.Sprint(t))
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func formatInvariantNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CollectFileEnv implements §4.3: it reads, in order, stacks/all/common/env,
// stacks/all/<env>/env, stacks/<stackId>/<env>/env, then any configured
// extraJsonDirs, and flattens every *.json file found (ASCII-sorted within
// each directory) into bag. Files named *.sops.json are transparently
// decrypted first via secrets.DecryptJSONBytes.
func CollectFileEnv(log logger.Logger, rootPath, stackID, env string, extraJSONDirs []string, ageKeyFile string) (*Bag, error) {
	bag := NewBag()

	dirs := []string{
		filepath.Join(rootPath, "stacks", "all", "common", "env"),
		filepath.Join(rootPath, "stacks", "all", env, "env"),
		filepath.Join(rootPath, "stacks", stackID, env, "env"),
	}
	for _, d := range extraJSONDirs {
		resolved := strings.NewReplacer("{stackId}", stackID, "{env}", env).Replace(d)
		dirs = append(dirs, filepath.Join(rootPath, resolved))
	}

	for _, dir := range dirs {
		if err := collectDir(log, dir, bag, ageKeyFile); err != nil {
			return nil, err
		}
	}
	return bag, nil
}

func collectDir(log logger.Logger, dir string, bag *Bag, ageKeyFile string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.Wrap("envsources.CollectFileEnv", apperr.External, err, "read env dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		var raw []byte
		if strings.HasSuffix(name, ".sops.json") {
			b, derr := secrets.DecryptJSONBytes(path, ageKeyFile)
			if derr != nil {
				if log != nil {
					log.Warn("env_json_decrypt_skip", "path", path, "err", derr.Error())
				}
				continue
			}
			raw = b
		} else {
			b, rerr := os.ReadFile(path)
			if rerr != nil {
				return apperr.Wrap("envsources.CollectFileEnv", apperr.External, rerr, "read %s", path)
			}
			raw = b
		}

		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return apperr.Wrap("envsources.CollectFileEnv", apperr.InvalidInput, err, "parse json %s", path)
		}
		Flatten("", decoded, func(p, v string) {
			if p == "" {
				return
			}
			bag.SetCanonical(p, v)
		})
	}
	return nil
}
