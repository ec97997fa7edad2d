package codex

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/engine/cli/internal/jsonutil"
)

// SerializeConfigOverrides flattens a configuration tree into "path=literal"
// entries for codex's --config flag.
//
// tree must be a map with string keys. Values may be nil, strings, booleans,
// any integer or float type, json.Number, slices and nested maps; trees
// decoded by encoding/json or gopkg.in/yaml.v3 qualify. Nested maps extend
// the dotted path, nil values are dropped, and an empty nested map renders
// as "path={}". Keys are visited in sorted order, so the output is
// deterministic.
func SerializeConfigOverrides(tree any) ([]string, error) {
	root, ok, err := asObject(tree, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, codexrun.ErrInvalidConfigRoot
	}
	var out []string
	if err := flattenOverrides(root, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenOverrides(obj map[string]any, prefix string, out *[]string) error {
	if len(obj) == 0 {
		if prefix != "" {
			*out = append(*out, prefix+"={}")
		}
		return nil
	}
	for _, key := range jsonutil.SortedKeys(obj) {
		if key == "" {
			return keyError(prefix)
		}
		child := obj[key]
		if isNil(child) {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		nested, ok, err := asObject(child, path)
		if err != nil {
			return err
		}
		if ok {
			if err := flattenOverrides(nested, path, out); err != nil {
				return err
			}
			continue
		}
		lit, err := tomlLiteral(child, path)
		if err != nil {
			return err
		}
		*out = append(*out, path+"="+lit)
	}
	return nil
}

// tomlLiteral renders a value as a TOML literal. path names the value in
// errors.
func tomlLiteral(v any, path string) (string, error) {
	if isNil(v) {
		return "", &codexrun.ConfigValueError{Path: path, Value: "null"}
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return "", &codexrun.ConfigNumberError{Path: path}
		}
		return n.String(), nil
	}
	if obj, ok, err := asObject(v, path); err != nil {
		return "", err
	} else if ok {
		return inlineTable(obj, path)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", &codexrun.ConfigValueError{Path: path, Value: "null"}
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return jsonutil.Quote(rv.String()), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return formatFloat(rv.Float(), 32, path)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64, path)
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			lit, err := tomlLiteral(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}
	return "", &codexrun.ConfigValueError{Path: path, Value: fmt.Sprintf("%T", v)}
}

// maxExactFloat bounds integral floats rendered without an exponent.
const maxExactFloat = 1e15

func formatFloat(f float64, bits int, path string) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", &codexrun.ConfigNumberError{Path: path}
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactFloat {
		return strconv.FormatFloat(f, 'f', -1, bits), nil
	}
	return strconv.FormatFloat(f, 'g', -1, bits), nil
}

func inlineTable(obj map[string]any, path string) (string, error) {
	parts := make([]string, 0, len(obj))
	for _, key := range jsonutil.SortedKeys(obj) {
		if key == "" {
			return "", keyError(path)
		}
		child := obj[key]
		if isNil(child) {
			continue
		}
		lit, err := tomlLiteral(child, path+"."+key)
		if err != nil {
			return "", err
		}
		parts = append(parts, tomlKey(key)+" = "+lit)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// tomlKey leaves bare keys (ASCII letters, digits, '_' and '-') as they are
// and quotes everything else.
func tomlKey(key string) string {
	for _, r := range key {
		bare := r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !bare {
			return jsonutil.Quote(key)
		}
	}
	return key
}

func keyError(path string) error {
	if path == "" {
		return codexrun.ErrInvalidConfigKey
	}
	return fmt.Errorf("%w (under %s)", codexrun.ErrInvalidConfigKey, path)
}

// asObject converts string-keyed maps of any type to map[string]any.
// A map with a non-string key is an error; anything else is not an object.
func asObject(v any, path string) (map[string]any, bool, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, true, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, child := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false, &codexrun.ConfigValueError{Path: path, Value: fmt.Sprintf("map key %v", k)}
			}
			out[s] = child
		}
		return out, true, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false, nil
	}
	if rv.Type().Key().Kind() != reflect.String {
		return nil, false, &codexrun.ConfigValueError{Path: path, Value: fmt.Sprintf("%T", v)}
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
