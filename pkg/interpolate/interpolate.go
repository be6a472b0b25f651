// Package interpolate resolves {{dot.path}} template references against an
// execution context. Resolution is pure and deterministic: identical
// (value, context) pairs always produce identical results, and unresolved
// references are left verbatim so malformed templates stay non-fatal.
package interpolate

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var referencePattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolve walks value recursively, replacing template references in strings
// with values from context. Maps and slices are rebuilt, never mutated in
// place. A string that is exactly one reference resolves to the referenced
// value with its native type; references embedded in larger strings are
// stringified.
func Resolve(value any, context map[string]any) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, context)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, item := range v {
			resolved[key] = Resolve(item, context)
		}

		return resolved
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			resolved[i] = Resolve(item, context)
		}

		return resolved
	default:
		return value
	}
}

// ResolveConfig resolves every value of an action configuration map.
func ResolveConfig(config map[string]any, context map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	resolved, _ := Resolve(config, context).(map[string]any)

	return resolved
}

func resolveString(s string, context map[string]any) any {
	if loc := referencePattern.FindStringIndex(s); loc != nil && loc[0] == 0 && loc[1] == len(s) {
		path := strings.TrimSpace(s[2 : len(s)-2])
		if value, ok := Lookup(context, path); ok {
			return value
		}

		return s
	}

	return referencePattern.ReplaceAllStringFunc(s, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := Lookup(context, path); ok {
			return Stringify(value)
		}

		return match
	})
}

// Lookup resolves a dot-separated path within context. Slice elements are
// addressed by numeric segments. The boolean result distinguishes an absent
// path from a present nil value.
func Lookup(context map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = context

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

// Stringify renders a resolved value for embedding inside a larger string.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	}
}
