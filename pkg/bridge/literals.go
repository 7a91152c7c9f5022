package bridge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Literal renders a Go value as a PowerShell literal. Strings are
// single-quoted so the interpreter never expands or executes request data;
// numbers stay bare to preserve their type, and json.Number passes through
// verbatim so decoded values round-trip exactly. Kinds outside the JSON
// value set are an error, never a stringified guess.
func Literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "$null", nil
	case bool:
		if val {
			return "$true", nil
		}
		return "$false", nil
	case string:
		return quote(val), nil
	case json.Number:
		return val.String(), nil
	case int:
		return strconv.Itoa(val), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			lit, err := Literal(item)
			if err != nil {
				return "", err
			}
			items[i] = lit
		}
		return "@(" + strings.Join(items, ", ") + ")", nil
	case []string:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = quote(item)
		}
		return "@(" + strings.Join(items, ", ") + ")", nil
	case map[string]any:
		return hashtable(val)
	default:
		return "", fmt.Errorf("cannot encode %T as an interpreter literal", v)
	}
}

// quote wraps s in single quotes, doubling embedded quotes. Single-quoted
// PowerShell strings have no other escape sequences.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// hashtable renders a map as @{...} with sorted keys so the produced
// command text is deterministic.
func hashtable(m map[string]any) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		lit, err := Literal(m[k])
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", k, err)
		}
		parts[i] = fmt.Sprintf("%s = %s", quote(k), lit)
	}
	return "@{" + strings.Join(parts, "; ") + "}", nil
}
