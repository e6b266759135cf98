package reply

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Float reads a numeric value. The second result is false when the key is
// absent or not convertible, so callers can tell "not provided" from zero.
func Float(data map[string]any, key string) (float64, bool) {
	v, ok := data[key]
	if !ok {
		return 0, false
	}
	f := coerceFloat(v)
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// String reads a string value, rendering non-string values as JSON.
func String(data map[string]any, key string) (string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	s := coerceString(v)
	return s, s != ""
}

// Strings reads a list of strings. A single string is treated as a one-item list.
func Strings(data map[string]any, key string) ([]string, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, false
	}

	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		return val, true
	default:
		s := coerceString(val)
		if s == "" {
			return nil, false
		}
		return []string{s}, true
	}
}

// Bool reads a boolean value, accepting "yes"/"true" strings and non-zero numbers.
func Bool(data map[string]any, key string) (bool, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return false, false
	}
	return coerceBool(v), true
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
