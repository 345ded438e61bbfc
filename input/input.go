package input

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zero-day-ai/bolt/pluginerr"
	"github.com/zero-day-ai/bolt/value"
)

// lookup returns the value under key, treating a nil map or a nil value as
// absent.
func lookup(params map[string]any, key string) (any, bool) {
	if params == nil {
		return nil, false
	}
	v, ok := params[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case float32:
		if n != float32(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		return parsed, err == nil
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	case value.Value:
		if m.Kind() != value.KindMap {
			return nil, false
		}
		out, ok := m.Interface().(map[string]any)
		return out, ok
	default:
		return nil, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case value.Value:
		if s.Kind() != value.KindList {
			return nil, false
		}
		out, ok := s.Interface().([]any)
		return out, ok
	default:
		return nil, false
	}
}

// GetString returns the string under key, or defaultVal when the key is
// absent, nil, or not a string.
func GetString(params map[string]any, key, defaultVal string) string {
	v, ok := lookup(params, key)
	if !ok {
		return defaultVal
	}
	if s, ok := asString(v); ok {
		return s
	}
	return defaultVal
}

// GetInt returns the integer under key. Whole floats and numeric strings are
// accepted; anything else yields defaultVal.
func GetInt(params map[string]any, key string, defaultVal int) int {
	v, ok := lookup(params, key)
	if !ok {
		return defaultVal
	}
	if n, ok := asInt(v); ok {
		return n
	}
	return defaultVal
}

// GetFloat64 returns the number under key, parsing numeric strings.
func GetFloat64(params map[string]any, key string, defaultVal float64) float64 {
	v, ok := lookup(params, key)
	if !ok {
		return defaultVal
	}
	if n, ok := asFloat(v); ok {
		return n
	}
	return defaultVal
}

// GetBool returns the boolean under key, parsing "true"/"false" strings.
func GetBool(params map[string]any, key string, defaultVal bool) bool {
	v, ok := lookup(params, key)
	if !ok {
		return defaultVal
	}
	if b, ok := asBool(v); ok {
		return b
	}
	return defaultVal
}

// GetStringSlice returns the list under key with each element formatted as a
// string. A single string becomes a one-element slice. Nil elements are
// skipped.
func GetStringSlice(params map[string]any, key string) []string {
	v, ok := lookup(params, key)
	if !ok {
		return nil
	}
	if s, ok := v.(string); ok {
		return []string{s}
	}
	items, ok := asSlice(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}

// GetMap returns the nested object under key, or nil.
func GetMap(params map[string]any, key string) map[string]any {
	v, ok := lookup(params, key)
	if !ok {
		return nil
	}
	m, _ := asMap(v)
	return m
}

// GetStringMap returns the nested object under key with every value
// formatted as a string. Useful for headers and query parameters.
func GetStringMap(params map[string]any, key string) map[string]string {
	m := GetMap(params, key)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// GetSlice returns the list under key, or nil.
func GetSlice(params map[string]any, key string) []any {
	v, ok := lookup(params, key)
	if !ok {
		return nil
	}
	s, _ := asSlice(v)
	return s
}

// GetDurationMs reads a duration. Numbers are milliseconds; strings may be Go
// durations ("5s") or plain millisecond counts.
func GetDurationMs(params map[string]any, key string, defaultVal time.Duration) time.Duration {
	v, ok := lookup(params, key)
	if !ok {
		return defaultVal
	}
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	}
	if ms, ok := asFloat(v); ok {
		return time.Duration(ms * float64(time.Millisecond))
	}
	return defaultVal
}

// RequireString returns the non-empty string under key. Absent or nil values
// fail with MISSING_PARAM; empty strings and other types with INVALID_PARAM.
func RequireString(params map[string]any, key string) (string, error) {
	v, ok := lookup(params, key)
	if !ok {
		return "", pluginerr.MissingParam(key)
	}
	s, ok := asString(v)
	if !ok {
		return "", pluginerr.InvalidParam(key, fmt.Sprintf("expected string, got %T", v))
	}
	if strings.TrimSpace(s) == "" {
		return "", pluginerr.InvalidParam(key, "must not be empty")
	}
	return s, nil
}

// OptionalString returns the string under key, or defaultVal when the key is
// absent or nil. Values of any other type fail with INVALID_PARAM.
func OptionalString(params map[string]any, key, defaultVal string) (string, error) {
	v, ok := lookup(params, key)
	if !ok {
		return defaultVal, nil
	}
	s, ok := asString(v)
	if !ok {
		return "", pluginerr.InvalidParam(key, fmt.Sprintf("expected string, got %T", v))
	}
	return s, nil
}

// RequireInt returns the integer under key.
func RequireInt(params map[string]any, key string) (int, error) {
	v, ok := lookup(params, key)
	if !ok {
		return 0, pluginerr.MissingParam(key)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, pluginerr.InvalidParam(key, fmt.Sprintf("expected integer, got %v", v))
	}
	return n, nil
}

// RequireMap returns the nested object under key.
func RequireMap(params map[string]any, key string) (map[string]any, error) {
	v, ok := lookup(params, key)
	if !ok {
		return nil, pluginerr.MissingParam(key)
	}
	m, ok := asMap(v)
	if !ok {
		return nil, pluginerr.InvalidParam(key, fmt.Sprintf("expected object, got %T", v))
	}
	return m, nil
}

// RequireSlice returns the non-empty list under key.
func RequireSlice(params map[string]any, key string) ([]any, error) {
	v, ok := lookup(params, key)
	if !ok {
		return nil, pluginerr.MissingParam(key)
	}
	s, ok := asSlice(v)
	if !ok {
		return nil, pluginerr.InvalidParam(key, fmt.Sprintf("expected list, got %T", v))
	}
	if len(s) == 0 {
		return nil, pluginerr.InvalidParam(key, "must not be empty")
	}
	return s, nil
}
