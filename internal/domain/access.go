package domain

import (
	"encoding/json"
	"math"
)

// object returns m[key] when it is a JSON object, otherwise an empty map.
func object(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// firstObject returns the first element of the array m[key] when it is a JSON
// object, otherwise an empty map.
func firstObject(m map[string]any, key string) map[string]any {
	arr, ok := m[key].([]any)
	if !ok || len(arr) == 0 {
		return map[string]any{}
	}
	if v, ok := arr[0].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// number returns m[key] as a float64, or nil when absent or not numeric.
func number(m map[string]any, key string) *float64 {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// integer returns m[key] rounded to the nearest int, or nil when absent or not numeric.
func integer(m map[string]any, key string) *int {
	f := number(m, key)
	if f == nil {
		return nil
	}
	i := int(math.Round(*f))
	return &i
}

// str returns m[key] as a string, or nil when absent or not a string.
func str(m map[string]any, key string) *string {
	if v, ok := m[key].(string); ok {
		return &v
	}
	return nil
}
