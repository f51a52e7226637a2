package ipc

// Validator checks a raw host value and converts it to R.
// It reports false when v does not have the expected shape.
type Validator[R any] func(v any) (R, bool)

// Any accepts every value, including nil.
func Any(v any) (any, bool) { return v, true }

// As accepts values whose dynamic type is exactly T.
func As[T any](v any) (T, bool) {
	t, ok := v.(T)
	return t, ok
}

// IsVoid accepts only an absent result.
func IsVoid(v any) (struct{}, bool) { return struct{}{}, v == nil }

// IsString accepts string values.
func IsString(v any) (string, bool) { return As[string](v) }

// IsBool accepts bool values.
func IsBool(v any) (bool, bool) { return As[bool](v) }

// IsObject accepts decoded JSON objects.
func IsObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	case Envelope:
		return m, m != nil
	default:
		return nil, false
	}
}

// IsNumber accepts any Go numeric value and returns it as float64.
// Decoded JSON numbers arrive as float64.
func IsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// IsStringSlice accepts []string, or a decoded JSON array holding only strings.
func IsStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}

			out = append(out, str)
		}

		return out, true
	default:
		return nil, false
	}
}
