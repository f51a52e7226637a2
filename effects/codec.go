package effects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	berr "github.com/next-trace/scg-ipc-sync/contract/errors"
)

// Codec turns wire-ready values into stored strings and back.
type Codec interface {
	Encode(v any) (string, error)
	Decode(s string) (any, error)
}

// JSONCodec encodes with encoding/json. Object keys are emitted sorted, so equal
// values always produce equal strings.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("json encode: %w", err)
	}

	return string(b), nil
}

func (JSONCodec) Decode(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	return v, nil
}

// Coerce converts a decoded wire value into T. Values that already are a T pass
// through; anything else is re-shaped through JSON. For struct types the object
// must carry every field of T that is not omitempty and no field T lacks, so a
// wrong-shaped payload is rejected instead of being zero-filled.
func Coerce[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}

	var out T

	if v == nil {
		return out, false
	}

	b, err := json.Marshal(v)
	if err != nil {
		return out, false
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, false
	}

	if !hasRequiredFields(reflect.TypeFor[T](), v) {
		var zero T
		return zero, false
	}

	return out, true
}

// hasRequiredFields reports whether obj names every required field of struct type t.
// Field names match case-insensitively, as encoding/json does.
func hasRequiredFields(t reflect.Type, obj any) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return true
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return false
	}

	present := make(map[string]bool, rv.Len())
	for _, k := range rv.MapKeys() {
		present[strings.ToLower(k.String())] = true
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, opts, hasOpts := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && !hasOpts {
			continue
		}

		flags := strings.Split(opts, ",")
		if slices.Contains(flags, "omitempty") || slices.Contains(flags, "omitzero") {
			continue
		}

		if name == "" {
			if f.Anonymous {
				continue
			}

			name = f.Name
		}

		if !present[strings.ToLower(name)] {
			return false
		}
	}

	return true
}

func decodeFailed(key string, err error) error {
	return fmt.Errorf("decode %s: %w", key, errors.Join(berr.ErrDecodeFailed, err))
}
