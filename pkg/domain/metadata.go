package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
)

// maxExactInt is the largest integer magnitude a float64 represents exactly.
const maxExactInt = 1 << 53

// Normalize returns a copy of m holding only the shapes a JSON decoder
// produces, so a node compares equal to itself after an export/import cycle.
// Numbers become float64, except integers a float64 cannot hold exactly,
// which stay int64 (or uint64). Typed maps and slices become map[string]any
// and []any.
func (m Metadata) Normalize() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		return normalizeNumber(t)
	case Metadata:
		return map[string]any(t.Normalize())
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, sv := range t {
			out[k] = normalizeValue(sv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, sv := range t {
			out[i] = normalizeValue(sv)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return normalizeInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return normalizeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}

	// Structs, typed slices and typed maps take the JSON detour.
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return normalizeValue(out)
}

func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return normalizeInt(i)
	}
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return normalizeUint(u)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return string(n)
}

func normalizeInt(i int64) any {
	if i >= -maxExactInt && i <= maxExactInt {
		return float64(i)
	}
	return i
}

func normalizeUint(u uint64) any {
	switch {
	case u <= maxExactInt:
		return float64(u)
	case u <= 1<<63-1:
		return int64(u)
	}
	return u
}
