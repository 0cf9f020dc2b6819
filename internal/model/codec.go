package model

import "encoding/json"

// Stored state is JSON under string keys. Decoding fails closed: a raw
// value that is absent or malformed yields the zero value and ok=false,
// never an error. Callers treat that as "no state yet".
func decode[T any](raw string, present bool) (T, bool) {
	var v T
	if !present || raw == "" {
		return v, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// Encode serializes a value for storage. Marshal errors are impossible
// for the plain structs in this package, so the result is always valid.
func Encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
