package iiif

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// verbatim returns the source bytes of r, or nil when r is absent.
// Strings are re-encoded from their decoded value so source escapes such
// as \u00e9 or \/ come out as plain text.
func verbatim(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return nil
	}
	if r.Type == gjson.String {
		return jsonString(r.Str)
	}
	return json.RawMessage(r.Raw)
}

// jsonString encodes s as a JSON string without HTML escaping, so URLs
// keep their ampersands.
func jsonString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

// elements returns the members of r when r is an array and nil otherwise.
// gjson's Array wraps scalars in a one-element slice, which is not wanted here.
func elements(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

// firstOf returns the first element of an array, or r itself otherwise.
func firstOf(r gjson.Result) gjson.Result {
	if r.IsArray() {
		return r.Get("0")
	}
	return r
}

// isEmpty reports whether r is absent or a falsy JSON value:
// null, false, "", 0, [] or {}.
func isEmpty(r gjson.Result) bool {
	if !r.Exists() {
		return true
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.String:
		return r.Str == ""
	case gjson.Number:
		return r.Num == 0
	case gjson.JSON:
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return empty
	}
	return false
}

// kindOf names the JSON kind of r for error messages.
func kindOf(r gjson.Result) string {
	switch {
	case !r.Exists():
		return "nothing"
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	return "unknown"
}
