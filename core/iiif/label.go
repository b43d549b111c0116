package iiif

import "github.com/tidwall/gjson"

// ResolveLabel reduces a v3 language map to a single v2 string.
//
// Keys are visited in document order. The first key whose value is a
// non-empty array yields that array's first element; resolution is
// positional, not language-aware. Anything that is not an object, or an
// object with no non-empty array, resolves to "".
func ResolveLabel(label gjson.Result) string {
	if !label.IsObject() {
		return ""
	}
	var out string
	label.ForEach(func(_, values gjson.Result) bool {
		if !values.IsArray() {
			return true
		}
		first := values.Get("0")
		if !first.Exists() {
			return true
		}
		out = first.String()
		return false
	})
	return out
}

// MapMetadata maps v3 metadata entries to v2 label/value pairs, one pair
// per entry and in the same order. The result is never nil.
func MapMetadata(metadata gjson.Result) []MetadataEntry {
	entries := elements(metadata)
	out := make([]MetadataEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, MetadataEntry{
			Label: ResolveLabel(entry.Get("label")),
			Value: ResolveLabel(entry.Get("value")),
		})
	}
	return out
}
