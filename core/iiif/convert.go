package iiif

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/FocuswithJustin/iiif-downgrade/core/errors"
)

// Options controls a conversion. The zero value omits the top-level
// thumbnail; use DefaultOptions for the standard behavior.
type Options struct {
	// OverrideID replaces the v3 manifest id in the output when non-empty.
	OverrideID string
	// IncludeTopLevelThumbnail derives the manifest thumbnail from the
	// first canvas's thumbnail.
	IncludeTopLevelThumbnail bool
}

// DefaultOptions returns the standard conversion options.
func DefaultOptions() Options {
	return Options{IncludeTopLevelThumbnail: true}
}

// Convert converts a serialized v3 manifest to a v2 manifest.
// Invalid JSON yields a *errors.ParseError and a top-level value that is
// not an object yields a *errors.TypeError; both match errors.ErrInvalidInput.
func Convert(manifest []byte, opts Options) (*Manifest, error) {
	if !gjson.ValidBytes(manifest) {
		return nil, errors.NewParse("JSON", "", "manifest is not valid JSON")
	}
	return ConvertResult(gjson.ParseBytes(manifest), opts)
}

// ConvertResult is Convert for an already parsed document.
func ConvertResult(v3 gjson.Result, opts Options) (*Manifest, error) {
	if !v3.IsObject() {
		return nil, errors.NewType("manifest", "object", kindOf(v3))
	}

	items := v3.Get("items")
	m := &Manifest{
		Context:  PresentationContext,
		Type:     TypeManifest,
		ID:       manifestID(v3, opts.OverrideID),
		Label:    ResolveLabel(v3.Get("label")),
		Metadata: MapMetadata(v3.Get("metadata")),
		Sequences: []Sequence{{
			Type:     TypeSequence,
			Canvases: MapCanvases(items),
		}},
	}

	if opts.IncludeTopLevelThumbnail {
		if first := items.Get("0"); items.IsArray() && first.IsObject() {
			m.Thumbnail = MapThumbnail(first.Get("thumbnail"))
		}
	}

	// v2 has a single viewingHint; further behaviors are dropped.
	if behavior := v3.Get("behavior"); behavior.IsArray() {
		m.ViewingHint = verbatim(behavior.Get("0"))
	}

	return m, nil
}

func manifestID(v3 gjson.Result, override string) json.RawMessage {
	if override != "" {
		return jsonString(override)
	}
	return verbatim(v3.Get("id"))
}
