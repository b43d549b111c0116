package iiif

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// MapCanvases maps the v3 "items" list to v2 canvases. Length and order are
// preserved since they define page order in viewers.
func MapCanvases(items gjson.Result) []Canvas {
	canvases := elements(items)
	out := make([]Canvas, 0, len(canvases))
	for _, canvas := range canvases {
		out = append(out, MapCanvas(canvas))
	}
	return out
}

// MapCanvas maps one v3 canvas. Id and dimensions are copied verbatim.
func MapCanvas(canvas gjson.Result) Canvas {
	return Canvas{
		ID:     verbatim(canvas.Get("id")),
		Type:   TypeCanvas,
		Label:  ResolveLabel(canvas.Get("label")),
		Height: verbatim(canvas.Get("height")),
		Width:  verbatim(canvas.Get("width")),
		Images: MapAnnotations(canvas),
	}
}

// MapAnnotations flattens a canvas's annotation pages into v2 image
// annotations: page order first, then annotation order within each page.
// Pages without items contribute nothing. The result is never nil.
func MapAnnotations(canvas gjson.Result) []Annotation {
	on := verbatim(canvas.Get("id"))
	images := make([]Annotation, 0)
	for _, page := range elements(canvas.Get("items")) {
		for _, anno := range elements(page.Get("items")) {
			images = append(images, mapAnnotation(anno, on))
		}
	}
	return images
}

func mapAnnotation(anno gjson.Result, on json.RawMessage) Annotation {
	// v3 allows a list of bodies; only the first is representable here.
	body := firstOf(anno.Get("body"))
	return Annotation{
		Type:       TypeAnnotation,
		Motivation: MotivationPainting,
		Resource: Resource{
			ID:     verbatim(body.Get("id")),
			Type:   TypeImage,
			Format: verbatim(body.Get("format")),
			Height: verbatim(body.Get("height")),
			Width:  verbatim(body.Get("width")),
		},
		On: on,
	}
}
