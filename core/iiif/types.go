package iiif

import "encoding/json"

// Fixed IIIF Presentation 2.1 and Image 2.1 tags.
const (
	PresentationContext = "http://iiif.io/api/presentation/2/context.json"
	ImageContext        = "http://iiif.io/api/image/2/context.json"
	Level0Profile       = "http://iiif.io/api/image/2/level0.json"

	TypeManifest   = "sc:Manifest"
	TypeSequence   = "sc:Sequence"
	TypeCanvas     = "sc:Canvas"
	TypeAnnotation = "oa:Annotation"
	TypeImage      = "dctypes:Image"

	MotivationPainting = "sc:painting"

	// DefaultServiceLabel is used when a v3 image service carries no label.
	DefaultServiceLabel = "IIIF Image Service"
)

// Fields typed json.RawMessage are copied byte-for-byte from the v3 source.
// A nil RawMessage encodes as null, which is how an absent source field
// surfaces in the output.

// Manifest is a IIIF Presentation 2.1 manifest. Field order is output key order.
type Manifest struct {
	Context     string          `json:"@context"`
	Type        string          `json:"@type"`
	ID          json.RawMessage `json:"@id"`
	Label       string          `json:"label"`
	Metadata    []MetadataEntry `json:"metadata"`
	Sequences   []Sequence      `json:"sequences"`
	Thumbnail   *Thumbnail      `json:"thumbnail,omitempty"`
	ViewingHint json.RawMessage `json:"viewingHint,omitempty"`
}

// MetadataEntry is a v2 label/value pair.
type MetadataEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Sequence struct {
	Type     string   `json:"@type"`
	Canvases []Canvas `json:"canvases"`
}

type Canvas struct {
	ID     json.RawMessage `json:"@id"`
	Type   string          `json:"@type"`
	Label  string          `json:"label"`
	Height json.RawMessage `json:"height"`
	Width  json.RawMessage `json:"width"`
	Images []Annotation    `json:"images"`
}

// Annotation is a painting annotation placing an image on a canvas.
type Annotation struct {
	Type       string          `json:"@type"`
	Motivation string          `json:"motivation"`
	Resource   Resource        `json:"resource"`
	On         json.RawMessage `json:"on"`
}

type Resource struct {
	ID     json.RawMessage `json:"@id"`
	Type   string          `json:"@type"`
	Format json.RawMessage `json:"format"`
	Height json.RawMessage `json:"height"`
	Width  json.RawMessage `json:"width"`
}

// Thumbnail is a v2 thumbnail. Service is encoded as null when the v3
// thumbnail declares no image service.
type Thumbnail struct {
	ID      json.RawMessage `json:"@id"`
	Service *Service        `json:"service"`
}

// Service is a v2 image service descriptor.
type Service struct {
	Label   string          `json:"label"`
	Profile string          `json:"profile"`
	Context string          `json:"@context"`
	ID      json.RawMessage `json:"@id"`
}

// CanvasCount reports the number of canvases across all sequences.
func (m *Manifest) CanvasCount() int {
	n := 0
	for _, s := range m.Sequences {
		n += len(s.Canvases)
	}
	return n
}

// ImageCount reports the number of image annotations across all canvases.
func (m *Manifest) ImageCount() int {
	n := 0
	for _, s := range m.Sequences {
		for _, c := range s.Canvases {
			n += len(c.Images)
		}
	}
	return n
}
