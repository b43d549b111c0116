// Package iiif converts IIIF Presentation API 3.0 manifests into the
// equivalent IIIF Presentation API 2.1 manifests.
//
// The conversion is a single pass over the v3 document:
//
//   - language maps collapse to the first string of the first non-empty
//     language, in document key order
//   - metadata pairs keep their order, one v2 pair per v3 entry
//   - every v3 canvas becomes one v2 canvas in the single v2 sequence
//   - annotation pages flatten into the canvas's "images" list
//   - the first canvas's thumbnail (if any) becomes the manifest thumbnail,
//     with its image service pinned to the level 0 profile
//   - the first behavior becomes the viewingHint
//
// Identifiers, dimensions and formats are copied verbatim from the source
// bytes. Missing optional fields never cause an error; they degrade to "",
// an empty list, or JSON null. Only a document that is not a JSON object is
// rejected.
//
// The v3 document is read through gjson so object keys are visited in the
// order they appear in the source, which is what language-map resolution
// depends on. The v2 result is a tree of structs whose field order is the
// output key order.
//
// # Quick Start
//
//	m, err := iiif.Convert(data, iiif.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	return iiif.Save(m, "manifest-v2.json")
//
// # Concurrency
//
// Convert, the mappers and Save share no state and are safe for concurrent
// use. Converter is not.
package iiif
