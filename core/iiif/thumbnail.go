package iiif

import "github.com/tidwall/gjson"

// MapThumbnail maps a v3 thumbnail to its v2 form. It returns nil when the
// thumbnail is absent or empty, in which case the caller omits the field.
// For a list only the first element is used.
func MapThumbnail(thumbnail gjson.Result) *Thumbnail {
	if isEmpty(thumbnail) {
		return nil
	}
	thumbnail = firstOf(thumbnail)
	if !thumbnail.IsObject() {
		return nil
	}
	return &Thumbnail{
		ID:      verbatim(thumbnail.Get("id")),
		Service: mapService(thumbnail.Get("service")),
	}
}

// mapService builds a v2 image service from the first v3 service entry.
// The profile is always level 0, whatever the v3 service declares.
func mapService(service gjson.Result) *Service {
	if isEmpty(service) {
		return nil
	}
	service = firstOf(service)
	if !service.IsObject() {
		return nil
	}
	return &Service{
		Label:   serviceLabel(service.Get("label")),
		Profile: Level0Profile,
		Context: ImageContext,
		ID:      verbatim(service.Get("id")),
	}
}

func serviceLabel(label gjson.Result) string {
	switch {
	case label.Type == gjson.String:
		return label.Str
	case label.IsObject():
		if s := ResolveLabel(label); s != "" {
			return s
		}
	}
	return DefaultServiceLabel
}
