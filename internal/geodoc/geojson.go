package geodoc

import (
	"encoding/json"
	"fmt"
)

type rawFeatureCollection struct {
	Type     string             `json:"type"`
	Features *[]json.RawMessage `json:"features"`
}

type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// ParseGeoJSON parses a GeoJSON FeatureCollection.
// The document must be valid JSON with a "features" array; a feature that
// cannot be read is kept with Err set so the import can report it alone.
func ParseGeoJSON(text string) (*Document, error) {
	var fc rawFeatureCollection
	if err := json.Unmarshal([]byte(text), &fc); err != nil {
		return nil, formatError(ErrMalformedGeoJSON, err.Error())
	}
	if fc.Features == nil {
		return nil, formatError(ErrMalformedGeoJSON, "missing features array")
	}

	doc := &Document{Features: make([]Feature, 0, len(*fc.Features))}
	for i, raw := range *fc.Features {
		doc.Features = append(doc.Features, parseFeature(i, raw))
	}
	return doc, nil
}

func parseFeature(index int, raw json.RawMessage) Feature {
	var rf rawFeature
	if err := json.Unmarshal(raw, &rf); err != nil {
		return Feature{Properties: NewProperties(), Err: fmt.Errorf("feature %d: %w", index+1, err)}
	}

	props, err := decodeProperties(rf.Properties)
	if err != nil {
		return Feature{
			Geometry:   rf.Geometry,
			Properties: NewProperties(),
			Err:        fmt.Errorf("feature %d properties: %w", index+1, err),
		}
	}

	return Feature{Geometry: rf.Geometry, Properties: props}
}
