package geodoc

import (
	"bytes"
	"encoding/json"
)

// Feature is one geometry + property bag unit of a document.
type Feature struct {
	// Geometry is the GeoJSON geometry object exactly as it appeared in the
	// source (or as translated from KML). It may be empty or JSON null.
	Geometry   json.RawMessage
	Properties *Properties
	// Err is set when the feature itself could not be read. The rest of the
	// document is still usable.
	Err error
}

// HasGeometry reports whether the feature carries a non-null geometry.
func (f Feature) HasGeometry() bool {
	trimmed := bytes.TrimSpace(f.Geometry)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Document is a parsed FeatureCollection. Features keep document order.
type Document struct {
	Features []Feature
	// Entry is the KMZ archive member the document was read from.
	Entry string
}

// Parse turns a decoded source into a document, translating KML when needed.
// A document without features is a format failure.
func Parse(src *Source) (*Document, error) {
	var (
		doc *Document
		err error
	)

	switch src.Format {
	case FormatKML:
		doc, err = ToGeoJSON(src.Text)
	case FormatGeoJSON:
		doc, err = ParseGeoJSON(src.Text)
	default:
		return nil, formatErrorf(ErrUnsupportedFormat, "format %q", src.Format)
	}
	if err != nil {
		return nil, err
	}

	if len(doc.Features) == 0 {
		return nil, formatError(ErrNoFeatures, "document contains zero features")
	}
	doc.Entry = src.Entry
	return doc, nil
}

// Read decodes and parses an upload in one step.
func Read(data []byte, fileName string) (*Document, error) {
	src, err := Decode(data, fileName)
	if err != nil {
		return nil, err
	}
	return Parse(src)
}
