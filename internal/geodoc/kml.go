package geodoc

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type kmlPlacemark struct {
	Name          string            `xml:"name"`
	Description   string            `xml:"description"`
	ExtendedData  kmlExtendedData   `xml:"ExtendedData"`
	Point         *kmlCoordinates   `xml:"Point"`
	LineString    *kmlCoordinates   `xml:"LineString"`
	LinearRing    *kmlCoordinates   `xml:"LinearRing"`
	Polygon       *kmlPolygon       `xml:"Polygon"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
	Track         *kmlTrack         `xml:"Track"`
	MultiTrack    *kmlMultiTrack    `xml:"MultiTrack"`
}

type kmlExtendedData struct {
	Data       []kmlData       `xml:"Data"`
	SchemaData []kmlSchemaData `xml:"SchemaData"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlSchemaData struct {
	SimpleData []kmlSimpleData `xml:"SimpleData"`
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlCoordinates struct {
	Coordinates string `xml:"coordinates"`
}

type kmlBoundary struct {
	LinearRing kmlCoordinates `xml:"LinearRing"`
}

type kmlPolygon struct {
	Outer kmlBoundary   `xml:"outerBoundaryIs"`
	Inner []kmlBoundary `xml:"innerBoundaryIs"`
}

// kmlTrack is a gx:Track. Each gx:coord is a space separated "lon lat [alt]".
type kmlTrack struct {
	Coords []string `xml:"coord"`
}

type kmlMultiTrack struct {
	Tracks []kmlTrack `xml:"Track"`
}

type kmlMultiGeometry struct {
	Points        []kmlCoordinates   `xml:"Point"`
	LineStrings   []kmlCoordinates   `xml:"LineString"`
	LinearRings   []kmlCoordinates   `xml:"LinearRing"`
	Polygons      []kmlPolygon       `xml:"Polygon"`
	Tracks        []kmlTrack         `xml:"Track"`
	MultiGeometry []kmlMultiGeometry `xml:"MultiGeometry"`
}

// commaSpacing matches whitespace around the commas of a coordinate tuple.
var commaSpacing = regexp.MustCompile(`\s*,\s*`)

// ToGeoJSON translates a KML document into a FeatureCollection.
// Placemarks may sit at any folder depth. Placemarks without geometry, styles
// and other non-geometry elements are dropped. name, description and
// ExtendedData are flattened into the feature properties.
func ToGeoJSON(kmlText string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(kmlText))
	// Text was already transcoded to UTF-8 by the decoder stage.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	// County exports put HTML entities such as &nbsp; in unescaped descriptions.
	dec.Entity = xml.HTMLEntity

	doc := &Document{}
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, formatError(ErrMalformedKML, err.Error())
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if start.Name.Local != "Placemark" {
			continue
		}

		var pm kmlPlacemark
		if err := dec.DecodeElement(&pm, &start); err != nil {
			return nil, formatError(ErrMalformedKML, err.Error())
		}

		feature, ok := pm.toFeature()
		if ok {
			doc.Features = append(doc.Features, feature)
		}
	}

	if !sawRoot {
		return nil, formatError(ErrMalformedKML, "document has no root element")
	}
	return doc, nil
}

// toFeature converts a placemark. ok is false for placemarks without geometry.
// Broken coordinates produce a feature with Err set rather than failing the document.
func (pm kmlPlacemark) toFeature() (Feature, bool) {
	props := pm.properties()

	geom, err := pm.geometry()
	if err != nil {
		return Feature{Properties: props, Err: fmt.Errorf("placemark %q: %w", pm.Name, err)}, true
	}
	if geom == nil {
		return Feature{}, false
	}

	raw, err := json.Marshal(geojson.NewGeometry(geom))
	if err != nil {
		return Feature{Properties: props, Err: fmt.Errorf("placemark %q: %w", pm.Name, err)}, true
	}
	return Feature{Geometry: raw, Properties: props}, true
}

func (pm kmlPlacemark) properties() *Properties {
	props := NewProperties()
	if name := strings.TrimSpace(pm.Name); name != "" {
		props.Set("name", name)
	}
	if desc := strings.TrimSpace(pm.Description); desc != "" {
		props.Set("description", desc)
	}
	for _, d := range pm.ExtendedData.Data {
		if d.Name != "" {
			props.Set(d.Name, strings.TrimSpace(d.Value))
		}
	}
	for _, sd := range pm.ExtendedData.SchemaData {
		for _, simple := range sd.SimpleData {
			if simple.Name != "" {
				props.Set(simple.Name, strings.TrimSpace(simple.Value))
			}
		}
	}
	return props
}

func (pm kmlPlacemark) geometry() (orb.Geometry, error) {
	switch {
	case pm.Point != nil:
		return pointGeometry(*pm.Point)
	case pm.LineString != nil:
		return lineGeometry(*pm.LineString)
	case pm.LinearRing != nil:
		ring, err := ringGeometry(*pm.LinearRing)
		if err != nil {
			return nil, err
		}
		return orb.Polygon{ring}, nil
	case pm.Polygon != nil:
		return polygonGeometry(*pm.Polygon)
	case pm.MultiGeometry != nil:
		parts, err := pm.MultiGeometry.flatten()
		if err != nil {
			return nil, err
		}
		return combine(parts), nil
	case pm.Track != nil:
		return trackGeometry(*pm.Track)
	case pm.MultiTrack != nil:
		parts := make([]orb.Geometry, 0, len(pm.MultiTrack.Tracks))
		for i, track := range pm.MultiTrack.Tracks {
			g, err := trackGeometry(track)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", i+1, err)
			}
			parts = append(parts, g)
		}
		return combine(parts), nil
	}
	return nil, nil
}

func (mg kmlMultiGeometry) flatten() ([]orb.Geometry, error) {
	var parts []orb.Geometry
	for _, c := range mg.Points {
		g, err := pointGeometry(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	for _, c := range mg.LineStrings {
		g, err := lineGeometry(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	for _, c := range mg.LinearRings {
		ring, err := ringGeometry(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, orb.Polygon{ring})
	}
	for _, p := range mg.Polygons {
		g, err := polygonGeometry(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	for _, track := range mg.Tracks {
		g, err := trackGeometry(track)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	for _, nested := range mg.MultiGeometry {
		more, err := nested.flatten()
		if err != nil {
			return nil, err
		}
		parts = append(parts, more...)
	}
	return parts, nil
}

// combine folds MultiGeometry members into the narrowest GeoJSON type:
// homogeneous members become Multi*, mixed members a GeometryCollection.
func combine(parts []orb.Geometry) orb.Geometry {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}

	var (
		points   orb.MultiPoint
		lines    orb.MultiLineString
		polygons orb.MultiPolygon
	)
	for _, g := range parts {
		switch v := g.(type) {
		case orb.Point:
			points = append(points, v)
		case orb.LineString:
			lines = append(lines, v)
		case orb.Polygon:
			polygons = append(polygons, v)
		}
	}

	switch len(parts) {
	case len(points):
		return points
	case len(lines):
		return lines
	case len(polygons):
		return polygons
	}
	return orb.Collection(parts)
}

func pointGeometry(c kmlCoordinates) (orb.Geometry, error) {
	pts, err := parseCoordinates(c.Coordinates)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("point has no coordinates")
	}
	return pts[0], nil
}

func lineGeometry(c kmlCoordinates) (orb.Geometry, error) {
	pts, err := parseCoordinates(c.Coordinates)
	if err != nil {
		return nil, err
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("line string needs at least 2 positions, got %d", len(pts))
	}
	return orb.LineString(pts), nil
}

func ringGeometry(c kmlCoordinates) (orb.Ring, error) {
	pts, err := parseCoordinates(c.Coordinates)
	if err != nil {
		return nil, err
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("linear ring needs at least 3 positions, got %d", len(pts))
	}
	ring := orb.Ring(pts)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// trackGeometry turns a track into a LineString, or a Point when it holds a
// single sample. Timestamps are dropped.
func trackGeometry(t kmlTrack) (orb.Geometry, error) {
	pts := make([]orb.Point, 0, len(t.Coords))
	for _, coord := range t.Coords {
		fields := strings.Fields(coord)
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid track coordinate %q", coord)
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", coord, err)
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", coord, err)
		}
		pts = append(pts, orb.Point{lon, lat})
	}

	switch len(pts) {
	case 0:
		return nil, fmt.Errorf("track has no coordinates")
	case 1:
		return pts[0], nil
	}
	return orb.LineString(pts), nil
}

func polygonGeometry(p kmlPolygon) (orb.Geometry, error) {
	outer, err := ringGeometry(p.Outer.LinearRing)
	if err != nil {
		return nil, fmt.Errorf("outer boundary: %w", err)
	}
	poly := orb.Polygon{outer}
	for i, inner := range p.Inner {
		ring, err := ringGeometry(inner.LinearRing)
		if err != nil {
			return nil, fmt.Errorf("inner boundary %d: %w", i+1, err)
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// parseCoordinates reads a KML coordinate list: whitespace separated
// "lon,lat[,alt]" tuples. Spaces next to the commas are tolerated and
// altitude is dropped.
func parseCoordinates(s string) ([]orb.Point, error) {
	fields := strings.Fields(commaSpacing.ReplaceAllString(s, ","))
	pts := make([]orb.Point, 0, len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid coordinate tuple %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", tuple, err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", tuple, err)
		}
		pts = append(pts, orb.Point{lon, lat})
	}
	return pts, nil
}
