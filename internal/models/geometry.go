package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Geometry is an opaque GeoJSON geometry object.
// Imports carry it from the source document to the store byte for byte;
// nothing here validates or repairs coordinates.
type Geometry json.RawMessage

var jsonNull = []byte("null")

// IsEmpty reports whether the geometry is absent or JSON null.
func (g Geometry) IsEmpty() bool {
	trimmed := bytes.TrimSpace(g)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

// Type returns the GeoJSON "type" member, or an empty string if it cannot be read.
func (g Geometry) Type() string {
	if g.IsEmpty() {
		return ""
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(g, &head); err != nil {
		return ""
	}
	return head.Type
}

// Scan implements sql.Scanner for reading geometry JSON from the database.
// Postgres returns jsonb as []byte; SQLite returns TEXT as string.
func (g *Geometry) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*g = nil
	case []byte:
		*g = append(Geometry(nil), v...)
	case string:
		*g = Geometry(v)
	default:
		return fmt.Errorf("failed to scan Geometry: expected []byte or string, got %T", value)
	}
	return nil
}

// Value implements driver.Valuer for writing geometry to the database.
// Returns the GeoJSON text, or nil for an empty geometry.
func (g Geometry) Value() (driver.Value, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	return string(g), nil
}

// MarshalJSON emits the stored GeoJSON unchanged.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if g.IsEmpty() {
		return jsonNull, nil
	}
	return g, nil
}

// UnmarshalJSON keeps a copy of the raw geometry object.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if g == nil {
		return fmt.Errorf("models.Geometry: UnmarshalJSON on nil pointer")
	}
	*g = append((*g)[0:0], data...)
	return nil
}
