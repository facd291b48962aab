// Package geodoc turns uploaded geospatial files (KML, KMZ, GeoJSON) into a
// GeoJSON-shaped feature list.
package geodoc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format identifies the parseable document carried by an upload.
type Format string

const (
	FormatKML     Format = "kml"
	FormatGeoJSON Format = "geojson"
)

// maxKMLEntryBytes caps how much a single KMZ entry may inflate to.
const maxKMLEntryBytes = 256 << 20

// Source is a decoded upload ready for parsing.
type Source struct {
	Format Format
	Text   string
	// Entry is the archive member the KML was read from, for KMZ uploads.
	Entry string
}

// Decode selects a decoder by the file name's extension and returns the
// document text. It never reads the file system and has no side effects.
func Decode(data []byte, fileName string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".kml":
		text, err := decodeText(data, declaredXMLEncoding(data))
		if err != nil {
			return nil, formatError(ErrUndecodableText, err.Error())
		}
		return &Source{Format: FormatKML, Text: text}, nil

	case ".kmz":
		return decodeKMZ(data)

	case ".geojson", ".json":
		text, err := decodeText(data, "")
		if err != nil {
			return nil, formatError(ErrUndecodableText, err.Error())
		}
		return &Source{Format: FormatGeoJSON, Text: text}, nil

	default:
		return nil, formatErrorf(ErrUnsupportedFormat, "extension %q is not one of %s",
			ext, strings.Join(AllowedExtensions, ", "))
	}
}

// decodeKMZ opens a KMZ archive and returns the first .kml member.
func decodeKMZ(data []byte) (*Source, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, formatError(ErrCorruptArchive, err.Error())
	}

	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name), ".kml") {
			continue
		}

		raw, err := readArchiveEntry(entry)
		if err != nil {
			return nil, formatError(ErrCorruptArchive, err.Error())
		}

		text, err := decodeText(raw, declaredXMLEncoding(raw))
		if err != nil {
			return nil, formatError(ErrUndecodableText, err.Error())
		}
		return &Source{Format: FormatKML, Text: text, Entry: entry.Name}, nil
	}

	return nil, formatErrorf(ErrNoKMLInArchive, "archive has %d entries", len(archive.File))
}

func readArchiveEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxKMLEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", entry.Name, err)
	}
	if len(raw) > maxKMLEntryBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes uncompressed", entry.Name, maxKMLEntryBytes)
	}
	return raw, nil
}
