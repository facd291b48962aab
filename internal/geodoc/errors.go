package geodoc

import (
	"errors"
	"fmt"
	"strings"
)

// Format-level failures. Any of them aborts the whole import.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptArchive    = errors.New("corrupt KMZ archive")
	ErrNoKMLInArchive    = errors.New("no KML file found in KMZ archive")
	ErrUndecodableText   = errors.New("file is not valid text")
	ErrMalformedKML      = errors.New("malformed KML document")
	ErrMalformedGeoJSON  = errors.New("malformed GeoJSON document")
	ErrNoFeatures        = errors.New("no features found in the file")
)

// AllowedExtensions lists the upload extensions the decoder accepts.
var AllowedExtensions = []string{".kml", ".kmz", ".geojson", ".json"}

// FormatError wraps a format sentinel with the underlying library message.
type FormatError struct {
	Err    error
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatError(sentinel error, detail string) error {
	return &FormatError{Err: sentinel, Detail: detail}
}

func formatErrorf(sentinel error, format string, args ...interface{}) error {
	return &FormatError{Err: sentinel, Detail: fmt.Sprintf(format, args...)}
}

// UserMessage returns the plain-text message shown to the uploader for a format failure.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "Unsupported file format. Please use KML, KMZ, or GeoJSON (" + strings.Join(AllowedExtensions, ", ") + ")"
	case errors.Is(err, ErrNoKMLInArchive):
		return "No KML file found in KMZ archive"
	case errors.Is(err, ErrNoFeatures):
		return "No features found in the file"
	default:
		return "Failed to parse file. Please ensure it is a valid format"
	}
}

// Detail returns the diagnostic detail carried by a FormatError, if any.
func Detail(err error) string {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Detail
	}
	return ""
}
