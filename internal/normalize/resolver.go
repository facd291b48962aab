package normalize

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
	"github.com/stwalsh4118/rowtrack/api/internal/geodoc"
)

// FindProp returns the first candidate that resolves to a non-empty value.
// Each candidate is tried as an exact key, then against the first key whose
// lowercase form matches. A candidate whose value is null, blank or not a
// scalar falls through to the next candidate.
func FindProp(props *geodoc.Properties, candidates ...string) (string, bool) {
	if props.Len() == 0 {
		return "", false
	}
	keys := props.Keys()

	for _, name := range candidates {
		if v, ok := props.Get(name); ok {
			if s, ok := scalarString(v); ok {
				return s, true
			}
		}

		lower := strings.ToLower(name)
		for _, k := range keys {
			if strings.ToLower(k) != lower {
				continue
			}
			v, _ := props.Get(k)
			if s, ok := scalarString(v); ok {
				return s, true
			}
			break
		}
	}
	return "", false
}

// scalarString renders a property value as trimmed text. Objects, arrays,
// null and blank strings are rejected.
func scalarString(v interface{}) (string, bool) {
	var s string
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s = val
	case json.Number:
		s = val.String()
	case map[string]interface{}, []interface{}:
		return "", false
	default:
		str, err := cast.ToStringE(val)
		if err != nil {
			return "", false
		}
		s = str
	}

	s = strings.TrimSpace(s)
	return s, s != ""
}

// lookupKey reports whether props holds a non-empty value under a key equal
// to name ignoring case.
func lookupKey(props *geodoc.Properties, name string) bool {
	lower := strings.ToLower(name)
	for _, k := range props.Keys() {
		if strings.ToLower(k) == lower {
			v, _ := props.Get(k)
			if _, ok := scalarString(v); ok {
				return true
			}
		}
	}
	return false
}
