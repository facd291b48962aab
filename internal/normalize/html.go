package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/stwalsh4118/rowtrack/api/internal/geodoc"
)

var labelPattern = regexp.MustCompile(`^([^:=]+)[:=]\s*(.+)$`)

// LooksLikeMarkup reports whether a description value should be unpacked.
func LooksLikeMarkup(s string) bool {
	return strings.Contains(s, "<") || strings.Contains(s, "table")
}

// UnpackDescription extracts key/value pairs embedded in an HTML description.
// Table rows with two or more cells are read first (first cell key, second
// cell value); div and span text matching "label: value" or "label=value"
// then fills keys not yet seen. The first extraction of a key wins and blank
// keys or values are dropped.
func UnpackDescription(markup string) (*geodoc.Properties, error) {
	out := geodoc.NewProperties()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return out, fmt.Errorf("failed to parse description markup: %w", err)
	}

	add := func(key, value string) {
		key = strings.TrimSuffix(collapseSpace(key), ":")
		key = strings.TrimSpace(key)
		value = collapseSpace(value)
		if key == "" || value == "" || lookupKey(out, key) {
			return
		}
		out.Set(key, value)
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		// Layout rows wrapping a nested table are read through their inner rows.
		if cells.Find("table").Length() > 0 {
			return
		}
		add(cells.Eq(0).Text(), cells.Eq(1).Text())
	})

	labelled := func(_ int, el *goquery.Selection) bool {
		return labelPattern.MatchString(collapseSpace(el.Text()))
	}
	doc.Find("div, span").Each(func(_ int, el *goquery.Selection) {
		// A container whose children carry their own labels would swallow
		// them into one value.
		if el.Find("div, span").FilterFunction(labelled).Length() > 0 {
			return
		}
		m := labelPattern.FindStringSubmatch(collapseSpace(el.Text()))
		if m == nil {
			return
		}
		add(m[1], m[2])
	})

	return out, nil
}

// Expansion is a feature's property bag after its HTML description, if any,
// has been unpacked and merged.
type Expansion struct {
	Properties *geodoc.Properties
	// HTMLFields counts the pairs unpacked from the description.
	HTMLFields int
	// Err is set when the description could not be parsed. Properties then
	// holds the other declared properties alone.
	Err error
}

// Expand unpacks a markup description and merges it with the declared
// properties according to the profile's precedence. The raw description is
// dropped from the merged bag when it held tags or yielded pairs; plain text
// that merely mentions a table stays a declared property.
func Expand(props *geodoc.Properties, profile Profile) Expansion {
	descKey, markup, ok := markupDescription(props)
	if !ok {
		return Expansion{Properties: props}
	}

	extracted, err := UnpackDescription(markup)
	if extracted.Len() == 0 && !strings.Contains(markup, "<") {
		return Expansion{Properties: props, Err: err}
	}

	// Copy the declared properties without the raw description
	declared := geodoc.NewProperties()
	for _, k := range props.Keys() {
		if k == descKey {
			continue
		}
		v, _ := props.Get(k)
		declared.Set(k, v)
	}

	if err != nil {
		return Expansion{Properties: declared, Err: err}
	}

	merged := Merge(declared, extracted, profile.DescriptionPrecedence)
	return Expansion{Properties: merged, HTMLFields: extracted.Len()}
}

// Merge combines declared and description-derived properties. The side named
// by precedence keeps its non-empty values; the other side only fills keys
// that are missing or blank, compared case-insensitively.
func Merge(declared, extracted *geodoc.Properties, precedence Precedence) *geodoc.Properties {
	primary, secondary := declared, extracted
	if precedence == PrecedenceDescription {
		primary, secondary = extracted, declared
	}

	out := geodoc.NewProperties()
	for _, k := range primary.Keys() {
		v, _ := primary.Get(k)
		if _, ok := scalarString(v); !ok {
			continue
		}
		out.Set(k, v)
	}
	for _, k := range secondary.Keys() {
		if lookupKey(out, k) {
			continue
		}
		v, _ := secondary.Get(k)
		out.Set(k, v)
	}
	return out
}

// markupDescription finds the first key named "description" in any case
// whose value looks like markup.
func markupDescription(props *geodoc.Properties) (string, string, bool) {
	for _, k := range props.Keys() {
		if strings.ToLower(k) != "description" {
			continue
		}
		v, _ := props.Get(k)
		s, ok := v.(string)
		if !ok || !LooksLikeMarkup(s) {
			return "", "", false
		}
		return k, s, true
	}
	return "", "", false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
