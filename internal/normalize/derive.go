package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// City, two-letter state and five-digit zip (optional +4) at the end of a
	// mailing address.
	addressTail   = regexp.MustCompile(`,?\s*([A-Z\s]+),?\s+([A-Z]{2})\s+(\d{5})(?:-\d{4})?\s*$`)
	leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// Address is the city/state/zip tail parsed from a mailing address.
type Address struct {
	City  string
	State string
	Zip   string
}

// ParseAddress decomposes "PO BOX 964 LYNCHBURG, VA 24505" style addresses.
func ParseAddress(s string) (Address, bool) {
	m := addressTail.FindStringSubmatch(s)
	if m == nil {
		return Address{}, false
	}
	city := strings.TrimSpace(m[1])
	if city == "" {
		return Address{}, false
	}
	return Address{City: city, State: m[2], Zip: m[3]}, true
}

// SplitCountyState splits "Bedford County, VA" on its first comma. state is
// empty when the value carries no comma or nothing follows it.
func SplitCountyState(s string) (county, state string) {
	left, right, found := strings.Cut(s, ",")
	if !found {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

// ParseAcreage reads the leading number of an acreage value, ignoring
// thousands separators. Values without a leading number or below zero are
// rejected.
func ParseAcreage(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	num := leadingNumber.FindString(s)
	if num == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
