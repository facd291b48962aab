package normalize

import (
	"strings"

	"github.com/stwalsh4118/rowtrack/api/internal/geodoc"
)

// Resolved holds the canonical parcel attributes found in one property bag.
// A nil field did not resolve.
type Resolved struct {
	ParcelNumber *string
	PIN          *string
	Owner        *string
	OwnerAddress *string
	OwnerCity    *string
	OwnerState   *string
	OwnerZip     *string
	LegalDesc    *string
	County       *string
	Acreage      *float64
}

// Resolve applies the catalog to a property bag: plain per-field lookups
// first, then the county/state split, the mailing address parse, acreage
// coercion and legal description assembly.
func (c *Catalog) Resolve(props *geodoc.Properties) Resolved {
	values := make(map[Field]string, len(FieldOrder))
	for _, f := range FieldOrder {
		if v, ok := FindProp(props, c.Candidates(f)...); ok {
			values[f] = v
		}
	}

	var r Resolved
	r.ParcelNumber = optional(values[FieldParcelNumber])
	r.PIN = optional(values[FieldPIN])
	r.Owner = optional(values[FieldOwner])
	r.OwnerAddress = optional(values[FieldOwnerAddress])
	r.OwnerCity = optional(values[FieldOwnerCity])
	r.OwnerState = optional(values[FieldOwnerState])
	r.OwnerZip = optional(values[FieldOwnerZip])

	var countyState string
	if raw, ok := values[FieldCounty]; ok {
		county, state := SplitCountyState(raw)
		r.County = optional(county)
		countyState = state
	}

	if addr, ok := ParseAddress(values[FieldOwnerAddress]); ok {
		r.OwnerCity = optional(addr.City)
		r.OwnerState = optional(addr.State)
		r.OwnerZip = optional(addr.Zip)
	}

	if r.OwnerState == nil {
		r.OwnerState = optional(countyState)
	}

	if raw, ok := values[FieldAcreage]; ok {
		if acres, ok := ParseAcreage(raw); ok {
			r.Acreage = &acres
		}
	}

	r.LegalDesc = c.legalDescription(props)
	return r
}

// legalDescription renders each resolved legal part as "label: value",
// joined by " | ".
func (c *Catalog) legalDescription(props *geodoc.Properties) *string {
	var parts []string
	for _, part := range c.legalParts {
		if v, ok := FindProp(props, part.Candidates...); ok {
			parts = append(parts, part.Label+": "+v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	s := strings.Join(parts, " | ")
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
