// Package normalize maps county-specific feature properties onto canonical
// parcel fields using a data-driven field catalog.
package normalize

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field names a canonical parcel attribute resolved from feature properties.
type Field string

const (
	FieldParcelNumber Field = "parcelNumber"
	FieldPIN          Field = "pin"
	FieldOwner        Field = "owner"
	FieldOwnerAddress Field = "ownerAddress"
	FieldOwnerCity    Field = "ownerCity"
	FieldOwnerState   Field = "ownerState"
	FieldOwnerZip     Field = "ownerZip"
	FieldCounty       Field = "county"
	FieldAcreage      Field = "acreage"
)

// FieldOrder is the order in which canonical fields are resolved.
var FieldOrder = []Field{
	FieldParcelNumber,
	FieldPIN,
	FieldOwner,
	FieldOwnerAddress,
	FieldOwnerCity,
	FieldOwnerState,
	FieldOwnerZip,
	FieldCounty,
	FieldAcreage,
}

// Precedence decides which side wins when a declared property and a field
// unpacked from the HTML description share a name.
type Precedence string

const (
	PrecedenceDeclared    Precedence = "declared"
	PrecedenceDescription Precedence = "description"
)

// DefaultProfile is the profile used when an import names none.
const DefaultProfile = "default"

var (
	ErrUnknownProfile = errors.New("unknown import profile")
	ErrInvalidCatalog = errors.New("invalid field catalog")
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// LegalPart is one labelled component of the assembled legal description.
type LegalPart struct {
	Name       string   `yaml:"name"`
	Label      string   `yaml:"label"`
	Candidates []string `yaml:"candidates"`
}

// Profile is a named import policy for a family of source systems.
type Profile struct {
	Name                  string     `yaml:"name"`
	DescriptionPrecedence Precedence `yaml:"description_precedence"`
}

// Catalog maps canonical fields to ordered candidate property names.
type Catalog struct {
	fields     map[Field][]string
	legalParts []LegalPart
	profiles   map[string]Profile
	names      []string
}

type catalogFile struct {
	Fields     map[string][]string `yaml:"fields"`
	LegalParts []LegalPart         `yaml:"legal_parts"`
	Profiles   []Profile           `yaml:"profiles"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded field catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a YAML file. An empty path yields the
// default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field catalog %s: %w", path, err)
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("field catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog parses and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{
		fields:   make(map[Field][]string, len(FieldOrder)),
		profiles: make(map[string]Profile, len(file.Profiles)),
	}

	for name := range file.Fields {
		if !isKnownField(Field(name)) {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidCatalog, name)
		}
	}
	for _, f := range FieldOrder {
		candidates := cleanCandidates(file.Fields[string(f)])
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: field %q has no candidate names", ErrInvalidCatalog, f)
		}
		c.fields[f] = candidates
	}

	for i, part := range file.LegalParts {
		part.Candidates = cleanCandidates(part.Candidates)
		if part.Name == "" || part.Label == "" {
			return nil, fmt.Errorf("%w: legal part %d needs a name and a label", ErrInvalidCatalog, i+1)
		}
		if len(part.Candidates) == 0 {
			return nil, fmt.Errorf("%w: legal part %q has no candidate names", ErrInvalidCatalog, part.Name)
		}
		c.legalParts = append(c.legalParts, part)
	}

	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile without a name", ErrInvalidCatalog)
		}
		if _, dup := c.profiles[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrInvalidCatalog, p.Name)
		}
		switch p.DescriptionPrecedence {
		case "":
			p.DescriptionPrecedence = PrecedenceDeclared
		case PrecedenceDeclared, PrecedenceDescription:
		default:
			return nil, fmt.Errorf("%w: profile %q has unknown description_precedence %q",
				ErrInvalidCatalog, p.Name, p.DescriptionPrecedence)
		}
		c.profiles[p.Name] = p
		c.names = append(c.names, p.Name)
	}

	if _, ok := c.profiles[DefaultProfile]; !ok {
		c.profiles[DefaultProfile] = Profile{Name: DefaultProfile, DescriptionPrecedence: PrecedenceDeclared}
		c.names = append(c.names, DefaultProfile)
	}

	return c, nil
}

// Candidates returns the candidate property names for a field.
func (c *Catalog) Candidates(f Field) []string {
	return c.fields[f]
}

// Profile looks up an import profile. An empty name selects DefaultProfile.
func (c *Catalog) Profile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := c.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, name, strings.Join(c.names, ", "))
	}
	return p, nil
}

// ProfileNames lists the configured profiles in declaration order.
func (c *Catalog) ProfileNames() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func isKnownField(f Field) bool {
	for _, known := range FieldOrder {
		if f == known {
			return true
		}
	}
	return false
}

func cleanCandidates(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
