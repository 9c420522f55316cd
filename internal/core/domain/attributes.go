package domain

import (
	"strings"
	"time"
)

// PersonType distinguishes natural-person from legal-person attributes.
type PersonType string

const (
	NaturalPerson PersonType = "natural"
	LegalPerson   PersonType = "legal"
)

// eIDAS attribute namespace URIs.
const (
	NaturalPersonNamespace = "http://eidas.europa.eu/attributes/naturalperson/"
	LegalPersonNamespace   = "http://eidas.europa.eu/attributes/legalperson/"
)

// ValueMarshaller converts between the in-memory form of an attribute value
// and its wire string. Implementations must be stateless.
type ValueMarshaller interface {
	// Marshal renders a value for the wire.
	Marshal(value string) (string, error)

	// Unmarshal parses a wire value.
	Unmarshal(wire string) (string, error)
}

// LiteralMarshaller passes values through unchanged apart from trimming.
type LiteralMarshaller struct{}

// Marshal returns the trimmed value.
func (LiteralMarshaller) Marshal(value string) (string, error) {
	return strings.TrimSpace(value), nil
}

// Unmarshal returns the trimmed wire value.
func (LiteralMarshaller) Unmarshal(wire string) (string, error) {
	return strings.TrimSpace(wire), nil
}

// DateMarshaller validates values as ISO dates (YYYY-MM-DD).
type DateMarshaller struct{}

// Marshal checks the value parses as a date and returns it.
func (DateMarshaller) Marshal(value string) (string, error) {
	return parseDateValue(value)
}

// Unmarshal checks the wire value parses as a date and returns it.
func (DateMarshaller) Unmarshal(wire string) (string, error) {
	return parseDateValue(wire)
}

func parseDateValue(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", trimmed); err != nil {
		return "", ValidationErrorf("invalid date attribute value %q", trimmed)
	}
	return trimmed, nil
}

// AttributeDefinition describes one requestable attribute: its name URI,
// friendly name, person type, XML schema type, and whether it is part of
// the mandatory minimum data set.
type AttributeDefinition struct {
	NameURI          string
	FriendlyName     string
	Required         bool
	PersonType       PersonType
	XMLType          string
	UniqueIdentifier bool
	Marshaller       ValueMarshaller
}

// normalizedName returns the lookup key for an attribute name URI.
func normalizedName(nameURI string) string {
	return strings.ToLower(strings.TrimSpace(nameURI))
}

// AttributeRegistry is a closed lookup table of attribute definitions,
// built once at startup. Lookup is case-insensitive on the trimmed name URI.
type AttributeRegistry struct {
	byName  map[string]AttributeDefinition
	ordered []AttributeDefinition
}

// NewAttributeRegistry builds a registry from the given definitions.
// Duplicate name URIs are a configuration error.
func NewAttributeRegistry(defs ...AttributeDefinition) (*AttributeRegistry, error) {
	r := &AttributeRegistry{
		byName:  make(map[string]AttributeDefinition, len(defs)),
		ordered: make([]AttributeDefinition, 0, len(defs)),
	}
	for _, def := range defs {
		key := normalizedName(def.NameURI)
		if key == "" {
			return nil, ConfigurationError("attribute definition with empty name URI")
		}
		if _, exists := r.byName[key]; exists {
			return nil, ConfigurationError("duplicate attribute definition " + def.NameURI)
		}
		if def.Marshaller == nil {
			def.Marshaller = LiteralMarshaller{}
		}
		r.byName[key] = def
		r.ordered = append(r.ordered, def)
	}
	return r, nil
}

// ByName returns the definition for a name URI, case-insensitive trimmed.
func (r *AttributeRegistry) ByName(nameURI string) (AttributeDefinition, bool) {
	def, ok := r.byName[normalizedName(nameURI)]
	return def, ok
}

// ByFriendlyName returns the first definition matching a friendly name.
func (r *AttributeRegistry) ByFriendlyName(name string) (AttributeDefinition, bool) {
	for _, def := range r.ordered {
		if strings.EqualFold(def.FriendlyName, strings.TrimSpace(name)) {
			return def, true
		}
	}
	return AttributeDefinition{}, false
}

// Definitions returns all definitions in registration order.
func (r *AttributeRegistry) Definitions() []AttributeDefinition {
	out := make([]AttributeDefinition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered definitions.
func (r *AttributeRegistry) Len() int { return len(r.ordered) }

// StandardRegistry returns the eIDAS minimum data sets for natural and
// legal persons.
func StandardRegistry() *AttributeRegistry {
	r, err := NewAttributeRegistry(
		AttributeDefinition{
			NameURI:          NaturalPersonNamespace + "PersonIdentifier",
			FriendlyName:     "PersonIdentifier",
			Required:         true,
			PersonType:       NaturalPerson,
			XMLType:          "eidas-natural:PersonIdentifierType",
			UniqueIdentifier: true,
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "CurrentFamilyName",
			FriendlyName: "FamilyName",
			Required:     true,
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:CurrentFamilyNameType",
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "CurrentGivenName",
			FriendlyName: "FirstName",
			Required:     true,
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:CurrentGivenNameType",
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "DateOfBirth",
			FriendlyName: "DateOfBirth",
			Required:     true,
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:DateOfBirthType",
			Marshaller:   DateMarshaller{},
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "BirthName",
			FriendlyName: "BirthName",
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:BirthNameType",
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "PlaceOfBirth",
			FriendlyName: "PlaceOfBirth",
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:PlaceOfBirthType",
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "CurrentAddress",
			FriendlyName: "CurrentAddress",
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:CurrentAddressType",
		},
		AttributeDefinition{
			NameURI:      NaturalPersonNamespace + "Gender",
			FriendlyName: "Gender",
			PersonType:   NaturalPerson,
			XMLType:      "eidas-natural:GenderType",
		},
		AttributeDefinition{
			NameURI:          LegalPersonNamespace + "LegalPersonIdentifier",
			FriendlyName:     "LegalPersonIdentifier",
			Required:         true,
			PersonType:       LegalPerson,
			XMLType:          "eidas-legal:LegalPersonIdentifierType",
			UniqueIdentifier: true,
		},
		AttributeDefinition{
			NameURI:      LegalPersonNamespace + "LegalName",
			FriendlyName: "LegalName",
			Required:     true,
			PersonType:   LegalPerson,
			XMLType:      "eidas-legal:LegalNameType",
		},
		AttributeDefinition{
			NameURI:      LegalPersonNamespace + "VATRegistrationNumber",
			FriendlyName: "VATRegistration",
			PersonType:   LegalPerson,
			XMLType:      "eidas-legal:VATRegistrationNumberType",
		},
		AttributeDefinition{
			NameURI:      LegalPersonNamespace + "EORI",
			FriendlyName: "EORI",
			PersonType:   LegalPerson,
			XMLType:      "eidas-legal:EORIType",
		},
	)
	if err != nil {
		// The standard set is compiled in; a failure here is a programming error.
		panic(err)
	}
	return r
}

// AttributeEntry is one attribute with its values in an AttributeSet.
type AttributeEntry struct {
	Definition AttributeDefinition
	Values     []string
}

// AttributeSet is an ordered set of attribute definitions with zero or
// more typed values each. Order is insertion order; a definition appears
// at most once.
type AttributeSet struct {
	entries []AttributeEntry
	index   map[string]int
}

// NewAttributeSet returns an empty attribute set.
func NewAttributeSet() *AttributeSet {
	return &AttributeSet{index: make(map[string]int)}
}

// Add appends values for a definition, merging with an existing entry.
func (s *AttributeSet) Add(def AttributeDefinition, values ...string) {
	key := normalizedName(def.NameURI)
	if i, ok := s.index[key]; ok {
		s.entries[i].Values = append(s.entries[i].Values, values...)
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, AttributeEntry{Definition: def, Values: values})
}

// Get returns the values for a name URI.
func (s *AttributeSet) Get(nameURI string) ([]string, bool) {
	if i, ok := s.index[normalizedName(nameURI)]; ok {
		return s.entries[i].Values, true
	}
	return nil, false
}

// Entries returns the entries in insertion order.
func (s *AttributeSet) Entries() []AttributeEntry {
	out := make([]AttributeEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *AttributeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Names returns the name URIs in insertion order.
func (s *AttributeSet) Names() []string {
	names := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.Definition.NameURI)
	}
	return names
}
