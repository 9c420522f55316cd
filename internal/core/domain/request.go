package domain

import (
	"net/url"
	"strings"
)

// SPType classifies the requesting service provider sector.
type SPType string

const (
	SPTypePublic  SPType = "public"
	SPTypePrivate SPType = "private"
)

var spTypes = map[string]SPType{
	"public":  SPTypePublic,
	"private": SPTypePrivate,
}

// ParseSPType looks up an SP type from its wire string, case-insensitive
// and trimmed. Returns false for unknown values.
func ParseSPType(s string) (SPType, bool) {
	t, ok := spTypes[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Common NameID format URIs.
const (
	NameIDFormatUnspecified = "urn:oasis:names:tc:SAML:1.1:nameid-format:unspecified"
	NameIDFormatPersistent  = "urn:oasis:names:tc:SAML:2.0:nameid-format:persistent"
	NameIDFormatTransient   = "urn:oasis:names:tc:SAML:2.0:nameid-format:transient"
)

// AuthenticationRequest is the immutable cross-border authentication
// request value. Construct with NewAuthenticationRequest, which enforces
// the invariants; a zero value is not valid.
type AuthenticationRequest struct {
	// ID is the opaque unique identifier, non-empty and unique per issuer.
	ID string

	// Issuer is the entity identifier of the requesting node, an absolute URI.
	Issuer string

	// Destination is the URL the request is addressed to, an absolute URI.
	Destination string

	// CitizenCountry is the two-letter code of the citizen's origin country.
	CitizenCountry string

	// RequestedLoA is the requested level of assurance.
	RequestedLoA LevelOfAssurance

	// Comparison specifies how the granted LoA must relate to RequestedLoA.
	Comparison ComparisonMode

	// RequestedAttributes is the ordered set of requested attribute
	// definitions.
	RequestedAttributes *AttributeSet

	// ProviderName is the human-readable name of the service provider.
	ProviderName string

	// SPType is the requesting provider's sector, if published per-request
	// rather than in metadata.
	SPType SPType

	// NameIDFormat is the requested subject identifier format.
	NameIDFormat string

	// RelayState is opaque state echoed back by the responder.
	RelayState string

	// Version is the protocol version the requesting node speaks.
	Version ProtocolVersion
}

// NewAuthenticationRequest validates and returns an immutable request.
func NewAuthenticationRequest(r AuthenticationRequest) (*AuthenticationRequest, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the request invariants: non-empty ID, absolute issuer and
// destination URIs, a two-letter citizen country, a known comparison mode,
// and a non-empty requested LoA.
func (r *AuthenticationRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ValidationError("request id is empty")
	}
	if err := requireAbsoluteURI("issuer", r.Issuer); err != nil {
		return err
	}
	if err := requireAbsoluteURI("destination", r.Destination); err != nil {
		return err
	}
	if !isCountryCode(r.CitizenCountry) {
		return ValidationErrorf("invalid citizen country code %q", r.CitizenCountry)
	}
	if strings.TrimSpace(string(r.RequestedLoA)) == "" {
		return ValidationError("requested level of assurance is empty")
	}
	if r.RequestedLoA.Notified() {
		if _, ok := r.RequestedLoA.Ordinal(); !ok {
			return ValidationErrorf("unknown notified level of assurance %q", r.RequestedLoA)
		}
	}
	if _, ok := ParseComparisonMode(string(r.Comparison)); !ok {
		return ValidationErrorf("invalid comparison mode %q", r.Comparison)
	}
	if r.SPType != "" {
		if _, ok := ParseSPType(string(r.SPType)); !ok {
			return ValidationErrorf("invalid SP type %q", r.SPType)
		}
	}
	if r.RequestedAttributes.Len() == 0 {
		return ValidationError("no attributes requested")
	}
	return nil
}

func requireAbsoluteURI(field, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ValidationErrorf("%s is empty", field)
	}
	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() {
		return ValidationErrorf("%s %q is not an absolute URI", field, trimmed)
	}
	return nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
