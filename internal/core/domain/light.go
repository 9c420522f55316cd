package domain

import (
	"strings"
	"time"
)

// LightRequest is the simplified protocol envelope exchanged between the
// generic node and a country-specific module. It carries the same logical
// fields as AuthenticationRequest without the SAML envelope.
type LightRequest struct {
	ID                  string
	Issuer              string
	CitizenCountry      string
	RequestedLoA        LevelOfAssurance
	Comparison          ComparisonMode
	ProviderName        string
	SPType              SPType
	NameIDFormat        string
	RelayState          string
	RequestedAttributes *AttributeSet
}

// Validate checks the light request invariants.
func (r *LightRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ValidationError("light request id is empty")
	}
	if strings.TrimSpace(r.Issuer) == "" {
		return ValidationError("light request issuer is empty")
	}
	if !isCountryCode(r.CitizenCountry) {
		return ValidationErrorf("invalid citizen country code %q", r.CitizenCountry)
	}
	if strings.TrimSpace(string(r.RequestedLoA)) == "" {
		return ValidationError("light request level of assurance is empty")
	}
	if _, ok := ParseComparisonMode(string(r.Comparison)); !ok {
		return ValidationErrorf("invalid comparison mode %q", r.Comparison)
	}
	return nil
}

// LightResponse is the simplified response envelope exchanged between the
// generic node and a country-specific module.
type LightResponse struct {
	ID           string
	InResponseTo string
	Issuer       string
	Status       Status
	GrantedLoA   LevelOfAssurance
	Subject      string
	NameIDFormat string
	IPAddress    string
	RelayState   string
	Attributes   *AttributeSet
}

// Validate checks the light response invariants.
func (r *LightResponse) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ValidationError("light response id is empty")
	}
	if strings.TrimSpace(r.InResponseTo) == "" {
		return ValidationError("light response in-response-to is empty")
	}
	if strings.TrimSpace(r.Issuer) == "" {
		return ValidationError("light response issuer is empty")
	}
	return r.Status.Validate()
}

// BinaryLightToken correlates a stored light request or response. The token
// itself is never stored; only an irreversible digest of its id is used as
// the cache key, so a cache dump cannot be replayed into request ids
// without recomputing the hash.
type BinaryLightToken struct {
	ID        string
	Issuer    string
	CreatedOn time.Time
}

// IsInvalidPayload reports whether a light payload must be rejected before
// any parser sees it: nil payloads are always invalid, and payloads longer
// than max characters are invalid. A payload of exactly max characters is
// accepted.
func IsInvalidPayload(payload []byte, max int) bool {
	if payload == nil {
		return true
	}
	return len(payload) > max
}

// CheckPayloadSize rejects nil or oversized light payloads with a
// ValidationError.
func CheckPayloadSize(payload []byte, max int) error {
	if payload == nil {
		return ValidationError("light payload is null")
	}
	if len(payload) > max {
		return ValidationErrorf("light payload exceeds maximum size %d", max)
	}
	return nil
}
