package domain

import "strings"

// AuthenticationResponse is the immutable cross-border authentication
// response value. Construct with NewAuthenticationResponse, which enforces
// the invariants; a zero value is not valid.
type AuthenticationResponse struct {
	// ID is the opaque unique identifier of this response.
	ID string

	// InResponseTo must equal the id of the originating request.
	InResponseTo string

	// Issuer is the entity identifier of the responding node.
	Issuer string

	// Status is the authentication outcome.
	Status Status

	// GrantedLoA is the level of assurance actually achieved.
	// Required on success; absent or ignored on failure.
	GrantedLoA LevelOfAssurance

	// Attributes maps attribute definitions to one or more typed values.
	// May be empty on failure.
	Attributes *AttributeSet

	// Subject is the authenticated subject identifier.
	Subject string

	// SubjectNameIDFormat is the format of Subject.
	SubjectNameIDFormat string

	// IPAddress is the subject's IP address, carried for audit only.
	IPAddress string

	// RelayState is opaque state echoed back from the request.
	RelayState string

	// Version is the protocol version the responding node speaks.
	Version ProtocolVersion
}

// ResponseValidationPolicy carries the per-deployment rules applied when
// validating a response.
type ResponseValidationPolicy struct {
	// AllowedNonNotifiedLoAs is the exact-match allow-list for non-notified
	// levels of assurance. Empty rejects all non-notified levels.
	AllowedNonNotifiedLoAs []string
}

// NewAuthenticationResponse validates and returns an immutable response.
func NewAuthenticationResponse(r AuthenticationResponse, policy ResponseValidationPolicy) (*AuthenticationResponse, error) {
	if err := r.Validate(policy); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the response invariants. On failure the attribute map and
// LoA may be empty. On success the LoA must be present and, if it uses the
// notified prefix, resolve to one of the three notified levels.
func (r *AuthenticationResponse) Validate(policy ResponseValidationPolicy) error {
	if strings.TrimSpace(r.ID) == "" {
		return ValidationError("response id is empty")
	}
	if strings.TrimSpace(r.InResponseTo) == "" {
		return ValidationError("response in-response-to is empty")
	}
	if err := requireAbsoluteURI("issuer", r.Issuer); err != nil {
		return err
	}
	if err := r.Status.Validate(); err != nil {
		return err
	}
	if r.Status.Failure {
		return nil
	}
	return ValidateGrantedLoA(r.GrantedLoA, policy.AllowedNonNotifiedLoAs)
}
