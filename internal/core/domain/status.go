package domain

import "strings"

// StatusCode is a top-level SAML status code. The set is closed; wire URIs
// resolve through a case-insensitive trimmed lookup table built once at
// startup.
type StatusCode string

const (
	StatusSuccess         StatusCode = "urn:oasis:names:tc:SAML:2.0:status:Success"
	StatusRequester       StatusCode = "urn:oasis:names:tc:SAML:2.0:status:Requester"
	StatusResponder       StatusCode = "urn:oasis:names:tc:SAML:2.0:status:Responder"
	StatusVersionMismatch StatusCode = "urn:oasis:names:tc:SAML:2.0:status:VersionMismatch"
)

// SubStatusCode is a second-level SAML status code qualifying a failure.
type SubStatusCode string

const (
	SubStatusAuthnFailed            SubStatusCode = "urn:oasis:names:tc:SAML:2.0:status:AuthnFailed"
	SubStatusInvalidAttrNameOrValue SubStatusCode = "urn:oasis:names:tc:SAML:2.0:status:InvalidAttrNameOrValue"
	SubStatusInvalidNameIDPolicy    SubStatusCode = "urn:oasis:names:tc:SAML:2.0:status:InvalidNameIDPolicy"
	SubStatusRequestDenied          SubStatusCode = "urn:oasis:names:tc:SAML:2.0:status:RequestDenied"
	SubStatusRequestUnsupported     SubStatusCode = "urn:oasis:names:tc:SAML:2.0:status:RequestUnsupported"
)

var statusCodes = buildStatusTable([]StatusCode{
	StatusSuccess,
	StatusRequester,
	StatusResponder,
	StatusVersionMismatch,
})

var subStatusCodes = buildSubStatusTable([]SubStatusCode{
	SubStatusAuthnFailed,
	SubStatusInvalidAttrNameOrValue,
	SubStatusInvalidNameIDPolicy,
	SubStatusRequestDenied,
	SubStatusRequestUnsupported,
})

func buildStatusTable(codes []StatusCode) map[string]StatusCode {
	m := make(map[string]StatusCode, len(codes))
	for _, c := range codes {
		m[strings.ToLower(string(c))] = c
	}
	return m
}

func buildSubStatusTable(codes []SubStatusCode) map[string]SubStatusCode {
	m := make(map[string]SubStatusCode, len(codes))
	for _, c := range codes {
		m[strings.ToLower(string(c))] = c
	}
	return m
}

// ParseStatusCode looks up a status code from its wire URI,
// case-insensitive and trimmed. Returns false for unknown URIs.
func ParseStatusCode(uri string) (StatusCode, bool) {
	c, ok := statusCodes[strings.ToLower(strings.TrimSpace(uri))]
	return c, ok
}

// ParseSubStatusCode looks up a sub-status code from its wire URI.
func ParseSubStatusCode(uri string) (SubStatusCode, bool) {
	c, ok := subStatusCodes[strings.ToLower(strings.TrimSpace(uri))]
	return c, ok
}

// URI returns the wire form of the status code.
func (c StatusCode) URI() string { return string(c) }

// URI returns the wire form of the sub-status code.
func (c SubStatusCode) URI() string { return string(c) }

// Status is the outcome of an authentication exchange: a top-level code,
// an optional sub-status qualifying a failure, and an optional message.
type Status struct {
	Code       StatusCode
	SubStatus  SubStatusCode
	Message    string
	Failure    bool
}

// SuccessStatus returns the status carried by a successful response.
func SuccessStatus() Status {
	return Status{Code: StatusSuccess}
}

// FailureStatus returns a failure status with the given codes and message.
func FailureStatus(code StatusCode, sub SubStatusCode, message string) Status {
	return Status{Code: code, SubStatus: sub, Message: message, Failure: true}
}

// Validate checks internal consistency of the status.
func (s Status) Validate() error {
	if _, ok := ParseStatusCode(string(s.Code)); !ok {
		return ValidationErrorf("unknown status code %q", s.Code)
	}
	if s.Code == StatusSuccess && s.Failure {
		return ValidationError("success status marked as failure")
	}
	if s.Code != StatusSuccess && !s.Failure {
		return ValidationErrorf("non-success status code %q not marked as failure", s.Code)
	}
	if s.SubStatus != "" {
		if _, ok := ParseSubStatusCode(string(s.SubStatus)); !ok {
			return ValidationErrorf("unknown sub-status code %q", s.SubStatus)
		}
	}
	return nil
}
