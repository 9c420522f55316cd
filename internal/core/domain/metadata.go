package domain

import (
	"crypto/x509"
	"fmt"
	"time"
)

// RoleType identifies a metadata role descriptor.
type RoleType string

const (
	// SPRole is the service-provider (connector) role.
	SPRole RoleType = "SPSSODescriptor"

	// IDPRole is the identity-provider (proxy-service) role.
	IDPRole RoleType = "IDPSSODescriptor"
)

// RoleDescriptor is one role published in a participant's metadata with
// its certificates, endpoints, and supported attributes.
type RoleDescriptor struct {
	Type RoleType

	// SigningCertificates are the certificates the role signs with.
	SigningCertificates []*x509.Certificate

	// EncryptionCertificates are the certificates peers encrypt to.
	EncryptionCertificates []*x509.Certificate

	// SupportedAttributes are the attribute name URIs the role supports.
	SupportedAttributes []string

	// Location is the SSO endpoint (IDP role) or assertion-consumer
	// endpoint (SP role).
	Location string

	// WantSignedRequests reports whether the role requires signed requests.
	WantSignedRequests bool
}

// ContactInfo is the published organization and contact information.
type ContactInfo struct {
	Organization string
	Email        string
}

// EidasMetadataParameters is the parsed, signature-verified metadata of a
// federation participant. Instances are immutable once cached; a re-fetch
// supersedes rather than mutates.
type EidasMetadataParameters struct {
	EntityID   string
	Roles      []RoleDescriptor
	Contact    ContactInfo
	ValidUntil time.Time

	// Signature holds the raw outer signature bytes as published.
	Signature []byte
}

// Role returns the descriptor of the given type, or false if absent.
func (p *EidasMetadataParameters) Role(t RoleType) (*RoleDescriptor, bool) {
	for i := range p.Roles {
		if p.Roles[i].Type == t {
			return &p.Roles[i], true
		}
	}
	return nil, false
}

// HighLevelMetadataParams derives certificates and attribute lists from
// exactly one role descriptor. Callers must have selected the correct role
// by protocol position: requesting an absent role is a programming error
// and panics rather than returning a silently-empty result.
type HighLevelMetadataParams struct {
	params *EidasMetadataParameters
}

// NewHighLevelMetadataParams wraps parsed metadata parameters.
func NewHighLevelMetadataParams(p *EidasMetadataParameters) *HighLevelMetadataParams {
	return &HighLevelMetadataParams{params: p}
}

// EntityID returns the metadata entity id.
func (h *HighLevelMetadataParams) EntityID() string {
	return h.params.EntityID
}

func (h *HighLevelMetadataParams) mustRole(t RoleType) *RoleDescriptor {
	role, ok := h.params.Role(t)
	if !ok {
		panic(fmt.Sprintf("metadata for %q has no %s role", h.params.EntityID, t))
	}
	return role
}

// EncryptionCertificate returns the SP-role certificate a responder
// encrypts assertions to.
func (h *HighLevelMetadataParams) EncryptionCertificate() *x509.Certificate {
	role := h.mustRole(SPRole)
	if len(role.EncryptionCertificates) == 0 {
		panic(fmt.Sprintf("metadata for %q publishes no encryption certificate", h.params.EntityID))
	}
	return role.EncryptionCertificates[0]
}

// RequestSignatureCertificates returns the SP-role certificates requests
// are verified against.
func (h *HighLevelMetadataParams) RequestSignatureCertificates() []*x509.Certificate {
	return h.mustRole(SPRole).SigningCertificates
}

// ResponseSignatureCertificates returns the IDP-role certificates
// responses are verified against.
func (h *HighLevelMetadataParams) ResponseSignatureCertificates() []*x509.Certificate {
	return h.mustRole(IDPRole).SigningCertificates
}

// SupportedAttributes returns the IDP-role supported attribute name URIs.
func (h *HighLevelMetadataParams) SupportedAttributes() []string {
	return h.mustRole(IDPRole).SupportedAttributes
}

// SSOLocation returns the IDP-role single sign-on endpoint.
func (h *HighLevelMetadataParams) SSOLocation() string {
	return h.mustRole(IDPRole).Location
}
