// Package metadata implements metadata-based trust resolution: fetching
// remote metadata over TLS, verifying its signature against configured
// trust anchors, enforcing an optional URL whitelist, and exposing role
// descriptors with their certificates and supported attributes.
package metadata

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"strings"
	"time"

	"github.com/crewjam/saml"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// rawMetadataValidity extracts validUntil without binding to the full
// schema.
type rawMetadataValidity struct {
	ValidUntil string `xml:"validUntil,attr"`
}

// ParseEntityDescriptor parses a signature-verified metadata document into
// EidasMetadataParameters. Supports a single EntityDescriptor; aggregate
// documents are not part of the cross-border exchange.
func ParseEntityDescriptor(data []byte) (*domain.EidasMetadataParameters, error) {
	var descriptor saml.EntityDescriptor
	if err := xml.Unmarshal(data, &descriptor); err != nil {
		return nil, domain.MetadataError("parse metadata document", err)
	}
	if strings.TrimSpace(descriptor.EntityID) == "" {
		return nil, domain.MetadataError("metadata has no entity id", nil)
	}

	params := &domain.EidasMetadataParameters{
		EntityID: descriptor.EntityID,
	}

	validUntil, err := extractValidUntil(data)
	if err != nil {
		return nil, err
	}
	params.ValidUntil = validUntil

	params.Contact = extractContactInfo(data)

	for i := range descriptor.SPSSODescriptors {
		sp := &descriptor.SPSSODescriptors[i]
		role := domain.RoleDescriptor{Type: domain.SPRole}
		if sp.AuthnRequestsSigned != nil {
			role.WantSignedRequests = *sp.AuthnRequestsSigned
		}
		if err := collectKeyDescriptors(&role, sp.KeyDescriptors); err != nil {
			return nil, err
		}
		for _, acs := range sp.AssertionConsumerServices {
			role.Location = acs.Location
			break
		}
		params.Roles = append(params.Roles, role)
	}

	for i := range descriptor.IDPSSODescriptors {
		idp := &descriptor.IDPSSODescriptors[i]
		role := domain.RoleDescriptor{Type: domain.IDPRole}
		if idp.WantAuthnRequestsSigned != nil {
			role.WantSignedRequests = *idp.WantAuthnRequestsSigned
		}
		if err := collectKeyDescriptors(&role, idp.KeyDescriptors); err != nil {
			return nil, err
		}
		for _, sso := range idp.SingleSignOnServices {
			role.Location = sso.Location
			break
		}
		for _, attr := range idp.Attributes {
			if attr.Name != "" {
				role.SupportedAttributes = append(role.SupportedAttributes, attr.Name)
			}
		}
		params.Roles = append(params.Roles, role)
	}

	if len(params.Roles) == 0 {
		return nil, domain.MetadataError("metadata publishes no SP or IDP role", nil)
	}
	return params, nil
}

// collectKeyDescriptors sorts a role's certificates into signing and
// encryption sets. A key descriptor without a use attribute serves both.
func collectKeyDescriptors(role *domain.RoleDescriptor, descriptors []saml.KeyDescriptor) error {
	for _, kd := range descriptors {
		for _, raw := range kd.KeyInfo.X509Data.X509Certificates {
			cert, err := parseCertificate(raw.Data)
			if err != nil {
				return err
			}
			switch kd.Use {
			case "signing":
				role.SigningCertificates = append(role.SigningCertificates, cert)
			case "encryption":
				role.EncryptionCertificates = append(role.EncryptionCertificates, cert)
			case "":
				role.SigningCertificates = append(role.SigningCertificates, cert)
				role.EncryptionCertificates = append(role.EncryptionCertificates, cert)
			}
		}
	}
	return nil
}

// parseCertificate decodes a base64 DER certificate from a metadata
// KeyDescriptor, tolerating embedded whitespace.
func parseCertificate(data string) (*x509.Certificate, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, data)
	der, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, domain.MetadataError("invalid certificate encoding in metadata", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, domain.MetadataError("invalid certificate in metadata", err)
	}
	return cert, nil
}

// rawContactInfo is used to parse organization and contact details from
// raw XML, independent of the full schema binding.
type rawContactInfo struct {
	Organization struct {
		Names []string `xml:"OrganizationName"`
	} `xml:"urn:oasis:names:tc:SAML:2.0:metadata Organization"`
	ContactPersons []struct {
		EmailAddresses []string `xml:"EmailAddress"`
	} `xml:"urn:oasis:names:tc:SAML:2.0:metadata ContactPerson"`
}

// extractContactInfo pulls organization and contact details from raw XML.
// Absent elements yield empty fields, never an error.
func extractContactInfo(data []byte) domain.ContactInfo {
	var raw rawContactInfo
	if err := xml.Unmarshal(data, &raw); err != nil {
		return domain.ContactInfo{}
	}
	info := domain.ContactInfo{}
	if len(raw.Organization.Names) > 0 {
		info.Organization = strings.TrimSpace(raw.Organization.Names[0])
	}
	for _, contact := range raw.ContactPersons {
		for _, email := range contact.EmailAddresses {
			if trimmed := strings.TrimSpace(email); trimmed != "" {
				info.Email = trimmed
				return info
			}
		}
	}
	return info
}

// extractValidUntil parses the validUntil attribute, zero if absent.
func extractValidUntil(data []byte) (time.Time, error) {
	var validity rawMetadataValidity
	if err := xml.Unmarshal(data, &validity); err != nil {
		return time.Time{}, domain.MetadataError("parse metadata validity", err)
	}
	if validity.ValidUntil == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, validity.ValidUntil)
	if err != nil {
		return time.Time{}, domain.MetadataError("invalid validUntil timestamp", err)
	}
	return t, nil
}
