package codec

import (
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// BuildAuthnRequest renders an authentication request as an eIDAS-flavored
// SAML AuthnRequest document. The caller signs the returned root.
func BuildAuthnRequest(req *domain.AuthenticationRequest, issueInstant time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("saml2p:AuthnRequest")
	root.CreateAttr("xmlns:saml2p", samlpNS)
	root.CreateAttr("xmlns:saml2", samlNS)
	root.CreateAttr("xmlns:eidas", eidasNS)
	root.CreateAttr("ID", req.ID)
	root.CreateAttr("Version", samlVersion)
	root.CreateAttr("IssueInstant", formatInstant(issueInstant))
	root.CreateAttr("Destination", req.Destination)
	root.CreateAttr("ForceAuthn", "true")
	root.CreateAttr("IsPassive", "false")
	if req.ProviderName != "" {
		root.CreateAttr("ProviderName", req.ProviderName)
	}

	issuer := root.CreateElement("saml2:Issuer")
	issuer.CreateAttr("Format", "urn:oasis:names:tc:SAML:2.0:nameid-format:entity")
	issuer.SetText(req.Issuer)

	ext := root.CreateElement("saml2p:Extensions")
	if !req.Version.IsZero() {
		version := ext.CreateElement("eidas:ProtocolVersion")
		version.SetText(req.Version.String())
	}
	if req.SPType != "" {
		spType := ext.CreateElement("eidas:SPType")
		spType.SetText(string(req.SPType))
	}
	requested := ext.CreateElement("eidas:RequestedAttributes")
	for _, entry := range req.RequestedAttributes.Entries() {
		attr := requested.CreateElement("eidas:RequestedAttribute")
		attr.CreateAttr("Name", entry.Definition.NameURI)
		attr.CreateAttr("FriendlyName", entry.Definition.FriendlyName)
		attr.CreateAttr("NameFormat", attrNameFormatURI)
		if entry.Definition.Required {
			attr.CreateAttr("isRequired", "true")
		} else {
			attr.CreateAttr("isRequired", "false")
		}
	}

	if req.NameIDFormat != "" {
		nameIDPolicy := root.CreateElement("saml2p:NameIDPolicy")
		nameIDPolicy.CreateAttr("AllowCreate", "true")
		nameIDPolicy.CreateAttr("Format", req.NameIDFormat)
	}

	authnContext := root.CreateElement("saml2p:RequestedAuthnContext")
	authnContext.CreateAttr("Comparison", string(req.Comparison))
	classRef := authnContext.CreateElement("saml2:AuthnContextClassRef")
	classRef.SetText(string(req.RequestedLoA))

	return doc
}

// ParseAuthnRequest extracts an authentication request from a parsed
// AuthnRequest element. Requested attribute names are resolved through the
// registry; unknown names fail rather than passing through unchecked.
func ParseAuthnRequest(root *etree.Element, registry *domain.AttributeRegistry) (*domain.AuthenticationRequest, error) {
	if root.Tag != "AuthnRequest" {
		return nil, domain.ValidationErrorf("expected AuthnRequest, got %s", root.Tag)
	}
	if v := root.SelectAttrValue("Version", ""); v != samlVersion {
		return nil, domain.ValidationErrorf("unsupported SAML version %q", v)
	}

	issuerEl, err := requireChild(root, "Issuer")
	if err != nil {
		return nil, err
	}

	req := domain.AuthenticationRequest{
		ID:                  root.SelectAttrValue("ID", ""),
		Issuer:              strings.TrimSpace(issuerEl.Text()),
		Destination:         root.SelectAttrValue("Destination", ""),
		ProviderName:        root.SelectAttrValue("ProviderName", ""),
		RequestedAttributes: domain.NewAttributeSet(),
	}

	if ext := childByTag(root, "Extensions"); ext != nil {
		if v := childByTag(ext, "ProtocolVersion"); v != nil {
			version, err := domain.ParseProtocolVersion(v.Text())
			if err != nil {
				return nil, err
			}
			req.Version = version
		}
		if spType := childByTag(ext, "SPType"); spType != nil {
			parsed, ok := domain.ParseSPType(spType.Text())
			if !ok {
				return nil, domain.ValidationErrorf("invalid SP type %q", spType.Text())
			}
			req.SPType = parsed
		}
		if requested := childByTag(ext, "RequestedAttributes"); requested != nil {
			for _, attr := range childrenByTag(requested, "RequestedAttribute") {
				name := attr.SelectAttrValue("Name", "")
				def, ok := registry.ByName(name)
				if !ok {
					return nil, domain.ValidationErrorf("unknown requested attribute %q", name)
				}
				req.RequestedAttributes.Add(def)
			}
		}
	}

	if nameIDPolicy := childByTag(root, "NameIDPolicy"); nameIDPolicy != nil {
		req.NameIDFormat = nameIDPolicy.SelectAttrValue("Format", "")
	}

	authnContext, err := requireChild(root, "RequestedAuthnContext")
	if err != nil {
		return nil, err
	}
	comparison, ok := domain.ParseComparisonMode(authnContext.SelectAttrValue("Comparison", "exact"))
	if !ok {
		return nil, domain.ValidationErrorf("invalid comparison mode %q", authnContext.SelectAttrValue("Comparison", ""))
	}
	req.Comparison = comparison

	classRef, err := requireChild(authnContext, "AuthnContextClassRef")
	if err != nil {
		return nil, err
	}
	req.RequestedLoA = domain.LevelOfAssurance(strings.TrimSpace(classRef.Text()))

	return &req, nil
}
