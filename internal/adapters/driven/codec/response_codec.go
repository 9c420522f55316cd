package codec

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// ResponseBuildParams carries the envelope values that come from the
// exchange rather than the response value object.
type ResponseBuildParams struct {
	// Destination is the assertion-consumer endpoint of the requester.
	Destination string

	// Audience restricts the assertion to the requesting entity.
	Audience string

	// IssueInstant is the generation time.
	IssueInstant time.Time

	// AssertionValidity bounds the assertion NotOnOrAfter window.
	AssertionValidity time.Duration

	// ConsumerIP is the subject's address, carried for audit.
	ConsumerIP string
}

// BuildResponse renders an authentication response document. On failure a
// status-only response is produced. On success the returned assertion
// element is a child of the document and may be signed or replaced with an
// EncryptedAssertion by the caller before the outer response is signed.
func BuildResponse(req *domain.AuthenticationRequest, resp *domain.AuthenticationResponse, p ResponseBuildParams) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("saml2p:Response")
	root.CreateAttr("xmlns:saml2p", samlpNS)
	root.CreateAttr("xmlns:saml2", samlNS)
	root.CreateAttr("xmlns:eidas", eidasNS)
	root.CreateAttr("ID", resp.ID)
	root.CreateAttr("InResponseTo", resp.InResponseTo)
	root.CreateAttr("Version", samlVersion)
	root.CreateAttr("IssueInstant", formatInstant(p.IssueInstant))
	if p.Destination != "" {
		root.CreateAttr("Destination", p.Destination)
	}

	issuer := root.CreateElement("saml2:Issuer")
	issuer.CreateAttr("Format", "urn:oasis:names:tc:SAML:2.0:nameid-format:entity")
	issuer.SetText(resp.Issuer)

	if !resp.Version.IsZero() {
		ext := root.CreateElement("saml2p:Extensions")
		version := ext.CreateElement("eidas:ProtocolVersion")
		version.SetText(resp.Version.String())
	}

	status := root.CreateElement("saml2p:Status")
	statusCode := status.CreateElement("saml2p:StatusCode")
	statusCode.CreateAttr("Value", resp.Status.Code.URI())
	if resp.Status.SubStatus != "" {
		sub := statusCode.CreateElement("saml2p:StatusCode")
		sub.CreateAttr("Value", resp.Status.SubStatus.URI())
	}
	if resp.Status.Message != "" {
		message := status.CreateElement("saml2p:StatusMessage")
		message.SetText(resp.Status.Message)
	}

	if resp.Status.Failure {
		return doc, nil
	}

	assertion := buildAssertion(root, req, resp, p)
	return doc, assertion
}

func buildAssertion(root *etree.Element, req *domain.AuthenticationRequest, resp *domain.AuthenticationResponse, p ResponseBuildParams) *etree.Element {
	notOnOrAfter := p.IssueInstant.Add(p.AssertionValidity)

	assertion := root.CreateElement("saml2:Assertion")
	assertion.CreateAttr("xmlns:saml2", samlNS)
	assertion.CreateAttr("xmlns:xsi", xsiNS)
	assertion.CreateAttr("ID", "_"+uuid.NewString())
	assertion.CreateAttr("Version", samlVersion)
	assertion.CreateAttr("IssueInstant", formatInstant(p.IssueInstant))

	issuer := assertion.CreateElement("saml2:Issuer")
	issuer.CreateAttr("Format", "urn:oasis:names:tc:SAML:2.0:nameid-format:entity")
	issuer.SetText(resp.Issuer)

	subject := assertion.CreateElement("saml2:Subject")
	nameID := subject.CreateElement("saml2:NameID")
	format := resp.SubjectNameIDFormat
	if format == "" {
		format = domain.NameIDFormatUnspecified
	}
	nameID.CreateAttr("Format", format)
	nameID.SetText(resp.Subject)

	confirmation := subject.CreateElement("saml2:SubjectConfirmation")
	confirmation.CreateAttr("Method", bearerConfirmationMethod)
	confirmationData := confirmation.CreateElement("saml2:SubjectConfirmationData")
	confirmationData.CreateAttr("InResponseTo", resp.InResponseTo)
	confirmationData.CreateAttr("NotOnOrAfter", formatInstant(notOnOrAfter))
	if p.Destination != "" {
		confirmationData.CreateAttr("Recipient", p.Destination)
	}
	if p.ConsumerIP != "" {
		confirmationData.CreateAttr("Address", p.ConsumerIP)
	}

	conditions := assertion.CreateElement("saml2:Conditions")
	conditions.CreateAttr("NotBefore", formatInstant(p.IssueInstant))
	conditions.CreateAttr("NotOnOrAfter", formatInstant(notOnOrAfter))
	if p.Audience != "" {
		restriction := conditions.CreateElement("saml2:AudienceRestriction")
		audience := restriction.CreateElement("saml2:Audience")
		audience.SetText(p.Audience)
	}

	authnStatement := assertion.CreateElement("saml2:AuthnStatement")
	authnStatement.CreateAttr("AuthnInstant", formatInstant(p.IssueInstant))
	if resp.IPAddress != "" {
		locality := authnStatement.CreateElement("saml2:SubjectLocality")
		locality.CreateAttr("Address", resp.IPAddress)
	}
	authnContext := authnStatement.CreateElement("saml2:AuthnContext")
	classRef := authnContext.CreateElement("saml2:AuthnContextClassRef")
	classRef.SetText(string(resp.GrantedLoA))

	if resp.Attributes.Len() > 0 {
		statement := assertion.CreateElement("saml2:AttributeStatement")
		for _, entry := range resp.Attributes.Entries() {
			attr := statement.CreateElement("saml2:Attribute")
			attr.CreateAttr("Name", entry.Definition.NameURI)
			attr.CreateAttr("FriendlyName", entry.Definition.FriendlyName)
			attr.CreateAttr("NameFormat", attrNameFormatURI)
			for _, value := range entry.Values {
				valueEl := attr.CreateElement("saml2:AttributeValue")
				if entry.Definition.XMLType != "" {
					valueEl.CreateAttr("xsi:type", entry.Definition.XMLType)
				}
				valueEl.SetText(value)
			}
		}
	}

	return assertion
}

// ParsedResponse holds the envelope fields of an unmarshalled response.
// Assertions may still be encrypted; decryption is deferred to validation.
type ParsedResponse struct {
	ID           string
	InResponseTo string
	Issuer       string
	Destination  string
	IssueInstant time.Time
	Status       domain.Status
	Version      domain.ProtocolVersion

	// Assertion is the plain assertion element, nil if absent or encrypted.
	Assertion *etree.Element

	// EncryptedAssertion is the EncryptedAssertion element, nil if absent.
	EncryptedAssertion *etree.Element
}

// ParseResponse extracts the envelope fields from a Response element.
// In strict mode the Destination attribute and a parseable IssueInstant
// are required.
func ParseResponse(root *etree.Element, strict bool) (*ParsedResponse, error) {
	if root.Tag != "Response" {
		return nil, domain.ValidationErrorf("expected Response, got %s", root.Tag)
	}
	if v := root.SelectAttrValue("Version", ""); v != samlVersion {
		return nil, domain.ValidationErrorf("unsupported SAML version %q", v)
	}

	parsed := &ParsedResponse{
		ID:           root.SelectAttrValue("ID", ""),
		InResponseTo: root.SelectAttrValue("InResponseTo", ""),
		Destination:  root.SelectAttrValue("Destination", ""),
	}
	if parsed.ID == "" {
		return nil, domain.ValidationError("response id is empty")
	}
	if strict && parsed.Destination == "" {
		return nil, domain.ValidationError("response destination is missing")
	}

	if raw := root.SelectAttrValue("IssueInstant", ""); raw != "" {
		instant, err := parseInstant(raw)
		if err != nil {
			return nil, err
		}
		parsed.IssueInstant = instant
	} else if strict {
		return nil, domain.ValidationError("response issue instant is missing")
	}

	issuerEl, err := requireChild(root, "Issuer")
	if err != nil {
		return nil, err
	}
	parsed.Issuer = strings.TrimSpace(issuerEl.Text())

	if ext := childByTag(root, "Extensions"); ext != nil {
		if v := childByTag(ext, "ProtocolVersion"); v != nil {
			version, err := domain.ParseProtocolVersion(v.Text())
			if err != nil {
				return nil, err
			}
			parsed.Version = version
		}
	}

	statusEl, err := requireChild(root, "Status")
	if err != nil {
		return nil, err
	}
	codeEl, err := requireChild(statusEl, "StatusCode")
	if err != nil {
		return nil, err
	}
	code, ok := domain.ParseStatusCode(codeEl.SelectAttrValue("Value", ""))
	if !ok {
		return nil, domain.ValidationErrorf("unknown status code %q", codeEl.SelectAttrValue("Value", ""))
	}
	parsed.Status = domain.Status{Code: code, Failure: code != domain.StatusSuccess}
	if sub := childByTag(codeEl, "StatusCode"); sub != nil {
		subCode, ok := domain.ParseSubStatusCode(sub.SelectAttrValue("Value", ""))
		if !ok {
			return nil, domain.ValidationErrorf("unknown sub-status code %q", sub.SelectAttrValue("Value", ""))
		}
		parsed.Status.SubStatus = subCode
	}
	if message := childByTag(statusEl, "StatusMessage"); message != nil {
		parsed.Status.Message = strings.TrimSpace(message.Text())
	}

	parsed.Assertion = childByTag(root, "Assertion")
	parsed.EncryptedAssertion = childByTag(root, "EncryptedAssertion")
	return parsed, nil
}

// AssertionData is the content extracted from a decrypted assertion.
type AssertionData struct {
	Issuer           string
	Subject          string
	NameIDFormat     string
	InResponseTo     string
	GrantedLoA       domain.LevelOfAssurance
	NotBefore        time.Time
	NotOnOrAfter     time.Time
	Audiences        []string
	SubjectAddress   string
	Attributes       *domain.AttributeSet
}

// ExtractAssertionData pulls the validated fields out of an assertion
// element. Attribute names resolve through the registry; unknown names are
// rejected.
func ExtractAssertionData(assertion *etree.Element, registry *domain.AttributeRegistry) (*AssertionData, error) {
	if assertion.Tag != "Assertion" {
		return nil, domain.ValidationErrorf("expected Assertion, got %s", assertion.Tag)
	}

	data := &AssertionData{Attributes: domain.NewAttributeSet()}

	issuerEl, err := requireChild(assertion, "Issuer")
	if err != nil {
		return nil, err
	}
	data.Issuer = strings.TrimSpace(issuerEl.Text())

	subject, err := requireChild(assertion, "Subject")
	if err != nil {
		return nil, err
	}
	nameID, err := requireChild(subject, "NameID")
	if err != nil {
		return nil, err
	}
	data.Subject = strings.TrimSpace(nameID.Text())
	data.NameIDFormat = nameID.SelectAttrValue("Format", "")

	if confirmation := childByTag(subject, "SubjectConfirmation"); confirmation != nil {
		if confirmationData := childByTag(confirmation, "SubjectConfirmationData"); confirmationData != nil {
			data.InResponseTo = confirmationData.SelectAttrValue("InResponseTo", "")
		}
	}

	conditions, err := requireChild(assertion, "Conditions")
	if err != nil {
		return nil, err
	}
	notBefore, err := parseInstant(conditions.SelectAttrValue("NotBefore", ""))
	if err != nil {
		return nil, domain.ValidationError("assertion NotBefore is missing or invalid")
	}
	notOnOrAfter, err := parseInstant(conditions.SelectAttrValue("NotOnOrAfter", ""))
	if err != nil {
		return nil, domain.ValidationError("assertion NotOnOrAfter is missing or invalid")
	}
	data.NotBefore = notBefore
	data.NotOnOrAfter = notOnOrAfter
	for _, restriction := range childrenByTag(conditions, "AudienceRestriction") {
		for _, audience := range childrenByTag(restriction, "Audience") {
			data.Audiences = append(data.Audiences, strings.TrimSpace(audience.Text()))
		}
	}

	authnStatement, err := requireChild(assertion, "AuthnStatement")
	if err != nil {
		return nil, err
	}
	if locality := childByTag(authnStatement, "SubjectLocality"); locality != nil {
		data.SubjectAddress = locality.SelectAttrValue("Address", "")
	}
	authnContext, err := requireChild(authnStatement, "AuthnContext")
	if err != nil {
		return nil, err
	}
	classRef, err := requireChild(authnContext, "AuthnContextClassRef")
	if err != nil {
		return nil, err
	}
	data.GrantedLoA = domain.LevelOfAssurance(strings.TrimSpace(classRef.Text()))

	if statement := childByTag(assertion, "AttributeStatement"); statement != nil {
		for _, attr := range childrenByTag(statement, "Attribute") {
			name := attr.SelectAttrValue("Name", "")
			def, ok := registry.ByName(name)
			if !ok {
				return nil, domain.ValidationErrorf("unknown attribute %q", name)
			}
			var values []string
			for _, valueEl := range childrenByTag(attr, "AttributeValue") {
				value, err := def.Marshaller.Unmarshal(valueEl.Text())
				if err != nil {
					return nil, err
				}
				values = append(values, value)
			}
			data.Attributes.Add(def, values...)
		}
	}

	return data, nil
}
