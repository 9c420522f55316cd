package correlation

import (
	"bytes"
	"encoding/json"
	"encoding/xml"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Light payload namespaces.
const (
	lightRequestNS  = "http://cef.eidas.eu/LightRequest"
	lightResponseNS = "http://cef.eidas.eu/LightResponse"
)

// DefaultMaxPayloadSize bounds a light payload when no explicit limit is
// configured.
const DefaultMaxPayloadSize = 1 << 20

// PayloadCodec converts light requests and responses to and from their
// exchange representation. Implementations must reject oversized payloads
// before parsing.
type PayloadCodec interface {
	MarshalRequest(req *domain.LightRequest) ([]byte, error)
	UnmarshalRequest(payload []byte, registry *domain.AttributeRegistry) (*domain.LightRequest, error)
	MarshalResponse(resp *domain.LightResponse) ([]byte, error)
	UnmarshalResponse(payload []byte, registry *domain.AttributeRegistry) (*domain.LightResponse, error)
}

// lightAttribute is the wire form of one attribute with its values.
type lightAttribute struct {
	Definition string   `xml:"definition" json:"definition"`
	Values     []string `xml:"value" json:"values"`
}

type lightRequestWire struct {
	XMLName        xml.Name         `xml:"http://cef.eidas.eu/LightRequest lightRequest" json:"-"`
	ID             string           `xml:"id" json:"id"`
	Issuer         string           `xml:"issuer" json:"issuer"`
	CitizenCountry string           `xml:"citizenCountryCode" json:"citizenCountryCode"`
	LoA            string           `xml:"levelOfAssurance" json:"levelOfAssurance"`
	Comparison     string           `xml:"comparison,omitempty" json:"comparison,omitempty"`
	ProviderName   string           `xml:"providerName,omitempty" json:"providerName,omitempty"`
	SPType         string           `xml:"spType,omitempty" json:"spType,omitempty"`
	NameIDFormat   string           `xml:"nameIdFormat,omitempty" json:"nameIdFormat,omitempty"`
	RelayState     string           `xml:"relayState,omitempty" json:"relayState,omitempty"`
	Attributes     []lightAttribute `xml:"requestedAttributes>attribute" json:"requestedAttributes"`
}

type lightStatusWire struct {
	Failure    bool   `xml:"failure" json:"failure"`
	Code       string `xml:"statusCode" json:"statusCode"`
	SubCode    string `xml:"subStatusCode,omitempty" json:"subStatusCode,omitempty"`
	Message    string `xml:"statusMessage,omitempty" json:"statusMessage,omitempty"`
}

type lightResponseWire struct {
	XMLName      xml.Name         `xml:"http://cef.eidas.eu/LightResponse lightResponse" json:"-"`
	ID           string           `xml:"id" json:"id"`
	InResponseTo string           `xml:"inResponseToId" json:"inResponseToId"`
	Issuer       string           `xml:"issuer" json:"issuer"`
	IPAddress    string           `xml:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	RelayState   string           `xml:"relayState,omitempty" json:"relayState,omitempty"`
	Subject      string           `xml:"subject,omitempty" json:"subject,omitempty"`
	NameIDFormat string           `xml:"subjectNameIdFormat,omitempty" json:"subjectNameIdFormat,omitempty"`
	LoA          string           `xml:"levelOfAssurance,omitempty" json:"levelOfAssurance,omitempty"`
	Status       lightStatusWire  `xml:"status" json:"status"`
	Attributes   []lightAttribute `xml:"attributes>attribute" json:"attributes"`
}

// checkPayload applies the size bound and the pre-parse XML hardening
// shared with the SAML codec: document type declarations and entity
// definitions are rejected before any parser runs.
func checkPayload(payload []byte, max int) error {
	if err := domain.CheckPayloadSize(payload, max); err != nil {
		return err
	}
	lowered := bytes.ToLower(payload)
	if bytes.Contains(lowered, []byte("<!doctype")) || bytes.Contains(lowered, []byte("<!entity")) {
		return domain.ValidationError("light payload contains a forbidden XML directive")
	}
	return nil
}

func attributesToWire(set *domain.AttributeSet) []lightAttribute {
	if set == nil {
		return nil
	}
	out := make([]lightAttribute, 0, set.Len())
	for _, entry := range set.Entries() {
		out = append(out, lightAttribute{
			Definition: entry.Definition.NameURI,
			Values:     entry.Values,
		})
	}
	return out
}

// attributesFromWire resolves wire attributes against the registry.
// Unknown definitions are rejected; values run through the definition's
// marshaller.
func attributesFromWire(attrs []lightAttribute, registry *domain.AttributeRegistry) (*domain.AttributeSet, error) {
	set := domain.NewAttributeSet()
	for _, attr := range attrs {
		def, ok := registry.ByName(attr.Definition)
		if !ok {
			return nil, domain.ValidationErrorf("unknown attribute definition %q", attr.Definition)
		}
		values := make([]string, 0, len(attr.Values))
		for _, v := range attr.Values {
			parsed, err := def.Marshaller.Unmarshal(v)
			if err != nil {
				return nil, err
			}
			values = append(values, parsed)
		}
		set.Add(def, values...)
	}
	return set, nil
}

// XMLPayloadCodec exchanges light payloads as namespaced XML documents.
type XMLPayloadCodec struct {
	// MaxPayloadSize bounds accepted payloads; zero selects the default.
	MaxPayloadSize int
}

func (c XMLPayloadCodec) limit() int {
	if c.MaxPayloadSize > 0 {
		return c.MaxPayloadSize
	}
	return DefaultMaxPayloadSize
}

func (c XMLPayloadCodec) MarshalRequest(req *domain.LightRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	wire := lightRequestWire{
		ID:             req.ID,
		Issuer:         req.Issuer,
		CitizenCountry: req.CitizenCountry,
		LoA:            string(req.RequestedLoA),
		Comparison:     string(req.Comparison),
		ProviderName:   req.ProviderName,
		SPType:         string(req.SPType),
		NameIDFormat:   req.NameIDFormat,
		RelayState:     req.RelayState,
		Attributes:     attributesToWire(req.RequestedAttributes),
	}
	return xml.Marshal(wire)
}

func (c XMLPayloadCodec) UnmarshalRequest(payload []byte, registry *domain.AttributeRegistry) (*domain.LightRequest, error) {
	if err := checkPayload(payload, c.limit()); err != nil {
		return nil, err
	}
	var wire lightRequestWire
	if err := xml.Unmarshal(payload, &wire); err != nil {
		return nil, domain.ValidationErrorf("parse light request: %v", err)
	}
	return requestFromWire(&wire, registry)
}

func (c XMLPayloadCodec) MarshalResponse(resp *domain.LightResponse) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return xml.Marshal(responseToWire(resp))
}

func (c XMLPayloadCodec) UnmarshalResponse(payload []byte, registry *domain.AttributeRegistry) (*domain.LightResponse, error) {
	if err := checkPayload(payload, c.limit()); err != nil {
		return nil, err
	}
	var wire lightResponseWire
	if err := xml.Unmarshal(payload, &wire); err != nil {
		return nil, domain.ValidationErrorf("parse light response: %v", err)
	}
	return responseFromWire(&wire, registry)
}

// JSONPayloadCodec exchanges light payloads as JSON, for specific modules
// that do not speak XML.
type JSONPayloadCodec struct {
	MaxPayloadSize int
}

func (c JSONPayloadCodec) limit() int {
	if c.MaxPayloadSize > 0 {
		return c.MaxPayloadSize
	}
	return DefaultMaxPayloadSize
}

func (c JSONPayloadCodec) MarshalRequest(req *domain.LightRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	wire := lightRequestWire{
		ID:             req.ID,
		Issuer:         req.Issuer,
		CitizenCountry: req.CitizenCountry,
		LoA:            string(req.RequestedLoA),
		Comparison:     string(req.Comparison),
		ProviderName:   req.ProviderName,
		SPType:         string(req.SPType),
		NameIDFormat:   req.NameIDFormat,
		RelayState:     req.RelayState,
		Attributes:     attributesToWire(req.RequestedAttributes),
	}
	return json.Marshal(wire)
}

func (c JSONPayloadCodec) UnmarshalRequest(payload []byte, registry *domain.AttributeRegistry) (*domain.LightRequest, error) {
	if err := domain.CheckPayloadSize(payload, c.limit()); err != nil {
		return nil, err
	}
	var wire lightRequestWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, domain.ValidationErrorf("parse light request: %v", err)
	}
	return requestFromWire(&wire, registry)
}

func (c JSONPayloadCodec) MarshalResponse(resp *domain.LightResponse) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(responseToWire(resp))
}

func (c JSONPayloadCodec) UnmarshalResponse(payload []byte, registry *domain.AttributeRegistry) (*domain.LightResponse, error) {
	if err := domain.CheckPayloadSize(payload, c.limit()); err != nil {
		return nil, err
	}
	var wire lightResponseWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, domain.ValidationErrorf("parse light response: %v", err)
	}
	return responseFromWire(&wire, registry)
}

func requestFromWire(wire *lightRequestWire, registry *domain.AttributeRegistry) (*domain.LightRequest, error) {
	comparison := domain.ComparisonMinimum
	if wire.Comparison != "" {
		parsed, ok := domain.ParseComparisonMode(wire.Comparison)
		if !ok {
			return nil, domain.ValidationErrorf("invalid comparison mode %q", wire.Comparison)
		}
		comparison = parsed
	}
	spType := domain.SPType(wire.SPType)
	if wire.SPType != "" {
		parsed, ok := domain.ParseSPType(wire.SPType)
		if !ok {
			return nil, domain.ValidationErrorf("invalid sp type %q", wire.SPType)
		}
		spType = parsed
	}
	attrs, err := attributesFromWire(wire.Attributes, registry)
	if err != nil {
		return nil, err
	}
	req := &domain.LightRequest{
		ID:                  wire.ID,
		Issuer:              wire.Issuer,
		CitizenCountry:      wire.CitizenCountry,
		RequestedLoA:        domain.LevelOfAssurance(wire.LoA),
		Comparison:          comparison,
		ProviderName:        wire.ProviderName,
		SPType:              spType,
		NameIDFormat:        wire.NameIDFormat,
		RelayState:          wire.RelayState,
		RequestedAttributes: attrs,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func responseToWire(resp *domain.LightResponse) lightResponseWire {
	return lightResponseWire{
		ID:           resp.ID,
		InResponseTo: resp.InResponseTo,
		Issuer:       resp.Issuer,
		IPAddress:    resp.IPAddress,
		RelayState:   resp.RelayState,
		Subject:      resp.Subject,
		NameIDFormat: resp.NameIDFormat,
		LoA:          string(resp.GrantedLoA),
		Status: lightStatusWire{
			Failure: resp.Status.Failure,
			Code:    string(resp.Status.Code),
			SubCode: string(resp.Status.SubStatus),
			Message: resp.Status.Message,
		},
		Attributes: attributesToWire(resp.Attributes),
	}
}

func responseFromWire(wire *lightResponseWire, registry *domain.AttributeRegistry) (*domain.LightResponse, error) {
	code, ok := domain.ParseStatusCode(wire.Status.Code)
	if !ok {
		return nil, domain.ValidationErrorf("unknown status code %q", wire.Status.Code)
	}
	status := domain.Status{
		Code:    code,
		Message: wire.Status.Message,
		Failure: wire.Status.Failure,
	}
	if wire.Status.SubCode != "" {
		sub, ok := domain.ParseSubStatusCode(wire.Status.SubCode)
		if !ok {
			return nil, domain.ValidationErrorf("unknown sub-status code %q", wire.Status.SubCode)
		}
		status.SubStatus = sub
	}
	attrs, err := attributesFromWire(wire.Attributes, registry)
	if err != nil {
		return nil, err
	}
	resp := &domain.LightResponse{
		ID:           wire.ID,
		InResponseTo: wire.InResponseTo,
		Issuer:       wire.Issuer,
		Status:       status,
		GrantedLoA:   domain.LevelOfAssurance(wire.LoA),
		Subject:      wire.Subject,
		NameIDFormat: wire.NameIDFormat,
		IPAddress:    wire.IPAddress,
		RelayState:   wire.RelayState,
		Attributes:   attrs,
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

var (
	_ PayloadCodec = XMLPayloadCodec{}
	_ PayloadCodec = JSONPayloadCodec{}
)
