package codec

import (
	"time"

	"github.com/beevik/etree"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Wire namespace URIs. Exact element and attribute names are a fixed
// external contract and must be preserved for interoperability.
const (
	samlpNS  = "urn:oasis:names:tc:SAML:2.0:protocol"
	samlNS   = "urn:oasis:names:tc:SAML:2.0:assertion"
	eidasNS  = "http://eidas.europa.eu/saml-extensions"
	dsNS     = "http://www.w3.org/2000/09/xmldsig#"
	dsig11NS = "http://www.w3.org/2009/xmldsig11#"
	xencNS   = "http://www.w3.org/2001/04/xmlenc#"
	xenc11NS = "http://www.w3.org/2009/xmlenc11#"
	xsiNS    = "http://www.w3.org/2001/XMLSchema-instance"
)

const samlVersion = "2.0"

const attrNameFormatURI = "urn:oasis:names:tc:SAML:2.0:attrname-format:uri"

const bearerConfirmationMethod = "urn:oasis:names:tc:SAML:2.0:cm:bearer"

// formatInstant renders a timestamp in the SAML UTC wire form.
func formatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// parseInstant parses a SAML timestamp, accepting fractional seconds.
func parseInstant(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.000Z", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.ValidationErrorf("invalid timestamp %q", s)
}

// childByTag returns the first direct child with the given local name,
// regardless of namespace prefix.
func childByTag(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// childrenByTag returns all direct children with the given local name.
func childrenByTag(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}

// descendantsByTag returns all descendants with the given local name, in
// document order.
func descendantsByTag(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
		out = append(out, descendantsByTag(child, tag)...)
	}
	return out
}

// requireChild returns the first direct child with the given local name or
// a validation error naming the parent.
func requireChild(el *etree.Element, tag string) (*etree.Element, error) {
	child := childByTag(el, tag)
	if child == nil {
		return nil, domain.ValidationErrorf("%s element is missing %s", el.Tag, tag)
	}
	return child, nil
}
