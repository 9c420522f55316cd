package codec

import (
	"bytes"

	"github.com/beevik/etree"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// forbiddenDirectives are the document constructs rejected before parsing.
// External-entity expansion, external DTD loading, and parameter-entity
// resolution are disabled unconditionally; this hardening is not an opt-in.
var forbiddenDirectives = [][]byte{
	[]byte("<!doctype"),
	[]byte("<!entity"),
}

// ParseDocument parses wire XML with entity and DTD processing rejected.
// A document declaring a DTD or entity fails with a validation error; the
// declaration is never expanded.
func ParseDocument(data []byte) (*etree.Document, error) {
	if len(data) == 0 {
		return nil, domain.ValidationError("empty XML document")
	}
	lower := bytes.ToLower(data)
	for _, directive := range forbiddenDirectives {
		if bytes.Contains(lower, directive) {
			return nil, domain.ValidationError("document type and entity declarations are forbidden")
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, domain.ValidationErrorf("malformed XML: %v", err)
	}
	if doc.Root() == nil {
		return nil, domain.ValidationError("XML document has no root element")
	}
	return doc, nil
}

// SerializeDocument renders a document to its wire bytes.
func SerializeDocument(doc *etree.Document) ([]byte, error) {
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, domain.ValidationErrorf("serialize XML: %v", err)
	}
	return out, nil
}
