package ports

// SignatureVerifier verifies enveloped XML signatures against a set of
// trust anchors. This is a port interface - implementations are adapters.
//
// Verify returns the validated bytes (not just an error) so that callers
// process only signed content, preventing signature wrapping attacks.
type SignatureVerifier interface {
	// Verify validates the XML signature and returns the validated bytes.
	Verify(data []byte) ([]byte, error)
}

// XMLSigner adds an enveloped XML signature to a document.
type XMLSigner interface {
	// Sign adds an enveloped XML signature and returns the signed bytes.
	Sign(data []byte) ([]byte, error)
}
