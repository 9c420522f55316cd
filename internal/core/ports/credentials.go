package ports

import (
	"crypto"
	"crypto/x509"
)

// KeyStore is the capability-only credential provider. Key-store file
// parsing and raw key handling are external collaborators; the engine only
// consumes key pairs and trust anchors through this interface.
type KeyStore interface {
	// SigningKeyPair returns the engine's message-signing credential.
	SigningKeyPair() (crypto.PrivateKey, *x509.Certificate, error)

	// DecryptionKeyPair returns the credential used to decrypt assertions
	// addressed to this node.
	DecryptionKeyPair() (crypto.PrivateKey, *x509.Certificate, error)

	// TrustAnchors returns the certificates metadata signatures are
	// verified against.
	TrustAnchors() []*x509.Certificate
}
