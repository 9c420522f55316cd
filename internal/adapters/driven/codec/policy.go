// Package codec translates between the value-object model and the
// canonical SAML wire representation, enforcing algorithm policy
// independent of any specific XML library.
package codec

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// XML signature algorithm URIs.
const (
	SignatureRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	SignatureRSASHA384 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha384"
	SignatureRSASHA512 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha512"

	SignatureRSASHA256MGF1 = "http://www.w3.org/2007/05/xmldsig-more#sha256-rsa-MGF1"
	SignatureRSASHA384MGF1 = "http://www.w3.org/2007/05/xmldsig-more#sha384-rsa-MGF1"
	SignatureRSASHA512MGF1 = "http://www.w3.org/2007/05/xmldsig-more#sha512-rsa-MGF1"

	SignatureECDSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"
	SignatureECDSASHA384 = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha384"
	SignatureECDSASHA512 = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha512"
)

// XML encryption algorithm URIs.
const (
	EncryptionAES128GCM = "http://www.w3.org/2009/xmlenc11#aes128-gcm"
	EncryptionAES192GCM = "http://www.w3.org/2009/xmlenc11#aes192-gcm"
	EncryptionAES256GCM = "http://www.w3.org/2009/xmlenc11#aes256-gcm"

	KeyTransportRSAOAEP = "http://www.w3.org/2009/xmlenc11#rsa-oaep"
	DigestSHA256        = "http://www.w3.org/2001/04/xmlenc#sha256"
)

// SignaturePolicy is the signature-algorithm whitelist and key-strength
// floor. Violations are configuration errors raised at engine construction,
// not at message time.
type SignaturePolicy struct {
	AllowedAlgorithms map[string]bool
	MinRSAKeyBits     int
	MinECKeyBits      int
	MinDigestBits     int
}

// DefaultSignaturePolicy returns the default whitelist: RSA-SHA256/384/512
// (plain and MGF1) and ECDSA-SHA256/384/512, with RSA keys of at least
// 3072 bits, EC keys of at least 256 bits, and digests of at least
// 256 bits.
func DefaultSignaturePolicy() SignaturePolicy {
	return SignaturePolicy{
		AllowedAlgorithms: map[string]bool{
			SignatureRSASHA256:     true,
			SignatureRSASHA384:     true,
			SignatureRSASHA512:     true,
			SignatureRSASHA256MGF1: true,
			SignatureRSASHA384MGF1: true,
			SignatureRSASHA512MGF1: true,
			SignatureECDSASHA256:   true,
			SignatureECDSASHA384:   true,
			SignatureECDSASHA512:   true,
		},
		MinRSAKeyBits: 3072,
		MinECKeyBits:  256,
		MinDigestBits: 256,
	}
}

// CheckAlgorithm rejects signature algorithms outside the whitelist.
func (p SignaturePolicy) CheckAlgorithm(uri string) error {
	if !p.AllowedAlgorithms[uri] {
		return domain.ConfigurationError("signature algorithm " + uri + " is not whitelisted")
	}
	return nil
}

// CheckSigningKey rejects undersized signing keys.
func (p SignaturePolicy) CheckSigningKey(pub crypto.PublicKey) error {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		if bits := key.N.BitLen(); bits < p.MinRSAKeyBits {
			return domain.ConfigurationError("RSA signing key is too short")
		}
	case *ecdsa.PublicKey:
		if bits := key.Curve.Params().BitSize; bits < p.MinECKeyBits {
			return domain.ConfigurationError("EC signing key is too short")
		}
	default:
		return domain.ConfigurationError("unsupported signing key type")
	}
	return nil
}

// CheckCertificate rejects certificates carrying undersized keys.
func (p SignaturePolicy) CheckCertificate(cert *x509.Certificate) error {
	return p.CheckSigningKey(cert.PublicKey)
}

// EncryptionPolicy is the data-encryption whitelist and encrypted-key
// resolution bounds.
type EncryptionPolicy struct {
	// AllowedDataAlgorithms whitelists xenc data-encryption algorithms.
	AllowedDataAlgorithms map[string]bool

	// DataAlgorithm is the algorithm used when this node encrypts.
	DataAlgorithm string

	// MaxEncryptedKeys bounds how many candidate EncryptedKey elements the
	// resolver considers, in document order. Keys beyond the bound are
	// ignored, which bounds parsing cost and resists encrypted-key
	// flooding.
	MaxEncryptedKeys int

	// RecipientID is the identity matched against the EncryptedKey
	// Recipient attribute. Empty matches any recipient.
	RecipientID string

	// Mandatory requires assertion encryption on generated responses.
	Mandatory bool
}

// DefaultEncryptionPolicy returns the default whitelist (AES-128/192/256
// GCM) with AES-256-GCM as the outgoing algorithm and a single-key
// resolution bound.
func DefaultEncryptionPolicy() EncryptionPolicy {
	return EncryptionPolicy{
		AllowedDataAlgorithms: map[string]bool{
			EncryptionAES128GCM: true,
			EncryptionAES192GCM: true,
			EncryptionAES256GCM: true,
		},
		DataAlgorithm:    EncryptionAES256GCM,
		MaxEncryptedKeys: 1,
		Mandatory:        true,
	}
}

// CheckDataAlgorithm rejects data-encryption algorithms outside the
// whitelist.
func (p EncryptionPolicy) CheckDataAlgorithm(uri string) error {
	if !p.AllowedDataAlgorithms[uri] {
		return domain.ConfigurationError("encryption algorithm " + uri + " is not whitelisted")
	}
	return nil
}

// aesKeySize returns the AES key length in bytes for a whitelisted data
// algorithm.
func aesKeySize(uri string) (int, error) {
	switch uri {
	case EncryptionAES128GCM:
		return 16, nil
	case EncryptionAES192GCM:
		return 24, nil
	case EncryptionAES256GCM:
		return 32, nil
	default:
		return 0, domain.ConfigurationError("encryption algorithm " + uri + " is not supported")
	}
}
