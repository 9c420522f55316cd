package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Key-agreement and key-wrap algorithm URIs.
const (
	KeyAgreementECDHES     = "http://www.w3.org/2009/xmlenc11#ECDH-ES"
	KeyDerivationConcatKDF = "http://www.w3.org/2009/xmlenc11#ConcatKDF"

	KeyWrapAES128 = "http://www.w3.org/2001/04/xmlenc#kw-aes128"
	KeyWrapAES192 = "http://www.w3.org/2001/04/xmlenc#kw-aes192"
	KeyWrapAES256 = "http://www.w3.org/2001/04/xmlenc#kw-aes256"
)

// Named-curve OID URIs used in dsig11:NamedCurve.
const (
	curveURIP256 = "urn:oid:1.2.840.10045.3.1.7"
	curveURIP384 = "urn:oid:1.3.132.0.34"
	curveURIP521 = "urn:oid:1.3.132.0.35"
)

func namedCurveURI(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return curveURIP256, nil
	case elliptic.P384():
		return curveURIP384, nil
	case elliptic.P521():
		return curveURIP521, nil
	}
	return "", domain.EncryptionError("unsupported EC curve "+curve.Params().Name, nil)
}

func curveByURI(uri string) (ecdh.Curve, error) {
	switch uri {
	case curveURIP256:
		return ecdh.P256(), nil
	case curveURIP384:
		return ecdh.P384(), nil
	case curveURIP521:
		return ecdh.P521(), nil
	}
	return nil, domain.EncryptionError("unsupported named curve "+uri, nil)
}

func keyWrapKeySize(uri string) (int, error) {
	switch uri {
	case KeyWrapAES128:
		return 16, nil
	case KeyWrapAES192:
		return 24, nil
	case KeyWrapAES256:
		return 32, nil
	}
	return 0, domain.EncryptionError("unsupported key-wrap algorithm "+uri, nil)
}

// agreedKey is the result of the originator side of an ECDH-ES agreement:
// the wrapped content-encryption key plus the ephemeral public key the
// recipient needs to re-derive the wrapping key.
type agreedKey struct {
	wrapped      []byte
	ephemeralPub []byte
	curveURI     string
	wrapAlg      string
}

// wrapKeyECDH performs the originator side of ECDH-ES: an ephemeral key on
// the recipient's curve, a shared secret, ConcatKDF with SHA-256, and an
// AES-256 key wrap of the content-encryption key.
func wrapKeyECDH(recipient *ecdsa.PublicKey, contentKey []byte) (*agreedKey, error) {
	curveURI, err := namedCurveURI(recipient.Curve)
	if err != nil {
		return nil, err
	}
	recipientECDH, err := recipient.ECDH()
	if err != nil {
		return nil, domain.EncryptionError("recipient EC key is unusable for agreement", err)
	}

	ephemeral, err := recipientECDH.Curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, domain.EncryptionError("generate ephemeral EC key", err)
	}
	secret, err := ephemeral.ECDH(recipientECDH)
	if err != nil {
		return nil, domain.EncryptionError("compute shared secret", err)
	}

	kekSize, err := keyWrapKeySize(KeyWrapAES256)
	if err != nil {
		return nil, err
	}
	kek := concatKDF(secret, []byte(KeyWrapAES256), kekSize)
	wrapped, err := aesKeyWrap(kek, contentKey)
	if err != nil {
		return nil, err
	}
	return &agreedKey{
		wrapped:      wrapped,
		ephemeralPub: ephemeral.PublicKey().Bytes(),
		curveURI:     curveURI,
		wrapAlg:      KeyWrapAES256,
	}, nil
}

// unwrapKeyECDH performs the recipient side: rebuild the originator's
// ephemeral public key, re-derive the wrapping key, and unwrap the
// content-encryption key.
func unwrapKeyECDH(recipientKey *ecdsa.PrivateKey, curveURI string, ephemeralPub, wrapped []byte, wrapAlg string) ([]byte, error) {
	curve, err := curveByURI(curveURI)
	if err != nil {
		return nil, err
	}
	originator, err := curve.NewPublicKey(ephemeralPub)
	if err != nil {
		return nil, domain.EncryptionError("invalid originator public key", err)
	}
	recipientECDH, err := recipientKey.ECDH()
	if err != nil {
		return nil, domain.EncryptionError("decryption EC key is unusable for agreement", err)
	}
	secret, err := recipientECDH.ECDH(originator)
	if err != nil {
		return nil, domain.EncryptionError("compute shared secret", err)
	}

	kekSize, err := keyWrapKeySize(wrapAlg)
	if err != nil {
		return nil, err
	}
	kek := concatKDF(secret, []byte(wrapAlg), kekSize)
	return aesKeyUnwrap(kek, wrapped)
}

// concatKDF derives size bytes from the shared secret with the SP 800-56A
// concatenation KDF over SHA-256. OtherInfo is the key-wrap algorithm URI.
func concatKDF(secret, otherInfo []byte, size int) []byte {
	var out []byte
	var counter [4]byte
	for i := uint32(1); len(out) < size; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h := sha256.New()
		h.Write(counter[:])
		h.Write(secret)
		h.Write(otherInfo)
		out = h.Sum(out)
	}
	return out[:size]
}

// rfc3394IV is the fixed initial value of the AES key-wrap integrity check.
var rfc3394IV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// aesKeyWrap wraps a content key per RFC 3394.
func aesKeyWrap(kek, plaintext []byte) ([]byte, error) {
	if len(plaintext)%8 != 0 || len(plaintext) < 16 {
		return nil, domain.EncryptionError("key-wrap input must be a multiple of 8 bytes, at least 16", nil)
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, domain.EncryptionError("create key-wrap cipher", err)
	}

	n := len(plaintext) / 8
	r := make([]byte, len(plaintext))
	copy(r, plaintext)
	a := make([]byte, 8)
	copy(a, rfc3394IV)

	buf := make([]byte, 16)
	for j := 0; j < 6; j++ {
		for i := 0; i < n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[i*8:(i+1)*8])
			block.Encrypt(buf, buf)
			copy(a, buf[:8])
			xorCounter(a, uint64(n*j+i+1))
			copy(r[i*8:(i+1)*8], buf[8:])
		}
	}
	return append(a, r...), nil
}

// aesKeyUnwrap unwraps a content key per RFC 3394, verifying the integrity
// check value.
func aesKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped)%8 != 0 || len(wrapped) < 24 {
		return nil, domain.EncryptionError("wrapped key has an invalid length", nil)
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, domain.EncryptionError("create key-wrap cipher", err)
	}

	n := len(wrapped)/8 - 1
	a := make([]byte, 8)
	copy(a, wrapped[:8])
	r := make([]byte, n*8)
	copy(r, wrapped[8:])

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n - 1; i >= 0; i-- {
			xorCounter(a, uint64(n*j+i+1))
			copy(buf[:8], a)
			copy(buf[8:], r[i*8:(i+1)*8])
			block.Decrypt(buf, buf)
			copy(a, buf[:8])
			copy(r[i*8:(i+1)*8], buf[8:])
		}
	}
	if !bytes.Equal(a, rfc3394IV) {
		return nil, domain.EncryptionError("key-wrap integrity check failed", nil)
	}
	return r, nil
}

func xorCounter(a []byte, t uint64) {
	for k := 0; k < 8; k++ {
		a[7-k] ^= byte(t >> (8 * k))
	}
}
