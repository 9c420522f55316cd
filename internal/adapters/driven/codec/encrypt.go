package codec

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"io"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Encrypter encrypts assertions to a recipient's published certificate
// using AES-GCM data encryption. The key-transport algorithm is resolved
// per recipient certificate type: RSA-OAEP-SHA256 for RSA recipients,
// ECDH-ES with AES-256 key wrap for EC recipients.
type Encrypter struct {
	policy EncryptionPolicy
}

// NewEncrypter creates an encrypter after validating the configured data
// algorithm against the whitelist. A violation is a configuration error
// raised at startup.
func NewEncrypter(policy EncryptionPolicy) (*Encrypter, error) {
	if err := policy.CheckDataAlgorithm(policy.DataAlgorithm); err != nil {
		return nil, err
	}
	if _, err := aesKeySize(policy.DataAlgorithm); err != nil {
		return nil, err
	}
	return &Encrypter{policy: policy}, nil
}

// EncryptAssertion replaces the given assertion element in its parent with
// an EncryptedAssertion and returns the new element. The GCM nonce is
// prepended to the ciphertext inside the CipherValue.
func (e *Encrypter) EncryptAssertion(assertion *etree.Element, recipient *x509.Certificate) (*etree.Element, error) {
	plaintext, err := serializeElement(assertion)
	if err != nil {
		return nil, err
	}

	keySize, err := aesKeySize(e.policy.DataAlgorithm)
	if err != nil {
		return nil, err
	}
	symmetricKey := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, symmetricKey); err != nil {
		return nil, domain.EncryptionError("generate symmetric key", err)
	}

	block, err := aes.NewCipher(symmetricKey)
	if err != nil {
		return nil, domain.EncryptionError("create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.EncryptionError("create GCM", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, domain.EncryptionError("generate nonce", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	// Key transport material is prepared before the tree is mutated so a
	// failure leaves the assertion in place.
	var transportAlg string
	var transportCipher []byte
	var agreed *agreedKey
	switch publicKey := recipient.PublicKey.(type) {
	case *rsa.PublicKey:
		transportAlg = KeyTransportRSAOAEP
		transportCipher, err = rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, symmetricKey, nil)
		if err != nil {
			return nil, domain.EncryptionError("encrypt symmetric key", err)
		}
	case *ecdsa.PublicKey:
		agreed, err = wrapKeyECDH(publicKey, symmetricKey)
		if err != nil {
			return nil, err
		}
		transportAlg = agreed.wrapAlg
		transportCipher = agreed.wrapped
	default:
		return nil, domain.EncryptionError("unsupported recipient public key type", nil)
	}

	parent := assertion.Parent()
	if parent == nil {
		return nil, domain.EncryptionError("assertion element has no parent", nil)
	}
	parent.RemoveChild(assertion)

	encryptedAssertion := parent.CreateElement("saml2:EncryptedAssertion")

	encryptedData := encryptedAssertion.CreateElement("xenc:EncryptedData")
	encryptedData.CreateAttr("xmlns:xenc", xencNS)
	encryptedData.CreateAttr("Id", "_"+uuid.NewString())
	encryptedData.CreateAttr("Type", "http://www.w3.org/2001/04/xmlenc#Element")

	dataMethod := encryptedData.CreateElement("xenc:EncryptionMethod")
	dataMethod.CreateAttr("Algorithm", e.policy.DataAlgorithm)

	keyInfo := encryptedData.CreateElement("ds:KeyInfo")
	keyInfo.CreateAttr("xmlns:ds", dsNS)

	encryptedKeyEl := keyInfo.CreateElement("xenc:EncryptedKey")
	encryptedKeyEl.CreateAttr("Id", "_"+uuid.NewString())
	if e.policy.RecipientID != "" {
		encryptedKeyEl.CreateAttr("Recipient", e.policy.RecipientID)
	}
	keyMethod := encryptedKeyEl.CreateElement("xenc:EncryptionMethod")
	keyMethod.CreateAttr("Algorithm", transportAlg)

	certKeyInfo := encryptedKeyEl.CreateElement("ds:KeyInfo")
	if agreed == nil {
		digestMethod := keyMethod.CreateElement("ds:DigestMethod")
		digestMethod.CreateAttr("Algorithm", DigestSHA256)
		addX509Data(certKeyInfo, recipient)
	} else {
		agreement := certKeyInfo.CreateElement("xenc:AgreementMethod")
		agreement.CreateAttr("Algorithm", KeyAgreementECDHES)

		derivation := agreement.CreateElement("xenc11:KeyDerivationMethod")
		derivation.CreateAttr("xmlns:xenc11", xenc11NS)
		derivation.CreateAttr("Algorithm", KeyDerivationConcatKDF)
		kdfParams := derivation.CreateElement("xenc11:ConcatKDFParams")
		kdfDigest := kdfParams.CreateElement("ds:DigestMethod")
		kdfDigest.CreateAttr("Algorithm", DigestSHA256)

		originator := agreement.CreateElement("xenc:OriginatorKeyInfo")
		keyValue := originator.CreateElement("ds:KeyValue")
		ecKeyValue := keyValue.CreateElement("dsig11:ECKeyValue")
		ecKeyValue.CreateAttr("xmlns:dsig11", dsig11NS)
		namedCurve := ecKeyValue.CreateElement("dsig11:NamedCurve")
		namedCurve.CreateAttr("URI", agreed.curveURI)
		ephemeralEl := ecKeyValue.CreateElement("dsig11:PublicKey")
		ephemeralEl.SetText(base64.StdEncoding.EncodeToString(agreed.ephemeralPub))

		recipientInfo := agreement.CreateElement("xenc:RecipientKeyInfo")
		addX509Data(recipientInfo, recipient)
	}

	keyCipherData := encryptedKeyEl.CreateElement("xenc:CipherData")
	keyCipherValue := keyCipherData.CreateElement("xenc:CipherValue")
	keyCipherValue.SetText(base64.StdEncoding.EncodeToString(transportCipher))

	cipherData := encryptedData.CreateElement("xenc:CipherData")
	cipherValue := cipherData.CreateElement("xenc:CipherValue")
	cipherValue.SetText(base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)))

	return encryptedAssertion, nil
}

// Decrypter decrypts EncryptedAssertion elements addressed to this node.
type Decrypter struct {
	policy EncryptionPolicy
	key    crypto.PrivateKey
}

// NewDecrypter creates a decrypter with the node's decryption credential.
func NewDecrypter(key crypto.PrivateKey, policy EncryptionPolicy) (*Decrypter, error) {
	if key == nil {
		return nil, domain.ConfigurationError("decryption credential is missing")
	}
	if policy.MaxEncryptedKeys <= 0 {
		return nil, domain.ConfigurationError("encrypted-key resolution bound must be positive")
	}
	return &Decrypter{policy: policy, key: key}, nil
}

// DecryptAssertion decrypts an EncryptedAssertion element and returns the
// plain Assertion element.
//
// At most MaxEncryptedKeys candidate EncryptedKey elements whose Recipient
// attribute matches the configured identity are considered, in document
// order; the rest are ignored. Zero matching keys is an encryption error.
func (d *Decrypter) DecryptAssertion(encryptedAssertion *etree.Element) (*etree.Element, error) {
	encryptedData := childByTag(encryptedAssertion, "EncryptedData")
	if encryptedData == nil {
		return nil, domain.EncryptionError("EncryptedAssertion has no EncryptedData", nil)
	}

	dataMethod := childByTag(encryptedData, "EncryptionMethod")
	if dataMethod == nil {
		return nil, domain.EncryptionError("EncryptedData has no EncryptionMethod", nil)
	}
	dataAlgorithm := dataMethod.SelectAttrValue("Algorithm", "")
	if !d.policy.AllowedDataAlgorithms[dataAlgorithm] {
		return nil, domain.EncryptionError("encryption algorithm "+dataAlgorithm+" is not whitelisted", nil)
	}

	candidates := d.selectEncryptedKeys(encryptedData)
	if len(candidates) == 0 {
		return nil, domain.EncryptionError("no encrypted key matches the configured recipient", nil)
	}

	var symmetricKey []byte
	var lastErr error
	for _, candidate := range candidates {
		key, err := d.recoverContentKey(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		symmetricKey = key
		break
	}
	if symmetricKey == nil {
		return nil, lastErr
	}

	payload, err := cipherValueBytes(encryptedData)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(symmetricKey)
	if err != nil {
		return nil, domain.EncryptionError("create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.EncryptionError("create GCM", err)
	}
	if len(payload) < gcm.NonceSize() {
		return nil, domain.EncryptionError("ciphertext is too short", nil)
	}
	nonce, ciphertext := payload[:gcm.NonceSize()], payload[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.EncryptionError("decrypt assertion", err)
	}

	doc, err := ParseDocument(plaintext)
	if err != nil {
		return nil, domain.EncryptionError("decrypted assertion is not valid XML", err)
	}
	return doc.Root(), nil
}

// recoverContentKey recovers the content-encryption key from one candidate
// EncryptedKey, resolving the transport algorithm the originator used
// against the configured decryption key type.
func (d *Decrypter) recoverContentKey(candidate *etree.Element) ([]byte, error) {
	method := childByTag(candidate, "EncryptionMethod")
	if method == nil {
		return nil, domain.EncryptionError("EncryptedKey has no EncryptionMethod", nil)
	}
	algorithm := method.SelectAttrValue("Algorithm", "")

	encryptedKey, err := cipherValueBytes(candidate)
	if err != nil {
		return nil, err
	}

	switch algorithm {
	case KeyTransportRSAOAEP:
		rsaKey, ok := d.key.(*rsa.PrivateKey)
		if !ok {
			return nil, domain.EncryptionError("RSA key transport needs an RSA decryption key", nil)
		}
		key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, rsaKey, encryptedKey, nil)
		if err != nil {
			return nil, domain.EncryptionError("decrypt symmetric key", err)
		}
		return key, nil
	case KeyWrapAES128, KeyWrapAES192, KeyWrapAES256:
		ecKey, ok := d.key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, domain.EncryptionError("ECDH-ES key agreement needs an EC decryption key", nil)
		}
		curveURI, ephemeralPub, err := originatorKey(candidate)
		if err != nil {
			return nil, err
		}
		return unwrapKeyECDH(ecKey, curveURI, ephemeralPub, encryptedKey, algorithm)
	default:
		return nil, domain.EncryptionError("unsupported key-transport algorithm "+algorithm, nil)
	}
}

// originatorKey extracts the ECDH-ES agreement parameters from an
// EncryptedKey: the named curve and the originator's ephemeral public key.
func originatorKey(candidate *etree.Element) (string, []byte, error) {
	agreements := descendantsByTag(candidate, "AgreementMethod")
	if len(agreements) == 0 {
		return "", nil, domain.EncryptionError("EncryptedKey has no AgreementMethod", nil)
	}
	agreement := agreements[0]
	if alg := agreement.SelectAttrValue("Algorithm", ""); alg != KeyAgreementECDHES {
		return "", nil, domain.EncryptionError("unsupported key-agreement algorithm "+alg, nil)
	}

	curves := descendantsByTag(agreement, "NamedCurve")
	keys := descendantsByTag(agreement, "PublicKey")
	if len(curves) == 0 || len(keys) == 0 {
		return "", nil, domain.EncryptionError("AgreementMethod is missing the originator key", nil)
	}
	ephemeralPub, err := base64.StdEncoding.DecodeString(trimAll(keys[0].Text()))
	if err != nil {
		return "", nil, domain.EncryptionError("invalid originator public key encoding", err)
	}
	return curves[0].SelectAttrValue("URI", ""), ephemeralPub, nil
}

// selectEncryptedKeys returns the bounded, recipient-matched candidate
// EncryptedKey elements in document order.
func (d *Decrypter) selectEncryptedKeys(encryptedData *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, candidate := range descendantsByTag(encryptedData, "EncryptedKey") {
		if d.policy.RecipientID != "" {
			if candidate.SelectAttrValue("Recipient", "") != d.policy.RecipientID {
				continue
			}
		}
		out = append(out, candidate)
		if len(out) == d.policy.MaxEncryptedKeys {
			break
		}
	}
	return out
}

// cipherValueBytes extracts and decodes the CipherData/CipherValue content
// directly under el.
func cipherValueBytes(el *etree.Element) ([]byte, error) {
	cipherData := childByTag(el, "CipherData")
	if cipherData == nil {
		return nil, domain.EncryptionError(el.Tag+" has no CipherData", nil)
	}
	cipherValue := childByTag(cipherData, "CipherValue")
	if cipherValue == nil {
		return nil, domain.EncryptionError(el.Tag+" has no CipherValue", nil)
	}
	decoded, err := base64.StdEncoding.DecodeString(trimAll(cipherValue.Text()))
	if err != nil {
		return nil, domain.EncryptionError("invalid base64 cipher value", err)
	}
	return decoded, nil
}

func trimAll(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			b = append(b, s[i])
		}
	}
	return string(b)
}

// addX509Data appends a certificate under a key-info element.
func addX509Data(keyInfo *etree.Element, cert *x509.Certificate) {
	x509Data := keyInfo.CreateElement("ds:X509Data")
	x509Cert := x509Data.CreateElement("ds:X509Certificate")
	x509Cert.SetText(base64.StdEncoding.EncodeToString(cert.Raw))
}

// serializeElement renders a detached copy of an element as a standalone
// document.
func serializeElement(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	return SerializeDocument(doc)
}
