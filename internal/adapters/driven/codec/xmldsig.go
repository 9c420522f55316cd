package codec

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// Signer creates enveloped XML signatures with the engine credential.
// Algorithm and key strength are checked once at construction; signing a
// message never re-validates policy.
type Signer struct {
	key       crypto.PrivateKey
	cert      *x509.Certificate
	algorithm string
}

// NewSigner creates a signer after validating the configured algorithm and
// key against the signature policy. Policy violations are configuration
// errors raised here, at startup, not at message time.
func NewSigner(key crypto.PrivateKey, cert *x509.Certificate, algorithm string, policy SignaturePolicy) (*Signer, error) {
	if key == nil || cert == nil {
		return nil, domain.ConfigurationError("signing credential is missing")
	}
	if err := policy.CheckAlgorithm(algorithm); err != nil {
		return nil, err
	}
	if err := policy.CheckCertificate(cert); err != nil {
		return nil, err
	}
	return &Signer{key: key, cert: cert, algorithm: algorithm}, nil
}

// Certificate returns the signing certificate.
func (s *Signer) Certificate() *x509.Certificate {
	return s.cert
}

// SignElement adds an enveloped signature to the element and returns the
// signed element.
func (s *Signer) SignElement(el *etree.Element) (*etree.Element, error) {
	keyStore := dsig.TLSCertKeyStore(tls.Certificate{
		Certificate: [][]byte{s.cert.Raw},
		PrivateKey:  s.key,
	})

	signingContext := dsig.NewDefaultSigningContext(keyStore)
	signingContext.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")
	if err := signingContext.SetSignatureMethod(s.algorithm); err != nil {
		return nil, domain.SignatureError("unsupported signature method", err)
	}

	signed, err := signingContext.SignEnveloped(el)
	if err != nil {
		return nil, domain.SignatureError("sign XML element", err)
	}
	return signed, nil
}

// Sign parses a document, signs its root, and returns the signed bytes.
func (s *Signer) Sign(data []byte) ([]byte, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	signed, err := s.SignElement(doc.Root())
	if err != nil {
		return nil, err
	}
	signedDoc := etree.NewDocument()
	signedDoc.SetRoot(signed)
	return SerializeDocument(signedDoc)
}

// Verifier validates enveloped XML signatures against trust anchors
// extracted from metadata.
type Verifier struct {
	certStore dsig.X509CertificateStore
	certs     []*x509.Certificate
	logger    *zap.Logger
}

// NewVerifier creates a verifier trusting the given certificates. Multiple
// certificates support rollover scenarios.
func NewVerifier(certs []*x509.Certificate, logger *zap.Logger) *Verifier {
	return &Verifier{
		certStore: &dsig.MemoryX509CertificateStore{Roots: certs},
		certs:     certs,
		logger:    logger,
	}
}

// VerifyElement validates the enveloped signature on an element and
// returns the validated element. Only the validated element may be
// processed further, preventing signature wrapping attacks.
func (v *Verifier) VerifyElement(el *etree.Element) (*etree.Element, error) {
	ctx := dsig.NewDefaultValidationContext(v.certStore)
	validated, err := ctx.Validate(el)
	if err != nil {
		return nil, domain.SignatureError("XML signature verification failed", err)
	}
	if v.logger != nil && len(v.certs) > 0 {
		cert := v.certs[0]
		v.logger.Info("XML signature verified",
			zap.String("cert_subject", cert.Subject.String()),
			zap.Time("cert_expiry", cert.NotAfter),
		)
	}
	return validated, nil
}

// Verify parses a document, validates the signature on its root, and
// returns the re-serialized validated bytes.
func (v *Verifier) Verify(data []byte) ([]byte, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	validated, err := v.VerifyElement(doc.Root())
	if err != nil {
		return nil, err
	}
	validatedDoc := etree.NewDocument()
	validatedDoc.SetRoot(validated)
	return SerializeDocument(validatedDoc)
}

var _ ports.SignatureVerifier = (*Verifier)(nil)
var _ ports.XMLSigner = (*Signer)(nil)
