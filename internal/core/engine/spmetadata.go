package engine

import (
	"crypto/rsa"
	"encoding/xml"
	"net/url"
	"time"

	"github.com/crewjam/saml"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// MetadataGenerator emits this node's own SP metadata document, signed
// with the engine credential, for publication to federation peers.
type MetadataGenerator struct {
	entityID string
	validity time.Duration
	keys     ports.KeyStore
	signer   ports.XMLSigner
	clock    ports.Clock
}

// NewMetadataGenerator creates a metadata generator. Validity bounds the
// published validUntil window.
func NewMetadataGenerator(entityID string, validity time.Duration, keys ports.KeyStore, signer ports.XMLSigner, clock ports.Clock) (*MetadataGenerator, error) {
	if entityID == "" {
		return nil, domain.ConfigurationError("metadata entity id is empty")
	}
	if validity <= 0 {
		return nil, domain.ConfigurationError("metadata validity must be positive")
	}
	if keys == nil || signer == nil {
		return nil, domain.ConfigurationError("metadata generator credential is missing")
	}
	if clock == nil {
		clock = ports.RealClock{}
	}
	return &MetadataGenerator{
		entityID: entityID,
		validity: validity,
		keys:     keys,
		signer:   signer,
		clock:    clock,
	}, nil
}

// GenerateSPMetadata renders and signs SP metadata for the given
// assertion-consumer URL.
func (g *MetadataGenerator) GenerateSPMetadata(acsURL string) ([]byte, error) {
	parsed, err := url.Parse(acsURL)
	if err != nil || !parsed.IsAbs() {
		return nil, domain.ValidationErrorf("assertion consumer URL %q is not an absolute URL", acsURL)
	}

	key, cert, err := g.keys.SigningKeyPair()
	if err != nil {
		return nil, domain.ConfigurationError("load signing credential: " + err.Error())
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, domain.ConfigurationError("SP metadata generation requires an RSA signing key")
	}

	metadataURL := url.URL{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   "/metadata",
	}
	sp := saml.ServiceProvider{
		EntityID:    g.entityID,
		Key:         rsaKey,
		Certificate: cert,
		MetadataURL: metadataURL,
		AcsURL:      *parsed,
	}

	descriptor := sp.Metadata()
	descriptor.ValidUntil = g.clock.Now().Add(g.validity).UTC()

	data, err := xml.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return nil, domain.ValidationErrorf("marshal SP metadata: %v", err)
	}
	return g.signer.Sign(data)
}
