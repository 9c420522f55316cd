//go:build unit

package engine

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/adapters/driven/codec"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

const (
	connectorEntityID = "https://connector.example.eu/metadata"
	proxyEntityID     = "https://proxy.example.eu/metadata"
)

func generateTestCert(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 3072)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: "Test Certificate",
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	return cert, key
}

// fakeKeyStore serves generated credentials.
type fakeKeyStore struct {
	signingKey     *rsa.PrivateKey
	signingCert    *x509.Certificate
	decryptionKey  *rsa.PrivateKey
	decryptionCert *x509.Certificate
}

func (k *fakeKeyStore) SigningKeyPair() (crypto.PrivateKey, *x509.Certificate, error) {
	return k.signingKey, k.signingCert, nil
}

func (k *fakeKeyStore) DecryptionKeyPair() (crypto.PrivateKey, *x509.Certificate, error) {
	if k.decryptionKey == nil {
		return nil, nil, nil
	}
	return k.decryptionKey, k.decryptionCert, nil
}

func (k *fakeKeyStore) TrustAnchors() []*x509.Certificate { return nil }

var _ ports.KeyStore = (*fakeKeyStore)(nil)

// fakeResolver serves metadata from an in-memory map keyed by URL.
type fakeResolver struct {
	entries map[string]*domain.EidasMetadataParameters
}

func (r *fakeResolver) Resolve(_ context.Context, metadataURL string) (*domain.EidasMetadataParameters, error) {
	params, ok := r.entries[metadataURL]
	if !ok {
		return nil, domain.MetadataError("no metadata for "+metadataURL, nil)
	}
	return params, nil
}

var _ ports.MetadataResolver = (*fakeResolver)(nil)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// federation is a connector engine and a proxy-service engine wired to a
// shared metadata map, as in a two-country exchange.
type federation struct {
	connector *ProtocolEngine
	proxy     *ProtocolEngine
	clock     *fakeClock
}

func engineConfig(instance, entityID string, version domain.ProtocolVersion) Config {
	return Config{
		InstanceName:       instance,
		EntityID:           entityID,
		Version:            version,
		SignatureAlgorithm: codec.SignatureRSASHA256,
		AssertionValidity:  5 * time.Minute,
		SignaturePolicy:    codec.DefaultSignaturePolicy(),
		EncryptionPolicy:   codec.DefaultEncryptionPolicy(),
	}
}

func newFederation(t *testing.T) *federation {
	t.Helper()

	connectorCert, connectorKey := generateTestCert(t)
	connectorEncCert, connectorEncKey := generateTestCert(t)
	proxyCert, proxyKey := generateTestCert(t)

	resolver := &fakeResolver{entries: map[string]*domain.EidasMetadataParameters{
		connectorEntityID: {
			EntityID: connectorEntityID,
			Roles: []domain.RoleDescriptor{{
				Type:                   domain.SPRole,
				SigningCertificates:    []*x509.Certificate{connectorCert},
				EncryptionCertificates: []*x509.Certificate{connectorEncCert},
				Location:               "https://connector.example.eu/acs",
			}},
		},
		proxyEntityID: {
			EntityID: proxyEntityID,
			Roles: []domain.RoleDescriptor{{
				Type:                domain.IDPRole,
				SigningCertificates: []*x509.Certificate{proxyCert},
				Location:            "https://proxy.example.eu/sso",
			}},
		},
	}}

	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	registry := domain.StandardRegistry()

	connector, err := NewProtocolEngine(
		engineConfig("connector-SE", connectorEntityID, domain.ProtocolVersion12),
		&fakeKeyStore{
			signingKey:     connectorKey,
			signingCert:    connectorCert,
			decryptionKey:  connectorEncKey,
			decryptionCert: connectorEncCert,
		},
		resolver, registry, WithClock(clock),
	)
	if err != nil {
		t.Fatalf("connector engine: %v", err)
	}

	proxy, err := NewProtocolEngine(
		engineConfig("proxy-DE", proxyEntityID, domain.ProtocolVersion12),
		&fakeKeyStore{signingKey: proxyKey, signingCert: proxyCert},
		resolver, registry, WithClock(clock),
	)
	if err != nil {
		t.Fatalf("proxy engine: %v", err)
	}

	return &federation{connector: connector, proxy: proxy, clock: clock}
}

func testRequest(t *testing.T) *domain.AuthenticationRequest {
	t.Helper()
	registry := domain.StandardRegistry()
	attrs := domain.NewAttributeSet()
	for _, friendly := range []string{"PersonIdentifier", "FamilyName"} {
		def, ok := registry.ByFriendlyName(friendly)
		if !ok {
			t.Fatalf("attribute %s not in registry", friendly)
		}
		attrs.Add(def)
	}
	return &domain.AuthenticationRequest{
		ID:                  "_req-1",
		CitizenCountry:      "DE",
		RequestedLoA:        domain.LoASubstantial,
		Comparison:          domain.ComparisonMinimum,
		RequestedAttributes: attrs,
		SPType:              domain.SPTypePublic,
		NameIDFormat:        domain.NameIDFormatPersistent,
	}
}

func successResponse(t *testing.T, inResponseTo string) *domain.AuthenticationResponse {
	t.Helper()
	registry := domain.StandardRegistry()
	attrs := domain.NewAttributeSet()
	pid, _ := registry.ByFriendlyName("PersonIdentifier")
	attrs.Add(pid, "SE/DE/198001011234")
	return &domain.AuthenticationResponse{
		ID:                  "_resp-1",
		InResponseTo:        inResponseTo,
		Status:              domain.SuccessStatus(),
		GrantedLoA:          domain.LoASubstantial,
		Attributes:          attrs,
		Subject:             "SE/DE/198001011234",
		SubjectNameIDFormat: domain.NameIDFormatPersistent,
		// Issuer is overridden by the generating engine; any valid URI works.
		Issuer: proxyEntityID,
	}
}

func TestExchange_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, err := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	if err != nil {
		t.Fatalf("GenerateRequest() = %v", err)
	}
	if reqMsg.Destination != "https://proxy.example.eu/sso" {
		t.Errorf("destination = %q, want the published SSO endpoint", reqMsg.Destination)
	}
	if !strings.Contains(string(reqMsg.Bytes), "Signature") {
		t.Fatal("generated request is unsigned")
	}

	// The proxy side parses the received request.
	reqDoc, err := codec.ParseDocument(reqMsg.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	receivedReq, err := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	if err != nil {
		t.Fatalf("ParseAuthnRequest() = %v", err)
	}
	if receivedReq.Issuer != connectorEntityID {
		t.Errorf("request issuer = %q, want the connector entity id", receivedReq.Issuer)
	}

	respMsg, err := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "192.0.2.10")
	if err != nil {
		t.Fatalf("GenerateResponse() = %v", err)
	}
	if respMsg.InResponseTo != reqMsg.ID {
		t.Errorf("InResponseTo = %q, want %q", respMsg.InResponseTo, reqMsg.ID)
	}
	// The subject must not travel in the clear.
	if strings.Contains(string(respMsg.Bytes), "SE/DE/198001011234") {
		t.Fatal("assertion content leaked into the response in plaintext")
	}

	correlated, err := fed.connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{proxyEntityID: true}, true)
	if err != nil {
		t.Fatalf("UnmarshalResponse() = %v", err)
	}
	if correlated.Issuer() != proxyEntityID {
		t.Errorf("issuer = %q", correlated.Issuer())
	}

	validated, err := fed.connector.ValidateUnmarshalledResponse(ctx, correlated, ValidationParams{
		ExpectedInResponseTo: reqMsg.ID,
		ConsumerIP:           "192.0.2.10",
		SkewBefore:           time.Minute,
		SkewAfter:            time.Minute,
		Audience:             connectorEntityID,
	})
	if err != nil {
		t.Fatalf("ValidateUnmarshalledResponse() = %v", err)
	}
	if validated.Status.Failure {
		t.Error("validated response marked as failure")
	}
	if validated.Subject != "SE/DE/198001011234" {
		t.Errorf("subject = %q", validated.Subject)
	}
	if validated.GrantedLoA != domain.LoASubstantial {
		t.Errorf("granted LoA = %q", validated.GrantedLoA)
	}
	if validated.Attributes.Len() != 1 {
		t.Errorf("attribute count = %d", validated.Attributes.Len())
	}
}

func TestExchange_FailureResponse(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, err := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	if err != nil {
		t.Fatal(err)
	}
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, err := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	if err != nil {
		t.Fatal(err)
	}

	failure := &domain.AuthenticationResponse{
		ID:           "_resp-2",
		InResponseTo: reqMsg.ID,
		Issuer:       proxyEntityID,
		Status: domain.FailureStatus(
			domain.StatusResponder, domain.SubStatusAuthnFailed, "authentication failed"),
	}
	respMsg, err := fed.proxy.GenerateResponse(ctx, receivedReq, failure, false, "")
	if err != nil {
		t.Fatalf("GenerateResponse(failure) = %v", err)
	}

	correlated, err := fed.connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{proxyEntityID: true}, true)
	if err != nil {
		t.Fatalf("UnmarshalResponse() = %v", err)
	}
	validated, err := fed.connector.ValidateUnmarshalledResponse(ctx, correlated, ValidationParams{
		ExpectedInResponseTo: reqMsg.ID,
	})
	if err != nil {
		t.Fatalf("a failure response still validates: %v", err)
	}
	if !validated.Status.Failure {
		t.Error("failure status lost")
	}
	if validated.Status.SubStatus != domain.SubStatusAuthnFailed {
		t.Errorf("sub-status = %q", validated.Status.SubStatus)
	}
}

func TestUnmarshalResponse_UntrustedIssuer(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, _ := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, err := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = fed.connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{"https://someone-else.example.eu/metadata": true}, true)
	if err == nil {
		t.Fatal("a response from an issuer outside the trusted set must be rejected")
	}
	if domain.CodeOf(err) != domain.ErrCodeUntrustedIssuer {
		t.Errorf("error code = %q, want untrusted_issuer", domain.CodeOf(err))
	}
}

func TestUnmarshalResponse_EmptyTrustedSetRejectsAll(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, _ := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, err := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")
	if err != nil {
		t.Fatal(err)
	}

	// An empty set is a trust decision with zero members, not its absence:
	// it must reject every issuer instead of failing open.
	_, err = fed.connector.UnmarshalResponse(ctx, respMsg.Bytes, map[string]bool{}, true)
	if err == nil {
		t.Fatal("an empty trusted-issuer set must reject every issuer")
	}
	if domain.CodeOf(err) != domain.ErrCodeUntrustedIssuer {
		t.Errorf("error code = %q, want untrusted_issuer", domain.CodeOf(err))
	}

	// A nil set means the caller imposes no issuer restriction.
	if _, err := fed.connector.UnmarshalResponse(ctx, respMsg.Bytes, nil, true); err != nil {
		t.Errorf("nil trusted-issuer set must leave the issuer unrestricted: %v", err)
	}
}

func TestUnmarshalResponse_TamperedSignature(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, _ := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, err := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")
	if err != nil {
		t.Fatal(err)
	}

	tampered := strings.Replace(string(respMsg.Bytes), reqMsg.ID, "_forged-id", 1)
	_, err = fed.connector.UnmarshalResponse(ctx, []byte(tampered),
		map[string]bool{proxyEntityID: true}, true)
	if err == nil {
		t.Error("a tampered response must fail signature verification")
	}
}

func TestValidate_WrongCorrelation(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, _ := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, _ := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")

	correlated, err := fed.connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{proxyEntityID: true}, true)
	if err != nil {
		t.Fatal(err)
	}
	_, err = fed.connector.ValidateUnmarshalledResponse(ctx, correlated, ValidationParams{
		ExpectedInResponseTo: "_some-other-request",
	})
	if err == nil {
		t.Fatal("a response correlating to another request must be rejected")
	}
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Errorf("error code = %q, want validation_error", domain.CodeOf(err))
	}
}

func TestValidate_ExpiredAssertion(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, _ := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, _ := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")

	correlated, err := fed.connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{proxyEntityID: true}, true)
	if err != nil {
		t.Fatal(err)
	}

	// Past NotOnOrAfter plus the skew the assertion is dead.
	fed.clock.now = fed.clock.now.Add(10 * time.Minute)
	_, err = fed.connector.ValidateUnmarshalledResponse(ctx, correlated, ValidationParams{
		ExpectedInResponseTo: reqMsg.ID,
		SkewAfter:            time.Minute,
	})
	if err == nil {
		t.Fatal("an expired assertion must be rejected")
	}
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Errorf("error code = %q, want validation_error", domain.CodeOf(err))
	}
}

func TestValidate_SkewToleratesBoundaryClocks(t *testing.T) {
	ctx := context.Background()
	fed := newFederation(t)

	reqMsg, _ := fed.connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, _ := fed.proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")

	correlated, err := fed.connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{proxyEntityID: true}, true)
	if err != nil {
		t.Fatal(err)
	}

	// 30s past the 5-minute validity still passes inside a 1-minute skew.
	fed.clock.now = fed.clock.now.Add(5*time.Minute + 30*time.Second)
	_, err = fed.connector.ValidateUnmarshalledResponse(ctx, correlated, ValidationParams{
		ExpectedInResponseTo: reqMsg.ID,
		SkewAfter:            time.Minute,
	})
	if err != nil {
		t.Errorf("skew window must tolerate boundary clocks: %v", err)
	}
}

func TestValidate_VersionCompatibility(t *testing.T) {
	ctx := context.Background()

	connectorCert, connectorKey := generateTestCert(t)
	connectorEncCert, connectorEncKey := generateTestCert(t)
	proxyCert, proxyKey := generateTestCert(t)

	resolver := &fakeResolver{entries: map[string]*domain.EidasMetadataParameters{
		connectorEntityID: {
			EntityID: connectorEntityID,
			Roles: []domain.RoleDescriptor{{
				Type:                   domain.SPRole,
				SigningCertificates:    []*x509.Certificate{connectorCert},
				EncryptionCertificates: []*x509.Certificate{connectorEncCert},
				Location:               "https://connector.example.eu/acs",
			}},
		},
		proxyEntityID: {
			EntityID: proxyEntityID,
			Roles: []domain.RoleDescriptor{{
				Type:                domain.IDPRole,
				SigningCertificates: []*x509.Certificate{proxyCert},
				Location:            "https://proxy.example.eu/sso",
			}},
		},
	}}
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	registry := domain.StandardRegistry()

	// The connector speaks 1.1, the proxy answers with 1.2.
	connector, err := NewProtocolEngine(
		engineConfig("connector-SE", connectorEntityID, domain.ProtocolVersion11),
		&fakeKeyStore{
			signingKey:     connectorKey,
			signingCert:    connectorCert,
			decryptionKey:  connectorEncKey,
			decryptionCert: connectorEncCert,
		},
		resolver, registry, WithClock(clock),
	)
	if err != nil {
		t.Fatal(err)
	}
	proxy, err := NewProtocolEngine(
		engineConfig("proxy-DE", proxyEntityID, domain.ProtocolVersion12),
		&fakeKeyStore{signingKey: proxyKey, signingCert: proxyCert},
		resolver, registry, WithClock(clock),
	)
	if err != nil {
		t.Fatal(err)
	}

	reqMsg, err := connector.GenerateRequest(ctx, testRequest(t), proxyEntityID)
	if err != nil {
		t.Fatal(err)
	}
	reqDoc, _ := codec.ParseDocument(reqMsg.Bytes)
	receivedReq, _ := codec.ParseAuthnRequest(reqDoc.Root(), domain.StandardRegistry())
	respMsg, err := proxy.GenerateResponse(ctx, receivedReq, successResponse(t, reqMsg.ID), false, "")
	if err != nil {
		t.Fatal(err)
	}

	correlated, err := connector.UnmarshalResponse(ctx, respMsg.Bytes,
		map[string]bool{proxyEntityID: true}, true)
	if err != nil {
		t.Fatal(err)
	}
	_, err = connector.ValidateUnmarshalledResponse(ctx, correlated, ValidationParams{
		ExpectedInResponseTo: reqMsg.ID,
	})
	if err == nil {
		t.Fatal("a response with a newer minor version must be rejected")
	}
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Errorf("error code = %q, want validation_error", domain.CodeOf(err))
	}
}

func TestNewProtocolEngine_Validation(t *testing.T) {
	cert, key := generateTestCert(t)
	keys := &fakeKeyStore{signingKey: key, signingCert: cert}
	resolver := &fakeResolver{entries: map[string]*domain.EidasMetadataParameters{}}
	registry := domain.StandardRegistry()
	valid := engineConfig("node", "https://node.example.eu/metadata", domain.ProtocolVersion12)

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty instance name", func(c *Config) { c.InstanceName = "" }},
		{"empty entity id", func(c *Config) { c.EntityID = "" }},
		{"zero version", func(c *Config) { c.Version = domain.ProtocolVersion{} }},
		{"zero assertion validity", func(c *Config) { c.AssertionValidity = 0 }},
		{"forbidden algorithm", func(c *Config) {
			c.SignatureAlgorithm = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if _, err := NewProtocolEngine(cfg, keys, resolver, registry); err == nil {
				t.Fatal("want configuration error")
			}
		})
	}

	if _, err := NewProtocolEngine(valid, nil, resolver, registry); err == nil {
		t.Error("missing key store must be rejected")
	}
	if _, err := NewProtocolEngine(valid, keys, nil, registry); err == nil {
		t.Error("missing resolver must be rejected")
	}
	if _, err := NewProtocolEngine(valid, keys, resolver, nil); err == nil {
		t.Error("missing registry must be rejected")
	}
	if _, err := NewProtocolEngine(valid, keys, resolver, registry); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
