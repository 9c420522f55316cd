// Package engine orchestrates the cross-border authentication exchange:
// request generation, response generation, and response validation, using
// the message codec, the metadata trust resolver, and configured policy.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/adapters/driven/codec"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// Config is the immutable per-instance engine configuration, loaded once
// at startup.
type Config struct {
	// InstanceName identifies this engine in the registry and in metrics.
	InstanceName string

	// EntityID is the entity identifier this engine issues messages as.
	EntityID string

	// Version is the protocol version this engine speaks.
	Version domain.ProtocolVersion

	// SignatureAlgorithm is the XML signature method URI.
	SignatureAlgorithm string

	// SignAssertions also signs generated assertions, in addition to the
	// outer response.
	SignAssertions bool

	// AssertionValidity bounds generated assertion NotOnOrAfter windows.
	AssertionValidity time.Duration

	// SignaturePolicy is the signature whitelist and key-strength floor.
	SignaturePolicy codec.SignaturePolicy

	// EncryptionPolicy is the encryption whitelist and recipient bounds.
	EncryptionPolicy codec.EncryptionPolicy

	// ValidationPolicy carries the per-deployment response validation rules.
	ValidationPolicy domain.ResponseValidationPolicy
}

// RequestMessage is a generated, signed authentication request ready for
// transport.
type RequestMessage struct {
	ID          string
	Destination string
	RelayState  string
	Bytes       []byte
}

// ResponseMessage is a generated, signed authentication response ready
// for transport.
type ResponseMessage struct {
	ID           string
	InResponseTo string
	RelayState   string
	Bytes        []byte
}

// CorrelatedResponse is a signature-verified response whose assertion may
// still be encrypted. Produced by UnmarshalResponse and consumed by
// ValidateUnmarshalledResponse.
type CorrelatedResponse struct {
	parsed *codec.ParsedResponse
}

// ID returns the response id.
func (c *CorrelatedResponse) ID() string { return c.parsed.ID }

// InResponseTo returns the id of the originating request.
func (c *CorrelatedResponse) InResponseTo() string { return c.parsed.InResponseTo }

// Issuer returns the responding entity id.
func (c *CorrelatedResponse) Issuer() string { return c.parsed.Issuer }

// Status returns the authentication outcome.
func (c *CorrelatedResponse) Status() domain.Status { return c.parsed.Status }

// ValidationParams carries the caller-supplied inputs for validating an
// unmarshalled response.
type ValidationParams struct {
	// ExpectedInResponseTo is the id of the request this response must
	// correlate to.
	ExpectedInResponseTo string

	// ConsumerIP is the subject's observed address. When both it and the
	// assertion's subject address are present they must match.
	ConsumerIP string

	// SkewBefore widens the validity window downward.
	SkewBefore time.Duration

	// SkewAfter widens the validity window upward.
	SkewAfter time.Duration

	// Audience, when set, must appear among the assertion's audience
	// restrictions.
	Audience string
}

// ProtocolEngine generates and validates authentication messages for one
// configured instance. Engines are stateless per call and safe for
// concurrent use; configuration is read-only after construction.
type ProtocolEngine struct {
	cfg       Config
	signer    *codec.Signer
	encrypter *codec.Encrypter
	decrypter *codec.Decrypter
	resolver  ports.MetadataResolver
	registry  *domain.AttributeRegistry
	clock     ports.Clock
	logger    *zap.Logger
	metrics   ports.MetricsRecorder
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*ProtocolEngine)

// WithClock sets a custom clock for validity decisions.
func WithClock(clock ports.Clock) EngineOption {
	return func(e *ProtocolEngine) { e.clock = clock }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *ProtocolEngine) { e.logger = logger }
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(recorder ports.MetricsRecorder) EngineOption {
	return func(e *ProtocolEngine) { e.metrics = recorder }
}

// NewProtocolEngine validates the configuration and builds an engine.
// All policy checks (algorithm whitelist, key strength) run here, at
// startup; a misconfigured engine never constructs.
func NewProtocolEngine(cfg Config, keys ports.KeyStore, resolver ports.MetadataResolver, registry *domain.AttributeRegistry, opts ...EngineOption) (*ProtocolEngine, error) {
	if strings.TrimSpace(cfg.InstanceName) == "" {
		return nil, domain.ConfigurationError("engine instance name is empty")
	}
	if strings.TrimSpace(cfg.EntityID) == "" {
		return nil, domain.ConfigurationError("engine entity id is empty")
	}
	if cfg.Version.IsZero() {
		return nil, domain.ConfigurationError("engine protocol version is not set")
	}
	if cfg.AssertionValidity <= 0 {
		return nil, domain.ConfigurationError("assertion validity must be positive")
	}
	if keys == nil {
		return nil, domain.ConfigurationError("engine key store is missing")
	}
	if resolver == nil {
		return nil, domain.ConfigurationError("engine metadata resolver is missing")
	}
	if registry == nil {
		return nil, domain.ConfigurationError("engine attribute registry is missing")
	}

	signingKey, signingCert, err := keys.SigningKeyPair()
	if err != nil {
		return nil, domain.ConfigurationError("load signing credential: " + err.Error())
	}
	signer, err := codec.NewSigner(signingKey, signingCert, cfg.SignatureAlgorithm, cfg.SignaturePolicy)
	if err != nil {
		return nil, err
	}

	encrypter, err := codec.NewEncrypter(cfg.EncryptionPolicy)
	if err != nil {
		return nil, err
	}

	decryptionKey, _, err := keys.DecryptionKeyPair()
	if err != nil {
		return nil, domain.ConfigurationError("load decryption credential: " + err.Error())
	}
	var decrypter *codec.Decrypter
	if decryptionKey != nil {
		decrypter, err = codec.NewDecrypter(decryptionKey, cfg.EncryptionPolicy)
		if err != nil {
			return nil, err
		}
	}

	e := &ProtocolEngine{
		cfg:       cfg,
		signer:    signer,
		encrypter: encrypter,
		decrypter: decrypter,
		resolver:  resolver,
		registry:  registry,
		clock:     ports.RealClock{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// InstanceName returns the configured instance name.
func (e *ProtocolEngine) InstanceName() string { return e.cfg.InstanceName }

// EntityID returns the entity id this engine issues as.
func (e *ProtocolEngine) EntityID() string { return e.cfg.EntityID }

// GenerateRequest validates the request, resolves the destination's
// metadata for signing requirements and the SSO endpoint, serializes the
// request, and signs it with the engine credential.
func (e *ProtocolEngine) GenerateRequest(ctx context.Context, req *domain.AuthenticationRequest, destinationMetadataURL string) (*RequestMessage, error) {
	msg, err := e.generateRequest(ctx, req, destinationMetadataURL)
	if e.metrics != nil {
		e.metrics.RecordRequestGenerated(e.cfg.InstanceName, err == nil)
	}
	if err != nil {
		e.logger.Warn("request generation failed",
			zap.String("instance", e.cfg.InstanceName),
			zap.Error(err),
		)
		return nil, err
	}
	e.logger.Info("authentication request generated",
		zap.String("instance", e.cfg.InstanceName),
		zap.String("request_id", msg.ID),
		zap.String("destination", msg.Destination),
	)
	return msg, nil
}

func (e *ProtocolEngine) generateRequest(ctx context.Context, req *domain.AuthenticationRequest, destinationMetadataURL string) (*RequestMessage, error) {
	working := *req
	working.Issuer = e.cfg.EntityID
	working.Version = e.cfg.Version

	params, err := e.resolver.Resolve(ctx, destinationMetadataURL)
	if err != nil {
		return nil, err
	}
	idpRole, ok := params.Role(domain.IDPRole)
	if !ok {
		return nil, domain.MetadataError("destination metadata publishes no IDP role", nil)
	}
	if working.Destination == "" {
		working.Destination = idpRole.Location
	}

	if err := working.Validate(); err != nil {
		return nil, err
	}
	e.warnUnsupportedAttributes(&working, idpRole)

	doc := codec.BuildAuthnRequest(&working, e.clock.Now())
	signed, err := e.signer.SignElement(doc.Root())
	if err != nil {
		return nil, err
	}
	signedDoc := etree.NewDocument()
	signedDoc.SetRoot(signed)
	data, err := codec.SerializeDocument(signedDoc)
	if err != nil {
		return nil, err
	}

	return &RequestMessage{
		ID:          working.ID,
		Destination: working.Destination,
		RelayState:  working.RelayState,
		Bytes:       data,
	}, nil
}

// warnUnsupportedAttributes logs requested attributes the destination does
// not publish. The request still proceeds; support lists are advisory.
func (e *ProtocolEngine) warnUnsupportedAttributes(req *domain.AuthenticationRequest, role *domain.RoleDescriptor) {
	if len(role.SupportedAttributes) == 0 {
		return
	}
	supported := make(map[string]bool, len(role.SupportedAttributes))
	for _, name := range role.SupportedAttributes {
		supported[strings.ToLower(name)] = true
	}
	for _, name := range req.RequestedAttributes.Names() {
		if !supported[strings.ToLower(name)] {
			e.logger.Warn("requested attribute not published by destination",
				zap.String("instance", e.cfg.InstanceName),
				zap.String("attribute", name),
			)
		}
	}
}

// GenerateResponse builds a status-only response on failure. On success it
// builds an assertion carrying the attribute values, signs it when
// configured or requested, encrypts it to the requester's published
// encryption certificate, and signs the outer response.
func (e *ProtocolEngine) GenerateResponse(ctx context.Context, req *domain.AuthenticationRequest, resp *domain.AuthenticationResponse, signAssertion bool, consumerIP string) (*ResponseMessage, error) {
	msg, err := e.generateResponse(ctx, req, resp, signAssertion, consumerIP)
	if e.metrics != nil {
		e.metrics.RecordResponseGenerated(e.cfg.InstanceName, err == nil)
	}
	if err != nil {
		e.logger.Warn("response generation failed",
			zap.String("instance", e.cfg.InstanceName),
			zap.String("in_response_to", resp.InResponseTo),
			zap.Error(err),
		)
		return nil, err
	}
	e.logger.Info("authentication response generated",
		zap.String("instance", e.cfg.InstanceName),
		zap.String("response_id", msg.ID),
		zap.String("in_response_to", msg.InResponseTo),
		zap.Bool("failure", resp.Status.Failure),
	)
	return msg, nil
}

func (e *ProtocolEngine) generateResponse(ctx context.Context, req *domain.AuthenticationRequest, resp *domain.AuthenticationResponse, signAssertion bool, consumerIP string) (*ResponseMessage, error) {
	working := *resp
	working.Issuer = e.cfg.EntityID
	working.Version = e.cfg.Version
	if err := working.Validate(e.cfg.ValidationPolicy); err != nil {
		return nil, err
	}

	buildParams := codec.ResponseBuildParams{
		Audience:          req.Issuer,
		IssueInstant:      e.clock.Now(),
		AssertionValidity: e.cfg.AssertionValidity,
		ConsumerIP:        consumerIP,
	}

	// The requester's metadata supplies the assertion-consumer endpoint
	// and the certificate assertions are encrypted to.
	var spRole *domain.RoleDescriptor
	params, err := e.resolver.Resolve(ctx, req.Issuer)
	if err == nil {
		if role, ok := params.Role(domain.SPRole); ok {
			spRole = role
			buildParams.Destination = role.Location
		}
	} else if !working.Status.Failure {
		return nil, err
	}

	doc, assertion := codec.BuildResponse(req, &working, buildParams)

	if assertion != nil {
		if signAssertion || e.cfg.SignAssertions {
			signedAssertion, err := e.signer.SignElement(assertion)
			if err != nil {
				return nil, err
			}
			parent := assertion.Parent()
			parent.RemoveChild(assertion)
			parent.AddChild(signedAssertion)
			assertion = signedAssertion
		}
		if err := e.encryptAssertion(assertion, spRole); err != nil {
			return nil, err
		}
	}

	signed, err := e.signer.SignElement(doc.Root())
	if err != nil {
		return nil, err
	}
	signedDoc := etree.NewDocument()
	signedDoc.SetRoot(signed)
	data, err := codec.SerializeDocument(signedDoc)
	if err != nil {
		return nil, err
	}

	return &ResponseMessage{
		ID:           working.ID,
		InResponseTo: working.InResponseTo,
		RelayState:   working.RelayState,
		Bytes:        data,
	}, nil
}

// encryptAssertion encrypts the assertion to the requester's published
// certificate. A missing certificate is an encryption error when policy
// makes encryption mandatory, and a plain-assertion pass-through
// otherwise.
func (e *ProtocolEngine) encryptAssertion(assertion *etree.Element, spRole *domain.RoleDescriptor) error {
	if spRole == nil || len(spRole.EncryptionCertificates) == 0 {
		if e.cfg.EncryptionPolicy.Mandatory {
			return domain.EncryptionError("no encryption certificate resolved for requester and encryption is mandatory", nil)
		}
		return nil
	}
	_, err := e.encrypter.EncryptAssertion(assertion, spRole.EncryptionCertificates[0])
	return err
}

// UnmarshalResponse parses a received response, rejects untrusted
// issuers, and verifies the outer signature against the issuer's
// published IDP signing certificates. Assertion decryption is deferred to
// ValidateUnmarshalledResponse.
//
// A non-nil trustedIssuers set is exact membership: an empty set rejects
// every issuer. Only a nil set leaves the issuer unrestricted.
func (e *ProtocolEngine) UnmarshalResponse(ctx context.Context, data []byte, trustedIssuers map[string]bool, strict bool) (*CorrelatedResponse, error) {
	doc, err := codec.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	// A first, unverified parse yields the issuer the trust decision and
	// certificate lookup need. Nothing from it is returned to the caller.
	envelope, err := codec.ParseResponse(doc.Root(), strict)
	if err != nil {
		return nil, err
	}
	if trustedIssuers != nil && !trustedIssuers[envelope.Issuer] {
		return nil, domain.UntrustedIssuerError(envelope.Issuer)
	}

	params, err := e.resolver.Resolve(ctx, envelope.Issuer)
	if err != nil {
		return nil, err
	}
	idpRole, ok := params.Role(domain.IDPRole)
	if !ok || len(idpRole.SigningCertificates) == 0 {
		return nil, domain.MetadataError("issuer metadata publishes no IDP signing certificate", nil)
	}

	verifier := codec.NewVerifier(idpRole.SigningCertificates, e.logger)
	validated, err := verifier.VerifyElement(doc.Root())
	if err != nil {
		return nil, err
	}

	// Only the signature-validated element is parsed into the result.
	parsed, err := codec.ParseResponse(validated, strict)
	if err != nil {
		return nil, err
	}
	return &CorrelatedResponse{parsed: parsed}, nil
}

// ValidateUnmarshalledResponse decrypts the assertion, validates the
// validity window with clock-skew tolerance, the request correlation, the
// audience restriction, the protocol-version compatibility, and the
// granted level of assurance. Any failure is terminal for the message.
func (e *ProtocolEngine) ValidateUnmarshalledResponse(ctx context.Context, correlated *CorrelatedResponse, p ValidationParams) (*domain.AuthenticationResponse, error) {
	resp, err := e.validateUnmarshalledResponse(ctx, correlated, p)
	if e.metrics != nil {
		code := ""
		if err != nil {
			code = domain.CodeOf(err).String()
		}
		e.metrics.RecordResponseValidation(e.cfg.InstanceName, code)
	}
	if err != nil {
		e.logger.Warn("response validation failed",
			zap.String("instance", e.cfg.InstanceName),
			zap.String("response_id", correlated.parsed.ID),
			zap.String("error_code", domain.CodeOf(err).String()),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (e *ProtocolEngine) validateUnmarshalledResponse(_ context.Context, correlated *CorrelatedResponse, p ValidationParams) (*domain.AuthenticationResponse, error) {
	parsed := correlated.parsed

	if p.ExpectedInResponseTo != "" && parsed.InResponseTo != p.ExpectedInResponseTo {
		return nil, domain.ValidationErrorf("response correlates to %q, expected %q", parsed.InResponseTo, p.ExpectedInResponseTo)
	}
	if !parsed.Version.IsZero() && !e.cfg.Version.CompatibleWith(parsed.Version) {
		return nil, domain.ValidationErrorf("protocol version %s is not compatible with %s", parsed.Version, e.cfg.Version)
	}

	if parsed.Status.Failure {
		return domain.NewAuthenticationResponse(domain.AuthenticationResponse{
			ID:           parsed.ID,
			InResponseTo: parsed.InResponseTo,
			Issuer:       parsed.Issuer,
			Status:       parsed.Status,
			Attributes:   domain.NewAttributeSet(),
			Version:      parsed.Version,
		}, e.cfg.ValidationPolicy)
	}

	assertion := parsed.Assertion
	if parsed.EncryptedAssertion != nil {
		if e.decrypter == nil {
			return nil, domain.EncryptionError("response carries an encrypted assertion but no decryption credential is configured", nil)
		}
		decrypted, err := e.decrypter.DecryptAssertion(parsed.EncryptedAssertion)
		if err != nil {
			return nil, err
		}
		assertion = decrypted
	}
	if assertion == nil {
		return nil, domain.ValidationError("successful response carries no assertion")
	}

	data, err := codec.ExtractAssertionData(assertion, e.registry)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if now.Before(data.NotBefore.Add(-p.SkewBefore)) {
		return nil, domain.ValidationError("assertion is not yet valid")
	}
	if !now.Before(data.NotOnOrAfter.Add(p.SkewAfter)) {
		return nil, domain.ValidationError("assertion has expired")
	}

	if p.ExpectedInResponseTo != "" && data.InResponseTo != "" && data.InResponseTo != p.ExpectedInResponseTo {
		return nil, domain.ValidationErrorf("assertion correlates to %q, expected %q", data.InResponseTo, p.ExpectedInResponseTo)
	}
	if p.Audience != "" && !containsString(data.Audiences, p.Audience) {
		return nil, domain.ValidationErrorf("assertion audience does not include %q", p.Audience)
	}
	if p.ConsumerIP != "" && data.SubjectAddress != "" && data.SubjectAddress != p.ConsumerIP {
		return nil, domain.ValidationError("assertion subject address does not match the consumer address")
	}

	return domain.NewAuthenticationResponse(domain.AuthenticationResponse{
		ID:                  parsed.ID,
		InResponseTo:        parsed.InResponseTo,
		Issuer:              parsed.Issuer,
		Status:              parsed.Status,
		GrantedLoA:          data.GrantedLoA,
		Attributes:          data.Attributes,
		Subject:             data.Subject,
		SubjectNameIDFormat: data.NameIDFormat,
		IPAddress:           data.SubjectAddress,
		Version:             parsed.Version,
	}, e.cfg.ValidationPolicy)
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
