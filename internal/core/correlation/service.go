package correlation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// Service hands light requests and responses between the generic node and
// a specific module. A put stores the serialized payload under an
// irreversible digest of a fresh token id and returns the encoded token;
// the matching get-and-remove redeems it exactly once. A second
// redemption, or one after TTL expiry, fails with a communication error.
type Service struct {
	cache    ports.Cache
	codec    PayloadCodec
	tokens   *TokenCodec
	registry *domain.AttributeRegistry
	ttl      time.Duration
	clock    ports.Clock
	logger   *zap.Logger
	metrics  ports.MetricsRecorder
}

// ServiceConfig carries the dependencies and settings for a correlation
// service. Cache, Codec, Tokens, and Registry are required; TTL must be
// positive.
type ServiceConfig struct {
	Cache    ports.Cache
	Codec    PayloadCodec
	Tokens   *TokenCodec
	Registry *domain.AttributeRegistry
	TTL      time.Duration
	Clock    ports.Clock
	Logger   *zap.Logger
	Metrics  ports.MetricsRecorder
}

// NewService validates the configuration and creates a correlation
// service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Cache == nil {
		return nil, domain.ConfigurationError("correlation cache is missing")
	}
	if cfg.Codec == nil {
		return nil, domain.ConfigurationError("correlation payload codec is missing")
	}
	if cfg.Tokens == nil {
		return nil, domain.ConfigurationError("correlation token codec is missing")
	}
	if cfg.Registry == nil {
		return nil, domain.ConfigurationError("correlation attribute registry is missing")
	}
	if cfg.TTL <= 0 {
		return nil, domain.ConfigurationError("correlation ttl must be positive")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:    cfg.Cache,
		codec:    cfg.Codec,
		tokens:   cfg.Tokens,
		registry: cfg.Registry,
		ttl:      cfg.TTL,
		clock:    clock,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// PutRequest stores a light request and returns the encoded token that
// redeems it.
func (s *Service) PutRequest(ctx context.Context, req *domain.LightRequest) (string, error) {
	payload, err := s.codec.MarshalRequest(req)
	if err != nil {
		return "", err
	}
	return s.put(ctx, "request", payload)
}

// GetAndRemoveRequest redeems a token for its stored light request. The
// redemption is atomic; a concurrent duplicate call observes absence.
func (s *Service) GetAndRemoveRequest(ctx context.Context, encodedToken string) (*domain.LightRequest, error) {
	payload, err := s.redeem(ctx, "request", encodedToken)
	if err != nil {
		return nil, err
	}
	return s.codec.UnmarshalRequest(payload, s.registry)
}

// PutResponse stores a light response and returns the encoded token that
// redeems it.
func (s *Service) PutResponse(ctx context.Context, resp *domain.LightResponse) (string, error) {
	payload, err := s.codec.MarshalResponse(resp)
	if err != nil {
		return "", err
	}
	return s.put(ctx, "response", payload)
}

// GetAndRemoveResponse redeems a token for its stored light response.
func (s *Service) GetAndRemoveResponse(ctx context.Context, encodedToken string) (*domain.LightResponse, error) {
	payload, err := s.redeem(ctx, "response", encodedToken)
	if err != nil {
		return nil, err
	}
	return s.codec.UnmarshalResponse(payload, s.registry)
}

func (s *Service) put(ctx context.Context, kind string, payload []byte) (string, error) {
	token := domain.BinaryLightToken{
		ID:        uuid.NewString(),
		Issuer:    s.tokens.issuer,
		CreatedOn: s.clock.Now(),
	}
	encoded, err := s.tokens.Encode(token)
	if err != nil {
		return "", err
	}
	if err := s.cache.Put(ctx, CacheKey(token.ID), payload, s.ttl); err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RecordCorrelation("put_"+kind, true)
	}
	s.logger.Debug("light payload stored",
		zap.String("kind", kind),
		zap.Int("size", len(payload)),
	)
	return encoded, nil
}

func (s *Service) redeem(ctx context.Context, kind string, encodedToken string) ([]byte, error) {
	token, err := s.tokens.Decode(encodedToken)
	if err != nil {
		return nil, err
	}
	payload, found, err := s.cache.GetAndRemove(ctx, CacheKey(token.ID))
	if err != nil {
		return nil, err
	}
	if !found {
		if s.metrics != nil {
			s.metrics.RecordCorrelation("get_"+kind, false)
		}
		return nil, domain.CommunicationError("token not found", nil)
	}
	if s.metrics != nil {
		s.metrics.RecordCorrelation("get_"+kind, true)
	}
	return payload, nil
}
