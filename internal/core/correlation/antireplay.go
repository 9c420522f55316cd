package correlation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// AntiReplayGuard rejects message ids seen before within the replay
// window. The first check for a (country, message id) pair succeeds and
// records the pair; every later check within the TTL fails. The TTL must
// outlive the longest message validity window plus clock skew, which the
// configuration layer enforces at startup.
type AntiReplayGuard struct {
	cache   ports.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics ports.MetricsRecorder
}

// NewAntiReplayGuard creates an anti-replay guard over the given cache.
func NewAntiReplayGuard(cache ports.Cache, ttl time.Duration, logger *zap.Logger, metrics ports.MetricsRecorder) (*AntiReplayGuard, error) {
	if cache == nil {
		return nil, domain.ConfigurationError("anti-replay cache is missing")
	}
	if ttl <= 0 {
		return nil, domain.ConfigurationError("anti-replay ttl must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AntiReplayGuard{cache: cache, ttl: ttl, logger: logger, metrics: metrics}, nil
}

// CheckNotPresent records the (country, message id) pair and returns nil
// on first sight, or a replay error if the pair was already recorded. The
// record is atomic: two concurrent checks on the same pair cannot both
// pass.
func (g *AntiReplayGuard) CheckNotPresent(ctx context.Context, countryCode, messageID string) error {
	if messageID == "" {
		return domain.ValidationError("message id is empty")
	}
	stored, err := g.cache.PutIfAbsent(ctx, replayKey(countryCode, messageID), []byte{1}, g.ttl)
	if err != nil {
		return err
	}
	if !stored {
		// Security event: a replayed message id is an attack indicator,
		// not an operational hiccup.
		g.logger.Warn("replayed message id rejected",
			zap.String("country", countryCode),
			zap.String("message_id", messageID),
		)
		if g.metrics != nil {
			g.metrics.RecordReplayDetected(countryCode)
		}
		return domain.ReplayError(messageID, countryCode)
	}
	return nil
}

func replayKey(countryCode, messageID string) string {
	return "antireplay/" + countryCode + "/" + CacheKey(messageID)
}
