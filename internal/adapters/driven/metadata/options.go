package metadata

import (
	"time"

	"go.uber.org/zap"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// ResolverOption is a functional option for configuring the resolver.
type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	whitelist       []string
	cacheTTL        time.Duration
	fetchTimeout    time.Duration
	verifier        ports.SignatureVerifier
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
	clock           ports.Clock
}

// WithWhitelist returns an option that restricts resolvable metadata URLs
// to exact, case-sensitive members of the given list. An empty list
// disables whitelisting.
func WithWhitelist(urls []string) ResolverOption {
	return func(o *resolverOptions) {
		o.whitelist = urls
	}
}

// WithCacheTTL returns an option that bounds how long fetched metadata is
// served from cache. The effective expiry is the earlier of the TTL and
// the document's own validUntil.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(o *resolverOptions) {
		o.cacheTTL = ttl
	}
}

// WithFetchTimeout returns an option that bounds a single network fetch.
func WithFetchTimeout(timeout time.Duration) ResolverOption {
	return func(o *resolverOptions) {
		o.fetchTimeout = timeout
	}
}

// WithSignatureVerifier returns an option that enables signature
// verification. Metadata is verified against the trust anchors before
// parsing; verification failure is fatal for that URL.
func WithSignatureVerifier(verifier ports.SignatureVerifier) ResolverOption {
	return func(o *resolverOptions) {
		o.verifier = verifier
	}
}

// WithLogger returns an option that sets the logger for fetch events.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(o *resolverOptions) {
		o.logger = logger
	}
}

// WithMetricsRecorder returns an option that records fetch attempts.
func WithMetricsRecorder(recorder ports.MetricsRecorder) ResolverOption {
	return func(o *resolverOptions) {
		o.metricsRecorder = recorder
	}
}

// WithClock returns an option that sets a custom clock for expiry
// decisions. Used for testing cache expiration without time.Sleep.
func WithClock(clock ports.Clock) ResolverOption {
	return func(o *resolverOptions) {
		o.clock = clock
	}
}
