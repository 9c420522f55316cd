package metadata

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// maxMetadataBytes bounds how much of a remote document is read.
const maxMetadataBytes = 4 << 20

// cachedEntry is one cached metadata document. Entries are superseded,
// never mutated, on re-fetch.
type cachedEntry struct {
	params    *domain.EidasMetadataParameters
	expiresAt time.Time
}

// Resolver fetches, verifies, and caches remote metadata documents.
//
// Per URL the lifecycle is NotFetched -> Fetching -> Cached(validUntil) ->
// Expired -> Fetching. An expired read triggers a synchronous refresh
// before the caller proceeds; there is no stale-read policy. A per-URL
// fetch guard keeps concurrent refreshes of the same URL from both
// performing the network fetch.
type Resolver struct {
	httpClient      *http.Client
	whitelist       map[string]bool
	cacheTTL        time.Duration
	verifier        ports.SignatureVerifier
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
	clock           ports.Clock

	mu      sync.RWMutex
	cache   map[string]cachedEntry
	fetchMu sync.Mutex
	fetches map[string]*sync.Mutex
}

// NewResolver creates a metadata resolver. Fetches use TLS 1.2 or newer
// and are bounded by the configured timeout; a fetch never hangs past it.
func NewResolver(opts ...ResolverOption) *Resolver {
	options := &resolverOptions{
		cacheTTL:     time.Hour,
		fetchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}
	clock := options.clock
	if clock == nil {
		clock = ports.RealClock{}
	}

	var whitelist map[string]bool
	if len(options.whitelist) > 0 {
		whitelist = make(map[string]bool, len(options.whitelist))
		for _, u := range options.whitelist {
			whitelist[u] = true
		}
	}

	return &Resolver{
		httpClient: &http.Client{
			Timeout: options.fetchTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		whitelist:       whitelist,
		cacheTTL:        options.cacheTTL,
		verifier:        options.verifier,
		logger:          options.logger,
		metricsRecorder: options.metricsRecorder,
		clock:           clock,
		cache:           make(map[string]cachedEntry),
		fetches:         make(map[string]*sync.Mutex),
	}
}

// Resolve returns the verified metadata parameters for a metadata URL,
// serving from cache when present and unexpired. The caller's context
// deadline bounds the network fetch.
func (r *Resolver) Resolve(ctx context.Context, metadataURL string) (*domain.EidasMetadataParameters, error) {
	if err := r.checkURL(metadataURL); err != nil {
		return nil, err
	}

	if params, ok := r.cached(metadataURL); ok {
		return params, nil
	}

	// One in-flight fetch per URL; a concurrent caller waits and then
	// re-reads the cache.
	lock := r.fetchLock(metadataURL)
	lock.Lock()
	defer lock.Unlock()

	if params, ok := r.cached(metadataURL); ok {
		return params, nil
	}

	params, err := r.fetch(ctx, metadataURL)
	if r.metricsRecorder != nil {
		r.metricsRecorder.RecordMetadataRefresh(metadataURL, err == nil)
	}
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("metadata fetch failed",
				zap.String("url", metadataURL),
				zap.Error(err),
			)
		}
		return nil, err
	}

	expiresAt := r.clock.Now().Add(r.cacheTTL)
	if !params.ValidUntil.IsZero() && params.ValidUntil.Before(expiresAt) {
		expiresAt = params.ValidUntil
	}
	r.mu.Lock()
	r.cache[metadataURL] = cachedEntry{params: params, expiresAt: expiresAt}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("metadata cached",
			zap.String("url", metadataURL),
			zap.String("entity_id", params.EntityID),
			zap.Time("expires_at", expiresAt),
		)
	}
	return params, nil
}

// checkURL syntax-validates the URL and enforces the whitelist with exact,
// case-sensitive matching. No wildcard matching.
func (r *Resolver) checkURL(metadataURL string) error {
	parsed, err := url.Parse(metadataURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return domain.MetadataError(fmt.Sprintf("invalid metadata URL %q", metadataURL), err)
	}
	if r.whitelist != nil && !r.whitelist[metadataURL] {
		return domain.MetadataError(fmt.Sprintf("metadata URL %q is not in whitelist", metadataURL), nil)
	}
	return nil
}

// cached returns the unexpired cached parameters for a URL.
func (r *Resolver) cached(metadataURL string) (*domain.EidasMetadataParameters, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[metadataURL]
	if !ok {
		return nil, false
	}
	if !r.clock.Now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.params, true
}

// fetchLock returns the per-URL fetch mutex, creating it on first use.
func (r *Resolver) fetchLock(metadataURL string) *sync.Mutex {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()
	lock, ok := r.fetches[metadataURL]
	if !ok {
		lock = &sync.Mutex{}
		r.fetches[metadataURL] = lock
	}
	return lock
}

// fetch retrieves and verifies one metadata document.
func (r *Resolver) fetch(ctx context.Context, metadataURL string) (*domain.EidasMetadataParameters, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, domain.MetadataError("create metadata request", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, domain.MetadataError("fetch metadata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.MetadataError(fmt.Sprintf("fetch metadata: HTTP %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, domain.MetadataError("read metadata response", err)
	}

	// Signature verification failure is fatal for this URL; there is no
	// fallback to unsigned metadata.
	if r.verifier != nil {
		data, err = r.verifier.Verify(data)
		if err != nil {
			return nil, domain.MetadataError("verify metadata signature", err)
		}
	}

	params, err := ParseEntityDescriptor(data)
	if err != nil {
		return nil, err
	}

	if !params.ValidUntil.IsZero() && !r.clock.Now().Before(params.ValidUntil) {
		return nil, domain.MetadataError("metadata document has expired", nil)
	}

	return params, nil
}

var _ ports.MetadataResolver = (*Resolver)(nil)
