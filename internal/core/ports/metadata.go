package ports

import (
	"context"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// MetadataResolver is the port interface for metadata-based trust
// resolution. Implementations fetch, signature-verify, and cache remote
// metadata documents.
type MetadataResolver interface {
	// Resolve returns the verified metadata parameters for a metadata URL.
	// The caller's context deadline bounds any network fetch.
	Resolve(ctx context.Context, url string) (*domain.EidasMetadataParameters, error)
}
