package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/adapters/driven/metadata"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Re-export the metadata model from the domain package
type EidasMetadataParameters = domain.EidasMetadataParameters
type RoleDescriptor = domain.RoleDescriptor
type HighLevelMetadataParams = domain.HighLevelMetadataParams
type ContactInfo = domain.ContactInfo
type RoleType = domain.RoleType

const (
	SPRole  = domain.SPRole
	IDPRole = domain.IDPRole
)

// Re-export the metadata resolver adapter
type MetadataResolver = metadata.Resolver
type MetadataResolverOption = metadata.ResolverOption

var (
	NewHighLevelMetadataParams = domain.NewHighLevelMetadataParams
	NewMetadataResolver        = metadata.NewResolver
	ParseEntityDescriptor      = metadata.ParseEntityDescriptor

	WithMetadataWhitelist         = metadata.WithWhitelist
	WithMetadataCacheTTL          = metadata.WithCacheTTL
	WithMetadataFetchTimeout      = metadata.WithFetchTimeout
	WithMetadataSignatureVerifier = metadata.WithSignatureVerifier
	WithMetadataLogger            = metadata.WithLogger
	WithMetadataMetricsRecorder   = metadata.WithMetricsRecorder
	WithMetadataClock             = metadata.WithClock
)
