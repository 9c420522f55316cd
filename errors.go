package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Re-export error types from the domain package
type ErrorCode = domain.ErrorCode
type ProtocolError = domain.ProtocolError

// Re-export error code constants
const (
	ErrCodeValidation      = domain.ErrCodeValidation
	ErrCodeConfiguration   = domain.ErrCodeConfiguration
	ErrCodeMetadata        = domain.ErrCodeMetadata
	ErrCodeUntrustedIssuer = domain.ErrCodeUntrustedIssuer
	ErrCodeEncryption      = domain.ErrCodeEncryption
	ErrCodeSignature       = domain.ErrCodeSignature
	ErrCodeCommunication   = domain.ErrCodeCommunication
	ErrCodeReplayDetected  = domain.ErrCodeReplayDetected
)

// Re-export error constructors
var (
	ValidationError      = domain.ValidationError
	ValidationErrorf     = domain.ValidationErrorf
	ConfigurationError   = domain.ConfigurationError
	MetadataError        = domain.MetadataError
	UntrustedIssuerError = domain.UntrustedIssuerError
	EncryptionError      = domain.EncryptionError
	SignatureError       = domain.SignatureError
	CommunicationError   = domain.CommunicationError
	ReplayError          = domain.ReplayError
	CodeOf               = domain.CodeOf
)
