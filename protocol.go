package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Re-export the protocol value objects from the domain package
type AuthenticationRequest = domain.AuthenticationRequest
type AuthenticationResponse = domain.AuthenticationResponse
type ResponseValidationPolicy = domain.ResponseValidationPolicy
type LightRequest = domain.LightRequest
type LightResponse = domain.LightResponse
type BinaryLightToken = domain.BinaryLightToken
type Status = domain.Status
type StatusCode = domain.StatusCode
type SubStatusCode = domain.SubStatusCode
type LevelOfAssurance = domain.LevelOfAssurance
type ComparisonMode = domain.ComparisonMode
type ProtocolVersion = domain.ProtocolVersion
type SPType = domain.SPType
type AttributeDefinition = domain.AttributeDefinition
type AttributeRegistry = domain.AttributeRegistry
type AttributeSet = domain.AttributeSet
type AttributeEntry = domain.AttributeEntry

// Re-export the notified levels of assurance
const (
	LoALow         = domain.LoALow
	LoASubstantial = domain.LoASubstantial
	LoAHigh        = domain.LoAHigh
)

// Re-export the comparison modes
const (
	ComparisonMinimum = domain.ComparisonMinimum
	ComparisonExact   = domain.ComparisonExact
	ComparisonMaximum = domain.ComparisonMaximum
	ComparisonBetter  = domain.ComparisonBetter
)

// Re-export status codes
const (
	StatusSuccess         = domain.StatusSuccess
	StatusRequester       = domain.StatusRequester
	StatusResponder       = domain.StatusResponder
	StatusVersionMismatch = domain.StatusVersionMismatch
)

// Re-export constructors and helpers
var (
	NewAuthenticationRequest  = domain.NewAuthenticationRequest
	NewAuthenticationResponse = domain.NewAuthenticationResponse
	NewAttributeRegistry      = domain.NewAttributeRegistry
	StandardRegistry          = domain.StandardRegistry
	NewAttributeSet           = domain.NewAttributeSet
	SuccessStatus             = domain.SuccessStatus
	FailureStatus             = domain.FailureStatus
	IsLoASatisfied            = domain.IsLoASatisfied
	ValidateGrantedLoA        = domain.ValidateGrantedLoA
	ParseComparisonMode       = domain.ParseComparisonMode
	ParseProtocolVersion      = domain.ParseProtocolVersion
	ParseStatusCode           = domain.ParseStatusCode
	ParseSubStatusCode        = domain.ParseSubStatusCode
)
