package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/engine"
)

// Re-export the protocol engine
type ProtocolEngine = engine.ProtocolEngine
type EngineConfig = engine.Config
type EngineRegistry = engine.Registry
type RequestMessage = engine.RequestMessage
type ResponseMessage = engine.ResponseMessage
type CorrelatedResponse = engine.CorrelatedResponse
type ValidationParams = engine.ValidationParams
type MetadataGenerator = engine.MetadataGenerator

var (
	NewProtocolEngine    = engine.NewProtocolEngine
	NewEngineRegistry    = engine.NewRegistry
	NewMetadataGenerator = engine.NewMetadataGenerator

	WithEngineClock           = engine.WithClock
	WithEngineLogger          = engine.WithLogger
	WithEngineMetricsRecorder = engine.WithMetricsRecorder
)
