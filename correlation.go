package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/correlation"
)

// Re-export the light-token correlation layer
type CorrelationService = correlation.Service
type CorrelationServiceConfig = correlation.ServiceConfig
type TokenCodec = correlation.TokenCodec
type PayloadCodec = correlation.PayloadCodec
type XMLPayloadCodec = correlation.XMLPayloadCodec
type JSONPayloadCodec = correlation.JSONPayloadCodec
type AntiReplayGuard = correlation.AntiReplayGuard

var (
	NewCorrelationService = correlation.NewService
	NewTokenCodec         = correlation.NewTokenCodec
	NewAntiReplayGuard    = correlation.NewAntiReplayGuard
)
