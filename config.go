package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/config"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// Re-export the configuration surface
type Config = config.Config
type Clock = ports.Clock
type RealClock = ports.RealClock

var LoadConfig = config.Load
