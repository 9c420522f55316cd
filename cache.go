package eidasnode

import (
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/adapters/driven/cache"
	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// Re-export the Cache port and its adapters
type Cache = ports.Cache
type MemoryCache = cache.MemoryCache
type RedisCache = cache.RedisCache

var (
	NewMemoryCache = cache.NewMemoryCache
	NewRedisCache  = cache.NewRedisCache
)
