//go:build unit

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
engine:
  instanceName: connector-SE
  entityId: https://connector.example.eu/metadata
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.Engine.InstanceName != "connector-SE" {
		t.Errorf("instanceName = %q", cfg.Engine.InstanceName)
	}
	if cfg.Engine.ProtocolVersion != "1.2" {
		t.Errorf("protocolVersion default = %q", cfg.Engine.ProtocolVersion)
	}
	if cfg.Engine.AssertionValidity.Std() != 5*time.Minute {
		t.Errorf("assertionValidity default = %v", cfg.Engine.AssertionValidity)
	}
	if cfg.Engine.SkewBefore.Std() != time.Minute || cfg.Engine.SkewAfter.Std() != time.Minute {
		t.Errorf("skew defaults = %v, %v", cfg.Engine.SkewBefore, cfg.Engine.SkewAfter)
	}
	if cfg.Metadata.CacheTTL.Std() != time.Hour {
		t.Errorf("cacheTtl default = %v", cfg.Metadata.CacheTTL)
	}
	if cfg.Correlation.TTL.Std() != 10*time.Minute {
		t.Errorf("correlation ttl default = %v", cfg.Correlation.TTL)
	}
	// Default anti-replay TTL clears the validity-plus-skew floor.
	if cfg.Correlation.AntiReplayTTL <= cfg.Engine.AssertionValidity+cfg.Engine.SkewBefore+cfg.Engine.SkewAfter {
		t.Errorf("antiReplayTtl default = %v", cfg.Correlation.AntiReplayTTL)
	}
	if cfg.Correlation.PayloadFormat != "xml" {
		t.Errorf("payloadFormat default = %q", cfg.Correlation.PayloadFormat)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("cache backend default = %q", cfg.Cache.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level default = %q", cfg.Logging.Level)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
engine:
  instanceName: proxy-DE
  entityId: https://proxy.example.eu/metadata
  protocolVersion: "1.1"
  assertionValidity: 10m
  clockSkewBefore: 2m
  clockSkewAfter: 2m
metadata:
  whitelist:
    - https://connector.example.eu/metadata
  cacheTtl: 30m
correlation:
  tokenIssuer: specificProxyService
  tokenSecret: topsecret
  ttl: 5m
  antiReplayTtl: 30m
  payloadFormat: json
cache:
  backend: redis
  redis:
    addr: localhost:6379
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Engine.ProtocolVersion != "1.1" {
		t.Errorf("protocolVersion = %q", cfg.Engine.ProtocolVersion)
	}
	if cfg.Engine.AssertionValidity.Std() != 10*time.Minute {
		t.Errorf("assertionValidity = %v", cfg.Engine.AssertionValidity)
	}
	if len(cfg.Metadata.Whitelist) != 1 {
		t.Errorf("whitelist = %v", cfg.Metadata.Whitelist)
	}
	if cfg.Correlation.PayloadFormat != "json" {
		t.Errorf("payloadFormat = %q", cfg.Correlation.PayloadFormat)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
}

func TestLoad_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"missing instance name", `
engine:
  entityId: https://node.example.eu/metadata
`},
		{"missing entity id", `
engine:
  instanceName: node
`},
		{"bad protocol version", `
engine:
  instanceName: node
  entityId: https://node.example.eu/metadata
  protocolVersion: abc
`},
		{"anti-replay window too short", `
engine:
  instanceName: node
  entityId: https://node.example.eu/metadata
  assertionValidity: 10m
correlation:
  antiReplayTtl: 5m
`},
		{"bad cache backend", `
engine:
  instanceName: node
  entityId: https://node.example.eu/metadata
cache:
  backend: memcached
`},
		{"redis backend without addr", `
engine:
  instanceName: node
  entityId: https://node.example.eu/metadata
cache:
  backend: redis
`},
		{"bad payload format", `
engine:
  instanceName: node
  entityId: https://node.example.eu/metadata
correlation:
  payloadFormat: yaml
`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("want configuration error")
			}
			if domain.CodeOf(err) != domain.ErrCodeConfiguration {
				t.Errorf("error code = %q, want configuration_error", domain.CodeOf(err))
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("a missing file must be a configuration error")
	}
	if domain.CodeOf(err) != domain.ErrCodeConfiguration {
		t.Errorf("error code = %q", domain.CodeOf(err))
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EIDAS_CORRELATION_TOKEN_SECRET", "fromEnv")
	cfg, err := Load(writeConfig(t, minimalConfig+`
correlation:
  tokenSecret: fromFile
`))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Correlation.TokenSecret != "fromEnv" {
		t.Errorf("tokenSecret = %q, environment must override the file", cfg.Correlation.TokenSecret)
	}
}
