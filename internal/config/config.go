// Package config loads the node configuration from a YAML file with
// environment-variable overrides. Configuration is read once at startup
// and treated as an immutable input thereafter.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Duration is a time.Duration that unmarshals from strings like "10m" in
// both YAML and environment variables.
type Duration time.Duration

// Std returns the standard-library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String returns the duration in time.Duration notation.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML decodes a duration from a YAML string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(raw))
}

// UnmarshalText decodes a duration from its textual form.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the root configuration structure.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Metadata    MetadataConfig    `yaml:"metadata"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"observability"`
}

// EngineConfig holds the per-instance protocol engine settings.
type EngineConfig struct {
	InstanceName       string   `yaml:"instanceName"`
	EntityID           string   `yaml:"entityId"`
	ProtocolVersion    string   `yaml:"protocolVersion"`
	SignatureAlgorithm string   `yaml:"signatureAlgorithm"`
	SignAssertions     bool     `yaml:"signAssertions"`
	AssertionValidity  Duration `yaml:"assertionValidity"`
	SkewBefore         Duration `yaml:"clockSkewBefore"`
	SkewAfter          Duration `yaml:"clockSkewAfter"`

	// AllowedNonNotifiedLoAs is the exact-match allow-list for
	// non-notified levels of assurance.
	AllowedNonNotifiedLoAs []string `yaml:"allowedNonNotifiedLoas"`

	Keys KeyConfig `yaml:"keys"`
}

// KeyConfig locates the PEM credential files.
type KeyConfig struct {
	SigningKeyFile     string `yaml:"signingKeyFile"`
	SigningCertFile    string `yaml:"signingCertFile"`
	DecryptionKeyFile  string `yaml:"decryptionKeyFile"`
	DecryptionCertFile string `yaml:"decryptionCertFile"`
	TrustAnchorsFile   string `yaml:"trustAnchorsFile"`
}

// MetadataConfig holds the trust-resolver settings.
type MetadataConfig struct {
	Whitelist    []string `yaml:"whitelist"`
	CacheTTL     Duration `yaml:"cacheTtl"`
	FetchTimeout Duration `yaml:"fetchTimeout"`
	ValidityDays int      `yaml:"publishedValidityDays"`
}

// CorrelationConfig holds the light-token layer settings.
type CorrelationConfig struct {
	TokenIssuer    string   `yaml:"tokenIssuer"`
	TokenSecret    string   `yaml:"tokenSecret" envconfig:"CORRELATION_TOKEN_SECRET"`
	TTL            Duration `yaml:"ttl"`
	AntiReplayTTL  Duration `yaml:"antiReplayTtl"`
	MaxPayloadSize int      `yaml:"maxPayloadSize"`
	PayloadFormat  string   `yaml:"payloadFormat"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend    string `yaml:"backend"`
	MaxEntries int    `yaml:"maxEntries"`
	Redis      struct {
		Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
		Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// LoggingConfig holds the zap logger settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig enables the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML configuration file, applies environment-variable
// overrides, fills defaults, and validates. Validation failures are
// configuration errors, fatal at startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigurationError("read configuration file: " + err.Error())
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, domain.ConfigurationError("parse configuration file: " + err.Error())
	}
	if err := envconfig.Process("eidas", &cfg); err != nil {
		return nil, domain.ConfigurationError("apply environment overrides: " + err.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.ProtocolVersion == "" {
		c.Engine.ProtocolVersion = "1.2"
	}
	if c.Engine.AssertionValidity == 0 {
		c.Engine.AssertionValidity = Duration(5 * time.Minute)
	}
	if c.Engine.SkewBefore == 0 {
		c.Engine.SkewBefore = Duration(time.Minute)
	}
	if c.Engine.SkewAfter == 0 {
		c.Engine.SkewAfter = Duration(time.Minute)
	}
	if c.Metadata.CacheTTL == 0 {
		c.Metadata.CacheTTL = Duration(time.Hour)
	}
	if c.Metadata.FetchTimeout == 0 {
		c.Metadata.FetchTimeout = Duration(30 * time.Second)
	}
	if c.Metadata.ValidityDays == 0 {
		c.Metadata.ValidityDays = 7
	}
	if c.Correlation.TTL == 0 {
		c.Correlation.TTL = Duration(10 * time.Minute)
	}
	if c.Correlation.AntiReplayTTL == 0 {
		c.Correlation.AntiReplayTTL = c.Engine.AssertionValidity + c.Engine.SkewBefore + c.Engine.SkewAfter + Duration(10*time.Minute)
	}
	if c.Correlation.PayloadFormat == "" {
		c.Correlation.PayloadFormat = "xml"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks cross-field startup invariants.
func (c *Config) Validate() error {
	if c.Engine.InstanceName == "" {
		return domain.ConfigurationError("engine.instanceName is required")
	}
	if c.Engine.EntityID == "" {
		return domain.ConfigurationError("engine.entityId is required")
	}
	if _, err := domain.ParseProtocolVersion(c.Engine.ProtocolVersion); err != nil {
		return domain.ConfigurationError("engine.protocolVersion is invalid")
	}

	// The anti-replay window must outlive the longest message lifetime, or
	// a message could be replayed after the cache forgot it while its own
	// validity still held.
	maxLifetime := c.Engine.AssertionValidity + c.Engine.SkewBefore + c.Engine.SkewAfter
	if c.Correlation.AntiReplayTTL <= maxLifetime {
		return domain.ConfigurationError(fmt.Sprintf(
			"correlation.antiReplayTtl (%s) must exceed assertion validity plus clock skew (%s)",
			c.Correlation.AntiReplayTTL, maxLifetime))
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return domain.ConfigurationError("cache.redis.addr is required for the redis backend")
		}
	default:
		return domain.ConfigurationError("cache.backend must be memory or redis")
	}

	switch c.Correlation.PayloadFormat {
	case "xml", "json":
	default:
		return domain.ConfigurationError("correlation.payloadFormat must be xml or json")
	}
	return nil
}
