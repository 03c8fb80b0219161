package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - gateway.go: Upstream, session and origin configuration
//   - identity.go: Identity provider configuration
//   - redis.go: Credential cache (Redis) configuration
//   - http.go: HTTP server configuration
//   - observability.go: Logging and metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (insecure cookies, verbose 502 bodies).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Gateway  GatewayConfig  `envPrefix:"GATEWAY_"`
	Identity IdentityConfig `envPrefix:"IDENTITY_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Gateway.Sanitize()
	c.Identity.Sanitize()
	c.Redis.Sanitize()
	c.Observability.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// Validate reports every configuration problem that would prevent the gateway from serving.
// Sanitize must run first.
func (c *AppConfig) Validate() error {
	return errors.Join(
		c.Gateway.Validate(),
		c.Identity.Validate(),
	)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
