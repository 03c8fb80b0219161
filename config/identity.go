package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// IdentityMode selects how the gateway resolves bearer credentials from provider cookies.
type IdentityMode string

const (
	// IdentityModeNone disables credential resolution; only explicit bearer headers are forwarded.
	IdentityModeNone IdentityMode = "none"
	// IdentityModeRemote reads the session from the provider's session endpoint.
	IdentityModeRemote IdentityMode = "remote"
	// IdentityModeOIDC reads token cookies and refreshes them against the provider's token endpoint.
	IdentityModeOIDC IdentityMode = "oidc"
	// IdentityModeMock returns a fixed development credential (for development only).
	IdentityModeMock IdentityMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "none", "remote", "oidc", "mock":
		*m = IdentityMode(v)
		return nil
	case "":
		*m = IdentityModeNone
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: none, remote, oidc, mock)", v)
	}
}

// RemoteSessionConfig configures IDENTITY_MODE=remote.
type RemoteSessionConfig struct {
	SessionURL string        `env:"SESSION_URL"`
	Timeout    time.Duration `env:"TIMEOUT"      envDefault:"5s"`
	// TokenPath and ExpiresAtPath are JMESPath expressions evaluated against the session JSON.
	TokenPath     string `env:"TOKEN_PATH"      envDefault:"access_token"`
	ExpiresAtPath string `env:"EXPIRES_AT_PATH" envDefault:"expires_at"`
}

// OIDCConfig configures IDENTITY_MODE=oidc.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// TokenURL overrides the discovered token endpoint.
	TokenURL           string `env:"TOKEN_URL"`
	AccessTokenCookie  string `env:"ACCESS_TOKEN_COOKIE"  envDefault:"sb-access-token"`
	RefreshTokenCookie string `env:"REFRESH_TOKEN_COOKIE" envDefault:"sb-refresh-token"`
}

// DevIdentityConfig controls IDENTITY_MODE=mock.
type DevIdentityConfig struct {
	Token string `env:"TOKEN" envDefault:"dev-access-token"`

	// TTL gives the dev credential an expiry so it can be cached. Zero leaves it unknown.
	TTL time.Duration `env:"TTL" envDefault:"0s"`
}

// IdentityConfig groups all identity-provider configuration.
type IdentityConfig struct {
	Mode IdentityMode `env:"MODE" envDefault:"none"`

	// CookiePrefix selects which inbound cookies belong to the identity provider.
	CookiePrefix string `env:"COOKIE_PREFIX" envDefault:"sb-"`

	// CacheMaxTTL caps how long a resolved credential stays in the credential cache.
	CacheMaxTTL time.Duration `env:"CACHE_MAX_TTL" envDefault:"5m"`

	Remote RemoteSessionConfig `envPrefix:"REMOTE_"`
	OIDC   OIDCConfig          `envPrefix:"OIDC_"`
	Dev    DevIdentityConfig   `envPrefix:"DEV_"`
}

// Sanitize trims values and restores defaults.
func (c *IdentityConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = IdentityModeNone
	}
	c.CookiePrefix = strings.TrimSpace(c.CookiePrefix)
	c.Remote.SessionURL = strings.TrimSpace(c.Remote.SessionURL)
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 5 * time.Second
	}
	c.OIDC.DiscoveryURL = strings.TrimSpace(c.OIDC.DiscoveryURL)
	c.OIDC.TokenURL = strings.TrimSpace(c.OIDC.TokenURL)
	if c.CacheMaxTTL < 0 {
		c.CacheMaxTTL = 0
	}
	if c.Dev.TTL < 0 {
		c.Dev.TTL = 0
	}
}

// Validate checks that the selected mode has what it needs.
func (c *IdentityConfig) Validate() error {
	switch c.Mode {
	case IdentityModeRemote:
		if c.Remote.SessionURL == "" {
			return errors.New("IDENTITY_REMOTE_SESSION_URL is required when IDENTITY_MODE=remote")
		}
	case IdentityModeOIDC:
		if c.OIDC.ClientID == "" {
			return errors.New("IDENTITY_OIDC_CLIENT_ID is required when IDENTITY_MODE=oidc")
		}
		if c.OIDC.DiscoveryURL == "" && c.OIDC.TokenURL == "" {
			return errors.New("IDENTITY_OIDC_DISCOVERY_URL or IDENTITY_OIDC_TOKEN_URL is required when IDENTITY_MODE=oidc")
		}
	}
	return nil
}
