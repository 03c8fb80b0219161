package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultSessionCookieMaxAge   = 30 * 24 * time.Hour
	defaultSharedSecretHeader    = "X-Gateway-Secret"
	defaultResponseHeaderTimeout = 30 * time.Second
)

// GatewayConfig holds the read-only settings shared by every stage of the request pipeline.
type GatewayConfig struct {
	// UpstreamURL is the base URL of the upstream API service, e.g. "http://api.internal:9000".
	UpstreamURL string `env:"UPSTREAM_URL,required,notEmpty"`

	// SessionSecret signs anonymous session tokens. The gateway refuses to start without it.
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// SharedSecret, when set, is attached to every upstream call under SharedSecretHeader.
	SharedSecret       string `env:"SHARED_SECRET"`
	SharedSecretHeader string `env:"SHARED_SECRET_HEADER" envDefault:"X-Gateway-Secret"`

	// AllowedOrigins are extra origins trusted for state-changing requests, in addition
	// to the origin the request was received on.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// PublicPathPrefixes skip credential resolution entirely.
	PublicPathPrefixes []string `env:"PUBLIC_PATH_PREFIXES" envDefault:"/api/v1/products,/api/v1/categories,/api/v1/health" envSeparator:","`

	SessionCookieName   string        `env:"SESSION_COOKIE_NAME"    envDefault:"sf_session"`
	SessionCookieMaxAge time.Duration `env:"SESSION_COOKIE_MAX_AGE" envDefault:"720h"`
	CookieDomain        string        `env:"COOKIE_DOMAIN"`

	// ResponseHeaderTimeout bounds the wait for upstream response headers. Bodies may stream indefinitely.
	ResponseHeaderTimeout time.Duration `env:"UPSTREAM_RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`

	// DebugProxy routes per-request diagnostic logging to the main logger.
	DebugProxy bool `env:"DEBUG_PROXY" envDefault:"false"`

	// TrustForwardedHeaders lets X-Forwarded-Proto/Host describe the serving origin.
	// The default assumes a TLS-terminating edge that overwrites both headers.
	// Set false when callers reach the gateway directly, or they can forge the origin.
	TrustForwardedHeaders bool `env:"TRUST_FORWARDED_HEADERS" envDefault:"true"`
}

// Sanitize trims list entries and restores defaults for zeroed values.
func (g *GatewayConfig) Sanitize() {
	g.UpstreamURL = strings.TrimRight(strings.TrimSpace(g.UpstreamURL), "/")
	g.AllowedOrigins = compact(g.AllowedOrigins)
	g.PublicPathPrefixes = compact(g.PublicPathPrefixes)
	g.SharedSecretHeader = strings.TrimSpace(g.SharedSecretHeader)
	if g.SharedSecretHeader == "" {
		g.SharedSecretHeader = defaultSharedSecretHeader
	}
	if g.SessionCookieName = strings.TrimSpace(g.SessionCookieName); g.SessionCookieName == "" {
		g.SessionCookieName = "sf_session"
	}
	if g.SessionCookieMaxAge <= 0 {
		g.SessionCookieMaxAge = defaultSessionCookieMaxAge
	}
	if g.ResponseHeaderTimeout <= 0 {
		g.ResponseHeaderTimeout = defaultResponseHeaderTimeout
	}
}

// Validate checks the upstream URL and operator-declared origins.
func (g *GatewayConfig) Validate() error {
	var errs []error
	if g.SessionSecret == "" {
		errs = append(errs, errors.New("GATEWAY_SESSION_SECRET is required"))
	}
	u, err := url.Parse(g.UpstreamURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("parse GATEWAY_UPSTREAM_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		errs = append(errs, fmt.Errorf("GATEWAY_UPSTREAM_URL must be an absolute http(s) URL, got %q", g.UpstreamURL))
	}
	for _, o := range g.AllowedOrigins {
		if _, err := url.Parse(o); err != nil || !strings.Contains(o, "://") {
			errs = append(errs, fmt.Errorf("invalid GATEWAY_ALLOWED_ORIGINS entry %q", o))
		}
	}
	return errors.Join(errs...)
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
