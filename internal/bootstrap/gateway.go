package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/storefront-gateway/config"
	httpx "github.com/target/storefront-gateway/internal/http"
	"github.com/target/storefront-gateway/internal/observability/statsd"
	"github.com/target/storefront-gateway/internal/ports"
	"github.com/target/storefront-gateway/internal/service"
)

var errMissingConfig = errors.New("config is required")

// GatewayDeps groups everything the request pipeline is assembled from.
type GatewayDeps struct {
	Config   *config.AppConfig
	Identity ports.IdentityProvider
	Cache    ports.CredentialCache
	Metrics  statsd.Sink
	Logger   *slog.Logger
}

// BuildGateway wires the origin guard, session service, credential resolver and
// forwarder into a gateway handler.
func BuildGateway(deps GatewayDeps) (*httpx.Gateway, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("build gateway: %w", errMissingConfig)
	}
	cfg := deps.Config
	gw := cfg.Gateway
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	guard, err := httpx.NewOriginGuard(httpx.OriginGuardConfig{
		AllowedOrigins:        gw.AllowedOrigins,
		TrustForwardedHeaders: gw.TrustForwardedHeaders,
		Logger:                logger,
		Metrics:               deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("origin guard: %w", err)
	}

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Secret:       []byte(gw.SessionSecret),
		CookieName:   gw.SessionCookieName,
		CookieMaxAge: gw.SessionCookieMaxAge,
		CookieDomain: gw.CookieDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}

	forwarder, err := httpx.NewForwarder(httpx.ForwarderConfig{
		UpstreamURL:           gw.UpstreamURL,
		ResponseHeaderTimeout: gw.ResponseHeaderTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("forwarder: %w", err)
	}

	credentials := service.NewCredentialResolver(service.CredentialResolverOptions{
		Provider:             deps.Identity,
		Cache:                deps.Cache,
		CacheMaxTTL:          cfg.Identity.CacheMaxTTL,
		PublicPrefixes:       gw.PublicPathPrefixes,
		ProviderCookiePrefix: cfg.Identity.CookiePrefix,
		Logger:               logger,
		Metrics:              deps.Metrics,
	})

	var diag *slog.Logger
	if gw.DebugProxy {
		diag = logger.With("component", "proxy")
	}

	return httpx.NewGateway(httpx.GatewayOptions{
		Guard:              guard,
		Sessions:           sessions,
		Credentials:        credentials,
		Forwarder:          forwarder,
		SharedSecretHeader: gw.SharedSecretHeader,
		SharedSecret:       gw.SharedSecret,
		SecureCookies:      !cfg.IsDev,
		VerboseErrors:      cfg.IsDev,
		Logger:             logger,
		Diagnostics:        diag,
		Metrics:            deps.Metrics,
	}), nil
}
