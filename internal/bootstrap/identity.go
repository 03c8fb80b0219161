package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/target/storefront-gateway/config"
	"github.com/target/storefront-gateway/internal/adapters/devauth"
	"github.com/target/storefront-gateway/internal/adapters/oidc"
	redisadapter "github.com/target/storefront-gateway/internal/adapters/redis"
	"github.com/target/storefront-gateway/internal/adapters/remotesession"
	"github.com/target/storefront-gateway/internal/ports"
)

// IdentityDeps contains configuration for the identity provider.
type IdentityDeps struct {
	Identity config.IdentityConfig
	// CookieDomain and SecureCookies shape rotated provider cookies.
	CookieDomain  string
	SecureCookies bool
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// BuildIdentityProvider creates the provider selected by IDENTITY_MODE.
// It returns nil for mode none; the resolver then forwards only explicit bearer headers.
//
//nolint:ireturn // the identity mode picks the implementation at runtime.
func BuildIdentityProvider(ctx context.Context, deps IdentityDeps) (ports.IdentityProvider, error) {
	id := deps.Identity
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch id.Mode {
	case config.IdentityModeRemote:
		prov, err := remotesession.NewProvider(remotesession.Config{
			SessionURL:    id.Remote.SessionURL,
			Timeout:       id.Remote.Timeout,
			TokenPath:     id.Remote.TokenPath,
			ExpiresAtPath: id.Remote.ExpiresAtPath,
			HTTPClient:    deps.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("remote session provider: %w", err)
		}
		logger.InfoContext(ctx, "identity provider configured", "mode", id.Mode, "session_url", id.Remote.SessionURL)
		return prov, nil

	case config.IdentityModeOIDC:
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:           id.OIDC.ClientID,
			ClientSecret:       id.OIDC.ClientSecret,
			DiscoveryURL:       id.OIDC.DiscoveryURL,
			TokenURL:           id.OIDC.TokenURL,
			AccessTokenCookie:  id.OIDC.AccessTokenCookie,
			RefreshTokenCookie: id.OIDC.RefreshTokenCookie,
			CookieDomain:       deps.CookieDomain,
			SecureCookies:      deps.SecureCookies,
			HTTPClient:         deps.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		logger.InfoContext(ctx, "identity provider configured", "mode", id.Mode, "token_url", prov.TokenURL())
		return prov, nil

	case config.IdentityModeMock:
		prov, err := devauth.NewProvider(devauth.Config{Token: id.Dev.Token, TTL: id.Dev.TTL})
		if err != nil {
			return nil, err
		}
		logger.WarnContext(ctx, "mock identity provider enabled; do not use in production")
		return prov, nil

	default:
		logger.InfoContext(ctx, "identity provider disabled", "mode", id.Mode)
		return nil, nil
	}
}

// BuildCredentialCache wraps client in a credential cache, or returns nil when Redis is off.
//
//nolint:ireturn // nil means caching is disabled.
func BuildCredentialCache(client redis.UniversalClient, cfg config.RedisConfig) ports.CredentialCache {
	if client == nil {
		return nil
	}
	return redisadapter.NewCredentialCacheWithPrefix(client, cfg.KeyPrefix)
}
