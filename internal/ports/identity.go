package ports

// Package ports defines interfaces (hexagonal ports) for the gateway's external collaborators.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNoSession is returned by an IdentityProvider when the cookie set carries no usable session.
var ErrNoSession = errors.New("no identity session")

// ErrCacheMiss is returned by a CredentialCache when no entry exists for a key.
var ErrCacheMiss = errors.New("credential cache miss")

// SessionRead is the result of reading the caller's identity-provider session.
type SessionRead struct {
	AccessToken string
	// ExpiresAt is the access token expiry; zero when the provider did not say.
	ExpiresAt time.Time
	// SetCookies are rotated provider cookies the caller must receive.
	SetCookies []*http.Cookie
}

// IdentityProvider reads the current session for a cookie jar, refreshing it if the
// provider's rotation rules require. Implementations must be safe for concurrent use.
type IdentityProvider interface {
	ReadSession(ctx context.Context, cookies []*http.Cookie) (SessionRead, error)
}

// CredentialCache stores resolved bearer tokens keyed by a digest of the provider cookies.
type CredentialCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}
