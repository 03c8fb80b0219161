package devauth

// Package devauth provides a config-driven IdentityProvider for local development.

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/target/storefront-gateway/internal/ports"
)

// Config controls the dev identity provider behavior.
type Config struct {
	Token string
	// TTL advertises an expiry so the credential cache holds the token.
	// Zero leaves the expiry unknown.
	TTL time.Duration
	Now func() time.Time
}

// Provider implements ports.IdentityProvider for local development.
// Any provider cookie is accepted and answered with the configured token.
type Provider struct {
	token string
	ttl   time.Duration
	now   func() time.Time
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Token == "" {
		return nil, errors.New("dev auth: Token is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Provider{token: cfg.Token, ttl: cfg.TTL, now: now}, nil
}

func (p *Provider) ReadSession(_ context.Context, cookies []*http.Cookie) (ports.SessionRead, error) {
	if len(cookies) == 0 {
		return ports.SessionRead{}, ports.ErrNoSession
	}
	read := ports.SessionRead{AccessToken: p.token}
	if p.ttl > 0 {
		read.ExpiresAt = p.now().Add(p.ttl)
	}
	return read, nil
}
