package oidc

// Package oidc reads provider token cookies and refreshes expired access tokens
// against the provider's OAuth2 token endpoint.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/target/storefront-gateway/internal/ports"
	"golang.org/x/oauth2"
)

const (
	defaultAccessCookie  = "sb-access-token"
	defaultRefreshCookie = "sb-refresh-token"
	defaultRefreshMaxAge = 30 * 24 * time.Hour
	defaultLeeway        = 30 * time.Second
)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	// DiscoveryURL is used to find the token endpoint when TokenURL is empty.
	DiscoveryURL string
	TokenURL     string

	AccessTokenCookie  string
	RefreshTokenCookie string

	// Attributes for rotated cookies.
	CookieDomain  string
	SecureCookies bool
	RefreshMaxAge time.Duration

	// Leeway treats access tokens expiring within this window as expired.
	Leeway     time.Duration
	HTTPClient *http.Client // Optional, defaults to a 10s client
	Now        func() time.Time
}

// Provider implements ports.IdentityProvider using token cookies and refresh grants.
type Provider struct {
	config        *oauth2.Config
	httpClient    *http.Client
	accessCookie  string
	refreshCookie string
	domain        string
	secure        bool
	refreshMaxAge time.Duration
	leeway        time.Duration
	now           func() time.Time
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider creates a new OIDC provider. Discovery runs once, here.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" && cfg.TokenURL == "" {
		return nil, errors.New("discovery URL or token URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		ctx = gooidc.ClientContext(ctx, httpClient)
		op, err := gooidc.NewProvider(ctx, issuerFromDiscovery(cfg.DiscoveryURL))
		if err != nil {
			return nil, fmt.Errorf("oidc new provider: %w", err)
		}
		tokenURL = op.Endpoint().TokenURL
		if tokenURL == "" {
			return nil, errors.New("discovery document has no token endpoint")
		}
	}

	p := &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		httpClient:    httpClient,
		accessCookie:  firstNonEmpty(cfg.AccessTokenCookie, defaultAccessCookie),
		refreshCookie: firstNonEmpty(cfg.RefreshTokenCookie, defaultRefreshCookie),
		domain:        cfg.CookieDomain,
		secure:        cfg.SecureCookies,
		refreshMaxAge: cfg.RefreshMaxAge,
		leeway:        cfg.Leeway,
		now:           cfg.Now,
	}
	if p.refreshMaxAge <= 0 {
		p.refreshMaxAge = defaultRefreshMaxAge
	}
	if p.leeway <= 0 {
		p.leeway = defaultLeeway
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// TokenURL returns the token endpoint refresh grants are sent to.
func (p *Provider) TokenURL() string { return p.config.Endpoint.TokenURL }

// ReadSession returns the access token cookie while it is fresh. Otherwise it
// redeems the refresh token cookie and returns the new pair as rotation cookies.
func (p *Provider) ReadSession(ctx context.Context, cookies []*http.Cookie) (ports.SessionRead, error) {
	access := cookieValue(cookies, p.accessCookie)
	refresh := cookieValue(cookies, p.refreshCookie)

	if access != "" {
		exp := tokenExpiry(access)
		if exp.IsZero() || exp.After(p.now().Add(p.leeway)) {
			return ports.SessionRead{AccessToken: access, ExpiresAt: exp}, nil
		}
	}
	if refresh == "" {
		return ports.SessionRead{}, ports.ErrNoSession
	}
	return p.refresh(ctx, refresh)
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (ports.SessionRead, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil &&
			(re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
			return ports.SessionRead{SetCookies: p.clearCookies()}, errors.Join(ports.ErrNoSession, err)
		}
		return ports.SessionRead{}, fmt.Errorf("refresh token: %w", err)
	}
	if tok.AccessToken == "" {
		return ports.SessionRead{}, errors.New("refresh token: empty access token")
	}

	exp := tok.Expiry
	if exp.IsZero() {
		exp = tokenExpiry(tok.AccessToken)
	}

	rotated := []*http.Cookie{p.cookie(p.accessCookie, tok.AccessToken, accessMaxAge(exp, p.now()))}
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		rotated = append(rotated, p.cookie(p.refreshCookie, tok.RefreshToken, int(p.refreshMaxAge.Seconds())))
	}
	return ports.SessionRead{AccessToken: tok.AccessToken, ExpiresAt: exp, SetCookies: rotated}, nil
}

func (p *Provider) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.domain,
		MaxAge:   maxAge,
		Secure:   p.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// clearCookies expires both token cookies after the provider rejected the refresh token.
func (p *Provider) clearCookies() []*http.Cookie {
	return []*http.Cookie{
		p.cookie(p.accessCookie, "", -1),
		p.cookie(p.refreshCookie, "", -1),
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the upstream
// verifies the token. Opaque tokens yield the zero time.
func tokenExpiry(raw string) time.Time {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// accessMaxAge keeps the access cookie until the token expires, or for the session when unknown.
func accessMaxAge(exp, now time.Time) int {
	if exp.IsZero() {
		return 0
	}
	if secs := int(exp.Sub(now).Seconds()); secs > 0 {
		return secs
	}
	return 0
}

func issuerFromDiscovery(discoveryURL string) string {
	issuer := strings.TrimSuffix(discoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return issuer
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
