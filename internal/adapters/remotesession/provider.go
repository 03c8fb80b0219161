package remotesession

// Package remotesession reads the caller's identity session from the provider's session endpoint.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/storefront-gateway/internal/ports"
)

const maxSessionBody = 1 << 20

// Config controls how the session endpoint is called and how its JSON is read.
type Config struct {
	SessionURL string
	Timeout    time.Duration
	// TokenPath and ExpiresAtPath are JMESPath expressions; ExpiresAtPath may be empty.
	TokenPath     string
	ExpiresAtPath string
	HTTPClient    *http.Client
}

// Provider implements ports.IdentityProvider against a JSON session endpoint.
type Provider struct {
	url         string
	timeout     time.Duration
	tokenPath   string
	expiresPath string
	client      *http.Client
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider validates cfg and compiles its expressions.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.SessionURL) == "" {
		return nil, errors.New("session URL is required")
	}
	tokenPath := strings.TrimSpace(cfg.TokenPath)
	if tokenPath == "" {
		tokenPath = "access_token"
	}
	if _, err := jmespath.Compile(tokenPath); err != nil {
		return nil, fmt.Errorf("compile token path %q: %w", tokenPath, err)
	}
	expiresPath := strings.TrimSpace(cfg.ExpiresAtPath)
	if expiresPath != "" {
		if _, err := jmespath.Compile(expiresPath); err != nil {
			return nil, fmt.Errorf("compile expires_at path %q: %w", expiresPath, err)
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Provider{
		url:         cfg.SessionURL,
		timeout:     timeout,
		tokenPath:   tokenPath,
		expiresPath: expiresPath,
		client:      client,
	}, nil
}

// ReadSession forwards the provider cookies to the session endpoint. Cookies the
// endpoint sets are relayed so rotated tokens reach the browser.
func (p *Provider) ReadSession(ctx context.Context, cookies []*http.Cookie) (ports.SessionRead, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return ports.SessionRead{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ports.SessionRead{}, fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()

	rotated := resp.Cookies()
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusNoContent:
		return ports.SessionRead{SetCookies: rotated}, ports.ErrNoSession
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return ports.SessionRead{}, fmt.Errorf("session endpoint returned %d", resp.StatusCode)
	}

	var doc any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSessionBody)).Decode(&doc); err != nil {
		return ports.SessionRead{}, fmt.Errorf("decode session: %w", err)
	}
	return p.extract(doc, rotated)
}

func (p *Provider) extract(doc any, rotated []*http.Cookie) (ports.SessionRead, error) {
	if doc == nil {
		return ports.SessionRead{SetCookies: rotated}, ports.ErrNoSession
	}
	raw, err := jmespath.Search(p.tokenPath, doc)
	if err != nil {
		return ports.SessionRead{}, fmt.Errorf("evaluate token path: %w", err)
	}
	token, _ := raw.(string)
	if token == "" {
		return ports.SessionRead{SetCookies: rotated}, ports.ErrNoSession
	}

	out := ports.SessionRead{AccessToken: token, SetCookies: rotated}
	if p.expiresPath == "" {
		return out, nil
	}
	rawExp, err := jmespath.Search(p.expiresPath, doc)
	if err != nil {
		return ports.SessionRead{}, fmt.Errorf("evaluate expires_at path: %w", err)
	}
	out.ExpiresAt = parseExpiry(rawExp)
	return out, nil
}

// parseExpiry accepts unix seconds (number or numeric string) or RFC 3339.
// Anything else yields the zero time.
func parseExpiry(v any) time.Time {
	switch x := v.(type) {
	case float64:
		if x <= 0 {
			return time.Time{}
		}
		return time.Unix(int64(x), 0)
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil && n > 0 {
			return time.Unix(n, 0)
		}
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t
		}
	}
	return time.Time{}
}
