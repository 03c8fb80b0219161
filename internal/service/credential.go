package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/target/storefront-gateway/internal/domain/edge"
	"github.com/target/storefront-gateway/internal/observability/metrics"
	"github.com/target/storefront-gateway/internal/observability/statsd"
	"github.com/target/storefront-gateway/internal/ports"
)

const (
	// DefaultProviderCookiePrefix selects identity-provider cookies when none is configured.
	DefaultProviderCookiePrefix = "sb-"

	cacheExpirySkew = 30 * time.Second
)

// CredentialResolverOptions groups dependencies for CredentialResolver.
type CredentialResolverOptions struct {
	// Provider is optional; without it only explicit bearer headers are forwarded.
	Provider ports.IdentityProvider
	// Cache is optional.
	Cache       ports.CredentialCache
	CacheMaxTTL time.Duration

	PublicPrefixes       []string
	ProviderCookiePrefix string

	Logger  *slog.Logger
	Metrics statsd.Sink
	// Now overrides the clock in tests.
	Now func() time.Time
}

// CredentialResolver derives the bearer credential for an upstream call.
// It never rejects a request: a failed lookup means no credential.
type CredentialResolver struct {
	provider     ports.IdentityProvider
	cache        ports.CredentialCache
	cacheMaxTTL  time.Duration
	public       []string
	cookiePrefix string
	logger       *slog.Logger
	metrics      statsd.Sink
	now          func() time.Time
}

// NewCredentialResolver constructs a CredentialResolver.
func NewCredentialResolver(opts CredentialResolverOptions) *CredentialResolver {
	r := &CredentialResolver{
		provider:     opts.Provider,
		cache:        opts.Cache,
		cacheMaxTTL:  opts.CacheMaxTTL,
		public:       append([]string(nil), opts.PublicPrefixes...),
		cookiePrefix: opts.ProviderCookiePrefix,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
	if r.cookiePrefix == "" {
		r.cookiePrefix = DefaultProviderCookiePrefix
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// IsPublic reports whether path falls under a public prefix. A prefix matches
// only on a path-segment boundary, so /api/v1/products matches /api/v1/products/42
// but not /api/v1/productsadmin.
func (r *CredentialResolver) IsPublic(path string) bool {
	for _, p := range r.public {
		if !strings.HasPrefix(path, p) {
			continue
		}
		if len(path) == len(p) || strings.HasSuffix(p, "/") || path[len(p)] == '/' {
			return true
		}
	}
	return false
}

// Resolve returns the credential for the request and any rotation cookies
// that must reach the caller. Rotation cookies are only accumulated, never written.
func (r *CredentialResolver) Resolve(ctx context.Context, req *http.Request) (edge.Credential, edge.PendingCookies) {
	var pending edge.PendingCookies

	if r.IsPublic(req.URL.Path) {
		return edge.Credential{Source: edge.CredentialNone}, pending
	}
	if token, ok := bearerToken(req.Header.Get("Authorization")); ok {
		return edge.Credential{Token: token, Source: edge.CredentialExplicit}, pending
	}
	if r.provider == nil {
		return edge.Credential{Source: edge.CredentialNone}, pending
	}
	cookies := r.providerCookies(req)
	if len(cookies) == 0 {
		return edge.Credential{Source: edge.CredentialNone}, pending
	}

	key := cacheKey(cookies)
	if token := r.cached(ctx, key); token != "" {
		metrics.EmitIdentityLookup(r.metrics, metrics.IdentityMetric{
			Source: string(edge.CredentialCache), Result: metrics.ResultSuccess,
		})
		return edge.Credential{Token: token, Source: edge.CredentialCache}, pending
	}

	start := r.now()
	read, err := r.provider.ReadSession(ctx, cookies)
	elapsed := r.now().Sub(start)
	if err != nil {
		// A provider may clear its cookies while reporting no session.
		pending.Add(read.SetCookies...)
		result := metrics.ResultError
		if errors.Is(err, ports.ErrNoSession) {
			result = metrics.ResultSkipped
			r.logger.DebugContext(ctx, "identity provider reported no session")
		} else {
			r.logger.WarnContext(ctx, "identity session lookup failed", "error", err)
		}
		metrics.EmitIdentityLookup(r.metrics, metrics.IdentityMetric{
			Source: string(edge.CredentialProvider), Result: result, Duration: elapsed, Err: err,
		})
		return edge.Credential{Source: edge.CredentialNone}, pending
	}

	pending.Add(read.SetCookies...)
	metrics.EmitIdentityLookup(r.metrics, metrics.IdentityMetric{
		Source:   string(edge.CredentialProvider),
		Result:   metrics.ResultSuccess,
		Rotated:  pending.Len(),
		Duration: elapsed,
	})
	if read.AccessToken == "" {
		return edge.Credential{Source: edge.CredentialNone}, pending
	}

	if len(read.SetCookies) == 0 {
		r.store(ctx, key, read)
	}
	return edge.Credential{
		Token:     read.AccessToken,
		Source:    edge.CredentialProvider,
		ExpiresAt: read.ExpiresAt,
	}, pending
}

func (r *CredentialResolver) providerCookies(req *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range req.Cookies() {
		if strings.HasPrefix(c.Name, r.cookiePrefix) {
			out = append(out, c)
		}
	}
	return out
}

func (r *CredentialResolver) cached(ctx context.Context, key string) string {
	if r.cache == nil {
		return ""
	}
	token, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			r.logger.WarnContext(ctx, "credential cache read failed", "error", err)
		}
		return ""
	}
	return token
}

// store caches a credential only when its expiry is known and no rotation happened.
func (r *CredentialResolver) store(ctx context.Context, key string, read ports.SessionRead) {
	if r.cache == nil || read.ExpiresAt.IsZero() {
		return
	}
	ttl := read.ExpiresAt.Sub(r.now()) - cacheExpirySkew
	if r.cacheMaxTTL > 0 && ttl > r.cacheMaxTTL {
		ttl = r.cacheMaxTTL
	}
	if ttl <= 0 {
		return
	}
	if err := r.cache.Set(ctx, key, read.AccessToken, ttl); err != nil {
		r.logger.WarnContext(ctx, "credential cache write failed", "error", err)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// cacheKey digests the provider cookie set independent of cookie order.
func cacheKey(cookies []*http.Cookie) string {
	pairs := make([]string, len(cookies))
	for i, c := range cookies {
		pairs[i] = c.Name + "=" + c.Value
	}
	sort.Strings(pairs)
	sum := sha256.Sum256([]byte(strings.Join(pairs, ";")))
	return hex.EncodeToString(sum[:])
}
