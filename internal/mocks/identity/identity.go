package identity

// Package identity contains simple hand-written test doubles for identity ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/target/storefront-gateway/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*CountingProvider)(nil)
	_ ports.CredentialCache  = (*MemoryCache)(nil)
)

// CountingProvider returns a fixed session read and counts lookups.
type CountingProvider struct {
	ReadSessionFunc func(ctx context.Context, cookies []*http.Cookie) (ports.SessionRead, error)

	Read ports.SessionRead
	Err  error

	calls atomic.Int64
	mu    sync.Mutex
	seen  [][]*http.Cookie
}

func (p *CountingProvider) ReadSession(ctx context.Context, cookies []*http.Cookie) (ports.SessionRead, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, cookies)
	p.mu.Unlock()

	if p.ReadSessionFunc != nil {
		return p.ReadSessionFunc(ctx, cookies)
	}
	if p.Err != nil {
		return ports.SessionRead{}, p.Err
	}
	return p.Read, nil
}

// Calls returns how many times ReadSession ran.
func (p *CountingProvider) Calls() int { return int(p.calls.Load()) }

// LastCookies returns the cookie set passed to the most recent lookup.
func (p *CountingProvider) LastCookies() []*http.Cookie {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seen) == 0 {
		return nil
	}
	return p.seen[len(p.seen)-1]
}

// MemoryCache is an in-memory credential cache for unit tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	token   string
	expires time.Time
}

// NewMemoryCache creates an empty cache using the wall clock.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		return "", ports.ErrCacheMiss
	}
	return e.token, nil
}

func (m *MemoryCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry{token: token, expires: m.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
