package httpx

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	mockidentity "github.com/target/storefront-gateway/internal/mocks/identity"
	"github.com/target/storefront-gateway/internal/service"
)

const (
	testSessionSecret = "test-session-secret"
	testServingOrigin = "http://shop.example.com"
)

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// upstreamRecorder is a fake upstream API that records every request it receives.
type upstreamRecorder struct {
	mu      sync.Mutex
	reqs    []recordedRequest
	handler http.HandlerFunc
}

func (u *upstreamRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.reqs = append(u.reqs, recordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})
	u.mu.Unlock()

	if u.handler != nil {
		u.handler(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true}`)
}

func (u *upstreamRecorder) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.reqs)
}

func (u *upstreamRecorder) last(t *testing.T) recordedRequest {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	require.NotEmpty(t, u.reqs, "upstream was never called")
	return u.reqs[len(u.reqs)-1]
}

type gatewayFixture struct {
	handler  http.Handler
	upstream *httptest.Server
	recorder *upstreamRecorder
	provider *mockidentity.CountingProvider
	sessions *service.SessionService
	logs     *bytes.Buffer
	diag     *bytes.Buffer
}

type fixtureOption func(*GatewayOptions, *service.CredentialResolverOptions)

func newGatewayFixture(t *testing.T, upstreamHandler http.HandlerFunc, options ...fixtureOption) *gatewayFixture {
	t.Helper()

	rec := &upstreamRecorder{handler: upstreamHandler}
	upstream := httptest.NewServer(rec)
	t.Cleanup(upstream.Close)

	f := &gatewayFixture{
		upstream: upstream,
		recorder: rec,
		provider: &mockidentity.CountingProvider{},
		logs:     &bytes.Buffer{},
		diag:     &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(&syncWriter{w: f.logs}, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sessions, err := service.NewSessionService(service.SessionServiceOptions{Secret: []byte(testSessionSecret)})
	require.NoError(t, err)
	f.sessions = sessions

	guard, err := NewOriginGuard(OriginGuardConfig{
		AllowedOrigins:        []string{"https://admin.example.com"},
		TrustForwardedHeaders: true,
		Logger:                logger,
	})
	require.NoError(t, err)

	forwarder, err := NewForwarder(ForwarderConfig{UpstreamURL: upstream.URL})
	require.NoError(t, err)

	credOpts := service.CredentialResolverOptions{
		Provider:       f.provider,
		PublicPrefixes: []string{"/api/v1/products", "/api/v1/categories", "/api/v1/health"},
		Logger:         logger,
	}
	gwOpts := GatewayOptions{
		Guard:              guard,
		Sessions:           sessions,
		Forwarder:          forwarder,
		SharedSecretHeader: "X-Gateway-Secret",
		SecureCookies:      true,
		Logger:             logger,
		Diagnostics:        slog.New(slog.NewTextHandler(&syncWriter{w: f.diag}, nil)),
	}
	for _, o := range options {
		o(&gwOpts, &credOpts)
	}
	gwOpts.Credentials = service.NewCredentialResolver(credOpts)

	f.handler = Chain(NewRouter(RouterOptions{Gateway: NewGateway(gwOpts)}),
		Recover(logger),
		RequestID,
		Logging(logger),
	)
	return f
}

func (f *gatewayFixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func newAPIRequest(method, target string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, testServingOrigin+target, body)
	r.RemoteAddr = "192.0.2.10:51234"
	return r
}

func sessionCookies(rec *httptest.ResponseRecorder, name string) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// syncWriter serializes writes from concurrent handlers into one buffer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
