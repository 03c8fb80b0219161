package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewForwarder_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "/relative", "ftp://host", "http://"} {
		_, err := NewForwarder(ForwarderConfig{UpstreamURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestForwarder_Target(t *testing.T) {
	f, err := NewForwarder(ForwarderConfig{UpstreamURL: "https://api.internal:9443/base/?ignored=1"})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://shop.example.com/api/v1/products?q=red%20shoes&page=2", nil)
	got := f.Target(r)
	assert.Equal(t, "https://api.internal:9443/base/api/v1/products?q=red%20shoes&page=2", got.String())

	r = httptest.NewRequest(http.MethodGet, "http://shop.example.com/api/v1/files/a%2Fb", nil)
	assert.Equal(t, "https://api.internal:9443/base/api/v1/files/a%2Fb", f.Target(r).String())
}

type seenRequest struct {
	method   string
	body     string
	length   int64
	encoding string
}

func captureUpstream(t *testing.T) (*httptest.Server, <-chan seenRequest) {
	t.Helper()
	seen := make(chan seenRequest, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen <- seenRequest{
			method:   r.Method,
			body:     string(b),
			length:   r.ContentLength,
			encoding: r.Header.Get("Accept-Encoding"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(upstream.Close)
	return upstream, seen
}

func TestForwarder_StreamsBodyAndPreservesMethod(t *testing.T) {
	upstream, seen := captureUpstream(t)

	f, err := NewForwarder(ForwarderConfig{UpstreamURL: upstream.URL})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPut, "http://shop.example.com/api/v1/cart/items/1", strings.NewReader("qty=3"))
	resp, target, err := f.Forward(context.Background(), r, http.Header{})
	require.NoError(t, err)
	defer resp.Body.Close()

	got := <-seen
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/api/v1/cart/items/1", target.Path)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "qty=3", got.body)
	assert.EqualValues(t, 5, got.length)
	assert.Empty(t, got.encoding, "transport must not negotiate compression")
}

func TestForwarder_BodylessMethods(t *testing.T) {
	upstream, seen := captureUpstream(t)

	f, err := NewForwarder(ForwarderConfig{UpstreamURL: upstream.URL})
	require.NoError(t, err)

	for _, method := range []string{http.MethodGet, http.MethodOptions} {
		r := httptest.NewRequest(method, "http://shop.example.com/api/v1/cart", strings.NewReader("ignored"))
		resp, _, err := f.Forward(context.Background(), r, http.Header{})
		require.NoError(t, err)
		resp.Body.Close()

		got := <-seen
		assert.Equal(t, method, got.method)
		assert.Zero(t, got.length, method)
		assert.Empty(t, got.body, method)
	}
}

func TestForwarder_DoesNotFollowRedirects(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/old" {
			http.Redirect(w, r, "/api/v1/new", http.StatusFound)
			return
		}
		t.Errorf("redirect was followed to %s", r.URL.Path)
	}))
	defer upstream.Close()

	f, err := NewForwarder(ForwarderConfig{UpstreamURL: upstream.URL})
	require.NoError(t, err)

	resp, _, err := f.Forward(context.Background(), httptest.NewRequest(http.MethodGet, "http://shop.example.com/api/v1/old", nil), http.Header{})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/api/v1/new", resp.Header.Get("Location"))
}

func TestForwarder_NetworkFailure(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()

	f, err := NewForwarder(ForwarderConfig{UpstreamURL: upstream.URL})
	require.NoError(t, err)

	resp, target, err := f.Forward(context.Background(), httptest.NewRequest(http.MethodGet, "http://shop.example.com/api/v1/cart", nil), http.Header{})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/api/v1/cart")
	assert.Equal(t, "/api/v1/cart", target.Path)
}

func TestDescribeTarget(t *testing.T) {
	u, err := url.Parse("http://api.internal:9000/api/v1/cart?x=1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/cart", DescribeTarget(u, false))
	assert.Equal(t, "http://api.internal:9000/api/v1/cart?x=1", DescribeTarget(u, true))
	assert.Equal(t, "upstream", DescribeTarget(nil, true))
}
