package bootstrap

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/storefront-gateway/config"
	httpx "github.com/target/storefront-gateway/internal/http"
)

func TestBuildHTTPHandler(t *testing.T) {
	h := BuildHTTPHandler(http.NotFoundHandler(), quietLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(httpx.HeaderRequestID))
}

func TestNewHTTPServer(t *testing.T) {
	cfg := config.HTTPConfig{ReadHeaderTimeout: 5 * time.Second, IdleTimeout: time.Minute, MaxHeaderBytes: 8192}
	srv := NewHTTPServer(cfg, http.NotFoundHandler(), quietLogger())

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Zero(t, srv.WriteTimeout)
	assert.Zero(t, srv.ReadTimeout)
}

func TestRunHTTPServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewHTTPServer(config.HTTPConfig{}, BuildHTTPHandler(http.NotFoundHandler(), quietLogger()), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunHTTPServer(ctx, ServeConfig{Server: srv, Listener: ln, ShutdownTimeout: time.Second, Logger: quietLogger()})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunHTTPServer_RequiresServer(t *testing.T) {
	require.Error(t, RunHTTPServer(context.Background(), ServeConfig{}))
}
