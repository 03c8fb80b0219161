package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredGatewayEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_UPSTREAM_URL", "http://api.internal:9000/")
	t.Setenv("GATEWAY_SESSION_SECRET", "s3cret")
}

func TestAppConfig_ParseGatewayEnv(t *testing.T) {
	setRequiredGatewayEnv(t)
	t.Setenv("GATEWAY_ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com ,")
	t.Setenv("GATEWAY_SHARED_SECRET", "edge-only")
	t.Setenv("GATEWAY_UPSTREAM_RESPONSE_HEADER_TIMEOUT", "12s")
	t.Setenv("IDENTITY_DEV_TTL", "10m")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://api.internal:9000", cfg.Gateway.UpstreamURL)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, []string{"/api/v1/products", "/api/v1/categories", "/api/v1/health"}, cfg.Gateway.PublicPathPrefixes)
	assert.Equal(t, "X-Gateway-Secret", cfg.Gateway.SharedSecretHeader)
	assert.Equal(t, "edge-only", cfg.Gateway.SharedSecret)
	assert.Equal(t, "sf_session", cfg.Gateway.SessionCookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.Gateway.SessionCookieMaxAge)
	assert.Equal(t, 12*time.Second, cfg.Gateway.ResponseHeaderTimeout)
	assert.True(t, cfg.Gateway.TrustForwardedHeaders)
	assert.Equal(t, IdentityModeNone, cfg.Identity.Mode)
	assert.Equal(t, 10*time.Minute, cfg.Identity.Dev.TTL)
}

func TestAppConfig_MissingSessionSecretIsFatal(t *testing.T) {
	t.Setenv("GATEWAY_UPSTREAM_URL", "http://api.internal:9000")
	t.Setenv("GATEWAY_SESSION_SECRET", "")

	var cfg AppConfig
	err := env.Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_SESSION_SECRET")
}

func TestGatewayConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     GatewayConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  GatewayConfig{UpstreamURL: "https://api.example.com", SessionSecret: "x"},
		},
		{
			name:    "relative upstream",
			cfg:     GatewayConfig{UpstreamURL: "/api", SessionSecret: "x"},
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "bad origin",
			cfg:     GatewayConfig{UpstreamURL: "https://api.example.com", SessionSecret: "x", AllowedOrigins: []string{"shop.example.com"}},
			wantErr: "GATEWAY_ALLOWED_ORIGINS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIdentityMode_UnmarshalText(t *testing.T) {
	var m IdentityMode
	require.NoError(t, m.UnmarshalText([]byte("OIDC")))
	assert.Equal(t, IdentityModeOIDC, m)

	require.NoError(t, m.UnmarshalText([]byte("")))
	assert.Equal(t, IdentityModeNone, m)

	assert.Error(t, m.UnmarshalText([]byte("ldap")))
}

func TestIdentityConfig_Validate(t *testing.T) {
	assert.NoError(t, (&IdentityConfig{Mode: IdentityModeNone}).Validate())
	assert.Error(t, (&IdentityConfig{Mode: IdentityModeRemote}).Validate())
	assert.NoError(t, (&IdentityConfig{
		Mode:   IdentityModeRemote,
		Remote: RemoteSessionConfig{SessionURL: "https://auth.example.com/session"},
	}).Validate())
	assert.Error(t, (&IdentityConfig{Mode: IdentityModeOIDC, OIDC: OIDCConfig{ClientID: "c"}}).Validate())
	assert.NoError(t, (&IdentityConfig{
		Mode: IdentityModeOIDC,
		OIDC: OIDCConfig{ClientID: "c", TokenURL: "https://auth.example.com/token"},
	}).Validate())
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   "}
	cfg.Sanitize()
	assert.False(t, cfg.IsEnabled())

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " 127.0.0.1:8125 "}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "127.0.0.1:8125", cfg.StatsdAddress)
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{}
	cfg.Sanitize()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ReadHeaderTimeout)
	assert.Equal(t, 4096, cfg.MaxHeaderBytes)
}
