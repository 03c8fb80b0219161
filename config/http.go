package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT"        envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"    envDefault:"15s"`

	// MaxHeaderBytes caps inbound request header size.
	MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.IdleTimeout <= 0 {
		h.IdleTimeout = 120 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 15 * time.Second
	}
	if h.MaxHeaderBytes < 4096 {
		h.MaxHeaderBytes = 4096
	}
}
