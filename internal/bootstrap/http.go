package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/storefront-gateway/config"
	httpx "github.com/target/storefront-gateway/internal/http"
	"golang.org/x/sync/errgroup"
)

// BuildHTTPHandler mounts the gateway behind the shared middleware.
// Order: Recover -> RequestID -> Logging -> Router.
func BuildHTTPHandler(gateway http.Handler, logger *slog.Logger) http.Handler {
	router := httpx.NewRouter(httpx.RouterOptions{Gateway: gateway})
	return httpx.Chain(router,
		httpx.Recover(logger),
		httpx.RequestID,
		httpx.Logging(logger),
	)
}

// NewHTTPServer builds the server. There is no write timeout: proxied bodies may stream indefinitely.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) *http.Server {
	addr := cfg.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}

// ServeConfig contains dependencies for running the HTTP server.
type ServeConfig struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
	// Listener is optional; the server listens on Server.Addr when nil.
	Listener net.Listener
	Logger   *slog.Logger
}

// RunHTTPServer serves until ctx is canceled, then shuts down gracefully.
func RunHTTPServer(ctx context.Context, cfg ServeConfig) error {
	if cfg.Server == nil {
		return errors.New("http server is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Listener != nil {
			logger.InfoContext(gctx, "starting HTTP server", "addr", cfg.Listener.Addr().String())
			err = cfg.Server.Serve(cfg.Listener)
		} else {
			logger.InfoContext(gctx, "starting HTTP server", "addr", cfg.Server.Addr)
			err = cfg.Server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}
