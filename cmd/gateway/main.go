package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/target/storefront-gateway/config"
	"github.com/target/storefront-gateway/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger := bootstrap.InitLogger()
	err := run(ctx, logger)
	stop()
	if err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.SetLogLevel(cfg.Observability.SlogLevel())
	logStartupInfo(ctx, logger, &cfg)

	redisClient, err := initCache(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	metricsSink := bootstrap.BuildMetricsSink(cfg.Observability.Metrics, logger)
	defer func() {
		if cerr := metricsSink.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close statsd failed", "error", cerr)
		}
	}()

	identity, err := bootstrap.BuildIdentityProvider(ctx, bootstrap.IdentityDeps{
		Identity:      cfg.Identity,
		CookieDomain:  cfg.Gateway.CookieDomain,
		SecureCookies: !cfg.IsDev,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	gateway, err := bootstrap.BuildGateway(bootstrap.GatewayDeps{
		Config:   &cfg,
		Identity: identity,
		Cache:    bootstrap.BuildCredentialCache(redisClient, cfg.Redis),
		Metrics:  metricsSink,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler := bootstrap.BuildHTTPHandler(gateway, logger)
	return bootstrap.RunHTTPServer(ctx, bootstrap.ServeConfig{
		Server:          bootstrap.NewHTTPServer(cfg.HTTP, handler, logger),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting storefront gateway",
		"upstream", cfg.Gateway.UpstreamURL,
		"identity_mode", cfg.Identity.Mode,
		"credential_cache", cfg.Redis.Enabled,
		"dev", cfg.IsDev,
		"debug_proxy", cfg.Gateway.DebugProxy)
}

// initCache connects the optional credential cache.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initCache(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisDeps{Redis: cfg.Redis, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
