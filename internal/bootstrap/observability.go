package bootstrap

import (
	"log/slog"

	"github.com/target/storefront-gateway/config"
	"github.com/target/storefront-gateway/internal/observability/statsd"
)

// BuildMetricsSink dials StatsD when metrics are enabled. A dial failure disables
// metrics rather than stopping the gateway.
func BuildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn("statsd disabled", "error", err, "addr", cfg.StatsdAddress)
		return nil
	}
	if client.Enabled() {
		logger.Info("statsd metrics enabled", "addr", cfg.StatsdAddress, "prefix", cfg.Prefix)
	}
	return client
}
