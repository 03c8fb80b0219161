package config

import "strings"

// RedisConfig contains Redis configuration for the optional credential cache.
type RedisConfig struct {
	Enabled            bool     `env:"ENABLED"              envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	KeyPrefix          string   `env:"KEY_PREFIX"           envDefault:"gateway:cred:"`
}

// Sanitize drops blank node entries.
func (r *RedisConfig) Sanitize() {
	r.URI = strings.TrimSpace(r.URI)
	r.SentinelNodes = compact(r.SentinelNodes)
	r.ClusterNodes = compact(r.ClusterNodes)
	if r.KeyPrefix == "" {
		r.KeyPrefix = "gateway:cred:"
	}
}
