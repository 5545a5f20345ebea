// Package config provides configuration loading, defaults, and validation for
// the rateations engine.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "RATE"

// newViper builds a pre-configured Viper instance with the engine's standard
// settings: YAML file type, RATE_ env prefix, automatic env binding, and a
// key replacer that maps "." → "_" so that nested keys like "database.host"
// resolve to "RATE_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges any RATE_* environment
// variable overrides, applies engine defaults for unset fields, and
// validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from RATE_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	RATE_<SECTION>_<FIELD>   e.g.  RATE_DATABASE_HOST, RATE_ENGINE_MAX_SKIPS
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// Viper only exposes env-backed keys to Unmarshal once they are bound;
	// AutomaticEnv alone is not enough without a config file.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	return unmarshalAndFinalize(v)
}

// envKeys lists every configuration key that may be supplied via environment
// variables when no config file is present.
var envKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"database.host", "database.port", "database.user", "database.password", "database.db_name",
	"database.ssl_mode", "database.max_open_conns", "database.max_idle_conns",
	"database.conn_max_lifetime", "database.conn_max_idle_time", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.min_idle_conns",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout", "redis.key_prefix",
	"kafka.brokers", "kafka.acks", "kafka.producer_retries", "kafka.batch_size",
	"kafka.batch_timeout", "kafka.write_timeout",
	"engine.max_skips", "engine.recovery_risk_days", "engine.pre_decay_days",
	"engine.kpi_cache_ttl", "engine.timezone",
	"log.level", "log.format",
	"metrics.enabled", "metrics.path",
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
