package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/airwarden.db")

	// Auth defaults. An empty password hash disables authentication.
	v.SetDefault("auth.operator", "operator")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "1h")

	// Collaborator service defaults.
	v.SetDefault("kismet.url", "http://localhost:2501")
	v.SetDefault("kismet.api_key", "")
	v.SetDefault("kismet.timeout", "5s")
	v.SetDefault("tracker.url", "http://localhost:8900")
	v.SetDefault("tracker.token", "")
	v.SetDefault("tracker.timeout", "5s")
	v.SetDefault("voice.url", "http://localhost:8800")
	v.SetDefault("voice.timeout", "30s")
	v.SetDefault("voice.enabled", true)

	// Plugin defaults
	v.SetDefault("plugins.sentry.enabled", true)
	v.SetDefault("plugins.sentry.cooldown", "30s")
	v.SetDefault("plugins.sentry.poll_interval", "5s")
	v.SetDefault("plugins.sentry.max_history", 500)
	v.SetDefault("plugins.sentry.confidence_threshold", 0.70)
	v.SetDefault("plugins.sentry.persistence_path", "./data/sentry_state.json")
	v.SetDefault("plugins.sentry.snapshot_interval", "5m")
	v.SetDefault("plugins.sentry.scanner_phy", "wifi")
	v.SetDefault("plugins.sentry.retention_period", "720h")
	v.SetDefault("plugins.sentry.maintenance_interval", "1h")
	v.SetDefault("plugins.webhook.enabled", true)
	v.SetDefault("plugins.webhook.url", "")
	v.SetDefault("plugins.webhook.timeout", "10s")
	v.SetDefault("plugins.webhook.min_priority", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("airwarden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/airwarden")
	}

	// Environment variable support: AW_SERVER_PORT=9090
	v.SetEnvPrefix("AW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
