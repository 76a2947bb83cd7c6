package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MARQUEE_CATALOG_TOKEN
const EnvPrefix = "MARQUEE"

// Load loads the configuration from configPath, or from the standard
// locations when configPath is empty. A missing file in the standard
// locations is not an error; settings may come from the environment alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".marquee"))
		}
		v.AddConfigPath("/etc/marquee/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key gets a default so
// that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.url", "https://api.themoviedb.org/3")
	v.SetDefault("catalog.image_base_url", "https://image.tmdb.org/t/p/w500")
	v.SetDefault("catalog.token", "")
	v.SetDefault("catalog.timeout", 30*time.Second)

	v.SetDefault("telemetry.driver", DriverSQLite)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.api_key", "")
	v.SetDefault("telemetry.database_id", "")
	v.SetDefault("telemetry.collection_id", "metrics")
	v.SetDefault("telemetry.timeout", 30*time.Second)
	if home, err := os.UserHomeDir(); err == nil {
		v.SetDefault("telemetry.path", filepath.Join(home, ".marquee", "marquee.db"))
	} else {
		v.SetDefault("telemetry.path", "marquee.db")
	}

	v.SetDefault("trending.limit", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.file", "")
}

// validate checks settings that have no sensible fallback. Credentials are
// left to the clients, which report them on first use.
func validate(cfg *Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	switch cfg.Telemetry.Driver {
	case DriverREST, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("invalid telemetry.driver: %s (must be 'rest', 'sqlite' or 'memory')", cfg.Telemetry.Driver)
	}

	if cfg.Telemetry.Driver == DriverSQLite && cfg.Telemetry.Path == "" {
		return fmt.Errorf("telemetry.path is required for the sqlite driver")
	}

	if cfg.Trending.Limit < 1 {
		return fmt.Errorf("trending.limit must be at least 1, got %d", cfg.Trending.Limit)
	}

	if cfg.Catalog.Timeout < 0 || cfg.Telemetry.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	return nil
}
