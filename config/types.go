package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Trending  TrendingConfig  `mapstructure:"trending"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CatalogConfig holds TMDB API connection details
type CatalogConfig struct {
	URL          string        `mapstructure:"url"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Telemetry store drivers
const (
	DriverREST   = "rest"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// TelemetryConfig selects and configures the search telemetry store
type TelemetryConfig struct {
	Driver       string        `mapstructure:"driver"`
	Endpoint     string        `mapstructure:"endpoint"`
	ProjectID    string        `mapstructure:"project_id"`
	APIKey       string        `mapstructure:"api_key"`
	DatabaseID   string        `mapstructure:"database_id"`
	CollectionID string        `mapstructure:"collection_id"`
	Path         string        `mapstructure:"path"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// TrendingConfig controls the trending leaderboard
type TrendingConfig struct {
	Limit int `mapstructure:"limit"`
}

// FilterConfig contains named filter presets
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
	File   string `mapstructure:"file"`
}
