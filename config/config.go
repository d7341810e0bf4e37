package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	GCP     GCPConfig     `mapstructure:"gcp"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// EngineConfig holds sandbox engine configuration
type EngineConfig struct {
	TimeoutSec   int `mapstructure:"timeout_sec"`
	MaxAttempts  int `mapstructure:"max_attempts"`
	RetryDelayMS int `mapstructure:"retry_delay_ms"`
}

// GCPConfig holds Google Cloud configuration
type GCPConfig struct {
	DefaultRegion   string `mapstructure:"default_region"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("engine.timeout_sec", 30)
	viper.SetDefault("engine.max_attempts", 3)
	viper.SetDefault("engine.retry_delay_ms", 500)
	viper.SetDefault("gcp.default_region", "us-central1")
	viper.SetDefault("gcp.credentials_file", "")
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Engine.TimeoutSec <= 0 {
		return fmt.Errorf("engine.timeout_sec must be positive, got: %d", c.Engine.TimeoutSec)
	}

	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("engine.max_attempts must be at least 1, got: %d", c.Engine.MaxAttempts)
	}

	if c.Engine.RetryDelayMS < 0 {
		return fmt.Errorf("engine.retry_delay_ms must not be negative, got: %d", c.Engine.RetryDelayMS)
	}

	if c.GCP.DefaultRegion == "" {
		return fmt.Errorf("gcp.default_region must not be empty")
	}

	return nil
}

// EngineTimeout returns the per-invocation execution deadline as a duration
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSec) * time.Second
}

// RetryDelay returns the delay between retry attempts as a duration
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Engine.RetryDelayMS) * time.Millisecond
}
