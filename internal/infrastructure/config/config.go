// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback)
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration.
type Config struct {
	Club          ClubConfig          `yaml:"club"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ClubConfig holds club-level settings used in reminder messages.
type ClubConfig struct {
	Name string `yaml:"name"`
}

// StorageConfig holds database configuration.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds HTTP API server configuration.
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TelegramConfig holds the reminder bot configuration.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${TELEGRAM_BOT_TOKEN})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := &Config{
		Club: ClubConfig{
			Name: getEnv("CLUB_NAME", "K-Lab"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("KASSENWART_DB_PATH", "kassenwart.db"),
		},
		API: APIConfig{
			Port: getEnvInt("KASSENWART_API_PORT", 8080),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level: getEnv("LOG_LEVEL", "info"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from the given path (default config.yaml), falling
// back to environment variables when the file does not exist.
func LoadOrEnv(path string) *Config {
	if path == "" {
		path = "config.yaml"
	}
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Club.Name == "" {
		c.Club.Name = "K-Lab"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "kassenwart.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// TelegramConfigured reports whether the reminder bot can be used.
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.BotToken != ""
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
