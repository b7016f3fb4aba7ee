// Package config loads and watches the server configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelsConfig names the model used for each generation task.
type ModelsConfig struct {
	StoryContinuation string `json:"story_continuation"`
	KeywordExtraction string `json:"keyword_extraction"`
}

// Config represents the server configuration.
type Config struct {
	ListenAddr     string `json:"listen_addr"`
	StatusAddr     string `json:"status_addr,omitempty"`
	MaxConnections int    `json:"max_connections"`

	UserDBPath    string `json:"user_db_path"`
	GameStatePath string `json:"game_state_path"`

	LogLevel string `json:"log_level"`
	LogPath  string `json:"log_path,omitempty"`

	APIEndpoint string       `json:"api_endpoint"`
	APIKey      string       `json:"api_key,omitempty"`
	Models      ModelsConfig `json:"models"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     "127.0.0.1:12345",
		MaxConnections: 32,
		UserDBPath:     "user.db",
		GameStatePath:  "game.json",
		LogLevel:       "info",
		APIEndpoint:    "",
		Models: ModelsConfig{
			StoryContinuation: "anthropic/claude-sonnet-4.5",
			KeywordExtraction: "anthropic/claude-sonnet-4.5",
		},
	}
}

// Load reads configuration from path, layered over defaults. A missing file
// is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}

	return cfg, nil
}

// Save writes configuration to path.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
