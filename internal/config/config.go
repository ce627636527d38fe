package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Charts   ChartsConfig   `toml:"charts"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Logging  LoggingConfig  `toml:"logging"`
	Auth     AuthConfig     `toml:"auth"`
	Tunnel   TunnelConfig   `toml:"tunnel"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	StaticDir   string `toml:"static_dir"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// ChartsConfig contains chord chart storage configuration
type ChartsConfig struct {
	Dir             string `toml:"dir"`
	WatchForChanges bool   `toml:"watch_for_changes"`
}

// CatalogConfig contains song catalog configuration
type CatalogConfig struct {
	RecordingsPath   string   `toml:"recordings_path"`
	SupportedFormats []string `toml:"supported_formats"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled         bool   `toml:"enabled"`
	UsersFilePath   string `toml:"users_file_path"`
	SessionDuration int    `toml:"session_duration_hours"`
	SecureCookies   bool   `toml:"secure_cookies"`
}

// TunnelConfig contains ngrok tunnel configuration for sharing the
// sheet server with the rest of the band outside the local network.
type TunnelConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			StaticDir:   "./static",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path:           "./bandstand.db",
			MaxConnections: 10,
		},
		Charts: ChartsConfig{
			Dir:             "./charts",
			WatchForChanges: true,
		},
		Catalog: CatalogConfig{
			RecordingsPath:   "./recordings",
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			ScanOnStartup:    true,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Auth: AuthConfig{
			Enabled:         false,
			UsersFilePath:   "./users.toml",
			SessionDuration: 24,
			SecureCookies:   false,
		},
		Tunnel: TunnelConfig{
			Enabled:   false,
			AuthToken: "",
			Domain:    "",
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Config file doesn't exist yet: create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Bandstand Setlist Server Configuration
# This file contains all configuration options for the bandstand setlist server.
# Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Charts.Dir == "" {
		return fmt.Errorf("charts directory cannot be empty")
	}

	if c.Catalog.ScanOnStartup && c.Catalog.RecordingsPath == "" {
		return fmt.Errorf("recordings path cannot be empty when scan on startup is enabled")
	}
	if len(c.Catalog.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Auth.Enabled {
		if c.Auth.UsersFilePath == "" {
			return fmt.Errorf("users file path cannot be empty when auth is enabled")
		}
		if c.Auth.SessionDuration < 1 {
			return fmt.Errorf("session duration must be at least 1 hour")
		}
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsFormatSupported checks if an audio format is supported for recordings
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Catalog.SupportedFormats {
		if supported == format {
			return true
		}
	}
	return false
}
