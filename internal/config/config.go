package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seralin/baleen/internal/scan"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Scan     ScanConfig     `yaml:"scan"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds API authentication settings. An empty token disables
// authentication, which is only sensible for localhost deployments.
type AuthConfig struct {
	APIToken string `yaml:"api_token"`
}

// ScanConfig holds the default scan scope. A scope persisted through the
// API takes precedence over these values.
type ScanConfig struct {
	Directories              []scan.Directory `yaml:"directories"`
	UseRecommendedExclusions bool             `yaml:"use_recommended_exclusions"`
	CustomExclusions         []string         `yaml:"custom_exclusions"`
}

// Scope converts the configured defaults into a scan scope.
func (c ScanConfig) Scope() scan.Scope {
	return scan.Scope{
		Directories:              c.Directories,
		UseRecommendedExclusions: c.UseRecommendedExclusions,
		CustomExclusions:         c.CustomExclusions,
	}
}

// IndexerConfig holds settings for the external indexing subsystem.
type IndexerConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
}

// WatcherConfig holds filesystem watcher settings.
type WatcherConfig struct {
	Enabled         bool `yaml:"enabled"`
	DebounceSeconds int  `yaml:"debounce_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8461,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "/data/baleen.db",
		},
		Scan: ScanConfig{
			UseRecommendedExclusions: true,
		},
		Indexer: IndexerConfig{
			PageSize: 200,
		},
		Watcher: WatcherConfig{
			Enabled:         true,
			DebounceSeconds: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("BL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BL_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("BL_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BL_API_TOKEN"); v != "" {
		c.Auth.APIToken = v
	}
	if v := os.Getenv("BL_SCAN_DIRS"); v != "" {
		c.Scan.Directories = nil
		for _, p := range strings.Split(v, ":") {
			if p = strings.TrimSpace(p); p != "" {
				c.Scan.Directories = append(c.Scan.Directories, scan.Directory{Path: p})
			}
		}
	}
	if v := os.Getenv("BL_INDEXER_URL"); v != "" {
		c.Indexer.BaseURL = v
	}
	if v := os.Getenv("BL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Indexer.PageSize < 1 {
		c.Indexer.PageSize = 200
	}
	if c.Watcher.DebounceSeconds < 1 {
		c.Watcher.DebounceSeconds = 5
	}
	for _, d := range c.Scan.Directories {
		if d.Path == "" {
			return fmt.Errorf("scan directory with empty path")
		}
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
