package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Grid    GridConfig    `mapstructure:"grid"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the studio backend connection
type ServerConfig struct {
	URL   string `mapstructure:"url"`   // API base, e.g. https://studio.example.com/api
	Token string `mapstructure:"token"` // Bearer token of the partner session
}

// SessionConfig binds the client to one project and gallery
type SessionConfig struct {
	ProjectID int `mapstructure:"project_id"`
	GalleryID int `mapstructure:"gallery_id"`
}

// QueueConfig holds the save queue timings in milliseconds
type QueueConfig struct {
	DebounceMs   int `mapstructure:"debounce_ms"`
	MaxRetries   int `mapstructure:"max_retries"`
	RetryDelayMs int `mapstructure:"retry_delay_ms"`
	TimeoutMs    int `mapstructure:"timeout_ms"`
}

// GridConfig holds layout settings
type GridConfig struct {
	GapPx            int  `mapstructure:"gap_px"`
	CellPx           int  `mapstructure:"cell_px"` // pixels per terminal column
	ResizeDebounceMs int  `mapstructure:"resize_debounce_ms"`
	PageSize         int  `mapstructure:"page_size"`
	VirtualScroll    bool `mapstructure:"virtual_scroll"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			DebounceMs:   300,
			MaxRetries:   2,
			RetryDelayMs: 1000,
			TimeoutMs:    15000,
		},
		Grid: GridConfig{
			GapPx:            12,
			CellPx:           10,
			ResizeDebounceMs: 150,
			PageSize:         100,
			VirtualScroll:    true,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// Millis converts a millisecond setting to a duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tablo", "tablo.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tablo", "tablo.log")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "tablo")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tablo")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "tablo", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "tablo", "cache")
	}
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigPath(), ".")
}

// LoadConfigFrom loads config.yaml from the first of dirs that has one.
// TABLO_* environment variables override file values, e.g.
// TABLO_SESSION_GALLERY_ID.
func LoadConfigFrom(dirs ...string) (*Config, error) {
	v := newViper()
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TABLO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setValues(v.SetDefault, DefaultConfig())
	return v
}

// setValues writes every key with its snake_case name
func setValues(set func(string, any), cfg *Config) {
	set("server.url", cfg.Server.URL)
	set("server.token", cfg.Server.Token)

	set("session.project_id", cfg.Session.ProjectID)
	set("session.gallery_id", cfg.Session.GalleryID)

	set("queue.debounce_ms", cfg.Queue.DebounceMs)
	set("queue.max_retries", cfg.Queue.MaxRetries)
	set("queue.retry_delay_ms", cfg.Queue.RetryDelayMs)
	set("queue.timeout_ms", cfg.Queue.TimeoutMs)

	set("grid.gap_px", cfg.Grid.GapPx)
	set("grid.cell_px", cfg.Grid.CellPx)
	set("grid.resize_debounce_ms", cfg.Grid.ResizeDebounceMs)
	set("grid.page_size", cfg.Grid.PageSize)
	set("grid.virtual_scroll", cfg.Grid.VirtualScroll)

	set("logging.file", cfg.Logging.File)
	set("logging.level", cfg.Logging.Level)
}

// SaveConfig saves the configuration to the default config directory
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(DefaultConfigPath(), cfg)
}

// SaveConfigTo writes cfg as dir/config.yaml
func SaveConfigTo(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setValues(v.Set, cfg)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// The file holds the bearer token
	if err := os.Chmod(configFile, 0600); err != nil {
		return fmt.Errorf("failed to restrict config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if the server, token and gallery are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != "" && c.Session.GalleryID > 0
}

// ClearCache removes all cached data
func ClearCache() error {
	cachePath := defaultCachePath()
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
