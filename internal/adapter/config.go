package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Account  AccountConfig  `mapstructure:"account"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig holds the remote service endpoint and the client tokens
type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Token         string `mapstructure:"token"`          // general API token
	PlaylistToken string `mapstructure:"playlist_token"` // token whose sessions may edit playlists
	PreviewToken  string `mapstructure:"preview_token"`  // anonymous preview access
}

// AccountConfig holds the persisted user session. Password is never
// stored; a login exchanges it for the session ids below.
type AccountConfig struct {
	Username          string `mapstructure:"username"`
	UserID            string `mapstructure:"user_id"`
	SessionID         string `mapstructure:"session_id"`
	PlaylistSessionID string `mapstructure:"playlist_session_id"`
	CountryCode       string `mapstructure:"country_code"`
	SubscriptionType  string `mapstructure:"subscription_type"` // "HIFI", "PREMIUM" or "FREE"
}

// CacheConfig controls the metadata cache. The three switches map to
// the favorites sets, the user-playlist index and the album store.
type CacheConfig struct {
	Dir       string `mapstructure:"dir"` // empty = default path
	Favorites bool   `mapstructure:"favorites"`
	Playlists bool   `mapstructure:"playlists"`
	Albums    bool   `mapstructure:"albums"`
}

// FetchConfig bounds the batch fetcher and request pacing
type FetchConfig struct {
	MaxRequests       int     `mapstructure:"max_requests"` // parallel workers per batch
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	PageSize          int     `mapstructure:"page_size"`
}

// PlaybackConfig holds stream resolution preferences
type PlaybackConfig struct {
	Quality string `mapstructure:"quality"` // LOW, HIGH or LOSSLESS
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.tidalhifi.com/v1",
		},
		Cache: CacheConfig{
			Dir:       defaultCachePath(),
			Favorites: true,
			Playlists: true,
			Albums:    true,
		},
		Fetch: FetchConfig{
			MaxRequests:       5,
			RequestsPerSecond: 10,
			PageSize:          100,
		},
		Playback: PlaybackConfig{
			Quality: "HIGH",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "coda", "coda.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "coda", "coda.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "coda")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "coda")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "coda", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "coda", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("CODA")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("api.base_url", cfg.API.BaseURL)
	viper.Set("api.token", cfg.API.Token)
	viper.Set("api.playlist_token", cfg.API.PlaylistToken)
	viper.Set("api.preview_token", cfg.API.PreviewToken)

	viper.Set("account.username", cfg.Account.Username)
	viper.Set("account.user_id", cfg.Account.UserID)
	viper.Set("account.session_id", cfg.Account.SessionID)
	viper.Set("account.playlist_session_id", cfg.Account.PlaylistSessionID)
	viper.Set("account.country_code", cfg.Account.CountryCode)
	viper.Set("account.subscription_type", cfg.Account.SubscriptionType)

	viper.Set("cache.dir", cfg.Cache.Dir)
	viper.Set("cache.favorites", cfg.Cache.Favorites)
	viper.Set("cache.playlists", cfg.Cache.Playlists)
	viper.Set("cache.albums", cfg.Cache.Albums)

	viper.Set("fetch.max_requests", cfg.Fetch.MaxRequests)
	viper.Set("fetch.requests_per_second", cfg.Fetch.RequestsPerSecond)
	viper.Set("fetch.page_size", cfg.Fetch.PageSize)

	viper.Set("playback.quality", cfg.Playback.Quality)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	return writeConfigFile()
}

// SaveSession updates just the persisted account session
func SaveSession(account AccountConfig) error {
	viper.Set("account.username", account.Username)
	viper.Set("account.user_id", account.UserID)
	viper.Set("account.session_id", account.SessionID)
	viper.Set("account.playlist_session_id", account.PlaylistSessionID)
	viper.Set("account.country_code", account.CountryCode)
	viper.Set("account.subscription_type", account.SubscriptionType)

	return writeConfigFile()
}

// ClearSession removes the persisted account session while preserving
// other settings
func ClearSession() error {
	viper.Set("account.username", "")
	viper.Set("account.user_id", "")
	viper.Set("account.session_id", "")
	viper.Set("account.playlist_session_id", "")
	viper.Set("account.country_code", "")
	viper.Set("account.subscription_type", "")

	return writeConfigFile()
}

func writeConfigFile() error {
	configPath := defaultConfigPath()

	// Ensure config directory exists
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsLoggedIn returns true if a persisted session is present
func (c *Config) IsLoggedIn() bool {
	return c.Account.UserID != "" && c.Account.SessionID != ""
}

// CacheDir returns the configured cache directory, falling back to the
// OS default
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return defaultCachePath()
}

// ClearCache removes all cached data
func (c *Config) ClearCache() error {
	if err := os.RemoveAll(c.CacheDir()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
