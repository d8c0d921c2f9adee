// config.go: settings struct and functions to load and save seedpix configuration.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Log rotation types
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // path to log file
	Rotation string // rotation type, daily, weekly or size
	MaxSize  int64  // max size in bytes for size rotation
}

// MainSettings contains main application settings.
type MainSettings struct {
	Name string    // name of this node, used in logs
	Log  LogConfig // main log settings
}

// CatalogSettings contains settings for the catalog input and resolved output.
type CatalogSettings struct {
	Input  string // path to the catalog spreadsheet
	Output string // path to the resolved CSV output
	Limit  int    // process only the first N rows, 0 for all
}

// ProbeSettings contains settings for the direct image probe tier.
type ProbeSettings struct {
	Host        string        // base URL of the catalog image host
	Concurrency int           // max concurrent probe requests
	Timeout     time.Duration // per-request timeout
}

// ScrapeSettings contains settings for the fallback media search tier.
type ScrapeSettings struct {
	Host              string        // base URL of the media repository
	Concurrency       int           // max concurrent search requests
	Timeout           time.Duration // per-request timeout
	RequestsPerSecond float64       // politeness rate limit shared by the pool
	UserAgent         string        // user agent sent on outbound requests
}

// Settings contains all runtime settings for seedpix.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main    MainSettings
	Catalog CatalogSettings
	Probe   ProbeSettings
	Scrape  ScrapeSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		if settingsInstance == nil {
			settings, err := Load()
			if err != nil {
				panic(fmt.Errorf("error loading settings: %w", err))
			}
			settingsInstance = settings
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Load reads the configuration into a new Settings struct.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults and flags cover everything
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the paths where a config file is searched for,
// current working directory first.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "seedpix"),
	}, nil
}

// SaveSettings writes the current settings to the given path as YAML.
func SaveSettings(settings *Settings, path string) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating directories for config file: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// ValidateSettings checks that the loaded settings are usable.
func ValidateSettings(settings *Settings) error {
	if settings.Probe.Concurrency < 1 {
		return fmt.Errorf("probe.concurrency must be >= 1, got %d", settings.Probe.Concurrency)
	}
	if settings.Scrape.Concurrency < 1 {
		return fmt.Errorf("scrape.concurrency must be >= 1, got %d", settings.Scrape.Concurrency)
	}
	if settings.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", settings.Probe.Timeout)
	}
	if settings.Scrape.Timeout <= 0 {
		return fmt.Errorf("scrape.timeout must be positive, got %s", settings.Scrape.Timeout)
	}
	// Zero disables rate limiting, so only negative values are rejected.
	if settings.Scrape.RequestsPerSecond < 0 {
		return fmt.Errorf("scrape.requestspersecond must be >= 0, got %f", settings.Scrape.RequestsPerSecond)
	}
	if settings.Probe.Host == "" || settings.Scrape.Host == "" {
		return fmt.Errorf("probe.host and scrape.host must not be empty")
	}
	if settings.Catalog.Limit < 0 {
		return fmt.Errorf("catalog.limit must be >= 0, got %d", settings.Catalog.Limit)
	}
	return nil
}
