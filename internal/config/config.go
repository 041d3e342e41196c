package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/seltzinger/airsync/internal/types"
	"github.com/seltzinger/airsync/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// JournalFileName is the default transfer journal database name
	JournalFileName = "journal.db"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "AIRSYNC_"
)

// Config holds application configuration
type Config struct {
	// DeviceURL is the base URL of the card's HTTP API
	DeviceURL string `json:"deviceUrl"`

	// RemoteDir is the default directory on the card
	RemoteDir string `json:"remoteDir"`

	// LocalDir is the default local directory
	LocalDir string `json:"localDir"`

	// DefaultOutputFormat is the default output format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`

	// TimeoutSeconds is the per-request device timeout in seconds
	TimeoutSeconds int `json:"timeoutSeconds"`

	// MaxRetries is the maximum number of retries for device calls
	MaxRetries int `json:"maxRetries"`

	// RetryDelayMs is the base delay for exponential backoff in milliseconds
	RetryDelayMs int `json:"retryDelayMs"`

	// JournalPath overrides the transfer journal location
	JournalPath string `json:"journalPath"`

	// LogLevel sets the logging verbosity (error, warn, info, debug)
	LogLevel string `json:"logLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DeviceURL:           utils.DefaultDeviceURL,
		RemoteDir:           utils.DefaultRemoteDir,
		LocalDir:            utils.DefaultLocalDir,
		DefaultOutputFormat: types.OutputFormatTable,
		TimeoutSeconds:      60,
		MaxRetries:          utils.DefaultMaxRetries,
		RetryDelayMs:        utils.DefaultRetryDelayMs,
		LogLevel:            "info",
	}
}

// Load loads configuration with precedence: CLI flags > env vars > config file > defaults
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from an explicit file path, falling back
// to the default location when path is empty.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from the config file
func (c *Config) loadFromFile(path string) error {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvPrefix + "DEVICE_URL"); v != "" {
		c.DeviceURL = v
	}
	if v := os.Getenv(EnvPrefix + "REMOTE_DIR"); v != "" {
		c.RemoteDir = v
	}
	if v := os.Getenv(EnvPrefix + "LOCAL_DIR"); v != "" {
		c.LocalDir = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "TIMEOUT_SECONDS"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			c.TimeoutSeconds = timeout
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = retries
		}
	}
	if v := os.Getenv(EnvPrefix + "RETRY_DELAY_MS"); v != "" {
		if delay, err := strconv.Atoi(v); err == nil {
			c.RetryDelayMs = delay
		}
	}
	if v := os.Getenv(EnvPrefix + "JOURNAL_PATH"); v != "" {
		c.JournalPath = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.DeviceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid device URL: %s", c.DeviceURL)
	}

	if !strings.HasPrefix(c.RemoteDir, "/") {
		return fmt.Errorf("remote dir must be absolute, got: %s", c.RemoteDir)
	}

	if c.LocalDir == "" {
		return fmt.Errorf("local dir must not be empty")
	}

	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > 3600 {
		return fmt.Errorf("timeout must be between 1 and 3600 seconds, got: %d", c.TimeoutSeconds)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryDelayMs < 100 || c.RetryDelayMs > 60000 {
		return fmt.Errorf("retry delay must be between 100ms and 60000ms, got: %d", c.RetryDelayMs)
	}

	validLogLevels := []string{"error", "warn", "info", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// GetTimeout returns the request timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetRetryDelay returns the retry base delay as a duration
func (c *Config) GetRetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// GetJournalPath returns the transfer journal location, defaulting to
// the config directory.
func (c *Config) GetJournalPath() (string, error) {
	if c.JournalPath != "" {
		return c.JournalPath, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, JournalFileName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "airsync"), nil
}
