// Package config provides configuration loading and management for the wallet sync server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix for environment variables consumed by the server
	EnvPrefix = "WSS"

	// StorageTypeFile stores user records in a JSON file on the local filesystem
	StorageTypeFile = "file"

	// StorageTypePostgres stores user records in a PostgreSQL database
	StorageTypePostgres = "postgres"

	// StorageTypeMemory stores user records in memory only (lost on restart)
	StorageTypeMemory = "memory"
)

// Defaults applied when the corresponding config fields are empty.
const (
	defaultInterval            = time.Hour
	defaultWarmupDelay         = 5 * time.Second
	defaultUserDelay           = time.Second
	defaultCredentialLookahead = 10 * time.Minute
	defaultDataDir             = "./data"
)

// Config represents the root configuration structure
type Config struct {
	// Address is the listen address for the HTTP API (flag may override)
	Address string `yaml:"address,omitempty"`

	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync,omitempty"`
	Gym     GymConfig     `yaml:"gym"`
	Wallet  WalletConfig  `yaml:"wallet"`
}

// StorageConfig selects and configures the user record store backend
type StorageConfig struct {
	// Type is one of "file", "postgres" or "memory". Defaults to "file".
	Type string `yaml:"type,omitempty"`

	// DataDir is the directory holding users.json for the file backend
	DataDir string `yaml:"dataDir,omitempty"`

	// Database holds connection settings for the postgres backend
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// SyncConfig defines the scheduling policy for the synchronization engine.
// Durations are Go duration strings (e.g. "1h", "30s").
type SyncConfig struct {
	// Interval between scheduled batches. Defaults to 1h.
	Interval string `yaml:"interval,omitempty"`

	// WarmupDelay before the first batch after startup. Defaults to 5s.
	WarmupDelay string `yaml:"warmupDelay,omitempty"`

	// UserDelay between consecutive users within a batch. Defaults to 1s.
	UserDelay string `yaml:"userDelay,omitempty"`

	// CredentialLookahead is how far ahead of expiry access credentials
	// are rotated. Defaults to 10m.
	CredentialLookahead string `yaml:"credentialLookahead,omitempty"`
}

// GymConfig defines the membership API endpoints and client credentials
type GymConfig struct {
	// AuthURL is the OAuth token endpoint of the membership provider
	AuthURL string `yaml:"authURL"`

	// APIURL is the base URL of the membership API
	APIURL string `yaml:"apiURL"`

	// ClientID and ClientSecret authenticate this client at the token endpoint
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
}

// WalletConfig defines the Google Wallet issuer settings
type WalletConfig struct {
	// IssuerID is the wallet issuer account identifier
	IssuerID string `yaml:"issuerID"`

	// ClassSuffix identifies the pass class within the issuer account
	ClassSuffix string `yaml:"classSuffix,omitempty"`

	// ServiceAccountKeyFile is the path to the service account JSON key
	ServiceAccountKeyFile string `yaml:"serviceAccountKeyFile"`

	// Endpoint overrides the wallet objects API base URL (tests, proxies)
	Endpoint string `yaml:"endpoint,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// Falls back to the WSS_DATABASE_PASSWORD environment variable.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode,omitempty"`
}

// GetPassword returns the database password, preferring PasswordFile over
// the WSS_DATABASE_PASSWORD environment variable.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable",
		EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper
// password handling. The password is URL-escaped to handle special characters.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Resolve symlinks to prevent symlink attacks.
	// Note that this calls filepath.Clean internally.
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate symlinks: %w", err)
	}

	data, err := os.ReadFile(realPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetStorageType returns the configured storage type, defaulting to "file"
func (c *Config) GetStorageType() string {
	if c.Storage.Type == "" {
		return StorageTypeFile
	}
	return c.Storage.Type
}

// GetDataDir returns the data directory for the file backend
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir == "" {
		return defaultDataDir
	}
	return c.Storage.DataDir
}

// GetInterval returns the parsed batch interval
func (s *SyncConfig) GetInterval() time.Duration {
	return durationOrDefault(s.Interval, defaultInterval)
}

// GetWarmupDelay returns the parsed warm-up delay
func (s *SyncConfig) GetWarmupDelay() time.Duration {
	return durationOrDefault(s.WarmupDelay, defaultWarmupDelay)
}

// GetUserDelay returns the parsed inter-user delay
func (s *SyncConfig) GetUserDelay() time.Duration {
	return durationOrDefault(s.UserDelay, defaultUserDelay)
}

// GetCredentialLookahead returns the parsed credential rotation lookahead
func (s *SyncConfig) GetCredentialLookahead() time.Duration {
	return durationOrDefault(s.CredentialLookahead, defaultCredentialLookahead)
}

func durationOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateGym(); err != nil {
		return err
	}
	return c.validateWallet()
}

func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeFile, StorageTypeMemory:
		return nil
	case StorageTypePostgres:
		db := c.Storage.Database
		if db == nil {
			return fmt.Errorf("storage: database settings are required for postgres storage")
		}
		if db.Host == "" {
			return fmt.Errorf("storage: database.host is required")
		}
		if db.Port == 0 {
			return fmt.Errorf("storage: database.port is required")
		}
		if db.User == "" {
			return fmt.Errorf("storage: database.user is required")
		}
		if db.Database == "" {
			return fmt.Errorf("storage: database.database is required")
		}
		return nil
	default:
		return fmt.Errorf("storage: unknown storage type %q", c.Storage.Type)
	}
}

func (c *Config) validateSync() error {
	fields := map[string]string{
		"sync.interval":            c.Sync.Interval,
		"sync.warmupDelay":         c.Sync.WarmupDelay,
		"sync.userDelay":           c.Sync.UserDelay,
		"sync.credentialLookahead": c.Sync.CredentialLookahead,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a valid duration (e.g. '30m', '1h'): %w", name, err)
		}
		// The warm-up and inter-user delays may be zero; the interval may not.
		if name == "sync.interval" && d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateGym() error {
	if c.Gym.AuthURL == "" {
		return fmt.Errorf("gym: authURL is required")
	}
	if c.Gym.APIURL == "" {
		return fmt.Errorf("gym: apiURL is required")
	}
	if c.Gym.ClientID == "" {
		return fmt.Errorf("gym: clientID is required")
	}
	return nil
}

func (c *Config) validateWallet() error {
	if c.Wallet.IssuerID == "" {
		return fmt.Errorf("wallet: issuerID is required")
	}
	if c.Wallet.ServiceAccountKeyFile == "" {
		return fmt.Errorf("wallet: serviceAccountKeyFile is required")
	}
	return nil
}
