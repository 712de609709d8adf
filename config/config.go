// Package config provides loading and parsing of steadymq.yaml configuration files.
// Broker configurations define connection endpoints, identity settings, and
// session behavior for MQTT connectors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steadymq/sdk/types"
)

// ErrInvalid indicates a configuration that parsed but fails validation.
var ErrInvalid = errors.New("invalid broker configuration")

// Config represents a steadymq.yaml configuration file.
// This is the primary configuration for MQTT connectors: everything the
// builder options accept can also be declared here.
type Config struct {
	// Broker endpoint
	Host string `yaml:"host"`
	Port int    `yaml:"port,omitempty"` // default 1883

	// Identity
	AppName           string `yaml:"app_name"`
	InstanceID        string `yaml:"instance_id,omitempty"`
	MaxClientIDLength int    `yaml:"max_client_id_length,omitempty"` // default 23

	// Session behavior
	PersistentSession bool   `yaml:"persistent_session,omitempty"`
	KeepAlive         string `yaml:"keep_alive,omitempty"` // Go duration string, default 60s

	// Authentication
	Credentials *CredentialsConfig `yaml:"credentials,omitempty"`

	// Transport security
	TLS *TLSConfig `yaml:"tls,omitempty"`

	// Availability topic
	Availability *AvailabilityConfig `yaml:"availability,omitempty"`

	// Reconnect backoff
	Reconnect *ReconnectConfig `yaml:"reconnect,omitempty"`
}

// CredentialsConfig holds broker login credentials.
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

// TLSConfig enables encrypted broker connections.
type TLSConfig struct {
	// Enabled switches the transport to TLS.
	Enabled bool `yaml:"enabled"`

	// CACert is an optional path to a CA bundle for private broker CAs.
	// Empty means the system trust store.
	CACert string `yaml:"ca_cert,omitempty"`

	// AllowInsecure disables certificate verification. Test brokers only.
	AllowInsecure bool `yaml:"allow_insecure,omitempty"`
}

// AvailabilityConfig declares a retained availability topic. The connector
// publishes the online payload after connecting, the offline payload before
// disconnecting, and registers the offline payload as the last will.
type AvailabilityConfig struct {
	Topic          string `yaml:"topic"`
	PayloadOnline  string `yaml:"payload_online,omitempty"`  // default "online"
	PayloadOffline string `yaml:"payload_offline,omitempty"` // default "offline"
}

// ReconnectConfig bounds the reconnect backoff.
type ReconnectConfig struct {
	// MinDelay is the initial backoff. Format: Go duration string.
	// Default: 1s
	MinDelay string `yaml:"min_delay,omitempty"`

	// MaxDelay is the backoff cap. Format: Go duration string.
	// Default: 30s
	MaxDelay string `yaml:"max_delay,omitempty"`
}

// GetPort returns the configured port or the default 1883.
func (c *Config) GetPort() int {
	if c == nil || c.Port <= 0 {
		return 1883
	}
	return c.Port
}

// GetKeepAlive parses the keep-alive string and returns a duration.
// Returns the default 60s if not set or invalid.
func (c *Config) GetKeepAlive() time.Duration {
	if c == nil || c.KeepAlive == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(c.KeepAlive)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetMaxClientIDLength returns the configured client-id length budget or
// the default 23.
func (c *Config) GetMaxClientIDLength() int {
	if c == nil || c.MaxClientIDLength <= 0 {
		return 23
	}
	return c.MaxClientIDLength
}

// GetPayloadOnline returns the online payload or the default "online".
func (a *AvailabilityConfig) GetPayloadOnline() string {
	if a == nil || a.PayloadOnline == "" {
		return "online"
	}
	return a.PayloadOnline
}

// GetPayloadOffline returns the offline payload or the default "offline".
func (a *AvailabilityConfig) GetPayloadOffline() string {
	if a == nil || a.PayloadOffline == "" {
		return "offline"
	}
	return a.PayloadOffline
}

// Backoff converts the reconnect bounds into a BackoffConfig, substituting
// defaults for unset or unparseable values.
func (r *ReconnectConfig) Backoff() types.BackoffConfig {
	var cfg types.BackoffConfig
	if r == nil {
		return cfg
	}
	if d, err := time.ParseDuration(r.MinDelay); err == nil {
		cfg.Min = d
	}
	if d, err := time.ParseDuration(r.MaxDelay); err == nil {
		cfg.Max = d
	}
	return cfg
}

// Validate checks the configuration for values that cannot be defaulted
// away. It returns an error wrapping ErrInvalid describing the first
// problem found.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host must be set", ErrInvalid)
	}
	if c.AppName == "" {
		return fmt.Errorf("%w: app_name must be set", ErrInvalid)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.MaxClientIDLength != 0 && c.MaxClientIDLength < 8 {
		return fmt.Errorf("%w: max_client_id_length must be >= 8, got %d", ErrInvalid, c.MaxClientIDLength)
	}
	if c.KeepAlive != "" {
		if _, err := time.ParseDuration(c.KeepAlive); err != nil {
			return fmt.Errorf("%w: keep_alive %q is not a duration: %v", ErrInvalid, c.KeepAlive, err)
		}
	}
	if c.Credentials != nil && c.Credentials.Username == "" {
		return fmt.Errorf("%w: credentials require a username", ErrInvalid)
	}
	if c.Availability != nil && c.Availability.Topic == "" {
		return fmt.Errorf("%w: availability requires a topic", ErrInvalid)
	}
	if c.Reconnect != nil {
		if err := c.Reconnect.Backoff().Validate(); err != nil {
			return fmt.Errorf("%w: reconnect: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Load reads and parses a steadymq.yaml file from the given path.
// If the path is a directory, it looks for steadymq.yaml or steadymq.yml in
// that directory. The result is validated.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var configPath string
	if info.IsDir() {
		// Try steadymq.yaml first, then steadymq.yml
		yamlPath := filepath.Join(path, "steadymq.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "steadymq.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no steadymq.yaml or steadymq.yml found in %s", path)
			}
		}
	} else {
		configPath = path
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromDir searches for steadymq.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}
		if errors.Is(err, ErrInvalid) {
			// A config was found but is broken; surface that instead of
			// silently walking past it.
			return nil, err
		}

		// Move to parent directory
		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			return nil, fmt.Errorf("no steadymq.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads steadymq.yaml from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
