// Package config loads the pipeline configuration from a YAML file plus
// the environment. Credentials never live in the file: it names the
// environment variables they arrive in, and they are resolved once at
// process start.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goforsam/toast-etl/pkg/ratelimit"
)

// Duration is a time.Duration that unmarshals from YAML strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full pipeline configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Tenants   []Tenant        `yaml:"tenants"`

	// RateLimits overrides the per-class floor intervals, in seconds.
	// Classes absent from the map keep their defaults.
	RateLimits map[string]int `yaml:"rate_limits"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig describes the Toast API connection.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`

	// ClientIDEnv and ClientSecretEnv name the environment variables that
	// carry the machine-client credentials.
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`

	PageSize       int      `yaml:"page_size"`
	MaxPages       int      `yaml:"max_pages"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// WarehouseConfig describes the DuckDB target.
type WarehouseConfig struct {
	Path string `yaml:"path"`
}

// Tenant is one restaurant the pipeline pulls data for.
type Tenant struct {
	GUID string `yaml:"guid"`
	Name string `yaml:"name"`
}

// LoggingConfig holds the log settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig holds the optional metrics listener address; empty
// disables serving.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads, parses, defaults, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values with the production defaults.
func (c *Config) ApplyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://ws-api.toasttab.com"
	}
	if c.API.ClientIDEnv == "" {
		c.API.ClientIDEnv = "TOAST_CLIENT_ID"
	}
	if c.API.ClientSecretEnv == "" {
		c.API.ClientSecretEnv = "TOAST_CLIENT_SECRET"
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = 100
	}
	if c.API.MaxPages == 0 {
		c.API.MaxPages = 100
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = Duration(90 * time.Second)
	}
	if c.Warehouse.Path == "" {
		c.Warehouse.Path = "./toast.duckdb"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for the errors that would otherwise
// surface mid-run.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.ClientIDEnv == "" || c.API.ClientSecretEnv == "" {
		return fmt.Errorf("api.client_id_env and api.client_secret_env are required")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive")
	}
	if c.API.MaxPages <= 0 {
		return fmt.Errorf("api.max_pages must be positive")
	}
	if len(c.Tenants) == 0 {
		return fmt.Errorf("at least one tenant is required")
	}
	for i, tenant := range c.Tenants {
		if tenant.GUID == "" {
			return fmt.Errorf("tenants[%d] is missing its guid", i)
		}
	}
	for class, seconds := range c.RateLimits {
		if seconds <= 0 {
			return fmt.Errorf("rate_limits.%s must be positive seconds", class)
		}
	}
	return nil
}

// Credentials resolves the machine-client credentials from the configured
// environment variables.
func (c *Config) Credentials() (clientID, clientSecret string, err error) {
	clientID = os.Getenv(c.API.ClientIDEnv)
	clientSecret = os.Getenv(c.API.ClientSecretEnv)
	if clientID == "" || clientSecret == "" {
		return "", "", fmt.Errorf("credentials missing: set %s and %s", c.API.ClientIDEnv, c.API.ClientSecretEnv)
	}
	return clientID, clientSecret, nil
}

// RateLimitIntervals returns the per-class floor intervals: the defaults
// with the configured overrides applied.
func (c *Config) RateLimitIntervals() map[ratelimit.EndpointClass]time.Duration {
	intervals := ratelimit.DefaultIntervals()
	for class, seconds := range c.RateLimits {
		intervals[ratelimit.EndpointClass(class)] = time.Duration(seconds) * time.Second
	}
	return intervals
}

// TenantGUIDs returns the configured tenant GUIDs in order.
func (c *Config) TenantGUIDs() []string {
	guids := make([]string, len(c.Tenants))
	for i, tenant := range c.Tenants {
		guids[i] = tenant.GUID
	}
	return guids
}
