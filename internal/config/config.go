package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/iTrooz/componentcache/internal/cache"
	"github.com/iTrooz/componentcache/internal/components"
	"github.com/iTrooz/componentcache/internal/storage"
)

// EnvPrefix prefixes every environment variable overriding the config file.
const EnvPrefix = "COMPONENTCACHE_"

// Config represents the application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`
	API     APIConfig     `yaml:"api" envPrefix:"API_"`
	Proxy   ProxyConfig   `yaml:"proxy" envPrefix:"PROXY_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// StorageConfig locates the record store
type StorageConfig struct {
	Root string `yaml:"root" env:"ROOT"`
	// Repair allows deleting a non-directory found at Root
	Repair bool `yaml:"repair" env:"REPAIR"`
}

// CacheConfig contains cache-related configuration
type CacheConfig struct {
	TTL         string `yaml:"ttl" env:"TTL"`
	ErrorPolicy string `yaml:"error_policy" env:"ERROR_POLICY"` // "surface" or "suppress"
}

// APIConfig configures the remote API transport
type APIConfig struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	Key     string `yaml:"key" env:"KEY"`
	Timeout string `yaml:"timeout" env:"TIMEOUT"`
}

// ProxyConfig contains caching proxy configuration
type ProxyConfig struct {
	Port  int         `yaml:"port" env:"PORT"`
	HTTPS HTTPSConfig `yaml:"https" envPrefix:"HTTPS_"`
	Rules RulesConfig `yaml:"rules"`
}

// HTTPSConfig enables TLS interception so HTTPS responses can be cached
type HTTPSConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED"`
	CACertFile string `yaml:"ca_cert_file" env:"CA_CERT_FILE"`
	CAKeyFile  string `yaml:"ca_key_file" env:"CA_KEY_FILE"`
	// TransparentPort, when set, also accepts redirected TLS traffic routed by SNI
	TransparentPort int `yaml:"transparent_port" env:"TRANSPARENT_PORT"`
}

// RulesConfig contains caching rules configuration
type RulesConfig struct {
	Mode  string      `yaml:"mode"` // "whitelist" or "blacklist"
	Rules []CacheRule `yaml:"rules"`
}

// CacheRule defines a caching rule
type CacheRule struct {
	BaseURI     string   `yaml:"base_uri"`
	Methods     []string `yaml:"methods"`
	StatusCodes []string `yaml:"status_codes"` // "200", "2xx", ...; empty matches any
}

// MatchesStatusCode reports whether code matches pattern, where pattern is an
// exact code ("404") or a class with 'x' wildcards ("2xx", "40x").
func MatchesStatusCode(code int, pattern string) bool {
	s := strconv.Itoa(code)
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if len(s) != len(pattern) {
		return false
	}
	for i := range pattern {
		if pattern[i] != 'x' && pattern[i] != s[i] {
			return false
		}
	}
	return true
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Load reads the YAML file at path, applies environment overrides and fills
// defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := config.setDefaults(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) setDefaults() error {
	if c.Storage.Root == "" {
		root, err := storage.DefaultRoot()
		if err != nil {
			return err
		}
		c.Storage.Root = root
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "1h"
	}
	if c.Cache.ErrorPolicy == "" {
		c.Cache.ErrorPolicy = string(cache.PolicySurface)
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = components.DefaultBaseURL
	}
	if c.API.Timeout == "" {
		c.API.Timeout = "30s"
	}
	if c.Proxy.Port == 0 {
		c.Proxy.Port = 8080
	}
	if c.Proxy.Rules.Mode == "" {
		c.Proxy.Rules.Mode = "whitelist"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// StorageRoot returns the storage root with a leading "~/" expanded.
func (c *Config) StorageRoot() (string, error) {
	root := c.Storage.Root
	if root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding storage root: %w", err)
		}
		root = filepath.Join(home, strings.TrimPrefix(root, "~"))
	}
	return root, nil
}

// GetCacheTTL parses and returns the cache TTL duration
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Cache.TTL)
}

// GetAPITimeout parses and returns the remote API timeout
func (c *Config) GetAPITimeout() (time.Duration, error) {
	return time.ParseDuration(c.API.Timeout)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage root is required")
	}

	if _, err := c.GetCacheTTL(); err != nil {
		return fmt.Errorf("invalid cache TTL format: %w", err)
	}

	if _, err := cache.ParseErrorPolicy(c.Cache.ErrorPolicy); err != nil {
		return err
	}

	if _, err := c.GetAPITimeout(); err != nil {
		return fmt.Errorf("invalid API timeout format: %w", err)
	}

	if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Proxy.Port)
	}

	if c.Proxy.Rules.Mode != "whitelist" && c.Proxy.Rules.Mode != "blacklist" {
		return fmt.Errorf("rules mode must be 'whitelist' or 'blacklist', got: %s", c.Proxy.Rules.Mode)
	}

	if c.Proxy.HTTPS.TransparentPort < 0 || c.Proxy.HTTPS.TransparentPort > 65535 {
		return fmt.Errorf("invalid transparent HTTPS port: %d", c.Proxy.HTTPS.TransparentPort)
	}

	if c.Proxy.HTTPS.TransparentPort != 0 && !c.Proxy.HTTPS.Enabled {
		return fmt.Errorf("transparent HTTPS requires proxy.https.enabled")
	}

	if (c.Proxy.HTTPS.CACertFile == "") != (c.Proxy.HTTPS.CAKeyFile == "") {
		return fmt.Errorf("proxy CA certificate and key must be set together")
	}

	return nil
}
