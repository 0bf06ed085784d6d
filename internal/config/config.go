// Package config loads factform settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dlovans/factform/pkg/form"
)

// Config holds all factform settings.
type Config struct {
	// Page is the HTML form page to mount.
	Page string `yaml:"page"`
	// Dictionary is the YAML fact dictionary backing the page.
	Dictionary string `yaml:"dictionary"`
	// Listen is the address serve binds to.
	Listen string `yaml:"listen"`
	// Watch reloads the page when the file changes on disk.
	Watch bool `yaml:"watch"`

	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`

	// Operators maps extra condition operator names onto expr sources
	// evaluated over hasValue, complete and value.
	Operators map[string]string `yaml:"operators"`
	Messages  form.Messages     `yaml:"messages"`
}

// SessionConfig configures stored sessions.
type SessionConfig struct {
	// Database is the SQLite file holding serialized graphs. Empty keeps
	// sessions in memory only.
	Database string `yaml:"database"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Page:       "form.html",
		Dictionary: "facts.yaml",
		Listen:     "127.0.0.1:8080",
		Session: SessionConfig{
			Database: "data/sessions.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Operators: map[string]string{},
		Messages:  form.DefaultMessages(),
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; paths in the file are resolved against its directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.resolve(filepath.Dir(path))

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Page, &c.Dictionary, &c.Session.Database} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FACTFORM_PAGE"); v != "" {
		c.Page = v
	}
	if v := os.Getenv("FACTFORM_DICTIONARY"); v != "" {
		c.Dictionary = v
	}
	if v := os.Getenv("FACTFORM_LISTEN"); v != "" {
		c.Listen = v
	}
	if v, ok := os.LookupEnv("FACTFORM_SESSION_DB"); ok {
		c.Session.Database = v
	}
	if v := os.Getenv("FACTFORM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FACTFORM_LOG_DEVELOPMENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Development = b
		}
	}
	if v := os.Getenv("FACTFORM_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Watch = b
		}
	}
}

// ValidLevels lists the accepted logging levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Page == "" {
		return fmt.Errorf("no form page configured (set page or FACTFORM_PAGE)")
	}
	if c.Dictionary == "" {
		return fmt.Errorf("no fact dictionary configured (set dictionary or FACTFORM_DICTIONARY)")
	}

	validLevel := false
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}

	for name, src := range c.Operators {
		if name == "" || src == "" {
			return fmt.Errorf("operator %q needs a name and an expression", name)
		}
		if name == form.OpIsTrue || name == form.OpIsFalse {
			return fmt.Errorf("operator %q is built in and cannot be redefined", name)
		}
	}

	return nil
}

// BuildOperators returns the built-in operators plus every configured one.
func (c *Config) BuildOperators() (*form.Operators, error) {
	ops := form.NewOperators()
	for name, src := range c.Operators {
		if err := ops.RegisterExpr(name, src); err != nil {
			return nil, err
		}
	}
	return ops, nil
}
