// Package config loads archivist settings from ~/.archivist/config.yaml, the
// environment, and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/archivist/internal/oracle"
)

// Environment variables that override the config file.
const (
	EnvBackend     = "ARCHIVIST_BACKEND"
	EnvDoubaoKey   = "ARCHIVIST_DOUBAO_API_KEY"
	EnvDeepSeekKey = "ARCHIVIST_DEEPSEEK_API_KEY"
	EnvTimeout     = "ARCHIVIST_TIMEOUT"
)

// Config holds archivist configuration.
type Config struct {
	// Backend selects the completion service used for classification.
	Backend oracle.Backend `yaml:"backend"`
	// Credentials maps each backend to its API key.
	Credentials oracle.Credentials `yaml:"credentials"`
	// Timeout bounds one classification round trip.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of extra attempts after a transport failure.
	MaxRetries int `yaml:"max_retries"`
	// Concurrency is the classification window size.
	Concurrency int       `yaml:"concurrency"`
	RateLimit   RateLimit `yaml:"rate_limit"`
	LogLevel    string    `yaml:"log_level"`
	LogDir      string    `yaml:"log_dir"`
	DBPath      string    `yaml:"db_path"`
	RulesPath   string    `yaml:"rules_path"`
	Watch       Watch     `yaml:"watch"`
}

// RateLimit throttles outgoing oracle requests. RPS 0 disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Watch configures `archivist watch`.
type Watch struct {
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval"`
}

// Dir returns ~/.archivist, or .archivist when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".archivist"
	}
	return filepath.Join(home, ".archivist")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Backend:     oracle.BackendDoubao,
		Credentials: oracle.Credentials{},
		Timeout:     30 * time.Second,
		MaxRetries:  3,
		Concurrency: 1,
		RateLimit:   RateLimit{RPS: 0, Burst: 1},
		LogLevel:    "info",
		LogDir:      filepath.Join(dir, "logs"),
		DBPath:      filepath.Join(dir, "archivist.db"),
		RulesPath:   filepath.Join(dir, "rules.txt"),
		Watch: Watch{
			Debounce: 2 * time.Second,
			Interval: 0,
		},
	}
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults without consulting the environment
// or validating. Use it to edit and re-save the file.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if cfg.Credentials == nil {
		cfg.Credentials = oracle.Credentials{}
	}
	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = oracle.Backend(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv(EnvDoubaoKey); v != "" {
		c.Credentials[oracle.BackendDoubao] = v
	}
	if v := os.Getenv(EnvDeepSeekKey); v != "" {
		c.Credentials[oracle.BackendDeepSeek] = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// parseTimeout accepts a Go duration ("45s") or whole seconds ("45").
func parseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) expandPaths() {
	c.LogDir = expandHome(c.LogDir)
	c.DBPath = expandHome(c.DBPath)
	c.RulesPath = expandHome(c.RulesPath)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if !oracle.Known(c.Backend) {
		return fmt.Errorf("%w: unknown backend %q, must be one of %v", ErrInvalidConfig, c.Backend, oracle.Backends())
	}
	for b := range c.Credentials {
		if !oracle.Known(b) {
			return fmt.Errorf("%w: credential for unknown backend %q", ErrInvalidConfig, b)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("%w: rate_limit.rps must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: rate_limit.burst must be at least 1", ErrInvalidConfig)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Watch.Debounce < 0 || c.Watch.Interval < 0 {
		return fmt.Errorf("%w: watch durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Credential returns the API key for b, or "".
func (c *Config) Credential(b oracle.Backend) string {
	return c.Credentials[b]
}

// SetCredential stores key for b.
func (c *Config) SetCredential(b oracle.Backend, key string) error {
	if !oracle.Known(b) {
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, b)
	}
	if c.Credentials == nil {
		c.Credentials = oracle.Credentials{}
	}
	c.Credentials[b] = strings.TrimSpace(key)
	return nil
}

// Redacted returns a copy safe to print, with API keys masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Credentials = make(oracle.Credentials, len(c.Credentials))
	for b, k := range c.Credentials {
		out.Credentials[b] = Mask(k)
	}
	return &out
}

// Mask hides all but the first and last four characters of a key.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
