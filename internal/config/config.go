package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benaskins/sidecar/internal/health"
)

// Config holds sidecar host configuration loaded from ~/.sidecar/config.yaml.
type Config struct {
	Port         int      `yaml:"port,omitempty"`
	HealthPath   string   `yaml:"health_path,omitempty"`
	ReadyTimeout Duration `yaml:"ready_timeout,omitempty"`
	PollInterval Duration `yaml:"poll_interval,omitempty"`
	DialTimeout  Duration `yaml:"dial_timeout,omitempty"`
	IOTimeout    Duration `yaml:"io_timeout,omitempty"`

	ResourceDir string `yaml:"resource_dir,omitempty"`
	DevMode     bool   `yaml:"dev_mode,omitempty"`

	Log         Log    `yaml:"log,omitempty"`
	Journal     string `yaml:"journal,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Log configures the log sink.
type Log struct {
	File       string `yaml:"file,omitempty"`
	Level      string `yaml:"level,omitempty"` // debug | info | warn | error
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "15s", "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

func (d Duration) IsZero() bool {
	return d.Duration == 0
}

// Dir returns the sidecar state directory: ~/.sidecar.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sidecar")
}

// DefaultPath returns the default config file path: ~/.sidecar/config.yaml.
func DefaultPath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns the defaults and no error. An empty or all-comment file
// also returns the defaults with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = health.DefaultPort
	}
	if c.HealthPath == "" {
		c.HealthPath = health.DefaultPath
	}
	if c.ReadyTimeout.IsZero() {
		c.ReadyTimeout.Duration = health.DefaultTimeout
	}
	if c.PollInterval.IsZero() {
		c.PollInterval.Duration = health.DefaultInterval
	}
	if c.DialTimeout.IsZero() {
		c.DialTimeout.Duration = health.DefaultDialTimeout
	}
	if c.IOTimeout.IsZero() {
		c.IOTimeout.Duration = health.DefaultIOTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 7
	}
}

// Validate checks the configuration for values the probe cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if err := health.ValidPath(c.HealthPath); err != nil {
		errs = append(errs, fmt.Errorf("health_path: %w", err))
	}
	for name, d := range map[string]Duration{
		"ready_timeout": c.ReadyTimeout,
		"poll_interval": c.PollInterval,
		"dial_timeout":  c.DialTimeout,
		"io_timeout":    c.IOTimeout,
	} {
		if d.Duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d.Duration))
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Health returns the readiness probe settings.
func (c *Config) Health() health.Config {
	return health.Config{
		Port:        c.Port,
		Path:        c.HealthPath,
		Timeout:     c.ReadyTimeout.Duration,
		Interval:    c.PollInterval.Duration,
		DialTimeout: c.DialTimeout.Duration,
		IOTimeout:   c.IOTimeout.Duration,
	}
}
