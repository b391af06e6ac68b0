package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBase    = "http://localhost:8000"
	DefaultListenAddr = ":3000"
	DefaultDataDir    = "episodes"
	DefaultWidth      = 400
	DefaultHeight     = 300
	DefaultFPS        = 60
	DefaultKeyHold    = 150 * time.Millisecond
)

type Config struct {
	APIBase     string `yaml:"api_base" env:"AXIS_API_BASE"`
	ListenAddr  string `yaml:"listen_addr" env:"AXIS_LISTEN_ADDR"`
	DataDir     string `yaml:"data_dir" env:"AXIS_DATA_DIR"`
	LogLevel    string `yaml:"log_level" env:"AXIS_LOG_LEVEL"`
	LogFile     string `yaml:"log_file" env:"AXIS_LOG_FILE"`
	AccessToken string `yaml:"-" env:"AXIS_ACCESS_TOKEN"`

	Viewer ViewerConfig `yaml:"viewer"`
	Auth   AuthConfig   `yaml:"auth"`
}

type ViewerConfig struct {
	// Model is a preset name or a path to a model file.
	Model   string        `yaml:"model"`
	Policy  string        `yaml:"policy"`
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	FPS     int           `yaml:"fps"`
	Paused  bool          `yaml:"paused"`
	Record  bool          `yaml:"record"`
	KeyHold time.Duration `yaml:"key_hold"`
}

type AuthConfig struct {
	TokenAttempts    int           `yaml:"token_attempts"`
	TokenWait        time.Duration `yaml:"token_wait"`
	ExchangeBase     time.Duration `yaml:"exchange_base"`
	ExchangeCap      time.Duration `yaml:"exchange_cap"`
	ExchangeAttempts int           `yaml:"exchange_attempts"`
}

func DefaultConfig() *Config {
	return &Config{
		APIBase:    DefaultAPIBase,
		ListenAddr: DefaultListenAddr,
		DataDir:    DefaultDataDir,
		LogLevel:   "info",
		Viewer: ViewerConfig{
			Model:   "box",
			Policy:  "none",
			Width:   DefaultWidth,
			Height:  DefaultHeight,
			FPS:     DefaultFPS,
			KeyHold: DefaultKeyHold,
		},
		Auth: AuthConfig{
			TokenAttempts:    5,
			TokenWait:        250 * time.Millisecond,
			ExchangeBase:     time.Second,
			ExchangeCap:      30 * time.Second,
			ExchangeAttempts: 8,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve builds the effective configuration: defaults, then the YAML file
// at path when it is set, then AXIS_* environment variables.
func Resolve(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewer size must be positive, got %dx%d", c.Viewer.Width, c.Viewer.Height))
	}
	if c.Viewer.FPS <= 0 {
		errs = append(errs, fmt.Errorf("viewer fps must be positive, got %d", c.Viewer.FPS))
	}
	if c.Auth.TokenAttempts <= 0 || c.Auth.ExchangeAttempts <= 0 {
		errs = append(errs, errors.New("auth attempts must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}
