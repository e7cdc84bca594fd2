package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/imkarma/taskboard/internal/board"
)

// DefaultTokenEnv is read when no inline token is configured.
const DefaultTokenEnv = "TASKBOARD_AUTH_TOKEN"

// Config is the root configuration for a taskboard project.
type Config struct {
	Version    int        `yaml:"version"`
	Service    Service    `yaml:"service"`
	UsersCache UsersCache `yaml:"users_cache"`
	Reconcile  string     `yaml:"reconcile,omitempty"` // rollback, reload or keep
	Log        Log        `yaml:"log"`
}

// Service describes how to reach the remote task service.
type Service struct {
	BaseURL      string `yaml:"base_url"`
	AuthToken    string `yaml:"auth_token,omitempty"`     // Inline token (prefer auth_token_env)
	AuthTokenEnv string `yaml:"auth_token_env,omitempty"` // Env var name containing the token
	TimeoutSec   int    `yaml:"timeout_sec,omitempty"`    // Request timeout (0 = default 15)
}

// UsersCache selects where the user list is kept between sessions.
type UsersCache struct {
	Backend  string `yaml:"backend"`             // sqlite, redis or none
	RedisURL string `yaml:"redis_url,omitempty"` // redis://host:port/db
	RedisKey string `yaml:"redis_key,omitempty"`
	TTL      string `yaml:"ttl,omitempty"` // Go duration, empty = never expire
}

// Log configures the log file. The terminal belongs to the board.
type Log struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Token resolves the auth token: the inline value wins, then the named
// environment variable.
func (s Service) Token() string {
	if s.AuthToken != "" {
		return s.AuthToken
	}
	env := s.AuthTokenEnv
	if env == "" {
		env = DefaultTokenEnv
	}
	return os.Getenv(env)
}

// Timeout returns the effective request timeout.
func (s Service) Timeout() time.Duration {
	if s.TimeoutSec > 0 {
		return time.Duration(s.TimeoutSec) * time.Second
	}
	return 15 * time.Second
}

// CacheTTL returns the parsed ttl. Invalid values are rejected by Load, so
// they read as zero here.
func (u UsersCache) CacheTTL() time.Duration {
	if u.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(u.TTL)
	if err != nil {
		return 0
	}
	return d
}

// Policy returns the reconcile policy, defaulting to rollback.
func (c *Config) Policy() board.Policy {
	p, err := board.ParsePolicy(c.Reconcile)
	if err != nil {
		return board.PolicyRollback
	}
	return p
}

// LoadEnv loads a .env file from the working directory, if there is one.
// Variables already set in the environment are not overridden.
func LoadEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config pointing at the public service.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Service: Service{
			BaseURL:      "https://devza.com/tests",
			AuthTokenEnv: DefaultTokenEnv,
			TimeoutSec:   15,
		},
		UsersCache: UsersCache{
			Backend: "sqlite",
			TTL:     "24h",
		},
		Reconcile: string(board.PolicyRollback),
		Log: Log{
			Level: "info",
			File:  "taskboard.log",
		},
	}
}

func (c *Config) validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service: base_url is required")
	}
	if c.Service.TimeoutSec < 0 {
		return fmt.Errorf("service: timeout_sec must not be negative, got %d", c.Service.TimeoutSec)
	}

	switch c.UsersCache.Backend {
	case "", "sqlite", "none":
	case "redis":
		if c.UsersCache.RedisURL == "" {
			return fmt.Errorf("users_cache: redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("users_cache: backend must be 'sqlite', 'redis' or 'none', got %q", c.UsersCache.Backend)
	}
	if c.UsersCache.TTL != "" {
		d, err := time.ParseDuration(c.UsersCache.TTL)
		if err != nil {
			return fmt.Errorf("users_cache: invalid ttl %q: %w", c.UsersCache.TTL, err)
		}
		if d < 0 {
			return fmt.Errorf("users_cache: ttl must not be negative, got %s", c.UsersCache.TTL)
		}
	}

	if _, err := board.ParsePolicy(c.Reconcile); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
}
