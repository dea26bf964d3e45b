package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"readTimeout"`  // 10s
	WriteTimeout string `yaml:"writeTimeout"` // 15s
	IdleTimeout  string `yaml:"idleTimeout"`  // 60s
}

// GRPC serves the health service; empty addr disables it.
type GRPC struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // signal-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap, empty: std in dev, zap otherwise
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

// Postgres backs the display-name directory; empty dsn disables it.
type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
}

type Auth struct {
	Enabled       bool   `yaml:"enabled"`
	PublicKeyPath string `yaml:"publicKeyPath"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	ClockSkew     string `yaml:"clockSkew"` // 30s
}

type Relay struct {
	MaxRoomSize       int     `yaml:"maxRoomSize"` // 0 = unbounded
	SendQueueSize     int     `yaml:"sendQueueSize"`
	PingInterval      string  `yaml:"pingInterval"`
	MaxMessageBytes   int64   `yaml:"maxMessageBytes"`
	MessagesPerSecond float64 `yaml:"messagesPerSecond"`
	MessageBurst      int     `yaml:"messageBurst"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Auth     Auth     `yaml:"auth"`
	Relay    Relay    `yaml:"relay"`
	CORS     CORS     `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Auth.Enabled && c.Auth.PublicKeyPath == "" {
		return errors.New("auth.publicKeyPath is required when auth is enabled")
	}
	if c.Relay.MaxRoomSize < 0 {
		return errors.New("relay.maxRoomSize must be >= 0")
	}
	if c.Relay.MessagesPerSecond < 0 || c.Relay.MessageBurst < 0 {
		return errors.New("relay rate limit must be >= 0")
	}
	for name, s := range map[string]string{
		"http.readTimeout":   c.HTTP.ReadTimeout,
		"http.writeTimeout":  c.HTTP.WriteTimeout,
		"http.idleTimeout":   c.HTTP.IdleTimeout,
		"auth.clockSkew":     c.Auth.ClockSkew,
		"relay.pingInterval": c.Relay.PingInterval,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	// defaults
	if c.Logging.Service == "" {
		c.Logging.Service = "signal-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 4
	}
	return nil
}

func (h HTTP) Timeouts() (read, write, idle time.Duration) {
	return parseDurationOr(10*time.Second, h.ReadTimeout),
		parseDurationOr(15*time.Second, h.WriteTimeout),
		parseDurationOr(60*time.Second, h.IdleTimeout)
}

func (a Auth) Skew() time.Duration {
	return parseDurationOr(30*time.Second, a.ClockSkew)
}

// Ping is zero when unset; the websocket server applies its own default.
func (r Relay) Ping() time.Duration {
	return parseDurationOr(0, r.PingInterval)
}

// parseDurationOr falls back to def for empty, invalid or non-positive values.
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
