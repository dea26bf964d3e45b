// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Backend string

const (
	BackendStd Backend = "std" // slog text in dev, slog JSON elsewhere
	BackendZap Backend = "zap" // zap core behind slog-zap
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Env       Env
	Backend   Backend // default: std in dev, zap otherwise
	Level     slog.Level
	Debug     bool
	AddSource bool

	// zap sampling per second; <= 0 uses 100 / 10
	SampleInitial    int
	SampleThereafter int

	Output io.Writer // default os.Stdout
}

var (
	mu  sync.RWMutex
	def *slog.Logger
)

// Init builds the logger from cfg and installs it as slog's default.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "signal-relay"
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendStd
		if cfg.Env != EnvDev {
			cfg.Backend = BackendZap
		}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	cfg.InstanceID = instanceID(cfg.InstanceID)

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	l := slog.New(h.WithAttrs(commonAttrs(cfg)))
	slog.SetDefault(l)

	mu.Lock()
	def = l
	mu.Unlock()
	return l
}

// L returns the logger installed by Init, initialising a default one if needed.
func L() *slog.Logger {
	mu.RLock()
	l := def
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Init(Config{})
}

// DetectEnv reads APP_ENV.
func DetectEnv() Env {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}

func level(cfg Config) slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
