package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("http:\n  addr: \":8080\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "signal-relay", cfg.Logging.Service)
	assert.Equal(t, "dev", cfg.Logging.Env)
	assert.Empty(t, cfg.Logging.Backend)
	assert.Equal(t, int32(4), cfg.Postgres.MaxConns)
	assert.Equal(t, 0, cfg.Relay.MaxRoomSize)
	assert.Empty(t, cfg.GRPC.Addr)

	read, write, idle := cfg.HTTP.Timeouts()
	assert.Equal(t, 10*time.Second, read)
	assert.Equal(t, 15*time.Second, write)
	assert.Equal(t, 60*time.Second, idle)
	assert.Equal(t, 30*time.Second, cfg.Auth.Skew())
	assert.Zero(t, cfg.Relay.Ping())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing http addr": "grpc:\n  addr: \":9090\"\n",
		"auth without key":  "http:\n  addr: \":8080\"\nauth:\n  enabled: true\n",
		"negative room":     "http:\n  addr: \":8080\"\nrelay:\n  maxRoomSize: -1\n",
		"bad duration":      "http:\n  addr: \":8080\"\nrelay:\n  pingInterval: soon\n",
		"not yaml":          "http: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_SampleFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config.yaml")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, ":9090", cfg.GRPC.Addr)
	assert.Equal(t, 15*time.Second, cfg.Relay.Ping())
	assert.Equal(t, 256, cfg.Relay.SendQueueSize)
	assert.Len(t, cfg.CORS.AllowedOrigins, 2)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := LoadConfig()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
