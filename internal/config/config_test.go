package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokdash/tokdash-go/internal/types"
)

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 0.0.0.0
port: 9000
cache_ttl_seconds: 30
allow_origins:
  - https://dash.example.com
paths:
  claude_root: /tmp/claude
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.AllowOrigins)
	assert.Equal(t, "/tmp/claude", cfg.Paths.ClaudeRoot)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: [unterminated"), 0o644))

	_, err := LoadFile(path)
	assert.True(t, errors.Is(err, types.ErrInvalidConfig))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TOKDASH_HOST", "0.0.0.0")
	t.Setenv("TOKDASH_PORT", "9100")
	t.Setenv("TOKDASH_CACHE_TTL", "15")
	t.Setenv("TOKDASH_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.CacheTTL())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowOrigins)
}

func TestInvalidPort(t *testing.T) {
	tests := []string{"0", "70000", "abc"}
	for _, port := range tests {
		t.Run(port, func(t *testing.T) {
			t.Setenv("TOKDASH_PORT", port)
			_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
			assert.True(t, errors.Is(err, types.ErrInvalidConfig))
		})
	}
}
