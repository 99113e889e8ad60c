// Package config loads the dashboard configuration from ~/.tokdash.yaml
// with TOKDASH_* environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tokdash/tokdash-go/internal/types"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 55423
	DefaultCacheTTL = 120 * time.Second
)

// SourcePaths overrides the per-tool log locations. Empty fields keep
// the conventional defaults.
type SourcePaths struct {
	ClaudeRoot   string `yaml:"claude_root"`
	CodexRoot    string `yaml:"codex_root"`
	OpenCodeDB   string `yaml:"opencode_db"`
	GeminiRoot   string `yaml:"gemini_root"`
	AmpRoot      string `yaml:"amp_root"`
	OpenclawRoot string `yaml:"openclaw_root"`
}

// Config holds the server and collection settings.
type Config struct {
	Host         string      `yaml:"host"`
	Port         int         `yaml:"port"`
	CacheTTLSecs int         `yaml:"cache_ttl_seconds"`
	AllowOrigins []string    `yaml:"allow_origins"`
	PricingPath  string      `yaml:"pricing_path"`
	LogLevel     string      `yaml:"log_level"`
	Paths        SourcePaths `yaml:"paths"`
}

// CacheTTL is the response-cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSecs <= 0 {
		return DefaultCacheTTL
	}
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// Addr is the host:port the server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tokdash.yaml"), nil
}

// Load reads the config file (a missing file yields defaults) and then
// applies environment overrides.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file and applies environment
// overrides.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{Host: DefaultHost, Port: DefaultPort}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidConfig, path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", types.ErrInvalidConfig, cfg.Port)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if host := os.Getenv("TOKDASH_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv("TOKDASH_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%w: TOKDASH_PORT %q is not a number", types.ErrInvalidConfig, port)
		}
		c.Port = n
	}
	if ttl := os.Getenv("TOKDASH_CACHE_TTL"); ttl != "" {
		n, err := strconv.Atoi(ttl)
		if err != nil {
			return fmt.Errorf("%w: TOKDASH_CACHE_TTL %q is not a number", types.ErrInvalidConfig, ttl)
		}
		c.CacheTTLSecs = n
	}
	if origins := os.Getenv("TOKDASH_ALLOW_ORIGINS"); origins != "" {
		c.AllowOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowOrigins = append(c.AllowOrigins, origin)
			}
		}
	}
	if level := os.Getenv("TOKDASH_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	return nil
}
