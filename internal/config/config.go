// Package config loads application configuration from an optional YAML file
// and environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	APIURL         string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	DBPath         string
	SecretKey      []byte // 32-byte AES-256 key; nil selects the in-memory credential store.
	ListenAddr     string
	HTTPCache      bool
	BreakerEnabled bool
	LogLevel       slog.Level
}

// PersistCredentials returns true when a secret key is configured, so the
// credential pair can be stored encrypted in SQLite and survive restarts.
func (c *Config) PersistCredentials() bool {
	return c.SecretKey != nil
}

// fileConfig mirrors Config in the YAML file. Pointer fields distinguish an
// absent key from a zero value.
type fileConfig struct {
	APIURL         *string `yaml:"api_url"`
	RequestTimeout *string `yaml:"request_timeout"`
	RefreshTimeout *string `yaml:"refresh_timeout"`
	DBPath         *string `yaml:"db_path"`
	SecretKey      *string `yaml:"secret_key"`
	ListenAddr     *string `yaml:"listen_addr"`
	HTTPCache      *bool   `yaml:"http_cache"`
	BreakerEnabled *bool   `yaml:"breaker_enabled"`
	LogLevel       *string `yaml:"log_level"`
}

// Load returns a validated Config. Sources are applied in order: defaults, the
// YAML file named by TODOPANEL_CONFIG_FILE (if set), then TODOPANEL_*
// environment variables.
//
// Variables with defaults: TODOPANEL_API_URL (http://localhost:8000),
// TODOPANEL_REQUEST_TIMEOUT (15s), TODOPANEL_REFRESH_TIMEOUT (10s),
// TODOPANEL_DB_PATH (todopanel.db), TODOPANEL_LISTEN_ADDR (127.0.0.1:8090),
// TODOPANEL_HTTP_CACHE (true), TODOPANEL_BREAKER_ENABLED (false),
// TODOPANEL_LOG_LEVEL (info). TODOPANEL_SECRET_KEY is optional and must be
// 64 hex characters when present.
func Load() (*Config, error) {
	raw := fileConfig{}
	if path, ok := os.LookupEnv("TODOPANEL_CONFIG_FILE"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading TODOPANEL_CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing TODOPANEL_CONFIG_FILE %s: %w", path, err)
		}
	}

	overrideString(&raw.APIURL, "TODOPANEL_API_URL")
	overrideString(&raw.RequestTimeout, "TODOPANEL_REQUEST_TIMEOUT")
	overrideString(&raw.RefreshTimeout, "TODOPANEL_REFRESH_TIMEOUT")
	overrideString(&raw.DBPath, "TODOPANEL_DB_PATH")
	overrideString(&raw.SecretKey, "TODOPANEL_SECRET_KEY")
	overrideString(&raw.ListenAddr, "TODOPANEL_LISTEN_ADDR")
	overrideString(&raw.LogLevel, "TODOPANEL_LOG_LEVEL")
	if err := overrideBool(&raw.HTTPCache, "TODOPANEL_HTTP_CACHE"); err != nil {
		return nil, err
	}
	if err := overrideBool(&raw.BreakerEnabled, "TODOPANEL_BREAKER_ENABLED"); err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:         stringOr(raw.APIURL, "http://localhost:8000"),
		DBPath:         stringOr(raw.DBPath, "todopanel.db"),
		ListenAddr:     stringOr(raw.ListenAddr, "127.0.0.1:8090"),
		HTTPCache:      boolOr(raw.HTTPCache, true),
		BreakerEnabled: boolOr(raw.BreakerEnabled, false),
	}

	u, err := url.Parse(cfg.APIURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("TODOPANEL_API_URL must be an absolute URL, got %q", cfg.APIURL)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if cfg.RequestTimeout, err = parseTimeout("TODOPANEL_REQUEST_TIMEOUT", raw.RequestTimeout, 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = parseTimeout("TODOPANEL_REFRESH_TIMEOUT", raw.RefreshTimeout, 10*time.Second); err != nil {
		return nil, err
	}

	if raw.SecretKey != nil && *raw.SecretKey != "" {
		key, err := hex.DecodeString(*raw.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("TODOPANEL_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("TODOPANEL_SECRET_KEY must be 64 hex characters (32 bytes), got %d bytes", len(key))
		}
		cfg.SecretKey = key
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(stringOr(raw.LogLevel, "info"))); err != nil {
		return nil, fmt.Errorf("TODOPANEL_LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func overrideString(dst **string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = &v
	}
}

func overrideBool(dst **bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	*dst = &parsed
	return nil
}

func parseTimeout(key string, v *string, def time.Duration) (time.Duration, error) {
	if v == nil {
		return def, nil
	}
	parsed, err := time.ParseDuration(*v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, *v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, parsed)
	}
	return parsed, nil
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
