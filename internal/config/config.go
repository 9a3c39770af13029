// Package config loads lattice settings from a YAML file and LATTICE_*
// environment variables, in that order of precedence (environment wins).
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "lattice.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the full set of runtime settings.
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Log   LogConfig   `mapstructure:"log"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	// Owner is recorded as createdBy and exportedBy.
	Owner string `mapstructure:"owner"`
}

// StoreConfig selects and tunes the key-value backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the directory (file) or database file (sqlite).
	Path      string        `mapstructure:"path"`
	RedisAddr string        `mapstructure:"redis_addr"`
	Prefix    string        `mapstructure:"prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	// EncryptionKey is a hex-encoded 32-byte key; empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	// MaskFields are regular expressions of JSON field names to mask before writing.
	MaskFields []string `mapstructure:"mask_fields"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   ".lattice/data",
			Prefix: "lattice:kv:",
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		HTTP:  HTTPConfig{Addr: ":8080"},
		Owner: "console",
	}
}

// Load reads path (or DefaultFile when path is empty) over the defaults and
// applies environment overrides. A missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func applyEnv(cfg *Config) {
	cfg.Store.Driver = getEnv("LATTICE_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Path = getEnv("LATTICE_STORE_PATH", cfg.Store.Path)
	cfg.Store.RedisAddr = getEnv("LATTICE_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.Prefix = getEnv("LATTICE_STORE_PREFIX", cfg.Store.Prefix)
	cfg.Store.TTL = getEnvDuration("LATTICE_STORE_TTL", cfg.Store.TTL)
	cfg.Store.EncryptionKey = getEnv("LATTICE_ENCRYPTION_KEY", cfg.Store.EncryptionKey)
	cfg.Store.FallbackKeys = getEnvList("LATTICE_FALLBACK_KEYS", cfg.Store.FallbackKeys)
	cfg.Store.MaskFields = getEnvList("LATTICE_MASK_FIELDS", cfg.Store.MaskFields)
	cfg.Log.Level = getEnv("LATTICE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LATTICE_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getEnv("LATTICE_LOG_FILE", cfg.Log.File)
	cfg.HTTP.Addr = getEnv("LATTICE_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Owner = getEnv("LATTICE_OWNER", cfg.Owner)
}

// Validate rejects settings no store or logger could start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store driver redis requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := c.Store.Keys(); err != nil {
			return err
		}
	}
	return nil
}

// Keys decodes the encryption keys. The first is the active key.
func (s StoreConfig) Keys() ([][]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	hexKeys := append([]string{s.EncryptionKey}, s.FallbackKeys...)
	keys := make([][]byte, 0, len(hexKeys))
	for i, h := range hexKeys {
		k, err := hex.DecodeString(strings.TrimSpace(h))
		if err != nil || len(k) != 32 {
			return nil, fmt.Errorf("encryption key %d must be 64 hex characters", i)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
