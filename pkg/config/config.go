// Package config loads tool configuration from a TOML file, .env files,
// and the environment.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// environment variables. A .env file in the working directory is loaded
// best-effort before the environment is read, so containerized runs can
// ship settings next to the binary. All environment variables use the
// REPOMERGE_ prefix; the S3 credentials additionally fall back to the
// MINIO_ROOT_USER / MINIO_ROOT_PASSWORD pair a local MinIO publishes.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"repomerge/pkg/archive"
	"repomerge/pkg/errors"
)

// Cache backend names accepted by Config.Cache.Backend.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// DefaultListingCacheSize bounds the serve command's rendered-listing LRU.
const DefaultListingCacheSize = 128

// Config holds every tool setting.
type Config struct {
	// OutputDir, when set, becomes the default for the merge command's
	// --output-dir flag.
	OutputDir string `toml:"output_dir"`

	// Suffix selects which archive members participate in merges,
	// catalogs, and diffs.
	Suffix string `toml:"suffix"`

	// ScratchRoot overrides where per-archive scratch directories live.
	ScratchRoot string `toml:"scratch_root"`

	Cache CacheConfig `toml:"cache"`
	S3    S3Config    `toml:"s3"`
	Serve ServeConfig `toml:"serve"`
}

// CacheConfig selects and parameterizes the response cache backend.
type CacheConfig struct {
	// Backend is one of file, redis, or none.
	Backend string `toml:"backend"`

	// Dir overrides the file backend's directory.
	Dir string `toml:"dir"`

	// KeyPrefix namespaces keys, for Redis instances shared across tools.
	KeyPrefix string `toml:"key_prefix"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// S3Config carries credentials for s3:// archive references.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`

	// Insecure disables TLS, for local MinIO endpoints.
	Insecure bool `toml:"insecure"`
}

// ServeConfig parameterizes the local repository browser.
type ServeConfig struct {
	Addr             string `toml:"addr"`
	Dir              string `toml:"dir"`
	ListingCacheSize int    `toml:"listing_cache_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Suffix: archive.DefaultSuffix,
		Cache: CacheConfig{
			Backend: BackendFile,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Serve: ServeConfig{
			Addr:             ":8080",
			Dir:              ".",
			ListingCacheSize: DefaultListingCacheSize,
		},
	}
}

// DefaultPath returns the conventional config file location
// (~/.config/repomerge/config.toml), or "" when the home directory is
// unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "repomerge", "config.toml")
}

// Load reads the configuration file at path (DefaultPath when empty) and
// applies environment overrides. A missing file is only an error when the
// path was given explicitly; otherwise defaults plus environment apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
			}
		case os.IsNotExist(err) && !explicit:
			// No config file; defaults plus environment apply.
		default:
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and constrained fields.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown cache backend %q (must be file, redis, or none)", c.Cache.Backend)
	}
	if err := errors.ValidateSuffix(c.Suffix); err != nil {
		return err
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis requires redis_addr")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REPOMERGE_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("REPOMERGE_SUFFIX"); v != "" {
		c.Suffix = v
	}
	if v := os.Getenv("REPOMERGE_SCRATCH_ROOT"); v != "" {
		c.ScratchRoot = v
	}
	if v := os.Getenv("REPOMERGE_CACHE"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REPOMERGE_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("REPOMERGE_CACHE_PREFIX"); v != "" {
		c.Cache.KeyPrefix = v
	}
	if v := os.Getenv("REPOMERGE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REPOMERGE_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("REPOMERGE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = n
		}
	}
	if v := os.Getenv("REPOMERGE_S3_ENDPOINT"); v != "" {
		c.S3.Endpoint = v
	}
	if v := os.Getenv("REPOMERGE_S3_REGION"); v != "" {
		c.S3.Region = v
	}
	c.S3.AccessKey = firstNonEmpty(
		os.Getenv("REPOMERGE_S3_ACCESS_KEY"),
		os.Getenv("MINIO_ROOT_USER"),
		c.S3.AccessKey)
	c.S3.SecretKey = firstNonEmpty(
		os.Getenv("REPOMERGE_S3_SECRET_KEY"),
		os.Getenv("MINIO_ROOT_PASSWORD"),
		c.S3.SecretKey)
	if v := os.Getenv("REPOMERGE_S3_INSECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.S3.Insecure = b
		}
	}
	if v := os.Getenv("REPOMERGE_SERVE_ADDR"); v != "" {
		c.Serve.Addr = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
