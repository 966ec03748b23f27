package config

import (
	"os"
	"path/filepath"
	"testing"

	"repomerge/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Suffix != "sources.jar" {
		t.Errorf("Suffix = %q", cfg.Suffix)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("Cache.Backend = %q", cfg.Cache.Backend)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
	if cfg.Serve.ListingCacheSize != DefaultListingCacheSize {
		t.Errorf("Serve.ListingCacheSize = %d", cfg.Serve.ListingCacheSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
output_dir = "/srv/merged"
suffix = "javadoc.jar"

[cache]
backend = "redis"
redis_addr = "localhost:6379"
key_prefix = "repomerge:"

[serve]
addr = ":9090"
listing_cache_size = 16
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "/srv/merged" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Suffix != "javadoc.jar" {
		t.Errorf("Suffix = %q", cfg.Suffix)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.KeyPrefix != "repomerge:" {
		t.Errorf("KeyPrefix = %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Serve.Addr != ":9090" || cfg.Serve.ListingCacheSize != 16 {
		t.Errorf("Serve = %+v", cfg.Serve)
	}
	// Unset fields keep their defaults.
	if cfg.S3.Region != "us-east-1" {
		t.Errorf("S3.Region = %q", cfg.S3.Region)
	}
}

func TestLoadMissingDefaultPath(t *testing.T) {
	// With HOME pointing at an empty directory, no config file exists and
	// defaults apply.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Suffix != "sources.jar" {
		t.Errorf("Suffix = %q", cfg.Suffix)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for explicit missing file")
	}
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unexpected error code: %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("suffix = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unexpected error code: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REPOMERGE_SUFFIX", "javadoc.jar")
	t.Setenv("REPOMERGE_CACHE", "none")
	t.Setenv("REPOMERGE_SERVE_ADDR", ":7070")
	t.Setenv("REPOMERGE_REDIS_DB", "3")
	t.Setenv("REPOMERGE_S3_INSECURE", "true")
	t.Setenv("MINIO_ROOT_USER", "minio")
	t.Setenv("MINIO_ROOT_PASSWORD", "miniosecret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Suffix != "javadoc.jar" {
		t.Errorf("Suffix = %q", cfg.Suffix)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Cache.Backend = %q", cfg.Cache.Backend)
	}
	if cfg.Serve.Addr != ":7070" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
	if cfg.Cache.RedisDB != 3 {
		t.Errorf("RedisDB = %d", cfg.Cache.RedisDB)
	}
	if !cfg.S3.Insecure {
		t.Error("S3.Insecure should be true")
	}
	// MinIO credentials are picked up when no explicit keys are set.
	if cfg.S3.AccessKey != "minio" || cfg.S3.SecretKey != "miniosecret" {
		t.Errorf("S3 credentials = %q / %q", cfg.S3.AccessKey, cfg.S3.SecretKey)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`suffix = "from-file.jar"`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("REPOMERGE_SUFFIX", "from-env.jar")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Suffix != "from-env.jar" {
		t.Errorf("environment should win over file, got %q", cfg.Suffix)
	}
}

func TestValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = "memcached"
		if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("redis without addr", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = BackendRedis
		if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("suffix with separator", func(t *testing.T) {
		cfg := Default()
		cfg.Suffix = "dir/sources.jar"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for suffix containing a path separator")
		}
	})
}
