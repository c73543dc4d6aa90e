package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/InRunning/epub-online/pkg/types"
)

// Load reads and parses the configuration file
// It also supports environment variable overrides with EO_ prefix
func Load(configPath string) (*types.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid and fills in
// defaults for unset cache and library settings
func Validate(cfg *types.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" {
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("local storage base_path is required")
		}
		if !filepath.IsAbs(cfg.Storage.Local.BasePath) {
			return fmt.Errorf("local storage base_path must be absolute: %s", cfg.Storage.Local.BasePath)
		}
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must not be negative: %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 5 // default
	}
	if cfg.Cache.MaxAgeMs <= 0 {
		cfg.Cache.MaxAgeMs = 24 * 60 * 60 * 1000 // 24h
	}
	if cfg.Cache.PreloadTimeoutMs <= 0 {
		cfg.Cache.PreloadTimeoutMs = 10 * 1000 // 10s
	}
	if cfg.Cache.SweepIntervalMs <= 0 {
		cfg.Cache.SweepIntervalMs = 60 * 60 * 1000 // 1h
	}

	if cfg.Library.MaxUploadMB <= 0 {
		cfg.Library.MaxUploadMB = 100 // default
	}
	if cfg.Library.WarmRecent < 0 {
		return fmt.Errorf("library warm_recent must not be negative: %d", cfg.Library.WarmRecent)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
// Environment variables are prefixed with EO_ (epub-online)
func applyEnvOverrides(cfg *types.Config) {
	// Server overrides
	if val := os.Getenv("EO_SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("EO_SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Server.Port)
	}

	// Storage overrides
	if val := os.Getenv("EO_STORAGE_ADAPTER"); val != "" {
		cfg.Storage.Adapter = val
	}
	if val := os.Getenv("EO_STORAGE_LOCAL_BASE_PATH"); val != "" {
		cfg.Storage.Local.BasePath = val
	}
	if val := os.Getenv("EO_STORAGE_S3_BUCKET"); val != "" {
		cfg.Storage.S3.Bucket = val
	}
	if val := os.Getenv("EO_STORAGE_S3_REGION"); val != "" {
		cfg.Storage.S3.Region = val
	}
	if val := os.Getenv("EO_STORAGE_S3_ENDPOINT"); val != "" {
		cfg.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("EO_STORAGE_S3_ACCESS_KEY_ID"); val != "" {
		cfg.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("EO_STORAGE_S3_SECRET_ACCESS_KEY"); val != "" {
		cfg.Storage.S3.SecretAccessKey = val
	}

	// Cache overrides
	if val := os.Getenv("EO_CACHE_MAX_ENTRIES"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Cache.MaxEntries)
	}
	if val := os.Getenv("EO_CACHE_MAX_AGE_MS"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Cache.MaxAgeMs)
	}
	if val := os.Getenv("EO_CACHE_PRELOAD_TIMEOUT_MS"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Cache.PreloadTimeoutMs)
	}
	if val := os.Getenv("EO_CACHE_SWEEP_INTERVAL_MS"); val != "" {
		fmt.Sscanf(val, "%d", &cfg.Cache.SweepIntervalMs)
	}
}

// GetDefault returns a default configuration
func GetDefault() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15,
			WriteTimeout: 15,
		},
		Storage: types.StorageConfig{
			Adapter: "local",
			Local: types.LocalStorageOpts{
				BasePath: "/var/lib/epub-online/storage",
			},
		},
		Cache: types.CacheConfig{
			MaxEntries:       5,
			MaxAgeMs:         24 * 60 * 60 * 1000,
			PreloadTimeoutMs: 10 * 1000,
			SweepIntervalMs:  60 * 60 * 1000,
		},
		Library: types.LibraryConfig{
			MaxUploadMB: 100,
			WarmRecent:  0,
		},
	}
}
