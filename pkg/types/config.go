package types

// Config represents the overall application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Library LibraryConfig `yaml:"library" json:"library"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string            `yaml:"adapter" json:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts  `yaml:"local" json:"local"`
	S3      S3StorageOpts     `yaml:"s3" json:"s3"`
	Options map[string]string `yaml:"options" json:"options"` // Additional adapter-specific options
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	Region          string `yaml:"region" json:"region"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// CacheConfig holds buffer cache settings
type CacheConfig struct {
	MaxEntries       int   `yaml:"max_entries" json:"max_entries"`
	MaxAgeMs         int64 `yaml:"max_age_ms" json:"max_age_ms"`
	PreloadTimeoutMs int64 `yaml:"preload_timeout_ms" json:"preload_timeout_ms"`
	SweepIntervalMs  int64 `yaml:"sweep_interval_ms" json:"sweep_interval_ms"`
}

// LibraryConfig holds library-level settings
type LibraryConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb" json:"max_upload_mb"`
	WarmRecent  int `yaml:"warm_recent" json:"warm_recent"` // books preloaded at startup; 0 disables
}
