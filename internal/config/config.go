// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and CATALOG_ environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Namespace names the KV namespace the catalog is read from.
	Namespace string `koanf:"namespace"`

	// Backend selects the KV backend: memory, sqlite or minio.
	Backend string `koanf:"backend"`

	// SeedFile optionally points at a YAML catalog loaded into the backend
	// at startup.
	SeedFile string `koanf:"seed_file"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `koanf:"sqlite"`

	// Minio configures the minio backend.
	Minio MinioConfig `koanf:"minio"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// MinioConfig configures the S3-compatible backend.
type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Namespace: "worker-dynamic-quickemu",
		Backend:   "memory",
		SQLite: SQLiteConfig{
			Path: "catalog.db",
		},
		Minio: MinioConfig{
			Endpoint: "127.0.0.1:9000",
			Bucket:   "image-catalog",
		},
	}
}
