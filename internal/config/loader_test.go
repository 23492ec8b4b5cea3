package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/imagecatalog/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Backend, convey.ShouldEqual, "memory")
				convey.So(cfg.Namespace, convey.ShouldEqual, "worker-dynamic-quickemu")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CATALOG_ADDR", ":8080")
			_ = os.Setenv("CATALOG_LOG_LEVEL", "debug")
			_ = os.Setenv("CATALOG_BACKEND", "sqlite")
			_ = os.Setenv("CATALOG_SQLITE__PATH", "/tmp/catalog.db")
			_ = os.Setenv("CATALOG_SEED_FILE", "seed.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Backend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.SQLite.Path, convey.ShouldEqual, "/tmp/catalog.db")
				convey.So(cfg.SeedFile, convey.ShouldEqual, "seed.yaml")
			})
		})

		convey.Convey("When loading config with nested minio env vars", func() {
			_ = os.Setenv("CATALOG_BACKEND", "minio")
			_ = os.Setenv("CATALOG_MINIO__ENDPOINT", "s3.local:9000")
			_ = os.Setenv("CATALOG_MINIO__BUCKET", "images")
			_ = os.Setenv("CATALOG_MINIO__USE_SSL", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the minio section should be populated", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Minio.Endpoint, convey.ShouldEqual, "s3.local:9000")
				convey.So(cfg.Minio.Bucket, convey.ShouldEqual, "images")
				convey.So(cfg.Minio.UseSSL, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
log_format: json
namespace: staging-catalog
backend: minio
minio:
  endpoint: "minio:9000"
  access_key: ak
  secret_key: sk
  bucket: catalog
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CATALOG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.Namespace, convey.ShouldEqual, "staging-catalog")
				convey.So(cfg.Minio.Endpoint, convey.ShouldEqual, "minio:9000")
				convey.So(cfg.Minio.AccessKey, convey.ShouldEqual, "ak")
				convey.So(cfg.Minio.Bucket, convey.ShouldEqual, "catalog")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
backend: sqlite
sqlite:
  path: /data/file.db
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CATALOG_CONFIG", tmpFile)
			_ = os.Setenv("CATALOG_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SQLite.Path, convey.ShouldEqual, "/data/file.db")
				convey.So(cfg.Namespace, convey.ShouldEqual, "worker-dynamic-quickemu")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CATALOG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CATALOG_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CATALOG_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("CATALOG_BACKEND", "redis")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "redis")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an empty namespace", func() {
			_ = os.Setenv("CATALOG_NAMESPACE", "")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "namespace must not be empty")
			})
		})

		convey.Convey("When loading config with an invalid bool", func() {
			_ = os.Setenv("CATALOG_MINIO__USE_SSL", "sometimes")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given configs for each backend", t, func() {
		convey.Convey("When sqlite has no path", func() {
			cfg := config.New()
			cfg.Backend = "sqlite"
			cfg.SQLite.Path = ""

			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When minio has no bucket", func() {
			cfg := config.New()
			cfg.Backend = "minio"
			cfg.Minio.Bucket = ""

			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When minio is fully configured", func() {
			cfg := config.New()
			cfg.Backend = "minio"

			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CATALOG_CONFIG",
		"CATALOG_ADDR",
		"CATALOG_LOG_LEVEL",
		"CATALOG_BACKEND",
		"CATALOG_NAMESPACE",
		"CATALOG_SEED_FILE",
		"CATALOG_SQLITE__PATH",
		"CATALOG_MINIO__ENDPOINT",
		"CATALOG_MINIO__BUCKET",
		"CATALOG_MINIO__USE_SSL",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "catalog-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
