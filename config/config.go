// Package config loads the application configuration from an optional
// config file and CRATE_REGISTRY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	KeyID     string `mapstructure:"key_id"`
	AccessKey string `mapstructure:"access_key"`
	Timeout   string `mapstructure:"timeout"`
}

type PersistenceConfig struct {
	// Type selects the artifact store backend: filesystem | s3 | memory.
	Type       string   `mapstructure:"type"`
	StorageDir string   `mapstructure:"storage_dir"`
	S3         S3Config `mapstructure:"s3"`
}

type AppConfig struct {
	LogLevel            string `mapstructure:"log_level"`
	HumanReadableOutput bool   `mapstructure:"human_readable_output"`

	// AdminUsername is the seed user created by the idempotent
	// bootstrap on first startup.
	AdminUsername string `mapstructure:"admin_username"`

	Database    DatabaseConfig    `mapstructure:"database"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

var Cfg = &AppConfig{}

// Load populates Cfg from defaults, an optional crate-registry.yaml in
// the working directory or /etc/crate-registry, and the environment.
func Load() error {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("human_readable_output", false)
	v.SetDefault("admin_username", "admin")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database", "crate_registry")
	v.SetDefault("persistence.type", "filesystem")
	v.SetDefault("persistence.storage_dir", "/var/lib/crate-registry")
	v.SetDefault("persistence.s3.timeout", "30s")

	v.SetConfigName("crate-registry")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/crate-registry")

	v.SetEnvPrefix("crate_registry")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so
	// every key without a default must be bound explicitly or its env
	// override never reaches Unmarshal.
	for _, key := range []string{
		"database.username",
		"database.password",
		"persistence.s3.endpoint",
		"persistence.s3.region",
		"persistence.s3.bucket",
		"persistence.s3.prefix",
		"persistence.s3.key_id",
		"persistence.s3.access_key",
	} {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env for %q: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.Unmarshal(Cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}
