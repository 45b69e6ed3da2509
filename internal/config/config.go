package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vvikramc/promexpo/pkg/storage"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	Path             string        `mapstructure:"path"`
	CompressionLevel int           `mapstructure:"compression_level"`
	EnableWAL        bool          `mapstructure:"enable_wal"`
	CacheCapacity    int           `mapstructure:"cache_capacity"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from (in decreasing priority) environment
// variables prefixed PROMEXPO_, an optional yaml file (./configs/config.yaml),
// and built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen_addr", ":9091")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.compression_level", 3)
	v.SetDefault("storage.enable_wal", true)
	v.SetDefault("storage.cache_capacity", 1024)
	v.SetDefault("storage.cache_ttl", 5*time.Minute)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("PROMEXPO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Optional yaml file, useful for local dev or a k8s ConfigMap.
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ToStorageConfig converts to storage.Config.
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Path:             c.Storage.Path,
		CompressionLevel: c.Storage.CompressionLevel,
		EnableWAL:        c.Storage.EnableWAL,
		CacheCapacity:    c.Storage.CacheCapacity,
		CacheTTL:         c.Storage.CacheTTL,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Storage.CacheCapacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1")
	}

	return nil
}
