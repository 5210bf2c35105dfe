// Package config handles configuration loading for flowcanvas.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxUploadSize caps document uploads at 10 MiB.
	DefaultMaxUploadSize int64 = 10 << 20

	defaultStoragePath = "./flowcanvas.db"
)

// Config represents the application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Client  ClientConfig  `mapstructure:"client" yaml:"client"`
	Uploads UploadsConfig `mapstructure:"uploads" yaml:"uploads"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// StorageConfig represents storage configuration. Driver is sqlite or
// postgres; Connection is the postgres URL.
type StorageConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	Path       string `mapstructure:"path" yaml:"path"`
	Connection string `mapstructure:"connection" yaml:"connection,omitempty"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        int      `mapstructure:"port" yaml:"port"`
	APIKey      string   `mapstructure:"api_key" yaml:"api_key,omitempty"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ClientConfig is used by CLI commands that talk to a running server.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// UploadsConfig limits document uploads.
type UploadsConfig struct {
	MaxSize int64 `mapstructure:"max_size" yaml:"max_size"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load loads the configuration from files and environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the usual locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./flowcanvas")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FLOWCANVAS")
	v.AutomaticEnv()

	v.BindEnv("storage.path", "FLOWCANVAS_STORAGE_PATH")
	v.BindEnv("storage.driver", "FLOWCANVAS_STORAGE_DRIVER")
	v.BindEnv("storage.connection", "DATABASE_URL")
	v.BindEnv("server.api_key", "FLOWCANVAS_API_KEY")
	v.BindEnv("client.api_key", "FLOWCANVAS_API_KEY")
	v.BindEnv("client.base_url", "FLOWCANVAS_API_URL")
	v.BindEnv("logging.level", "FLOWCANVAS_LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Storage.Path = os.ExpandEnv(cfg.Storage.Path)
	if cfg.Storage.Path == defaultStoragePath {
		cfg.Storage.Path = GetDefaultStoragePath()
	}

	return &cfg, nil
}

// Used is the config file Load would read, or "" when none exists.
func Used() string {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./flowcanvas")
	if dir, err := ConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", defaultStoragePath)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("client.base_url", "http://localhost:8000")
	v.SetDefault("client.timeout", "30s")

	v.SetDefault("uploads.max_size", DefaultMaxUploadSize)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "flowcanvas"), nil
}

// GetDefaultStoragePath returns the default storage path.
func GetDefaultStoragePath() string {
	dir, err := ConfigDir()
	if err != nil {
		return defaultStoragePath
	}
	return filepath.Join(dir, "flowcanvas.db")
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// EnsureStorageDir ensures the directory for the storage path exists.
func EnsureStorageDir(storagePath string) error {
	dir := filepath.Dir(storagePath)
	return os.MkdirAll(dir, 0755)
}
