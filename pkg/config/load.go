package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. TINYSLICE_PORT
const EnvPrefix = "TINYSLICE"

// Config is the runtime configuration of the server
type Config struct {
	Port           string        `mapstructure:"port"`
	DataDir        string        `mapstructure:"dataDir"`
	Storage        string        `mapstructure:"storage"` // badger or memory
	MaxStorageGB   int64         `mapstructure:"maxStorageGB"`
	MaxMemoryMB    int64         `mapstructure:"maxMemoryMB"`
	Retention      time.Duration `mapstructure:"retention"`
	DimensionsFile string        `mapstructure:"dimensionsFile"`
	DefaultFormat  string        `mapstructure:"defaultFormat"`
	PartialData    bool          `mapstructure:"partialData"`
	VolatileWindow time.Duration `mapstructure:"volatileWindow"`
	MaxPerPage     int           `mapstructure:"maxPerPage"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:           DefaultPort,
		DataDir:        DefaultDataDir,
		Storage:        DefaultStorage,
		MaxStorageGB:   DefaultMaxStorageGB,
		MaxMemoryMB:    DefaultMaxMemoryMB,
		Retention:      DefaultRetention,
		DefaultFormat:  DefaultFormat,
		PartialData:    DefaultPartialData,
		VolatileWindow: VolatileWindow,
		MaxPerPage:     DataMaxPerPage,
	}
}

// Load reads tinyslice.yaml from dir (if present) and TINYSLICE_* environment
// variables on top of the defaults. An explicit path overrides dir lookup.
func Load(dir, path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("port", def.Port)
	v.SetDefault("dataDir", def.DataDir)
	v.SetDefault("storage", def.Storage)
	v.SetDefault("maxStorageGB", def.MaxStorageGB)
	v.SetDefault("maxMemoryMB", def.MaxMemoryMB)
	v.SetDefault("retention", def.Retention)
	v.SetDefault("dimensionsFile", def.DimensionsFile)
	v.SetDefault("defaultFormat", def.DefaultFormat)
	v.SetDefault("partialData", def.PartialData)
	v.SetDefault("volatileWindow", def.VolatileWindow)
	v.SetDefault("maxPerPage", def.MaxPerPage)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tinyslice")
		v.SetConfigType("yaml")
		if dir == "" {
			dir = "."
		}
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	switch c.Storage {
	case "badger", "memory":
	default:
		return &Error{Field: "storage", Message: fmt.Sprintf("unknown backend %q", c.Storage)}
	}
	if c.Port == "" {
		return &Error{Field: "port", Message: "must not be empty"}
	}
	if c.Retention < 0 {
		return &Error{Field: "retention", Message: "must not be negative"}
	}
	if c.MaxPerPage <= 0 {
		return &Error{Field: "maxPerPage", Message: "must be positive"}
	}
	return nil
}

// Error is a configuration validation error
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
