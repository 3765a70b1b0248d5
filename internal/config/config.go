// Package config provides configuration management for truffaldino using Viper.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/thoreinstein/truffaldino/internal/paths"
)

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	// VersionsDir overrides the snapshot history directory.
	VersionsDir string `mapstructure:"versions_dir" yaml:"versions_dir"`

	// RetentionCount is the number of snapshots kept per tracked file.
	RetentionCount int `mapstructure:"retention_count" yaml:"retention_count"`

	// DefaultMode is the sync mode used when none is given: merge, replace, smart.
	DefaultMode string `mapstructure:"default_mode" yaml:"default_mode"`

	// CommandTimeout bounds external command invocations (CLI adapters, editor).
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`

	// Editor overrides the $EDITOR chain for conflict resolution.
	Editor string `mapstructure:"editor" yaml:"editor"`
}

var validModes = map[string]struct{}{
	"merge":   {},
	"replace": {},
	"smart":   {},
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".")
	viper.AddConfigPath(paths.ConfigDir())

	// Environment variable support
	viper.SetEnvPrefix("TRUFFALDINO")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("version", 1)
	viper.SetDefault("versions_dir", paths.VersionsDir())
	viper.SetDefault("retention_count", 10)
	viper.SetDefault("default_mode", "smart")
	viper.SetDefault("command_timeout", 30*time.Second)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found
// (when path is empty).
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// If user specified a path, this is an error
			if path != "" {
				return nil, errors.Wrapf(err, "config file not found at %s", path)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return errors.Newf("unsupported config version: %d", c.Version)
	}
	if _, ok := validModes[c.DefaultMode]; !ok {
		return errors.Newf("invalid default mode: %s", c.DefaultMode)
	}
	if c.RetentionCount < 1 {
		return errors.Newf("retention_count must be positive, got %d", c.RetentionCount)
	}
	if c.CommandTimeout <= 0 {
		return errors.New("command_timeout must be positive")
	}
	return nil
}
