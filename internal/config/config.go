// Package config loads xtswalk settings with Viper.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/internal/keys"
	"github.com/deploymenttheory/go-xtswalk/internal/sector"
)

// Name is the config file base name and EnvPrefix the environment prefix.
const (
	Name      = "xtswalk"
	EnvPrefix = "XTSWALK"
)

// Config holds the effective settings.
type Config struct {
	Backend        string   `mapstructure:"backend" json:"backend" yaml:"backend"`
	Lanes          int      `mapstructure:"lanes" json:"lanes" yaml:"lanes"`
	PinThread      bool     `mapstructure:"pin_thread" json:"pin_thread" yaml:"pin_thread"`
	SectorSize     int      `mapstructure:"sector_size" json:"sector_size" yaml:"sector_size"`
	Workers        int      `mapstructure:"workers" json:"workers" yaml:"workers"`
	ForbidWeakKeys bool     `mapstructure:"forbid_weak_keys" json:"forbid_weak_keys" yaml:"forbid_weak_keys"`
	KDF            keys.KDF `mapstructure:"kdf" json:"kdf" yaml:"kdf"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty" yaml:"file,omitempty"`
}

// New returns a Viper instance with the search paths, defaults and
// environment binding set. Callers may bind flags onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(Name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.xtswalk")
	v.AddConfigPath("/etc/xtswalk")

	v.SetDefault("backend", backend.NameAuto)
	v.SetDefault("lanes", 1)
	v.SetDefault("pin_thread", false)
	v.SetDefault("sector_size", 512)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("forbid_weak_keys", false)
	v.SetDefault("kdf.iterations", keys.DefaultIterations)
	v.SetDefault("kdf.hash", keys.HashSHA256)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file (path, or the search paths when empty) and
// returns the validated settings. A missing file on the search paths is not
// an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings for values no component accepts.
func (c *Config) Validate() error {
	if _, err := backend.Select(c.Backend); err != nil {
		return fmt.Errorf("config: backend: %w", err)
	}
	if c.Lanes < 1 {
		return fmt.Errorf("config: lanes must be at least 1, got %d", c.Lanes)
	}
	if !sector.ValidSectorSize(c.SectorSize) {
		return fmt.Errorf("config: %w: %d", sector.ErrSectorSize, c.SectorSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if err := c.KDF.Validate(); err != nil {
		return fmt.Errorf("config: kdf: %w", err)
	}
	return nil
}
