// Package config loads meridian's CLI configuration from an optional
// YAML file, overridable by cobra persistent flags in cmd/meridian.
package config

import (
	"os"

	"github.com/meridiandb/meridian/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of meridian's config file: by default
// <data-dir>/config.yaml, or wherever --config points.
type Config struct {
	LogLevel   log.Level `yaml:"log_level"`
	LogJSON    bool      `yaml:"log_json"`
	DataDir    string    `yaml:"data_dir"`
	SigningKey string    `yaml:"signing_key"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		LogLevel:   log.InfoLevel,
		LogJSON:    false,
		DataDir:    "./meridian-data",
		SigningKey: "default",
	}
}

// Load reads and parses the YAML file at path. A missing file is not an
// error: Load returns Default() unchanged so meridian runs with no
// config file present.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
