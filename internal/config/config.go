// Package config loads dbus-txt defaults from a file.
//
// The file is found only through the --config flag or the DBUS_TXT_CONFIG
// environment variable; there is no search path. Files ending in .yaml or
// .yml are YAML, files ending in .json or .jsonc are JSON that may carry
// comments and trailing commas. Command-line flags always win over values
// loaded here.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// EnvVar names the environment variable pointing at a config file.
const EnvVar = "DBUS_TXT_CONFIG"

var ErrInvalid = errors.New("invalid configuration")

type Format string

const (
	FormatText  Format = "text"
	FormatTree  Format = "tree"
	FormatShort Format = "short"
	FormatJSON  Format = "json"
	FormatCBOR  Format = "cbor"
)

var formats = []Format{FormatText, FormatTree, FormatShort, FormatJSON, FormatCBOR}

// Config holds defaults for a run.
type Config struct {
	// Bus is "system" or "session".
	Bus model.Bus `yaml:"bus" json:"bus"`

	// Address connects to an explicit D-Bus address instead of Bus.
	Address string `yaml:"address" json:"address"`

	// Workers bounds concurrent bus calls.
	// Default: 8
	Workers int `yaml:"workers" json:"workers"`

	// Timeout is the per-service introspection budget, as a Go duration.
	// Default: 5s
	Timeout string `yaml:"timeout" json:"timeout"`

	// MaxDepth bounds object tree depth.
	// Default: 64
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	Format Format `yaml:"format" json:"format"`
	Color  bool   `yaml:"color" json:"color"`

	All         bool `yaml:"all" json:"all"`
	Verbose     bool `yaml:"verbose" json:"verbose"`
	Activatable bool `yaml:"activatable" json:"activatable"`
}

func Default() *Config {
	return &Config{
		Workers:  8,
		Timeout:  "5s",
		MaxDepth: 64,
		Format:   FormatText,
		Color:    true,
	}
}

// Path returns the config file selected by flag, falling back to the
// environment. An empty result means no file.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvVar)
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := Parse(cfg, data, filepath.Ext(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg according to the file extension ext.
func Parse(cfg *Config, data []byte, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return fmt.Errorf("parsing JSON: %w", err)
		}
	default:
		return fmt.Errorf("%w: unsupported config file type %q", ErrInvalid, ext)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Bus {
	case "", model.BusSystem, model.BusSession:
	default:
		return fmt.Errorf("%w: bus must be %q or %q, got %q", ErrInvalid, model.BusSystem, model.BusSession, c.Bus)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max_depth must be at least 1, got %d", ErrInvalid, c.MaxDepth)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if !ValidFormat(c.Format) {
		return fmt.Errorf("%w: unknown format %q", ErrInvalid, c.Format)
	}
	return nil
}

func (c *Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout: %w", ErrInvalid, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalid, c.Timeout)
	}
	return d, nil
}

func ValidFormat(f Format) bool {
	for _, known := range formats {
		if f == known {
			return true
		}
	}
	return false
}
