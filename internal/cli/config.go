package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds user preferences loaded from the TOML configuration file at
// ~/.config/loom/config.toml (or $XDG_CONFIG_HOME/loom/config.toml).
//
// Example:
//
//	[render]
//	format = "png"
//	detailed = true
//	scale = 2.0
//
//	[flatten]
//	format = "yaml"
type Config struct {
	Render  RenderConfig  `toml:"render"`
	Flatten FlattenConfig `toml:"flatten"`
}

// RenderConfig holds defaults for the render command.
type RenderConfig struct {
	// Format is the default output format: svg, pdf, png or dot.
	Format string `toml:"format"`

	// Detailed includes widget values in node labels.
	Detailed bool `toml:"detailed"`

	// Scale is the PNG resolution multiplier.
	Scale float64 `toml:"scale"`
}

// FlattenConfig holds defaults for the flatten command.
type FlattenConfig struct {
	// Format is the default output encoding: json or yaml.
	Format string `toml:"format"`
}

// DefaultConfig returns the built-in defaults used when no configuration
// file exists.
func DefaultConfig() *Config {
	return &Config{
		Render:  RenderConfig{Format: "svg", Scale: 2.0},
		Flatten: FlattenConfig{Format: "json"},
	}
}

// LoadConfig reads the user configuration file, layering it over the
// defaults. A missing file is not an error; a malformed one is.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	dir, err := configDir()
	if err != nil {
		return cfg, nil
	}
	path := filepath.Join(dir, "config.toml")
	meta, err := toml.DecodeFile(path, cfg)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
