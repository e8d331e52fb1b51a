// Package config loads the user settings of tap.
//
// Values are layered, later sources winning: built in defaults, the yaml config
// file, TAP_* environment variables and finally command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvBinDir     = "TAP_BIN_DIR"
	EnvCacheDir   = "TAP_CACHE_DIR"
	EnvFormulaDir = "TAP_FORMULA_DIR"
)

type Config struct {
	// BinDir receives installed executables.
	BinDir string
	// CacheDir keeps downloaded archives and the debug log.
	CacheDir string
	// FormulaDir holds extra formula descriptors; empty means only the embedded ones.
	FormulaDir string
	// Progress enables download progress bars on terminals.
	Progress bool

	// Path is the config file that was read, empty if none.
	Path string
}

type yamlConfig struct {
	BinDir     string `yaml:"bin_dir"`
	CacheDir   string `yaml:"cache_dir"`
	FormulaDir string `yaml:"formula_dir"`
	Progress   *bool  `yaml:"progress"`
}

// Overrides are values set explicitly on the command line; empty fields are ignored.
type Overrides struct {
	BinDir     string
	CacheDir   string
	FormulaDir string
}

// Load reads the configuration.
// An empty path means the default location, which is allowed to not exist;
// an explicit path must exist.
func Load(path string) (Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return Config{}, err
	}

	explicit := path != ""
	if !explicit {
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.merge(path, data); err != nil {
			return Config{}, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.Apply(Overrides{
		BinDir:     os.Getenv(EnvBinDir),
		CacheDir:   os.Getenv(EnvCacheDir),
		FormulaDir: os.Getenv(EnvFormulaDir),
	})

	return cfg, nil
}

func (c *Config) merge(path string, data []byte) error {
	var dto yamlConfig
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	c.Path = path
	c.Apply(Overrides{BinDir: dto.BinDir, CacheDir: dto.CacheDir, FormulaDir: dto.FormulaDir})
	if dto.Progress != nil {
		c.Progress = *dto.Progress
	}

	return nil
}

// Apply sets every non empty override, expanding a leading ~.
func (c *Config) Apply(o Overrides) {
	if o.BinDir != "" {
		c.BinDir = expand(o.BinDir)
	}
	if o.CacheDir != "" {
		c.CacheDir = expand(o.CacheDir)
	}
	if o.FormulaDir != "" {
		c.FormulaDir = expand(o.FormulaDir)
	}
}

// Defaults returns the configuration used when nothing is set:
// ~/.local/bin for binaries and $XDG_CACHE_HOME/tap, or ~/.cache/tap, for the cache.
func Defaults() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("failed to determine home directory: %w", err)
	}

	cache := filepath.Join(home, ".cache", "tap")
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		cache = filepath.Join(xdg, "tap")
	}

	return Config{
		BinDir:   filepath.Join(home, ".local", "bin"),
		CacheDir: cache,
		Progress: true,
	}, nil
}

// DefaultPath is $XDG_CONFIG_HOME/tap/config.yaml, or ~/.config/tap/config.yaml.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tap", "config.yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	return filepath.Join(home, ".config", "tap", "config.yaml"), nil
}

func expand(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
