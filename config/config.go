package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CacheSize    int    `yaml:"cache_size,omitempty"`
	DefaultSheet string `yaml:"default_sheet,omitempty"`
	Encoding     string `yaml:"encoding,omitempty"`
	ColumnWidth  int    `yaml:"column_width,omitempty"`
	Debug        bool   `yaml:"debug,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		CacheSize:   10000,
		Encoding:    "utf-8",
		ColumnWidth: 16,
	}
}

func dir() (string, error) {
	if v := os.Getenv("GRIDCALC_CONFIG_DIR"); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "gridcalc"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gridcalc"), nil
}

// Path returns the location of the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// Load reads the config file over the defaults. A missing file yields the
// defaults. GRIDCALC_DEBUG, when set, turns debug logging on.
func Load() (Config, error) {
	cfg, err := readFile()
	if err != nil {
		return cfg, err
	}
	if os.Getenv("GRIDCALC_DEBUG") != "" {
		cfg.Debug = true
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = Default().CacheSize
	}
	if cfg.ColumnWidth < 4 {
		cfg.ColumnWidth = Default().ColumnWidth
	}
	return cfg, nil
}

func readFile() (Config, error) {
	cfg := Default()
	p, err := Path()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(p)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", p, err)
		}
	}
	return cfg, nil
}

// Keys lists the settings Set accepts.
var Keys = []string{"cache_size", "default_sheet", "encoding", "column_width", "debug"}

// Set assigns value to the setting named key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "cache_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("cache_size: want a positive integer, got %q", value)
		}
		c.CacheSize = n
	case "default_sheet":
		c.DefaultSheet = value
	case "encoding":
		c.Encoding = value
	case "column_width":
		n, err := strconv.Atoi(value)
		if err != nil || n < 4 {
			return fmt.Errorf("column_width: want an integer of at least 4, got %q", value)
		}
		c.ColumnWidth = n
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("debug: want true or false, got %q", value)
		}
		c.Debug = b
	default:
		return fmt.Errorf("unknown key %q (one of %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Update applies fn to the stored config and saves the result. The
// GRIDCALC_DEBUG override is not written back.
func Update(fn func(*Config) error) error {
	cfg, err := readFile()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return Save(cfg)
}

// Save writes the config to disk atomically using a temp file + rename.
func Save(cfg Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
