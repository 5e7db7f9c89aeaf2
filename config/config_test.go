package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("GRIDCALC_CONFIG_DIR", t.TempDir())
	t.Setenv("GRIDCALC_DEBUG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("GRIDCALC_CONFIG_DIR", tmp)
	t.Setenv("GRIDCALC_DEBUG", "1")
	data := "cache_size: 50\ndefault_sheet: Data\nencoding: latin1\ncolumn_width: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(data), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		CacheSize:    50,
		DefaultSheet: "Data",
		Encoding:     "latin1",
		ColumnWidth:  16,
		Debug:        true,
	}, cfg)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("GRIDCALC_CONFIG_DIR", tmp)
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("cache_size: [1"), 0o600))

	_, err := Load()
	assert.ErrorContains(t, err, "config.yaml")
}

func TestLoadConfigFileIsDirectory(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("GRIDCALC_CONFIG_DIR", tmp)
	require.NoError(t, os.Mkdir(filepath.Join(tmp, "config.yaml"), 0o755))

	_, err := Load()
	require.Error(t, err)
	assert.False(t, os.IsNotExist(err))
}

func TestSaveThenLoad(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "nested")
	t.Setenv("GRIDCALC_CONFIG_DIR", tmp)
	t.Setenv("GRIDCALC_DEBUG", "")

	want := Config{CacheSize: 20, DefaultSheet: "Sheet2", Encoding: "utf-8", ColumnWidth: 12}
	require.NoError(t, Save(want))
	_, err := os.Stat(filepath.Join(tmp, "config.yaml.tmp"))
	assert.True(t, os.IsNotExist(err))

	got, err := Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPathFallsBackToXDG(t *testing.T) {
	t.Setenv("GRIDCALC_CONFIG_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "gridcalc", "config.yaml"), p)
}

func TestSet(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Set("cache_size", "500"))
	require.NoError(t, cfg.Set("default_sheet", "Data"))
	require.NoError(t, cfg.Set("column_width", "8"))
	require.NoError(t, cfg.Set("debug", "true"))
	assert.Equal(t, Config{CacheSize: 500, DefaultSheet: "Data", Encoding: "utf-8", ColumnWidth: 8, Debug: true}, cfg)

	assert.ErrorContains(t, cfg.Set("cache_size", "0"), "positive integer")
	assert.ErrorContains(t, cfg.Set("column_width", "3"), "at least 4")
	assert.ErrorContains(t, cfg.Set("debug", "maybe"), "true or false")
	assert.ErrorContains(t, cfg.Set("colour", "red"), `unknown key "colour"`)
	assert.Equal(t, 500, cfg.CacheSize)
}

func TestUpdateKeepsEnvOverrideOutOfFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("GRIDCALC_CONFIG_DIR", tmp)
	t.Setenv("GRIDCALC_DEBUG", "1")

	require.NoError(t, Update(func(c *Config) error { return c.Set("default_sheet", "Data") }))
	raw, err := os.ReadFile(filepath.Join(tmp, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "default_sheet: Data")
	assert.NotContains(t, string(raw), "debug")

	assert.Error(t, Update(func(c *Config) error { return c.Set("nope", "") }))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Data", cfg.DefaultSheet)
}
