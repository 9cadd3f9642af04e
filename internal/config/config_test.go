package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afisha/internal/config"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "*/30 * * * *", cfg.RefreshCron)
	assert.Equal(t, 3, cfg.Sheet.SkipRows)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The written file must round-trip through Load.
	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Sheet.URL, again.Sheet.URL)
}

func TestLoad_PartialConfigGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \"0.0.0.0:9000\"\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "*/30 * * * *", cfg.RefreshCron)
	assert.Equal(t, "events.json", cfg.EventsFile)
	assert.Equal(t, time.Second, cfg.Geocode.ArcGIS.MinInterval)
	assert.Equal(t, "Калининград", cfg.Geocode.DefaultLocality)
	assert.NotEmpty(t, cfg.Geocode.LocalityKeywords)
}

func TestLoad_EmptyPathRejected(t *testing.T) {
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_MalformedYAMLRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate_RegionBounds(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Geocode.Region.MinLat = 56
	cfg.Geocode.Region.MaxLat = 54

	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiredPaths(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EventsFile = ""
	assert.Error(t, cfg.Validate())

	cfg = config.DefaultConfig()
	cfg.CacheFile = ""
	assert.Error(t, cfg.Validate())

	cfg = config.DefaultConfig()
	cfg.Sheet.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestNormalize_NegativeSkipRowsReset(t *testing.T) {
	cfg := &config.Config{}
	cfg.Sheet.SkipRows = -1
	cfg.Normalize()
	assert.Equal(t, 3, cfg.Sheet.SkipRows)
}

func TestNormalize_ExplicitZeroSkipRowsKept(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()
	assert.Equal(t, 0, cfg.Sheet.SkipRows)
}
