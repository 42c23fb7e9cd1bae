package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pinzun/simula-ameba/internal/services"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HYDRO_CONFIG_FILE", "")
	t.Setenv("HYDRO_SOURCE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, SourceCSV, cfg.Hydro.Source)
	assert.Equal(t, "Emb_", cfg.Hydro.Prefixes.Reservoir)
	assert.Equal(t, "HG_", cfg.Hydro.Prefixes.HydroGroup)
	assert.Equal(t, "Afl_", cfg.Hydro.Prefixes.Inflow)
	assert.Equal(t, "Dam.csv", cfg.Hydro.Files.Dams)

	opts := cfg.BuildOptions()
	assert.Equal(t, services.NaturalPermissive, opts.NaturalMode)
	assert.False(t, opts.Policy.FailOnAmbiguous)
	assert.False(t, opts.Policy.FailOnUnresolved)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hydro.yaml")
	content := `
server:
  port: 9090
hydro:
  data_dir: /srv/hydro
  natural_mode: strict
  strict_unresolved: true
  extra_nodes: [Sea, Sink]
  files:
    dams: Embalses.csv
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("HYDRO_CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("HYDRO_STRICT_AMBIGUOUS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/srv/hydro", cfg.Hydro.DataDir)
	assert.Equal(t, "Embalses.csv", cfg.Hydro.Files.Dams)
	assert.Equal(t, "HydroGenerator.csv", cfg.Hydro.Files.Generators)
	assert.Equal(t, []string{"Sea", "Sink"}, cfg.Hydro.ExtraNodes)

	opts := cfg.BuildOptions()
	assert.Equal(t, services.NaturalStrict, opts.NaturalMode)
	assert.True(t, opts.Policy.FailOnAmbiguous)
	assert.True(t, opts.Policy.FailOnUnresolved)
	assert.Equal(t, []string{"Sea", "Sink"}, opts.ExtraNodes)
}

func TestLoadConfig_BadFile(t *testing.T) {
	t.Setenv("HYDRO_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"unknown source", func(c *Config) { c.Hydro.Source = "s3" }, true},
		{"csv without dir", func(c *Config) { c.Hydro.DataDir = "" }, true},
		{"postgres source", func(c *Config) { c.Hydro.Source = SourcePostgres }, false},
		{"postgres without host", func(c *Config) {
			c.Hydro.Source = SourcePostgres
			c.Database.Host = ""
		}, true},
		{"unknown natural mode", func(c *Config) { c.Hydro.NaturalMode = "loose" }, true},
		{"negative sample", func(c *Config) { c.Hydro.SampleSize = -1 }, true},
		{"empty prefix", func(c *Config) { c.Hydro.Prefixes.Inflow = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(" , "))
}
