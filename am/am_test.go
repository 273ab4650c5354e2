package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance, no user or project config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultSourcePath, cfg.Source.Path)
	assert.Empty(t, cfg.Source.FallbackPaths)
	assert.Equal(t, 1.0, cfg.Clean.MinDurationMinutes)
	assert.Equal(t, 60.0, cfg.Clean.MaxDurationMinutes)
	assert.Equal(t, 100000, cfg.Train.SampleCap)
	assert.Equal(t, uint64(42), cfg.Train.Seed)
	assert.Equal(t, "tripline.db", cfg.Tracking.DatabasePath)
	assert.Equal(t, "taxi-duration-prediction", cfg.Tracking.ExperimentName)
	assert.Equal(t, "taxi-duration-model", cfg.Tracking.ModelName)
	assert.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"source.path", DefaultSourcePath},
		{"clean.min_duration_minutes", 1.0},
		{"clean.max_duration_minutes", 60.0},
		{"train.sample_cap", 100000},
		{"train.seed", 42},
		{"tracking.database_path", "tripline.db"},
		{"log.theme", "everforest"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.Get(tt.key))
		})
	}
}

func validConfig() Config {
	return Config{
		Source:   SourceConfig{Path: "trips.parquet"},
		Clean:    CleanConfig{MinDurationMinutes: 1, MaxDurationMinutes: 60},
		Train:    TrainConfig{SampleCap: 100, Seed: 42},
		Tracking: TrackingConfig{ExperimentName: "e", ModelName: "m"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"csv source", func(c *Config) { c.Source.Path = "trips.CSV" }, false},
		{"fallback only", func(c *Config) { c.Source.Path = ""; c.Source.FallbackPaths = []string{"a.csv"} }, false},
		{"no source", func(c *Config) { c.Source.Path = "" }, true},
		{"unknown extension", func(c *Config) { c.Source.Path = "trips.json" }, true},
		{"bad fallback extension", func(c *Config) { c.Source.FallbackPaths = []string{"a.txt"} }, true},
		{"negative min", func(c *Config) { c.Clean.MinDurationMinutes = -1 }, true},
		{"inverted bounds", func(c *Config) { c.Clean.MinDurationMinutes = 10; c.Clean.MaxDurationMinutes = 5 }, true},
		{"equal bounds", func(c *Config) { c.Clean.MinDurationMinutes = 5; c.Clean.MaxDurationMinutes = 5 }, false},
		{"zero sample cap is valid (no cap)", func(c *Config) { c.Train.SampleCap = 0 }, false},
		{"negative sample cap", func(c *Config) { c.Train.SampleCap = -1 }, true},
		{"empty experiment", func(c *Config) { c.Tracking.ExperimentName = "" }, true},
		{"empty model", func(c *Config) { c.Tracking.ModelName = "" }, true},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMS = -1 }, true},
		{"unknown theme", func(c *Config) { c.Log.Theme = "solarized" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
[source]
path = "data/march.csv"
fallback_paths = ["data/backup.parquet"]

[train]
sample_cap = 500
seed = 7

[tracking]
experiment_name = "nightly"
`
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "data/march.csv", cfg.Source.Path)
	assert.Equal(t, []string{"data/march.csv", "data/backup.parquet"}, cfg.SourcePaths())
	assert.Equal(t, 500, cfg.Train.SampleCap)
	assert.Equal(t, uint64(7), cfg.Train.Seed)
	assert.Equal(t, "nightly", cfg.Tracking.ExperimentName)
	// Unset keys keep their defaults
	assert.Equal(t, DefaultModelName, cfg.Tracking.ModelName)
	assert.Equal(t, 60.0, cfg.Clean.MaxDurationMinutes)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("[tracking]\ndatabase_path = \"file.db\"\n"), DefaultFilePermissions))
	t.Setenv("TRIPLINE_DATABASE_PATH", "env.db")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.GetDatabasePath())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestUndecodedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
[clean]
max_duration = 90
min_duration_minutes = 2

[trian]
seed = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))

	keys, err := UndecodedKeys(path)
	require.NoError(t, err)
	assert.Contains(t, keys, "clean.max_duration")
	assert.Contains(t, keys, "trian.seed")
	assert.NotContains(t, keys, "clean.min_duration_minutes")
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("found in parent", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "found", "subdir")
		require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "found", ConfigFileName), []byte(""), DefaultFilePermissions))

		t.Chdir(subDir)

		result := findProjectConfig()
		assert.True(t, filepath.IsAbs(result))
		assert.Equal(t, ConfigFileName, filepath.Base(result))
	})

	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "missing", "subdir")
		require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))

		t.Chdir(subDir)

		assert.Empty(t, findProjectConfig())
	})
}

func TestGetters(t *testing.T) {
	var cfg Config
	assert.Equal(t, DefaultDatabasePath, cfg.GetDatabasePath())
	assert.Equal(t, DefaultLogTheme, cfg.GetLogTheme())
	assert.Empty(t, cfg.SourcePaths())
}
