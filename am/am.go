package am

// Config represents the tripline pipeline configuration
type Config struct {
	Source   SourceConfig   `mapstructure:"source" toml:"source" json:"source" yaml:"source"`
	Clean    CleanConfig    `mapstructure:"clean" toml:"clean" json:"clean" yaml:"clean"`
	Train    TrainConfig    `mapstructure:"train" toml:"train" json:"train" yaml:"train"`
	Tracking TrackingConfig `mapstructure:"tracking" toml:"tracking" json:"tracking" yaml:"tracking"`
	Watch    WatchConfig    `mapstructure:"watch" toml:"watch" json:"watch" yaml:"watch"`
	Log      LogConfig      `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// SourceConfig locates the trip record file
type SourceConfig struct {
	Path          string   `mapstructure:"path" toml:"path" json:"path" yaml:"path"`                                     // .parquet or .csv
	FallbackPaths []string `mapstructure:"fallback_paths" toml:"fallback_paths" json:"fallback_paths" yaml:"fallback_paths"` // tried in order when path is missing
}

// CleanConfig bounds the derived trip duration, in minutes, inclusive on both ends
type CleanConfig struct {
	MinDurationMinutes float64 `mapstructure:"min_duration_minutes" toml:"min_duration_minutes" json:"min_duration_minutes" yaml:"min_duration_minutes"`
	MaxDurationMinutes float64 `mapstructure:"max_duration_minutes" toml:"max_duration_minutes" json:"max_duration_minutes" yaml:"max_duration_minutes"`
}

// TrainConfig controls subsampling before the fit
type TrainConfig struct {
	SampleCap int    `mapstructure:"sample_cap" toml:"sample_cap" json:"sample_cap" yaml:"sample_cap"` // max rows fed to the fit (0 = no cap)
	Seed      uint64 `mapstructure:"seed" toml:"seed" json:"seed" yaml:"seed"`
}

// TrackingConfig configures the experiment tracking store
type TrackingConfig struct {
	DatabasePath   string `mapstructure:"database_path" toml:"database_path" json:"database_path" yaml:"database_path"`
	ExperimentName string `mapstructure:"experiment_name" toml:"experiment_name" json:"experiment_name" yaml:"experiment_name"`
	ModelName      string `mapstructure:"model_name" toml:"model_name" json:"model_name" yaml:"model_name"`
}

// WatchConfig configures `tripline watch`
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// LogConfig configures log output
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Theme string `mapstructure:"theme" toml:"theme" json:"theme" yaml:"theme"` // everforest, gruvbox
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// ConfigFileName is the project config file searched for upward from the working directory
const ConfigFileName = "tripline.toml"
