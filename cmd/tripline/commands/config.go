package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/tripline/am"
	"github.com/teranos/tripline/db"
	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/tracking"
)

// loadConfig loads configuration from --config or the default search path,
// validates it and applies the log theme.
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *am.Config
	var err error
	if path != "" {
		cfg, err = am.LoadFromFile(path)
		if err == nil {
			warnUndecoded(path)
		}
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	logger.SetTheme(cfg.GetLogTheme())
	if cfg.Log.JSON && !logger.JSONOutput {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(true, verbosity); err != nil {
			return nil, errors.Wrap(err, "failed to switch to JSON logs")
		}
	}
	return cfg, nil
}

// warnUndecoded logs keys in a config file that tripline does not know, usually typos
func warnUndecoded(path string) {
	keys, err := am.UndecodedKeys(path)
	if err != nil {
		return
	}
	for _, k := range keys {
		logger.Warnw("Unknown configuration key", "key", k, logger.FieldPath, path)
	}
}

// openStore opens and migrates the tracking database
func openStore(cfg *am.Config) (*sql.DB, *tracking.Store, error) {
	path := cfg.GetDatabasePath()
	database, err := db.OpenWithMigrations(path, logger.ComponentLogger("db"))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open tracking database at %s", path)
	}
	return database, tracking.NewStore(database, logger.ComponentLogger("tracking")), nil
}
